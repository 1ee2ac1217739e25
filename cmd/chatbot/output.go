package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/Lim-seunghwan99/Interview-chatbot/internal/agent"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorGreen, "✓ "+msg))
}

func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorRed, "✗ "+msg))
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorYellow, "⚠ "+msg))
}

func printStatus(label string, format string, args ...any) {
	val := fmt.Sprintf(format, args...)
	l := colorize(colorBold, label+":")
	fmt.Fprintf(os.Stderr, "  %s %s\n", l, val)
}

// printEnvelope writes a routed result for humans: the chosen capability,
// then the result (strings verbatim, anything else as indented JSON) or the
// error kind and message.
func printEnvelope(w io.Writer, env agent.Envelope) {
	if env.Capability != "" {
		fmt.Fprintf(w, "%s %s\n", colorize(colorCyan, "→"), colorize(colorBold, env.Capability))
	}
	if env.Error != nil {
		fmt.Fprintf(w, "%s %s\n", colorize(colorRed, string(env.Error.Kind)+":"), env.Error.Message)
		return
	}
	if s, ok := env.Result.(string); ok {
		fmt.Fprintln(w, s)
		return
	}
	printJSON(w, env.Result)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
