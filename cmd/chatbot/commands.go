package main

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/Lim-seunghwan99/Interview-chatbot/internal/api"
	"github.com/Lim-seunghwan99/Interview-chatbot/internal/config"
	"github.com/Lim-seunghwan99/Interview-chatbot/internal/corpus"
	"github.com/Lim-seunghwan99/Interview-chatbot/internal/persona"
	"github.com/Lim-seunghwan99/Interview-chatbot/internal/storage"
	"github.com/Lim-seunghwan99/Interview-chatbot/internal/transcript"
)

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <request>",
	Short: "Route a request to the best matching skill",
	Long: `Route a request to the best matching skill.

Examples:
  chatbot ask "make this message sound softer: 내일까지 보내세요"
  chatbot ask "find 5 interview questions about teamwork"
  chatbot ask --json "evaluate my answer to: why this company?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/api/process-text", api.TextRequest{UserText: strings.Join(args, " ")})
		if err != nil {
			return err
		}

		var result api.ProcessResponse
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if asJSON {
			return printJSON(cmd.OutOrStdout(), result.Response)
		}
		printEnvelope(cmd.OutOrStdout(), result.Response)
		return nil
	},
}

func init() {
	askCmd.Flags().Bool("json", false, "print the raw result envelope")
}

// --- ingest ---

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Queue a chatroom transcript for indexing",
	Long: `Queue a chatroom transcript for indexing. A later submission for the
same room replaces the earlier one.

Examples:
  chatbot ingest --room team-42 --text "A: hi\nB: let's throw a party"
  chatbot ingest --room team-42 --file ./chat.txt
  chatbot ingest --room team-42 --file ./export.pdf`,
	RunE: func(cmd *cobra.Command, args []string) error {
		room, _ := cmd.Flags().GetString("room")
		text, _ := cmd.Flags().GetString("text")
		file, _ := cmd.Flags().GetString("file")

		if room == "" {
			return fmt.Errorf("--room is required")
		}
		if text == "" && file == "" {
			return fmt.Errorf("one of --text or --file is required")
		}

		content := text
		if file != "" {
			var err error
			content, err = transcript.ReadFile(file)
			if err != nil {
				return err
			}
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/api/chatrooms", api.ChatroomRequest{ChatroomID: room, Content: content})
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Queued chatroom %s", result["chatroom_id"])
		return nil
	},
}

func init() {
	ingestCmd.Flags().String("room", "", "chatroom identifier")
	ingestCmd.Flags().String("text", "", "transcript text")
	ingestCmd.Flags().String("file", "", "transcript file (.txt or .pdf)")
}

// --- analyze ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze <chatroom-id>",
	Short: "Classify a speaker's persona from a stored chatroom",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/analyze/chatroom/"+url.PathEscape(args[0]), nil)
		if err != nil {
			return err
		}

		var p persona.Profile
		if err := decodeJSON(resp, &p); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s\n", colorize(colorBold, "Persona:"), p.Persona)
		if p.Reasoning != "" {
			fmt.Fprintf(out, "%s %s\n", colorize(colorBold, "Reasoning:"), p.Reasoning)
		}
		if p.Feedback != "" {
			fmt.Fprintf(out, "%s %s\n", colorize(colorBold, "Feedback:"), p.Feedback)
		}
		return nil
	},
}

// --- interactions ---

var interactionsCmd = &cobra.Command{
	Use:   "interactions",
	Short: "Browse routed request history",
}

var interactionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent interactions",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/api/interactions?limit=%d", limit))
		if err != nil {
			return err
		}

		var interactions []storage.Interaction
		if err := decodeJSON(resp, &interactions); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(interactions) == 0 {
			fmt.Fprintln(out, "No interactions found.")
			return nil
		}

		for _, ix := range interactions {
			outcome := ix.Capability
			if outcome == "" {
				outcome = "-"
			}
			if ix.ErrorKind != "" {
				outcome += " (" + ix.ErrorKind + ")"
			}
			fmt.Fprintf(out, "%s  %s  %-5s  %s  %s\n",
				colorize(colorCyan, shortID(ix.ID)),
				ix.CreatedAt.Format("2006-01-02 15:04:05"),
				ix.InputType,
				outcome,
				truncate(ix.UserText, 60),
			)
		}
		return nil
	},
}

var interactionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single interaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/api/interactions/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}

		var interaction storage.Interaction
		if err := decodeJSON(resp, &interaction); err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), interaction)
	},
}

func init() {
	interactionsListCmd.Flags().Int("limit", 20, "maximum number of interactions to list")
	interactionsCmd.AddCommand(interactionsListCmd)
	interactionsCmd.AddCommand(interactionsShowCmd)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

// --- corpus ---

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Manage the interview Q&A corpus",
}

var corpusLoadCmd = &cobra.Command{
	Use:   "load <file.json>",
	Short: "Embed and index a JSON array of Q&A items",
	Long: `Embed and index a JSON array of Q&A items. Each item needs a
"question" field; every other field is kept as metadata. Reloading the same
file replaces the entries in place.

Runs in-process against the configured storage, so the server does not
need to be running.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening corpus: %w", err)
		}
		defer f.Close()

		items, err := corpus.Decode(f)
		if err != nil {
			return err
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		setupLogging(cfg.Log.Level)

		b, err := openBackend(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer b.Close()

		n, err := corpus.Load(cmd.Context(), b.retriever.Embedder(), b.index, items)
		if err != nil {
			return err
		}
		if n == 0 {
			printWarning("%s holds no Q&A items", args[0])
			return nil
		}
		printSuccess("Indexed %d Q&A items", n)
		return nil
	},
}

func init() {
	corpusCmd.AddCommand(corpusLoadCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in config.json. Secrets (API keys and the
server token) are read from the environment or secrets.json instead.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
