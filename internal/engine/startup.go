package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
)

// Hosted is implemented by engines whose model catalog is fixed by the
// provider. EnsureReady never pulls on a hosted engine.
type Hosted interface {
	Hosted() bool
}

func isHosted(e Engine) bool {
	h, ok := e.(Hosted)
	return ok && h.Hosted()
}

// EnsureReady checks that the engine answers and that the chat and embedding
// models exist. On a local engine missing models are pulled, with progress
// written to w. On a hosted engine the catalog is listed once and models it
// does not list are only reported.
func EnsureReady(ctx context.Context, e Engine, chatModel, embedModel string, w io.Writer) error {
	if !e.IsRunning(ctx) {
		return fmt.Errorf("inference engine is not reachable; is the backend started?")
	}

	var wanted []string
	for _, m := range []string{chatModel, embedModel} {
		if m != "" && !slices.Contains(wanted, m) {
			wanted = append(wanted, m)
		}
	}

	if isHosted(e) {
		listed, err := e.ListModels(ctx)
		if err != nil {
			return fmt.Errorf("listing provider models: %w", err)
		}
		for _, m := range wanted {
			if slices.Contains(listed, m) {
				fmt.Fprintf(w, "model %s: ready\n", m)
				continue
			}
			fmt.Fprintf(w, "model %s: not listed by provider\n", m)
			slog.Warn("configured model not listed by provider", "model", m)
		}
		return nil
	}

	for _, m := range wanted {
		if !e.HasModel(ctx, m) {
			if err := pull(ctx, e, m, w); err != nil {
				return err
			}
		}
		fmt.Fprintf(w, "model %s: ready\n", m)
	}
	return nil
}

func pull(ctx context.Context, e Engine, model string, w io.Writer) error {
	fmt.Fprintf(w, "model %s: pulling...\n", model)
	err := e.PullModel(ctx, model, func(p PullProgress) {
		if p.Total > 0 {
			fmt.Fprintf(w, "  %s %.0f%%\n", p.Status, float64(p.Completed)/float64(p.Total)*100)
			return
		}
		fmt.Fprintf(w, "  %s\n", p.Status)
	})
	if err != nil {
		return fmt.Errorf("pulling model %s: %w", model, err)
	}
	return nil
}
