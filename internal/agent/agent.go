// Package agent ties intent resolution to dispatch: one model decision per
// request, validated and executed inside a failure boundary.
package agent

import (
	"context"
	"log/slog"

	"github.com/Lim-seunghwan99/Interview-chatbot/internal/apperr"
	"github.com/Lim-seunghwan99/Interview-chatbot/internal/intent"
)

// IntentResolver turns user text into a routing decision.
type IntentResolver interface {
	Resolve(ctx context.Context, text string) (intent.Resolved, error)
}

// Agent is the route entry point.
type Agent struct {
	resolver   IntentResolver
	dispatcher *Dispatcher
}

// New creates an Agent.
func New(resolver IntentResolver, dispatcher *Dispatcher) *Agent {
	return &Agent{resolver: resolver, dispatcher: dispatcher}
}

// Route resolves text and executes the selection. Failures to resolve are
// reported in the envelope with no capability set: EmptyInput for blank
// text, ExecutionFailure for anything else.
func (a *Agent) Route(ctx context.Context, text string) Envelope {
	resolved, err := a.resolver.Resolve(ctx, text)
	if err != nil {
		if apperr.KindOf(err) != apperr.EmptyInput {
			slog.Warn("intent resolution failed", "error", err)
			err = apperr.Wrap(apperr.ExecutionFailure, err, "resolving intent")
		}
		return failed("", nil, err)
	}

	if resolved.Selected() {
		slog.Debug("routing", "capability", resolved.Capability)
	}
	return a.dispatcher.Execute(ctx, resolved)
}
