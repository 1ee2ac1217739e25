package intent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Lim-seunghwan99/Interview-chatbot/internal/apperr"
	"github.com/Lim-seunghwan99/Interview-chatbot/internal/capability"
	"github.com/Lim-seunghwan99/Interview-chatbot/internal/engine"
)

// Completer is the slice of engine.Engine the resolver needs.
type Completer interface {
	Complete(ctx context.Context, model string, messages []engine.Message, tools []engine.Tool) (engine.Reply, error)
}

// Resolved is a single routing decision. When the model declined all tools,
// Capability is empty and Answer holds its free-text reply. ToolCall is set
// whenever the model made a tool call, even one naming no capability.
type Resolved struct {
	Capability string
	Arguments  map[string]any
	Answer     string
	ToolCall   bool
}

// Selected reports whether the model chose a capability. A tool call with a
// blank name still counts, so the dispatcher rejects it as unknown.
func (r Resolved) Selected() bool { return r.ToolCall || r.Capability != "" }

// Resolver asks a language model to pick at most one capability for a request.
type Resolver struct {
	client  Completer
	model   string
	catalog []capability.Descriptor
	tools   []engine.Tool
}

// NewResolver creates a Resolver offering every capability in reg.
func NewResolver(client Completer, model string, reg *capability.Registry) *Resolver {
	catalog := reg.Describe()
	return &Resolver{
		client:  client,
		model:   model,
		catalog: catalog,
		tools:   Tools(catalog),
	}
}

// Resolve makes one model call. The model's choice is not checked against
// the registry here; the dispatcher validates it.
func (r *Resolver) Resolve(ctx context.Context, text string) (Resolved, error) {
	if strings.TrimSpace(text) == "" {
		return Resolved{}, apperr.New(apperr.EmptyInput, "user text is empty")
	}

	reply, err := r.client.Complete(ctx, r.model, BuildPrompt(text, r.catalog), r.tools)
	if err != nil {
		return Resolved{}, fmt.Errorf("resolving intent: %w", err)
	}

	if len(reply.ToolCalls) == 0 {
		return Resolved{Answer: reply.Content}, nil
	}

	// First selection wins; the rest are dropped for determinism.
	if len(reply.ToolCalls) > 1 {
		ignored := make([]string, 0, len(reply.ToolCalls)-1)
		for _, tc := range reply.ToolCalls[1:] {
			ignored = append(ignored, tc.Name)
		}
		slog.Debug("model selected several tools, honoring the first", "chosen", reply.ToolCalls[0].Name, "ignored", ignored)
	}

	call := reply.ToolCalls[0]
	args := call.Arguments
	if args == nil {
		args = map[string]any{}
	}
	return Resolved{Capability: call.Name, Arguments: args, ToolCall: true}, nil
}
