package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Lim-seunghwan99/Interview-chatbot/internal/apperr"
	"github.com/Lim-seunghwan99/Interview-chatbot/internal/capability"
	"github.com/Lim-seunghwan99/Interview-chatbot/internal/intent"
)

var errNilResult = errors.New("capability returned no result")

// Dispatcher validates a routing decision against the registry and runs the
// chosen executor. It holds no per-call state.
type Dispatcher struct {
	registry *capability.Registry
}

// NewDispatcher creates a Dispatcher over reg.
func NewDispatcher(reg *capability.Registry) *Dispatcher {
	return &Dispatcher{registry: reg}
}

// Execute never returns an error: every failure is carried in the envelope.
func (d *Dispatcher) Execute(ctx context.Context, r intent.Resolved) Envelope {
	if !r.Selected() {
		return Envelope{Result: r.Answer}
	}

	desc, err := d.registry.Get(r.Capability)
	if err != nil {
		slog.Warn("model selected unknown capability", "capability", r.Capability)
		return failed(r.Capability, r.Arguments, err)
	}

	args, err := capability.Bind(desc, r.Arguments)
	if err != nil {
		slog.Debug("rejected capability arguments", "capability", desc.Name, "fields", apperr.FieldsOf(err))
		return failed(desc.Name, r.Arguments, err)
	}

	result, err := run(ctx, desc, args)
	if err != nil {
		slog.Warn("capability failed", "capability", desc.Name, "error", err)
		return failed(desc.Name, args, err)
	}
	return Envelope{Capability: desc.Name, Arguments: args, Result: result}
}

// run invokes the executor, converting errors and panics to ExecutionFailure.
func run(ctx context.Context, desc capability.Descriptor, args capability.Args) (result any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &apperr.Error{Kind: apperr.ExecutionFailure, Capability: desc.Name, Msg: fmt.Sprintf("panic: %v", p)}
		}
	}()

	result, err = desc.Execute(ctx, args)
	if err == nil && result == nil {
		err = errNilResult
	}
	if err != nil {
		return nil, &apperr.Error{Kind: apperr.ExecutionFailure, Capability: desc.Name, Err: err}
	}
	return result, nil
}
