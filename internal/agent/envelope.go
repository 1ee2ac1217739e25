package agent

import "github.com/Lim-seunghwan99/Interview-chatbot/internal/apperr"

// Envelope is the normalized outcome of routing one request. Exactly one of
// Result and Error is set. When Capability is empty and Error is nil, Result
// holds the model's free-text answer.
type Envelope struct {
	Capability string         `json:"capability,omitempty"`
	Arguments  map[string]any `json:"arguments,omitempty"`
	Result     any            `json:"result"`
	Error      *EnvelopeError `json:"error,omitempty"`
}

// EnvelopeError is a failure reported as data.
type EnvelopeError struct {
	Kind    apperr.Kind `json:"kind"`
	Message string      `json:"message"`
	Fields  []string    `json:"fields,omitempty"`
}

func (e *EnvelopeError) Error() string { return e.Message }

// Is lets errors.Is(envErr, apperr.ParseFailure) match by kind.
func (e *EnvelopeError) Is(target error) bool {
	k, ok := target.(apperr.Kind)
	return ok && k == e.Kind
}

// OK reports whether the envelope carries a result.
func (e Envelope) OK() bool { return e.Error == nil }

func failed(capability string, args map[string]any, err error) Envelope {
	kind := apperr.KindOf(err)
	if kind == "" {
		kind = apperr.ExecutionFailure
	}
	return Envelope{
		Capability: capability,
		Arguments:  args,
		Error: &EnvelopeError{
			Kind:    kind,
			Message: err.Error(),
			Fields:  apperr.FieldsOf(err),
		},
	}
}

// AsError returns the envelope's failure as an error, or nil.
func (e Envelope) AsError() error {
	if e.Error == nil {
		return nil
	}
	return e.Error
}
