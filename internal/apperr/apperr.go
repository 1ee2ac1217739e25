// Package apperr defines the error kinds surfaced at component boundaries.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure. A Kind is itself an error so callers can write
// errors.Is(err, apperr.NotFound).
type Kind string

const (
	UnknownCapability    Kind = "unknown_capability"
	InvalidArguments     Kind = "invalid_arguments"
	ExecutionFailure     Kind = "execution_failure"
	RetrievalUnavailable Kind = "retrieval_unavailable"
	NotFound             Kind = "not_found"
	NoHistory            Kind = "no_history"
	ParseFailure         Kind = "parse_failure"
	EmptyInput           Kind = "empty_input"
)

func (k Kind) Error() string { return string(k) }

// Error carries a Kind plus the context needed to report it.
type Error struct {
	Kind       Kind
	Capability string
	// Fields lists offending argument names for InvalidArguments.
	Fields []string
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Capability != "" {
		fmt.Fprintf(&b, " (%s)", e.Capability)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if len(e.Fields) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(e.Fields, ", "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the error against its Kind.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// New returns an *Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap returns an *Error of the given kind wrapping err.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the first Kind found in err's chain, or "" if none.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var k Kind
	if errors.As(err, &k) {
		return k
	}
	return ""
}

// FieldsOf returns the offending fields recorded on err, if any.
func FieldsOf(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}
