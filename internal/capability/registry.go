// Package capability holds the catalog of named operations the agent can
// route to, and the argument binding that validates a model's selection
// against a capability's schema.
package capability

import (
	"context"
	"fmt"

	"github.com/Lim-seunghwan99/Interview-chatbot/internal/apperr"
)

// ParamType is the JSON type of a capability argument.
type ParamType string

const (
	String  ParamType = "string"
	Integer ParamType = "integer"
	Number  ParamType = "number"
	Boolean ParamType = "boolean"
)

// Param describes one argument in a capability's schema.
type Param struct {
	Name        string
	Type        ParamType
	Description string
	Required    bool
	// Default is applied when an optional argument is absent. Nil means
	// the argument is simply left out of the bound Args.
	Default any
}

// Executor runs a capability with arguments already bound to its schema.
type Executor func(ctx context.Context, args Args) (any, error)

// Descriptor is a named capability with its schema and executor.
type Descriptor struct {
	Name        string
	Description string
	Params      []Param
	Execute     Executor
}

// Builder collects descriptors at startup. It is not safe for concurrent use;
// call Build once registration is complete.
type Builder struct {
	descs []Descriptor
	seen  map[string]bool
	err   error
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{seen: make(map[string]bool)}
}

// Register adds d to the catalog. The first invalid or duplicate descriptor
// is remembered and reported by Build.
func (b *Builder) Register(d Descriptor) *Builder {
	if b.err != nil {
		return b
	}
	switch {
	case d.Name == "":
		b.err = fmt.Errorf("capability with empty name")
	case b.seen[d.Name]:
		b.err = fmt.Errorf("capability %q registered twice", d.Name)
	case d.Execute == nil:
		b.err = fmt.Errorf("capability %q has no executor", d.Name)
	}
	if b.err == nil {
		for _, p := range d.Params {
			if !p.Type.valid() {
				b.err = fmt.Errorf("capability %q: parameter %q has unsupported type %q", d.Name, p.Name, p.Type)
				break
			}
		}
	}
	if b.err != nil {
		return b
	}

	d.Params = append([]Param(nil), d.Params...)
	b.descs = append(b.descs, d)
	b.seen[d.Name] = true
	return b
}

// Build freezes the catalog into a Registry.
func (b *Builder) Build() (*Registry, error) {
	if b.err != nil {
		return nil, b.err
	}
	r := &Registry{
		ordered: append([]Descriptor(nil), b.descs...),
		byName:  make(map[string]int, len(b.descs)),
	}
	for i, d := range r.ordered {
		r.byName[d.Name] = i
	}
	return r, nil
}

// Registry is an immutable capability catalog, safe for concurrent lookups.
type Registry struct {
	ordered []Descriptor
	byName  map[string]int
}

// Describe returns the catalog in registration order.
func (r *Registry) Describe() []Descriptor {
	out := make([]Descriptor, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Get returns the named descriptor or an UnknownCapability error.
func (r *Registry) Get(name string) (Descriptor, error) {
	i, ok := r.byName[name]
	if !ok {
		return Descriptor{}, &apperr.Error{Kind: apperr.UnknownCapability, Capability: name, Msg: "no such capability"}
	}
	return r.ordered[i], nil
}

// Len returns the number of registered capabilities.
func (r *Registry) Len() int { return len(r.ordered) }

func (t ParamType) valid() bool {
	switch t {
	case String, Integer, Number, Boolean:
		return true
	}
	return false
}

// JSONSchema renders the descriptor's parameters as a JSON Schema object
// suitable for a model's tool definition.
func (d Descriptor) JSONSchema() map[string]any {
	props := make(map[string]any, len(d.Params))
	required := make([]string, 0, len(d.Params))
	for _, p := range d.Params {
		prop := map[string]any{"type": string(p.Type)}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		props[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}
