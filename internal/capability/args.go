package capability

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/Lim-seunghwan99/Interview-chatbot/internal/apperr"
)

// Args are bound arguments: every value has the Go type matching its
// declared ParamType (string, int, float64, bool).
type Args map[string]any

// String returns the named string argument, or "" if absent.
func (a Args) String(name string) string {
	s, _ := a[name].(string)
	return s
}

// Int returns the named integer argument, or 0 if absent.
func (a Args) Int(name string) int {
	n, _ := a[name].(int)
	return n
}

// Float returns the named number argument, or 0 if absent.
func (a Args) Float(name string) float64 {
	f, _ := a[name].(float64)
	return f
}

// Bool returns the named boolean argument, or false if absent.
func (a Args) Bool(name string) bool {
	b, _ := a[name].(bool)
	return b
}

// Bind validates raw model-supplied arguments against d's schema. Missing
// required arguments and type mismatches are collected into a single
// InvalidArguments error naming every offending field. Optional arguments
// that are absent receive their default. Unknown arguments are dropped.
func Bind(d Descriptor, raw map[string]any) (Args, error) {
	args := make(Args, len(d.Params))
	var bad []string

	for _, p := range d.Params {
		v, present := raw[p.Name]
		if !present || v == nil {
			if p.Required {
				bad = append(bad, p.Name)
			} else if p.Default != nil {
				args[p.Name] = p.Default
			}
			continue
		}

		cv, ok := coerce(p.Type, v)
		if !ok {
			bad = append(bad, p.Name)
			continue
		}
		if p.Required && p.Type == String && strings.TrimSpace(cv.(string)) == "" {
			bad = append(bad, p.Name)
			continue
		}
		args[p.Name] = cv
	}

	if len(bad) > 0 {
		return nil, &apperr.Error{
			Kind:       apperr.InvalidArguments,
			Capability: d.Name,
			Fields:     bad,
			Msg:        "missing or mistyped arguments",
		}
	}
	return args, nil
}

// coerce converts a decoded JSON value to the Go type for t. Numeric and
// boolean strings are accepted since models often quote scalars.
func coerce(t ParamType, v any) (any, bool) {
	switch t {
	case String:
		s, ok := v.(string)
		return s, ok
	case Integer:
		switch n := v.(type) {
		case int:
			return n, true
		case int64:
			return int(n), true
		case float64:
			if n == math.Trunc(n) && n >= math.MinInt && n < math.MaxInt {
				return int(n), true
			}
		case json.Number:
			if i, err := n.Int64(); err == nil {
				return int(i), true
			}
		case string:
			if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
				return i, true
			}
		}
	case Number:
		switch n := v.(type) {
		case float64:
			return n, true
		case int:
			return float64(n), true
		case int64:
			return float64(n), true
		case json.Number:
			if f, err := n.Float64(); err == nil {
				return f, true
			}
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
				return f, true
			}
		}
	case Boolean:
		switch b := v.(type) {
		case bool:
			return b, true
		case string:
			if pb, err := strconv.ParseBool(strings.TrimSpace(b)); err == nil {
				return pb, true
			}
		}
	}
	return nil, false
}
