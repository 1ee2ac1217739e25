package persona

import (
	"strings"
	"unicode"

	"github.com/Lim-seunghwan99/Interview-chatbot/internal/apperr"
)

type field int

const (
	fieldNone field = iota
	fieldPersona
	fieldReasoning
	fieldFeedback
)

// labels maps normalized label text to the field it introduces.
var labels = map[string]field{
	"persona":                   fieldPersona,
	"your conversation persona": fieldPersona,
	"conversation persona":      fieldPersona,
	"당신의 대화 페르소나":               fieldPersona,
	"페르소나":                      fieldPersona,
	"reasoning":                 fieldReasoning,
	"rationale":                 fieldReasoning,
	"판단 근거":                     fieldReasoning,
	"feedback":                  fieldFeedback,
	"what makes you shine":      fieldFeedback,
	"당신은 이런 점이 멋져요":             fieldFeedback,
}

// ParseReply extracts a Profile from the model's free-text reply. Labels may
// be wrapped in emphasis, preceded by a bullet, and followed by an ASCII or
// full-width colon. Lines after a label that carry no label of their own
// continue that field. A missing or empty persona is a ParseFailure; the
// other two fields may be empty.
func ParseReply(reply string) (Profile, error) {
	values := map[field][]string{}
	current := fieldNone

	for _, raw := range strings.Split(reply, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if label, value, ok := splitLabel(stripBullet(line)); ok {
			if f, known := labels[normalizeLabel(label)]; known {
				current = f
				values[f] = append(values[f], value)
				continue
			}
		}
		if strings.HasPrefix(line, "#") {
			current = fieldNone
			continue
		}
		if current != fieldNone {
			values[current] = append(values[current], line)
		}
	}

	p := Profile{
		Persona:   clean(values[fieldPersona]),
		Reasoning: clean(values[fieldReasoning]),
		Feedback:  clean(values[fieldFeedback]),
	}
	if p.Persona == "" {
		return Profile{}, &apperr.Error{Kind: apperr.ParseFailure, Msg: "reply has no persona field"}
	}
	return p, nil
}

// stripBullet drops one leading list marker: "-", "*", "•" or "1." / "1)".
func stripBullet(s string) string {
	switch {
	case strings.HasPrefix(s, "- "), strings.HasPrefix(s, "• "):
		return strings.TrimSpace(s[strings.Index(s, " ")+1:])
	case strings.HasPrefix(s, "* "):
		return strings.TrimSpace(s[2:])
	}
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > 0 && i < len(s) && (s[i] == '.' || s[i] == ')') {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}

// splitLabel splits at the first ASCII or full-width colon.
func splitLabel(s string) (label, value string, ok bool) {
	i := strings.IndexAny(s, ":：")
	if i < 0 {
		return "", "", false
	}
	_, size := firstRune(s[i:])
	return s[:i], s[i+size:], true
}

func firstRune(s string) (rune, int) {
	for _, r := range s {
		return r, len(string(r))
	}
	return 0, 0
}

func normalizeLabel(s string) string {
	s = strings.Map(func(r rune) rune {
		if isEmphasis(r) {
			return -1
		}
		return r
	}, s)
	s = strings.TrimRight(strings.TrimSpace(s), "!！")
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func isEmphasis(r rune) bool {
	return r == '*' || r == '_' || r == '`' || r == '#'
}

func clean(parts []string) string {
	for i, p := range parts {
		parts[i] = strings.TrimFunc(p, func(r rune) bool {
			return unicode.IsSpace(r) || isEmphasis(r) || r == '"' || r == '“' || r == '”'
		})
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}
