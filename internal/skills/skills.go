// Package skills holds the built-in capabilities offered to the intent
// resolver: communication coaching backed by the language model, and
// interview question lookups backed by the reference Q&A index.
package skills

import (
	"context"
	"errors"
	"strings"

	"github.com/Lim-seunghwan99/Interview-chatbot/internal/capability"
	"github.com/Lim-seunghwan99/Interview-chatbot/internal/engine"
	"github.com/Lim-seunghwan99/Interview-chatbot/internal/retrieval"
)

// Chatter is the slice of engine.Engine executors need.
type Chatter interface {
	Chat(ctx context.Context, model string, messages []engine.Message, jsonSchema *engine.Schema) (string, error)
}

// Searcher finds records similar to a text. *retrieval.Retriever implements it.
type Searcher interface {
	Search(ctx context.Context, c retrieval.Collection, text string, topK int) ([]retrieval.ScoredRecord, error)
}

// Deps are the collaborators shared by every skill.
type Deps struct {
	Chat   Chatter
	Model  string
	Search Searcher
}

// All returns the descriptors of every built-in skill in presentation order.
func All(d Deps) []capability.Descriptor {
	c := coach{chat: d.Chat, model: d.Model}
	l := lookup{search: d.Search}
	return []capability.Descriptor{
		c.predictReaction(),
		c.adviseStyle(),
		c.mbtiAdvice(),
		c.refineText(),
		c.evaluateAnswer(),
		l.similarQuestions(),
		l.similarQAPairs(),
	}
}

// NewRegistry builds a registry holding every built-in skill.
func NewRegistry(d Deps) (*capability.Registry, error) {
	b := capability.NewBuilder()
	for _, desc := range All(d) {
		b.Register(desc)
	}
	return b.Build()
}

const answerInUserLanguage = "Always answer in the same language the user's input is written in."

var errEmptyReply = errors.New("model returned an empty reply")

type coach struct {
	chat  Chatter
	model string
}

func (c coach) ask(ctx context.Context, role, prompt string) (string, error) {
	reply, err := c.chat.Chat(ctx, c.model, []engine.Message{
		{Role: "system", Content: role + "\n" + answerInUserLanguage},
		{Role: "user", Content: prompt},
	}, nil)
	if err != nil {
		return "", err
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", errEmptyReply
	}
	return reply, nil
}
