// Package persona classifies a chat participant's communication style from
// their stored chat history.
package persona

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/Lim-seunghwan99/Interview-chatbot/internal/apperr"
	"github.com/Lim-seunghwan99/Interview-chatbot/internal/engine"
	"github.com/Lim-seunghwan99/Interview-chatbot/internal/retrieval"
)

// DefaultSubject is the speaker label analyzed when none is configured.
const DefaultSubject = "B"

// Profile is the result of one analysis. It is recomputed on every call.
type Profile struct {
	Persona   string `json:"persona"`
	Reasoning string `json:"reasoning"`
	Feedback  string `json:"feedback"`
}

// Chatter is the slice of engine.Engine the analyzer needs.
type Chatter interface {
	Chat(ctx context.Context, model string, messages []engine.Message, jsonSchema *engine.Schema) (string, error)
}

// Analyzer reads a chatroom transcript and asks the model to classify it.
type Analyzer struct {
	index   retrieval.Index
	chat    Chatter
	model   string
	subject string
}

// NewAnalyzer returns an Analyzer over index's chat history collection.
// An empty subject means DefaultSubject.
func NewAnalyzer(index retrieval.Index, chat Chatter, model, subject string) *Analyzer {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Analyzer{index: index, chat: chat, model: model, subject: subject}
}

// Analyze classifies the transcript stored under chatroomKey. Errors are
// always *apperr.Error with kind NoHistory, RetrievalUnavailable,
// ExecutionFailure or ParseFailure.
func (a *Analyzer) Analyze(ctx context.Context, chatroomKey string) (Profile, error) {
	rec, err := a.index.Get(ctx, retrieval.ChatCollection, chatroomKey)
	switch {
	case errors.Is(err, apperr.NotFound):
		return Profile{}, apperr.New(apperr.NoHistory, "no chat history for %s", chatroomKey)
	case err != nil:
		return Profile{}, apperr.Wrap(apperr.RetrievalUnavailable, err, "loading chat history for %s", chatroomKey)
	}
	if strings.TrimSpace(rec.Text) == "" {
		return Profile{}, apperr.New(apperr.NoHistory, "chat history for %s is empty", chatroomKey)
	}

	reply, err := a.chat.Chat(ctx, a.model, BuildPrompt(rec.Text, a.subject), nil)
	if err != nil {
		return Profile{}, apperr.Wrap(apperr.ExecutionFailure, err, "persona analysis for %s", chatroomKey)
	}

	p, err := ParseReply(reply)
	if err != nil {
		slog.Debug("unparseable persona reply", "chatroom_id", chatroomKey, "reply", reply)
		return Profile{}, err
	}
	return p, nil
}
