// Package api exposes the agent over HTTP, WebSocket and MCP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Lim-seunghwan99/Interview-chatbot/internal/agent"
	"github.com/Lim-seunghwan99/Interview-chatbot/internal/apperr"
	"github.com/Lim-seunghwan99/Interview-chatbot/internal/ingest"
	"github.com/Lim-seunghwan99/Interview-chatbot/internal/persona"
	"github.com/Lim-seunghwan99/Interview-chatbot/internal/retrieval"
	"github.com/Lim-seunghwan99/Interview-chatbot/internal/speech"
	"github.com/Lim-seunghwan99/Interview-chatbot/internal/storage"
)

const (
	maxRequestBodySize = 1 << 20  // 1MB
	maxAudioBodySize   = 25 << 20 // 25MB, the transcription API limit
)

// Router routes one user request.
type Router interface {
	Route(ctx context.Context, text string) agent.Envelope
}

// Analyzer classifies a chatroom's persona.
type Analyzer interface {
	Analyze(ctx context.Context, chatroomKey string) (persona.Profile, error)
}

// Ingester accepts chat content for background indexing.
type Ingester interface {
	Submit(key, text string) error
	Stats() ingest.Stats
}

// InteractionStore persists the request audit log.
type InteractionStore interface {
	SaveInteraction(ctx context.Context, i storage.Interaction) error
	GetInteraction(ctx context.Context, id string) (storage.Interaction, error)
	ListInteractions(ctx context.Context, limit, offset int) ([]storage.Interaction, error)
}

// Deps are the collaborators behind the HTTP surface. Speech and Store are
// optional: without Speech the audio routes answer 503, without Store
// nothing is logged and /api/interactions answers 503.
type Deps struct {
	Agent    Router
	Analyzer Analyzer
	Ingest   Ingester
	Index    retrieval.Index
	Speech   speech.Codec
	Store    InteractionStore
	Token    string
}

// NewHandler returns the full HTTP surface. /health is always open; every
// other route requires the bearer token when one is configured.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.StripSlashes)
	r.Use(middleware.Recoverer)

	r.Get("/health", handleHealth(deps))

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Post("/api/process-text", handleProcessText(deps))
		r.Post("/api/process-voice", handleProcessVoice(deps))
		r.Post("/api/process-tts", handleProcessTTS(deps))
		r.Post("/api/chatrooms", handleSubmitChatroom(deps))
		r.Get("/api/interactions", handleListInteractions(deps))
		r.Get("/api/interactions/{id}", handleGetInteraction(deps))
		r.Post("/analyze/chatroom/{chatroomID}", handleAnalyze(deps))
		r.Get("/ws", handleWebSocket(deps))
	})

	return r
}

// HealthResponse is the /health body.
type HealthResponse struct {
	Status string        `json:"status"`
	Index  string        `json:"index"`
	Speech bool          `json:"speech"`
	Ingest *ingest.Stats `json:"ingest,omitempty"`
}

func handleHealth(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{Status: "ok", Index: "ready", Speech: deps.Speech != nil}
		if deps.Index == nil || retrieval.Degraded(deps.Index) {
			resp.Index = "degraded"
		}
		if deps.Ingest != nil {
			s := deps.Ingest.Stats()
			resp.Ingest = &s
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// statusFor maps an error kind to the HTTP status reported for it.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ingest.ErrQueueFull), errors.Is(err, ingest.ErrClosed):
		return http.StatusServiceUnavailable, "overloaded_error"
	}
	switch apperr.KindOf(err) {
	case apperr.EmptyInput, apperr.InvalidArguments:
		return http.StatusBadRequest, "invalid_request_error"
	case apperr.NotFound, apperr.NoHistory:
		return http.StatusNotFound, "not_found"
	case apperr.RetrievalUnavailable:
		return http.StatusServiceUnavailable, "unavailable_error"
	case apperr.ParseFailure, apperr.ExecutionFailure:
		return http.StatusBadGateway, "api_error"
	}
	return http.StatusInternalServerError, "api_error"
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

// kindError writes err with the status for its kind.
func kindError(w http.ResponseWriter, err error) {
	code, typ := statusFor(err)
	httpError(w, code, typ, "%v", err)
}
