package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Lim-seunghwan99/Interview-chatbot/internal/agent"
	"github.com/Lim-seunghwan99/Interview-chatbot/internal/storage"
)

// TextRequest is the /api/process-text body.
type TextRequest struct {
	UserText  string `json:"user_text"`
	SessionID string `json:"session_id"`
}

// ProcessResponse wraps a routed envelope with how the input arrived.
type ProcessResponse struct {
	InputType       string         `json:"input_type"`
	OriginalText    string         `json:"original_text,omitempty"`
	TranscribedText string         `json:"transcribed_text,omitempty"`
	Response        agent.Envelope `json:"response"`
}

func handleProcessText(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req TextRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if strings.TrimSpace(req.UserText) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "user_text is required")
			return
		}

		env := route(r.Context(), deps, "text", req.UserText)
		writeJSON(w, http.StatusOK, ProcessResponse{InputType: "text", OriginalText: req.UserText, Response: env})
	}
}

func handleProcessVoice(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Speech == nil {
			httpError(w, http.StatusServiceUnavailable, "unavailable_error", "speech is not configured")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxAudioBodySize)
		defer r.Body.Close()

		file, header, err := r.FormFile("audio_file")
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "audio_file is required: %v", err)
			return
		}
		defer file.Close()
		audio, err := io.ReadAll(file)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "reading audio_file: %v", err)
			return
		}

		text, err := deps.Speech.Transcribe(r.Context(), audio, header.Filename)
		if err != nil {
			code, typ := statusFor(err)
			if code == http.StatusInternalServerError {
				code = http.StatusBadGateway
			}
			httpError(w, code, typ, "transcription failed: %v", err)
			return
		}

		env := route(r.Context(), deps, "voice", text)
		writeJSON(w, http.StatusOK, ProcessResponse{InputType: "voice", TranscribedText: text, Response: env})
	}
}

func handleProcessTTS(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Speech == nil {
			httpError(w, http.StatusServiceUnavailable, "unavailable_error", "speech is not configured")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if strings.TrimSpace(req.Text) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "text is required")
			return
		}

		audio, err := deps.Speech.Synthesize(r.Context(), req.Text)
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "speech synthesis failed: %v", err)
			return
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write(audio)
	}
}

// route runs the agent and records the outcome. Logging is best-effort and
// never fails the request.
func route(ctx context.Context, deps Deps, inputType, text string) agent.Envelope {
	env := deps.Agent.Route(ctx, text)
	recordInteraction(ctx, deps.Store, inputType, text, env)
	return env
}

func recordInteraction(ctx context.Context, store InteractionStore, inputType, text string, env agent.Envelope) {
	if store == nil {
		return
	}
	ix := storage.Interaction{
		ID:         uuid.New().String(),
		CreatedAt:  time.Now().UTC(),
		InputType:  inputType,
		UserText:   text,
		Capability: env.Capability,
	}
	if b, err := json.Marshal(env.Arguments); err == nil && env.Arguments != nil {
		ix.ArgumentsJSON = string(b)
	}
	if b, err := json.Marshal(env.Result); err == nil {
		ix.ResultJSON = string(b)
	}
	if env.Error != nil {
		ix.ErrorKind = string(env.Error.Kind)
	}
	if err := store.SaveInteraction(context.WithoutCancel(ctx), ix); err != nil {
		slog.Warn("failed to record interaction", "error", err)
	}
}
