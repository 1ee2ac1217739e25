package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Lim-seunghwan99/Interview-chatbot/internal/storage"
)

// ChatroomRequest is the /api/chatrooms body.
type ChatroomRequest struct {
	ChatroomID string `json:"chatroom_id"`
	Content    string `json:"content"`
}

func handleSubmitChatroom(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req ChatroomRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if strings.TrimSpace(req.ChatroomID) == "" || strings.TrimSpace(req.Content) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "chatroom_id and content are required")
			return
		}

		if err := deps.Ingest.Submit(req.ChatroomID, req.Content); err != nil {
			kindError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{
			"chatroom_id": req.ChatroomID,
			"status":      "queued",
		})
	}
}

func handleAnalyze(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "chatroomID")
		if strings.TrimSpace(id) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "chatroom id is required")
			return
		}

		profile, err := deps.Analyzer.Analyze(r.Context(), id)
		if err != nil {
			kindError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	}
}

func handleListInteractions(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Store == nil {
			httpError(w, http.StatusServiceUnavailable, "unavailable_error", "interaction log is not configured")
			return
		}
		limit := parseIntParam(r, "limit", 20, 100)
		offset := parseIntParam(r, "offset", 0, 0)

		interactions, err := deps.Store.ListInteractions(r.Context(), limit, offset)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list interactions: %v", err)
			return
		}
		if interactions == nil {
			interactions = []storage.Interaction{}
		}
		writeJSON(w, http.StatusOK, interactions)
	}
}

func handleGetInteraction(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Store == nil {
			httpError(w, http.StatusServiceUnavailable, "unavailable_error", "interaction log is not configured")
			return
		}
		interaction, err := deps.Store.GetInteraction(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "interaction not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get interaction: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, interaction)
	}
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
