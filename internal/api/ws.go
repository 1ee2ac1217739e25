package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

const maxWSMessageSize = 64 * 1024

// upgrader keeps gorilla's default Origin check: browser pages from other
// hosts are refused.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 16 * 1024,
}

// handleWebSocket routes every text frame and answers with a
// ProcessResponse. Blank frames get an empty_input envelope.
func handleWebSocket(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Debug("websocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()
		conn.SetReadLimit(maxWSMessageSize)

		ctx := r.Context()
		for {
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					slog.Debug("websocket read failed", "error", err)
				}
				return
			}
			if mt != websocket.TextMessage {
				continue
			}

			text := strings.TrimSpace(string(msg))
			env := route(ctx, deps, "ws", text)
			if err := conn.WriteJSON(ProcessResponse{InputType: "text", OriginalText: text, Response: env}); err != nil {
				slog.Debug("websocket write failed", "error", err)
				return
			}
		}
	}
}
