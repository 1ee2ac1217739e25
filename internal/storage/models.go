package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Interaction is one routed request kept for the audit log.
type Interaction struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	InputType     string    `json:"input_type"` // "text", "voice", "ws" or "mcp"
	UserText      string    `json:"user_text"`
	Capability    string    `json:"capability,omitempty"`
	ArgumentsJSON string    `json:"arguments_json"`
	ResultJSON    string    `json:"result_json"`
	ErrorKind     string    `json:"error_kind,omitempty"`
}
