// Package retrieval is the vector index over the reference Q&A and chat
// history collections, plus the embedding and query helpers built on it.
package retrieval

import (
	"context"
	"time"
)

// Collection names a logical partition of the index.
type Collection string

const (
	// QACollection holds the interview question corpus; the answer text
	// is stored in metadata under "answer".
	QACollection Collection = "qa_reference"
	// ChatCollection holds one transcript per chatroom, keyed by room ID.
	ChatCollection Collection = "chat_history"
)

// Record is one embedded entry, unique by key within its collection.
type Record struct {
	Key       string
	Text      string
	Vector    []float32
	Metadata  map[string]string
	UpdatedAt time.Time
}

// ScoredRecord is a Record with its cosine similarity to a query.
type ScoredRecord struct {
	Record
	Score float32
}

// Index is a keyed similarity store. Implementations must be safe for
// concurrent use; an Upsert that has returned is visible to every later
// Get or Query.
type Index interface {
	// Upsert inserts or fully replaces the record under rec.Key.
	Upsert(ctx context.Context, c Collection, rec Record) error

	// Query returns up to topK records by descending cosine similarity,
	// ties broken by most recent upsert first. An empty collection yields
	// an empty slice and no error.
	Query(ctx context.Context, c Collection, vector []float32, topK int) ([]ScoredRecord, error)

	// Get returns the record under key or an apperr.NotFound error.
	Get(ctx context.Context, c Collection, key string) (Record, error)

	// Count returns the number of records in the collection.
	Count(ctx context.Context, c Collection) (int, error)
}
