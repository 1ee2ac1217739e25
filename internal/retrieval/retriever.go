package retrieval

import (
	"context"

	"github.com/Lim-seunghwan99/Interview-chatbot/internal/apperr"
)

// Retriever combines embedding and vector search over one index.
type Retriever struct {
	embedder *Embedder
	index    Index
}

// NewRetriever creates a Retriever backed by the given Embedder and Index.
func NewRetriever(embedder *Embedder, index Index) *Retriever {
	return &Retriever{embedder: embedder, index: index}
}

// Search embeds text and returns the topK most similar records in c.
// An embedding failure is reported as RetrievalUnavailable, the same as an
// index failure.
func (r *Retriever) Search(ctx context.Context, c Collection, text string, topK int) ([]ScoredRecord, error) {
	if Degraded(r.index) {
		return r.index.Query(ctx, c, nil, topK)
	}
	vec, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return nil, apperr.Wrap(apperr.RetrievalUnavailable, err, "embedding query")
	}
	return r.index.Query(ctx, c, vec, topK)
}

// Store embeds text and upserts it under key in c.
func (r *Retriever) Store(ctx context.Context, c Collection, key, text string, metadata map[string]string) error {
	if Degraded(r.index) {
		return r.index.Upsert(ctx, c, Record{Key: key})
	}
	vec, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return apperr.Wrap(apperr.RetrievalUnavailable, err, "embedding %s/%s", c, key)
	}
	return r.index.Upsert(ctx, c, Record{Key: key, Text: text, Vector: vec, Metadata: metadata})
}

// Index returns the underlying index.
func (r *Retriever) Index() Index { return r.index }

// Embedder returns the underlying embedder.
func (r *Retriever) Embedder() *Embedder { return r.embedder }
