package retrieval

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// EmbeddingProvider turns text into a vector; engine.Engine satisfies it.
type EmbeddingProvider interface {
	Embed(ctx context.Context, model string, text string) ([]float32, error)
}

// Embedder binds an EmbeddingProvider to one model.
type Embedder struct {
	provider EmbeddingProvider
	model    string
	// limit bounds concurrent calls in EmbedBatch.
	limit int
}

// NewEmbedder creates an Embedder using the given provider and model name.
func NewEmbedder(p EmbeddingProvider, model string) *Embedder {
	return &Embedder{provider: p, model: model, limit: 4}
}

// Embed returns the embedding vector for a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.provider.Embed(ctx, e.model, text)
	if err != nil {
		return nil, fmt.Errorf("embedding text: %w", err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("embedding text: provider returned an empty vector")
	}
	return vec, nil
}

// EmbedBatch returns embedding vectors for multiple texts concurrently, in
// input order. Returns nil (not error) for empty input.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	results := make([][]float32, len(texts))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.limit)

	for i, text := range texts {
		g.Go(func() error {
			vec, err := e.Embed(gCtx, text)
			if err != nil {
				return fmt.Errorf("text %d: %w", i, err)
			}
			results[i] = vec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
