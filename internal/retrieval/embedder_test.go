package retrieval

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
)

// mockProvider implements EmbeddingProvider for testing.
type mockProvider struct {
	embedFn func(ctx context.Context, model string, text string) ([]float32, error)
}

func (m *mockProvider) Embed(ctx context.Context, model string, text string) ([]float32, error) {
	return m.embedFn(ctx, model, text)
}

func makeVector(dim int) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = float32(i) * 0.001
	}
	return v
}

func TestEmbed_ReturnsDimension(t *testing.T) {
	mock := &mockProvider{embedFn: func(context.Context, string, string) ([]float32, error) {
		return makeVector(384), nil
	}}
	vec, err := NewEmbedder(mock, "nomic-embed-text").Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 384 {
		t.Errorf("got %d dimensions, want 384", len(vec))
	}
}

func TestEmbed_ProviderError(t *testing.T) {
	mock := &mockProvider{embedFn: func(context.Context, string, string) ([]float32, error) {
		return nil, errors.New("connection refused")
	}}
	if _, err := NewEmbedder(mock, "m").Embed(context.Background(), "hello"); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestEmbed_EmptyVectorIsError(t *testing.T) {
	mock := &mockProvider{embedFn: func(context.Context, string, string) ([]float32, error) {
		return []float32{}, nil
	}}
	if _, err := NewEmbedder(mock, "m").Embed(context.Background(), "hello"); err == nil {
		t.Fatal("expected error for empty vector")
	}
}

func TestEmbedBatch_PreservesOrder(t *testing.T) {
	mock := &mockProvider{embedFn: func(_ context.Context, _ string, text string) ([]float32, error) {
		return []float32{float32(len(text))}, nil
	}}
	vecs, err := NewEmbedder(mock, "m").EmbedBatch(context.Background(), []string{"a", "bbb", "cc"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	want := []float32{1, 3, 2}
	for i, v := range vecs {
		if v[0] != want[i] {
			t.Errorf("vecs[%d] = %v, want %v", i, v[0], want[i])
		}
	}
}

func TestEmbedBatch_BoundedConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	release := make(chan struct{})
	mock := &mockProvider{embedFn: func(context.Context, string, string) ([]float32, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		<-release
		inFlight.Add(-1)
		return []float32{1}, nil
	}}

	done := make(chan error)
	go func() {
		_, err := NewEmbedder(mock, "m").EmbedBatch(context.Background(), make([]string, 12))
		done <- err
	}()
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if peak.Load() > 4 {
		t.Errorf("peak concurrency = %d, want <= 4", peak.Load())
	}
}

func TestEmbedBatch_Error(t *testing.T) {
	mock := &mockProvider{embedFn: func(_ context.Context, _ string, text string) ([]float32, error) {
		if text == "b" {
			return nil, errors.New("embedding failed")
		}
		return makeVector(8), nil
	}}
	_, err := NewEmbedder(mock, "m").EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err == nil || !strings.Contains(err.Error(), "embedding failed") {
		t.Fatalf("err = %v, want embedding failed", err)
	}
}

func TestEmbedBatch_EmptyInput(t *testing.T) {
	mock := &mockProvider{embedFn: func(context.Context, string, string) ([]float32, error) {
		t.Fatal("should not be called for empty input")
		return nil, nil
	}}
	vecs, err := NewEmbedder(mock, "m").EmbedBatch(context.Background(), nil)
	if err != nil || vecs != nil {
		t.Errorf("got %v, %v; want nil, nil", vecs, err)
	}
}
