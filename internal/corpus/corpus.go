// Package corpus bulk-loads the reference interview Q&A set into the index.
package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Lim-seunghwan99/Interview-chatbot/internal/retrieval"
)

// QuestionField is the item field that is embedded and stored as text.
const QuestionField = "question"

// Item is one reference entry with every value flattened to a string.
type Item map[string]string

// Question returns the text to embed.
func (it Item) Question() string { return it[QuestionField] }

// Decode reads a JSON array of objects. List values are joined with ", ";
// other scalars are formatted as they appear in JSON. Every item needs a
// non-empty question.
func Decode(r io.Reader) ([]Item, error) {
	var raw []map[string]any
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding corpus: %w", err)
	}

	items := make([]Item, 0, len(raw))
	for i, obj := range raw {
		it := make(Item, len(obj))
		for k, v := range obj {
			it[k] = flatten(v)
		}
		if strings.TrimSpace(it.Question()) == "" {
			return nil, fmt.Errorf("corpus item %d has no %q", i, QuestionField)
		}
		items = append(items, it)
	}
	return items, nil
}

func flatten(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = flatten(e)
		}
		return strings.Join(parts, ", ")
	default:
		b, _ := json.Marshal(x)
		return string(b)
	}
}

// BatchEmbedder embeds many texts at once. *retrieval.Embedder implements it.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Load embeds every question and upserts item i under key strconv.Itoa(i)
// in the reference collection, with all item fields as metadata. Reloading
// the same file replaces records in place.
func Load(ctx context.Context, emb BatchEmbedder, idx retrieval.Index, items []Item) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	texts := make([]string, len(items))
	for i, it := range items {
		texts[i] = it.Question()
	}

	slog.Info("embedding reference corpus", "items", len(items))
	vecs, err := emb.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding corpus: %w", err)
	}

	for i, it := range items {
		rec := retrieval.Record{
			Key:      strconv.Itoa(i),
			Text:     texts[i],
			Vector:   vecs[i],
			Metadata: it,
		}
		if err := idx.Upsert(ctx, retrieval.QACollection, rec); err != nil {
			return i, fmt.Errorf("storing corpus item %d: %w", i, err)
		}
	}
	slog.Info("reference corpus loaded", "items", len(items), "collection", retrieval.QACollection)
	return len(items), nil
}
