package retrieval

import (
	"container/heap"
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Lim-seunghwan99/Interview-chatbot/internal/apperr"
)

var _ Index = (*SQLiteIndex)(nil)

// SQLiteIndex stores vectors in the "vectors" table and answers queries by
// brute-force cosine similarity. The table is created by storage migrations.
type SQLiteIndex struct {
	db *sql.DB
}

// NewSQLiteIndex wraps an open database. The caller keeps ownership of db.
func NewSQLiteIndex(db *sql.DB) *SQLiteIndex {
	return &SQLiteIndex{db: db}
}

// Upsert writes the record in a single statement, so readers observe either
// the old row or the new one. seq is bumped past every existing row and
// orders similarity ties by recency.
func (s *SQLiteIndex) Upsert(ctx context.Context, c Collection, rec Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	meta, err := encodeMetadata(rec.Metadata)
	if err != nil {
		return err
	}
	updatedAt := rec.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO vectors (collection, key, text, embedding, metadata, seq, updated_at)
		VALUES (?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM vectors), ?)
		ON CONFLICT(collection, key) DO UPDATE SET
			text = excluded.text,
			embedding = excluded.embedding,
			metadata = excluded.metadata,
			seq = excluded.seq,
			updated_at = excluded.updated_at`,
		string(c), rec.Key, rec.Text, encodeFloat32s(rec.Vector), meta, updatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return apperr.Wrap(apperr.RetrievalUnavailable, err, "upserting %s/%s", c, rec.Key)
	}
	return nil
}

// keyScore holds only the key, score and recency during the scan phase.
// Full records are fetched only for the top-K winners.
type keyScore struct {
	Key   string
	Score float32
	Seq   int64
}

// Query scans the collection inside one read transaction so both phases see
// the same snapshot.
func (s *SQLiteIndex) Query(ctx context.Context, c Collection, vector []float32, topK int) ([]ScoredRecord, error) {
	if topK <= 0 {
		return []ScoredRecord{}, nil
	}
	queryNorm := norm(vector)
	if queryNorm == 0 {
		return []ScoredRecord{}, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.RetrievalUnavailable, err, "querying %s", c)
	}
	defer tx.Rollback()

	top, err := scanTopK(ctx, tx, c, vector, queryNorm, topK)
	if err != nil {
		return nil, apperr.Wrap(apperr.RetrievalUnavailable, err, "querying %s", c)
	}
	if len(top) == 0 {
		return []ScoredRecord{}, nil
	}

	results, err := fetchScored(ctx, tx, c, top)
	if err != nil {
		return nil, apperr.Wrap(apperr.RetrievalUnavailable, err, "fetching top-K from %s", c)
	}
	return results, nil
}

// scanTopK is phase 1: decode every embedding and keep the best topK.
func scanTopK(ctx context.Context, tx *sql.Tx, c Collection, vector []float32, queryNorm float32, topK int) ([]keyScore, error) {
	rows, err := tx.QueryContext(ctx, `SELECT key, embedding, seq FROM vectors WHERE collection = ?`, string(c))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	h := &keyScoreHeap{}
	heap.Init(h)

	// Reusable buffer for decoding embeddings to avoid per-row allocations.
	var buf []float32
	for rows.Next() {
		var ks keyScore
		var blob []byte
		if err := rows.Scan(&ks.Key, &blob, &ks.Seq); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		buf, err = decodeFloat32sInto(buf, blob)
		if err != nil {
			return nil, fmt.Errorf("decoding embedding for %s: %w", ks.Key, err)
		}
		ks.Score = cosine(vector, buf, queryNorm)

		if h.Len() < topK {
			heap.Push(h, ks)
		} else if outranks(ks, (*h)[0]) {
			(*h)[0] = ks
			heap.Fix(h, 0)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	top := make([]keyScore, h.Len())
	for i := len(top) - 1; i >= 0; i-- {
		top[i] = heap.Pop(h).(keyScore)
	}
	return top, nil
}

// fetchScored is phase 2: load the winners and order them.
func fetchScored(ctx context.Context, tx *sql.Tx, c Collection, top []keyScore) ([]ScoredRecord, error) {
	args := make([]any, 0, len(top)+1)
	args = append(args, string(c))
	byKey := make(map[string]keyScore, len(top))
	for _, ks := range top {
		args = append(args, ks.Key)
		byKey[ks.Key] = ks
	}

	rows, err := tx.QueryContext(ctx, `SELECT key, text, embedding, metadata, updated_at
		FROM vectors WHERE collection = ? AND key IN (?`+strings.Repeat(",?", len(top)-1)+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]ScoredRecord, 0, len(top))
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, ScoredRecord{Record: rec, Score: byKey[rec.Key].Score})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// IN does not preserve order.
	sort.SliceStable(results, func(i, j int) bool {
		return outranks(byKey[results[i].Key], byKey[results[j].Key])
	})
	return results, nil
}

// Get returns the record under key.
func (s *SQLiteIndex) Get(ctx context.Context, c Collection, key string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT key, text, embedding, metadata, updated_at
		FROM vectors WHERE collection = ? AND key = ?`, string(c), key)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, &apperr.Error{Kind: apperr.NotFound, Msg: fmt.Sprintf("%s/%s", c, key)}
	}
	if err != nil {
		return Record{}, apperr.Wrap(apperr.RetrievalUnavailable, err, "reading %s/%s", c, key)
	}
	return rec, nil
}

// Count returns the number of records in the collection.
func (s *SQLiteIndex) Count(ctx context.Context, c Collection) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vectors WHERE collection = ?`, string(c)).Scan(&n); err != nil {
		return 0, apperr.Wrap(apperr.RetrievalUnavailable, err, "counting %s", c)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var blob []byte
	var meta, updatedAt string
	if err := row.Scan(&rec.Key, &rec.Text, &blob, &meta, &updatedAt); err != nil {
		return Record{}, err
	}
	vec, err := decodeFloat32s(blob)
	if err != nil {
		return Record{}, fmt.Errorf("decoding embedding for %s: %w", rec.Key, err)
	}
	rec.Vector = vec
	if err := json.Unmarshal([]byte(meta), &rec.Metadata); err != nil {
		return Record{}, fmt.Errorf("decoding metadata for %s: %w", rec.Key, err)
	}
	t, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return Record{}, fmt.Errorf("parsing updated_at for %s: %w", rec.Key, err)
	}
	rec.UpdatedAt = t
	return rec, nil
}

func validateRecord(rec Record) error {
	if rec.Key == "" {
		return apperr.New(apperr.EmptyInput, "record key is empty")
	}
	if len(rec.Vector) == 0 {
		return apperr.New(apperr.EmptyInput, "record %s has no vector", rec.Key)
	}
	return nil
}

func encodeMetadata(m map[string]string) (string, error) {
	if m == nil {
		m = map[string]string{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encoding metadata: %w", err)
	}
	return string(b), nil
}

// outranks reports whether a sorts before b: higher score, then newer.
func outranks(a, b keyScore) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Seq > b.Seq
}

// encodeFloat32s serializes a float32 slice to little-endian bytes.
func encodeFloat32s(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeFloat32s deserializes little-endian bytes into a new float32 slice.
func decodeFloat32s(b []byte) ([]float32, error) {
	return decodeFloat32sInto(nil, b)
}

// decodeFloat32sInto decodes into buf, reusing its capacity.
func decodeFloat32sInto(buf []float32, b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("byte slice length %d is not a multiple of 4", len(b))
	}
	n := len(b) / 4
	if cap(buf) < n {
		buf = make([]float32, n)
	} else {
		buf = buf[:n]
	}
	for i := range buf {
		buf[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return buf, nil
}

// norm returns the L2 norm of a vector.
func norm(v []float32) float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return float32(math.Sqrt(sum))
}

// cosine computes dot(a,b) / (aNorm * |b|). Mismatched dimensions score 0.
func cosine(a, b []float32, aNorm float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, bNormSq float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		bNormSq += float64(b[i]) * float64(b[i])
	}
	if bNormSq == 0 {
		return 0
	}
	return float32(dot / (float64(aNorm) * math.Sqrt(bNormSq)))
}

// keyScoreHeap is a min-heap: the root is the weakest candidate kept so far.
type keyScoreHeap []keyScore

func (h keyScoreHeap) Len() int            { return len(h) }
func (h keyScoreHeap) Less(i, j int) bool  { return outranks(h[j], h[i]) }
func (h keyScoreHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *keyScoreHeap) Push(x interface{}) { *h = append(*h, x.(keyScore)) }
func (h *keyScoreHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
