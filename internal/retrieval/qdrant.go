package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"golang.org/x/sync/singleflight"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/Lim-seunghwan99/Interview-chatbot/internal/apperr"
)

var _ Index = (*QdrantIndex)(nil)

const (
	payloadKey     = "key"
	payloadText    = "text"
	payloadSeq     = "seq"
	payloadUpdated = "updated_at"
	metaPrefix     = "meta."
)

// QdrantIndex keeps each logical collection in its own Qdrant collection
// (prefix + name) with cosine distance. Collections are created on first
// upsert, sized from that record's vector.
type QdrantIndex struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	prefix      string

	mu       sync.Mutex
	ready    map[string]bool
	creating singleflight.Group

	lastSeq atomic.Int64
}

// NewQdrant connects to a Qdrant gRPC endpoint. The connection is lazy;
// Ping verifies reachability.
func NewQdrant(host string, port int, prefix string) (*QdrantIndex, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}
	return &QdrantIndex{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		prefix:      prefix,
		ready:       make(map[string]bool),
	}, nil
}

// Ping lists collections to check the server answers.
func (q *QdrantIndex) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if _, err := q.collections.List(ctx, &pb.ListCollectionsRequest{}); err != nil {
		return fmt.Errorf("qdrant ping: %w", err)
	}
	return nil
}

// Close releases the gRPC connection.
func (q *QdrantIndex) Close() error {
	return q.conn.Close()
}

func (q *QdrantIndex) name(c Collection) string {
	return q.prefix + string(c)
}

// pointID derives a stable UUID so the same key always maps to the same point.
func pointID(c Collection, key string) *pb.PointId {
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(string(c)+"/"+key))
	return &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: id.String()}}
}

// nextSeq returns a strictly increasing value seeded from the wall clock, so
// ordering survives restarts.
func (q *QdrantIndex) nextSeq() int64 {
	for {
		last := q.lastSeq.Load()
		next := time.Now().UnixNano()
		if next <= last {
			next = last + 1
		}
		if q.lastSeq.CompareAndSwap(last, next) {
			return next
		}
	}
}

// exists reports whether the backing collection exists, caching positives.
func (q *QdrantIndex) exists(ctx context.Context, name string) (bool, error) {
	q.mu.Lock()
	ok := q.ready[name]
	q.mu.Unlock()
	if ok {
		return true, nil
	}

	resp, err := q.collections.CollectionExists(ctx, &pb.CollectionExistsRequest{CollectionName: name})
	if err != nil {
		return false, err
	}
	if resp.GetResult().GetExists() {
		q.mu.Lock()
		q.ready[name] = true
		q.mu.Unlock()
		return true, nil
	}
	return false, nil
}

// ensure creates the collection once. mu only guards the ready cache and is
// never held across an RPC; concurrent creators share one Create call.
func (q *QdrantIndex) ensure(ctx context.Context, name string, dim int) error {
	ok, err := q.exists(ctx, name)
	if err != nil || ok {
		return err
	}

	_, err, _ = q.creating.Do(name, func() (any, error) {
		_, err := q.collections.Create(ctx, &pb.CreateCollection{
			CollectionName: name,
			VectorsConfig: &pb.VectorsConfig{Config: &pb.VectorsConfig_Params{Params: &pb.VectorParams{
				Size:     uint64(dim),
				Distance: pb.Distance_Cosine,
			}}},
		})
		if err != nil && !strings.Contains(err.Error(), "already exists") {
			return nil, fmt.Errorf("creating collection %s: %w", name, err)
		}
		q.mu.Lock()
		q.ready[name] = true
		q.mu.Unlock()
		return nil, nil
	})
	return err
}

// Upsert waits for the write to be applied so later reads observe it.
func (q *QdrantIndex) Upsert(ctx context.Context, c Collection, rec Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	name := q.name(c)
	if err := q.ensure(ctx, name, len(rec.Vector)); err != nil {
		return apperr.Wrap(apperr.RetrievalUnavailable, err, "upserting %s/%s", c, rec.Key)
	}

	updatedAt := rec.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	wait := true
	_, err := q.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: name,
		Wait:           &wait,
		Points: []*pb.PointStruct{{
			Id:      pointID(c, rec.Key),
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: rec.Vector}}},
			Payload: toPayload(rec, q.nextSeq(), updatedAt),
		}},
	})
	if err != nil {
		return apperr.Wrap(apperr.RetrievalUnavailable, err, "upserting %s/%s", c, rec.Key)
	}
	return nil
}

func (q *QdrantIndex) Query(ctx context.Context, c Collection, vector []float32, topK int) ([]ScoredRecord, error) {
	if topK <= 0 || norm(vector) == 0 {
		return []ScoredRecord{}, nil
	}
	name := q.name(c)
	ok, err := q.exists(ctx, name)
	if err != nil {
		return nil, apperr.Wrap(apperr.RetrievalUnavailable, err, "querying %s", c)
	}
	if !ok {
		return []ScoredRecord{}, nil
	}

	resp, err := q.points.Search(ctx, &pb.SearchPoints{
		CollectionName: name,
		Vector:         vector,
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
		WithVectors:    &pb.WithVectorsSelector{SelectorOptions: &pb.WithVectorsSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.RetrievalUnavailable, err, "querying %s", c)
	}

	results := make([]ScoredRecord, 0, len(resp.GetResult()))
	seqs := make([]int64, 0, len(resp.GetResult()))
	for _, pt := range resp.GetResult() {
		rec, seq := fromPayload(pt.GetPayload())
		rec.Vector = pt.GetVectors().GetVector().GetData()
		results = append(results, ScoredRecord{Record: rec, Score: pt.GetScore()})
		seqs = append(seqs, seq)
	}
	sortScored(results, seqs)
	return results, nil
}

func (q *QdrantIndex) Get(ctx context.Context, c Collection, key string) (Record, error) {
	notFound := &apperr.Error{Kind: apperr.NotFound, Msg: fmt.Sprintf("%s/%s", c, key)}
	name := q.name(c)
	ok, err := q.exists(ctx, name)
	if err != nil {
		return Record{}, apperr.Wrap(apperr.RetrievalUnavailable, err, "reading %s/%s", c, key)
	}
	if !ok {
		return Record{}, notFound
	}

	resp, err := q.points.Get(ctx, &pb.GetPoints{
		CollectionName: name,
		Ids:            []*pb.PointId{pointID(c, key)},
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
		WithVectors:    &pb.WithVectorsSelector{SelectorOptions: &pb.WithVectorsSelector_Enable{Enable: true}},
	})
	if err != nil {
		return Record{}, apperr.Wrap(apperr.RetrievalUnavailable, err, "reading %s/%s", c, key)
	}
	if len(resp.GetResult()) == 0 {
		return Record{}, notFound
	}
	pt := resp.GetResult()[0]
	rec, _ := fromPayload(pt.GetPayload())
	rec.Vector = pt.GetVectors().GetVector().GetData()
	return rec, nil
}

func (q *QdrantIndex) Count(ctx context.Context, c Collection) (int, error) {
	name := q.name(c)
	ok, err := q.exists(ctx, name)
	if err != nil {
		return 0, apperr.Wrap(apperr.RetrievalUnavailable, err, "counting %s", c)
	}
	if !ok {
		return 0, nil
	}
	exact := true
	resp, err := q.points.Count(ctx, &pb.CountPoints{CollectionName: name, Exact: &exact})
	if err != nil {
		return 0, apperr.Wrap(apperr.RetrievalUnavailable, err, "counting %s", c)
	}
	return int(resp.GetResult().GetCount()), nil
}

func stringValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

func toPayload(rec Record, seq int64, updatedAt time.Time) map[string]*pb.Value {
	payload := map[string]*pb.Value{
		payloadKey:     stringValue(rec.Key),
		payloadText:    stringValue(rec.Text),
		payloadSeq:     {Kind: &pb.Value_IntegerValue{IntegerValue: seq}},
		payloadUpdated: stringValue(updatedAt.UTC().Format(time.RFC3339Nano)),
	}
	for k, v := range rec.Metadata {
		payload[metaPrefix+k] = stringValue(v)
	}
	return payload
}

func fromPayload(payload map[string]*pb.Value) (Record, int64) {
	rec := Record{Metadata: map[string]string{}}
	var seq int64
	for k, v := range payload {
		switch {
		case k == payloadKey:
			rec.Key = v.GetStringValue()
		case k == payloadText:
			rec.Text = v.GetStringValue()
		case k == payloadSeq:
			seq = v.GetIntegerValue()
		case k == payloadUpdated:
			rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, v.GetStringValue())
		case strings.HasPrefix(k, metaPrefix):
			rec.Metadata[strings.TrimPrefix(k, metaPrefix)] = v.GetStringValue()
		}
	}
	return rec, seq
}

// sortScored orders results by score, then seq, both descending.
func sortScored(results []ScoredRecord, seqs []int64) {
	idx := make([]int, len(results))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ra, rb := results[idx[a]], results[idx[b]]
		if ra.Score != rb.Score {
			return ra.Score > rb.Score
		}
		return seqs[idx[a]] > seqs[idx[b]]
	})
	sorted := make([]ScoredRecord, len(results))
	for i, j := range idx {
		sorted[i] = results[j]
	}
	copy(results, sorted)
}
