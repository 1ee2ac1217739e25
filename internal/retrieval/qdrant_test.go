package retrieval

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"testing"
	"time"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"

	"github.com/Lim-seunghwan99/Interview-chatbot/internal/apperr"
)

// fakeQdrant is an in-memory stand-in for a Qdrant server, shared by the
// points and collections clients below.
type fakeQdrant struct {
	mu      sync.Mutex
	cols    map[string]map[string]*pb.PointStruct
	creates int

	// createGate, when set, blocks Create until closed; createStarted is
	// closed once the first Create is waiting.
	createGate    chan struct{}
	createStarted chan struct{}
	startOnce     sync.Once
}

type fakePoints struct {
	pb.PointsClient
	q *fakeQdrant
}

type fakeCollections struct {
	pb.CollectionsClient
	q *fakeQdrant
}

func newFakeQdrantIndex() (*QdrantIndex, *fakeQdrant) {
	f := &fakeQdrant{cols: make(map[string]map[string]*pb.PointStruct)}
	return &QdrantIndex{
		points:      fakePoints{q: f},
		collections: fakeCollections{q: f},
		prefix:      "test_",
		ready:       make(map[string]bool),
	}, f
}

func (c fakeCollections) CollectionExists(_ context.Context, in *pb.CollectionExistsRequest, _ ...grpc.CallOption) (*pb.CollectionExistsResponse, error) {
	c.q.mu.Lock()
	defer c.q.mu.Unlock()
	_, ok := c.q.cols[in.GetCollectionName()]
	return &pb.CollectionExistsResponse{Result: &pb.CollectionExists{Exists: ok}}, nil
}

func (c fakeCollections) Create(ctx context.Context, in *pb.CreateCollection, _ ...grpc.CallOption) (*pb.CollectionOperationResponse, error) {
	if c.q.createGate != nil {
		c.q.startOnce.Do(func() { close(c.q.createStarted) })
		select {
		case <-c.q.createGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	c.q.mu.Lock()
	defer c.q.mu.Unlock()
	c.q.creates++
	if _, ok := c.q.cols[in.GetCollectionName()]; ok {
		return nil, fmt.Errorf("collection %s already exists", in.GetCollectionName())
	}
	c.q.cols[in.GetCollectionName()] = make(map[string]*pb.PointStruct)
	return &pb.CollectionOperationResponse{Result: true}, nil
}

func (p fakePoints) Upsert(_ context.Context, in *pb.UpsertPoints, _ ...grpc.CallOption) (*pb.PointsOperationResponse, error) {
	p.q.mu.Lock()
	defer p.q.mu.Unlock()
	col, ok := p.q.cols[in.GetCollectionName()]
	if !ok {
		return nil, errors.New("collection not found")
	}
	for _, pt := range in.GetPoints() {
		col[pt.GetId().GetUuid()] = pt
	}
	return &pb.PointsOperationResponse{Result: &pb.UpdateResult{Status: pb.UpdateStatus_Completed}}, nil
}

func vectorsOut(pt *pb.PointStruct) *pb.VectorsOutput {
	return &pb.VectorsOutput{VectorsOptions: &pb.VectorsOutput_Vector{
		Vector: &pb.VectorOutput{Data: pt.GetVectors().GetVector().GetData()},
	}}
}

func (p fakePoints) Search(_ context.Context, in *pb.SearchPoints, _ ...grpc.CallOption) (*pb.SearchResponse, error) {
	p.q.mu.Lock()
	defer p.q.mu.Unlock()
	col, ok := p.q.cols[in.GetCollectionName()]
	if !ok {
		return nil, errors.New("collection not found")
	}
	qn := norm(in.GetVector())
	var out []*pb.ScoredPoint
	for _, pt := range col {
		out = append(out, &pb.ScoredPoint{
			Id:      pt.GetId(),
			Payload: pt.GetPayload(),
			Score:   cosine(in.GetVector(), pt.GetVectors().GetVector().GetData(), qn),
			Vectors: vectorsOut(pt),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].GetScore() > out[j].GetScore() })
	if uint64(len(out)) > in.GetLimit() {
		out = out[:in.GetLimit()]
	}
	return &pb.SearchResponse{Result: out}, nil
}

func (p fakePoints) Get(_ context.Context, in *pb.GetPoints, _ ...grpc.CallOption) (*pb.GetResponse, error) {
	p.q.mu.Lock()
	defer p.q.mu.Unlock()
	col := p.q.cols[in.GetCollectionName()]
	var out []*pb.RetrievedPoint
	for _, id := range in.GetIds() {
		if pt, ok := col[id.GetUuid()]; ok {
			out = append(out, &pb.RetrievedPoint{Id: pt.GetId(), Payload: pt.GetPayload(), Vectors: vectorsOut(pt)})
		}
	}
	return &pb.GetResponse{Result: out}, nil
}

func (p fakePoints) Count(_ context.Context, in *pb.CountPoints, _ ...grpc.CallOption) (*pb.CountResponse, error) {
	p.q.mu.Lock()
	defer p.q.mu.Unlock()
	return &pb.CountResponse{Result: &pb.CountResult{Count: uint64(len(p.q.cols[in.GetCollectionName()]))}}, nil
}

func TestPointID_StablePerCollectionAndKey(t *testing.T) {
	a := pointID(ChatCollection, "room-1").GetUuid()
	b := pointID(ChatCollection, "room-1").GetUuid()
	c := pointID(QACollection, "room-1").GetUuid()

	if a != b {
		t.Errorf("same key produced %s and %s", a, b)
	}
	if a == c {
		t.Error("different collections must not share point IDs")
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	at := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
	rec := Record{Key: "3", Text: "What motivates you?", Metadata: map[string]string{"answer": "Learning", "category": "motivation"}}

	got, seq := fromPayload(toPayload(rec, 42, at))
	if seq != 42 {
		t.Errorf("seq = %d, want 42", seq)
	}
	if got.Key != rec.Key || got.Text != rec.Text || !got.UpdatedAt.Equal(at) {
		t.Errorf("got %+v", got)
	}
	if !reflect.DeepEqual(got.Metadata, rec.Metadata) {
		t.Errorf("metadata = %v, want %v", got.Metadata, rec.Metadata)
	}
}

func TestSortScored(t *testing.T) {
	results := []ScoredRecord{
		{Record: Record{Key: "a"}, Score: 0.5},
		{Record: Record{Key: "b"}, Score: 0.9},
		{Record: Record{Key: "c"}, Score: 0.5},
	}
	sortScored(results, []int64{1, 2, 3})
	if got := keys(results); !reflect.DeepEqual(got, []string{"b", "c", "a"}) {
		t.Errorf("order = %v", got)
	}
}

func TestNextSeqMonotonic(t *testing.T) {
	q := &QdrantIndex{}
	prev := q.nextSeq()
	for i := 0; i < 1000; i++ {
		n := q.nextSeq()
		if n <= prev {
			t.Fatalf("seq went from %d to %d", prev, n)
		}
		prev = n
	}
}

func TestQdrantIndex_EmptyCollection(t *testing.T) {
	idx, f := newFakeQdrantIndex()
	ctx := context.Background()

	got, err := idx.Query(ctx, QACollection, []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Query on missing collection = %v, want empty slice", got)
	}
	if _, err := idx.Get(ctx, QACollection, "0"); !errors.Is(err, apperr.NotFound) {
		t.Errorf("Get err = %v, want NotFound", err)
	}
	if n, err := idx.Count(ctx, QACollection); err != nil || n != 0 {
		t.Errorf("Count = %d, %v", n, err)
	}
	if f.creates != 0 {
		t.Errorf("reads created %d collections", f.creates)
	}
}

func TestQdrantIndex_UpsertReplaces(t *testing.T) {
	idx, f := newFakeQdrantIndex()
	ctx := context.Background()

	if err := idx.Upsert(ctx, ChatCollection, Record{Key: "room-1", Text: "A: hi", Vector: []float32{1, 0}}); err != nil {
		t.Fatalf("first Upsert: %v", err)
	}
	if err := idx.Upsert(ctx, ChatCollection, Record{Key: "room-1", Text: "A: bye", Vector: []float32{0, 1}, Metadata: map[string]string{"lines": "1"}}); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	if n, _ := idx.Count(ctx, ChatCollection); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
	rec, err := idx.Get(ctx, ChatCollection, "room-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Text != "A: bye" || rec.Metadata["lines"] != "1" {
		t.Errorf("Get = %+v, want replaced record", rec)
	}
	if !reflect.DeepEqual(rec.Vector, []float32{0, 1}) {
		t.Errorf("vector = %v", rec.Vector)
	}
	if f.creates != 1 {
		t.Errorf("creates = %d, want 1", f.creates)
	}
}

func TestQdrantIndex_QueryOrdersByScoreThenRecency(t *testing.T) {
	idx, _ := newFakeQdrantIndex()
	ctx := context.Background()

	for _, rec := range []Record{
		{Key: "older", Text: "q1", Vector: []float32{1, 0}},
		{Key: "far", Text: "q2", Vector: []float32{0, 1}},
		{Key: "newer", Text: "q3", Vector: []float32{2, 0}},
	} {
		if err := idx.Upsert(ctx, QACollection, rec); err != nil {
			t.Fatalf("Upsert %s: %v", rec.Key, err)
		}
	}

	got, err := idx.Query(ctx, QACollection, []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if order := keys(got); !reflect.DeepEqual(order, []string{"newer", "older", "far"}) {
		t.Errorf("order = %v", order)
	}

	got, err = idx.Query(ctx, QACollection, []float32{1, 0}, 1)
	if err != nil || len(got) != 1 {
		t.Fatalf("Query topK=1 = %v, %v", got, err)
	}
}

func TestQdrantIndex_CreateDoesNotBlockReads(t *testing.T) {
	idx, f := newFakeQdrantIndex()
	f.createGate = make(chan struct{})
	f.createStarted = make(chan struct{})
	ctx := context.Background()

	upserted := make(chan error, 1)
	go func() {
		upserted <- idx.Upsert(ctx, ChatCollection, Record{Key: "room-1", Text: "A: hi", Vector: []float32{1, 0}})
	}()
	<-f.createStarted

	done := make(chan struct{})
	go func() {
		defer close(done)
		idx.Count(ctx, QACollection)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Count on another collection blocked behind Create")
	}

	close(f.createGate)
	if err := <-upserted; err != nil {
		t.Fatalf("Upsert: %v", err)
	}
}

func TestQdrantIndex_ConcurrentFirstUpserts(t *testing.T) {
	idx, _ := newFakeQdrantIndex()
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- idx.Upsert(ctx, ChatCollection, Record{Key: fmt.Sprintf("room-%d", i), Text: "x", Vector: []float32{1, float32(i)}})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("Upsert: %v", err)
		}
	}
	if n, _ := idx.Count(ctx, ChatCollection); n != 8 {
		t.Errorf("Count = %d, want 8", n)
	}
}
