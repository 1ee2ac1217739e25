// Package ingest embeds chat transcripts in the background and upserts them
// into the chat history collection.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Lim-seunghwan99/Interview-chatbot/internal/apperr"
	"github.com/Lim-seunghwan99/Interview-chatbot/internal/retrieval"
)

var (
	// ErrQueueFull is returned by Submit when the key's shard has no room.
	ErrQueueFull = errors.New("ingest queue is full")
	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("ingest pipeline is closed")
)

// Storer embeds and upserts one record. *retrieval.Retriever implements it.
type Storer interface {
	Store(ctx context.Context, c retrieval.Collection, key, text string, metadata map[string]string) error
}

// Job is one accepted submission.
type Job struct {
	Key         string
	Text        string
	SubmittedAt time.Time
}

// Options configures a Pipeline. Zero values take defaults.
type Options struct {
	Workers   int // default 4
	QueueSize int // per worker, default 256
	Logger    *slog.Logger
	// OnFailure, if set, is called from the worker goroutine after a job fails.
	OnFailure func(Job, error)
}

// Stats is a point-in-time snapshot of pipeline counters.
type Stats struct {
	Submitted int64 `json:"submitted"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Rejected  int64 `json:"rejected"`
	Pending   int   `json:"pending"`
}

// Pipeline fans submissions out to a fixed set of workers. A key always
// hashes to the same worker, so updates to one chatroom apply in order.
type Pipeline struct {
	storer    Storer
	logger    *slog.Logger
	onFailure func(Job, error)

	shards []chan Job
	wg     sync.WaitGroup

	// ctx is owned by the pipeline, not by any submitter.
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool

	submitted, completed, failed, rejected atomic.Int64
}

// New starts the workers. Call Close to stop them.
func New(storer Storer, opts Options) *Pipeline {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pipeline{
		storer:    storer,
		logger:    opts.Logger,
		onFailure: opts.OnFailure,
		shards:    make([]chan Job, opts.Workers),
		ctx:       ctx,
		cancel:    cancel,
	}
	for i := range p.shards {
		p.shards[i] = make(chan Job, opts.QueueSize)
		p.wg.Add(1)
		go p.run(p.shards[i])
	}
	return p
}

// Submit enqueues key/text and returns without waiting for embedding.
// Empty input is rejected here, before it reaches a worker.
func (p *Pipeline) Submit(key, text string) error {
	if strings.TrimSpace(key) == "" {
		return apperr.New(apperr.EmptyInput, "chatroom key is empty")
	}
	if strings.TrimSpace(text) == "" {
		return apperr.New(apperr.EmptyInput, "chat content for %s is empty", key)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	job := Job{Key: key, Text: text, SubmittedAt: time.Now().UTC()}
	select {
	case p.shards[shardFor(key, len(p.shards))] <- job:
		p.submitted.Add(1)
		return nil
	default:
		p.rejected.Add(1)
		return ErrQueueFull
	}
}

func shardFor(key string, n int) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(n))
}

func (p *Pipeline) run(jobs <-chan Job) {
	defer p.wg.Done()
	for job := range jobs {
		p.process(job)
	}
}

func (p *Pipeline) process(job Job) {
	err := p.storer.Store(p.ctx, retrieval.ChatCollection, job.Key, job.Text, map[string]string{
		"chatroom_id":  job.Key,
		"submitted_at": job.SubmittedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		p.failed.Add(1)
		p.logger.Warn("ingest failed", "chatroom_id", job.Key, "error", err)
		if p.onFailure != nil {
			p.onFailure(job, err)
		}
		return
	}
	p.completed.Add(1)
	p.logger.Debug("ingested chat history", "chatroom_id", job.Key, "chars", len(job.Text))
}

// Stats returns the current counters.
func (p *Pipeline) Stats() Stats {
	var pending int
	for _, ch := range p.shards {
		pending += len(ch)
	}
	return Stats{
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
		Rejected:  p.rejected.Load(),
		Pending:   pending,
	}
}

// Close stops accepting work and waits for queued jobs to finish. If ctx
// expires first, in-flight jobs are cancelled and Close returns ctx's error
// once the workers exit. Close is safe to call more than once.
func (p *Pipeline) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		for _, ch := range p.shards {
			close(ch)
		}
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return fmt.Errorf("draining ingest queue: %w", ctx.Err())
	}
}
