package throttle

import (
	"context"
	"errors"
	"sync"
	"time"
)

// errNoOutcome is returned to a caller whose request got no entry in the
// settled batch.
var errNoOutcome = errors.New("batch returned no outcome for request")

// Outcome is the settled result of one request within a batch.
type Outcome[Resp any] struct {
	Value Resp
	Err   error
}

// BatchFunc executes one batch. It must return one outcome per request, in
// request order.
type BatchFunc[Req, Resp any] func(ctx context.Context, key string, reqs []Req) []Outcome[Resp]

type batchItem[Req, Resp any] struct {
	req  Req
	done chan Outcome[Resp]
}

type pendingBatch[Req, Resp any] struct {
	ctx   context.Context
	timer *time.Timer
	items []batchItem[Req, Resp]
}

// Batcher groups requests that share a key into a single call. A batch is
// flushed when it holds batchSize requests or maxWait after its first
// request arrived, whichever comes first.
type Batcher[Req, Resp any] struct {
	keyFn     func(Req) string
	exec      BatchFunc[Req, Resp]
	pending   map[string]*pendingBatch[Req, Resp]
	maxWait   time.Duration
	batchSize int
	mu        sync.Mutex
}

// NewBatcher creates a Batcher.
func NewBatcher[Req, Resp any](keyFn func(Req) string, batchSize int, maxWait time.Duration, exec BatchFunc[Req, Resp]) *Batcher[Req, Resp] {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Batcher[Req, Resp]{
		keyFn:     keyFn,
		exec:      exec,
		batchSize: batchSize,
		maxWait:   maxWait,
		pending:   make(map[string]*pendingBatch[Req, Resp]),
	}
}

// Submit adds req to the batch for its key and waits for its outcome.
func (b *Batcher[Req, Resp]) Submit(ctx context.Context, req Req) (Resp, error) {
	key := b.keyFn(req)
	item := batchItem[Req, Resp]{req: req, done: make(chan Outcome[Resp], 1)}

	b.mu.Lock()
	pb, ok := b.pending[key]
	if !ok {
		// The batch outlives any one caller's cancellation.
		pb = &pendingBatch[Req, Resp]{ctx: context.WithoutCancel(ctx)}
		b.pending[key] = pb
		pb.timer = time.AfterFunc(b.maxWait, func() { b.flushKey(key, pb) })
	}
	pb.items = append(pb.items, item)
	full := len(pb.items) >= b.batchSize
	if full {
		pb.timer.Stop()
		delete(b.pending, key)
	}
	b.mu.Unlock()

	if full {
		go b.run(key, pb)
	}

	select {
	case out := <-item.done:
		return out.Value, out.Err
	case <-ctx.Done():
		var zero Resp
		return zero, ctx.Err()
	}
}

// flushKey runs pb if it is still the pending batch for key.
func (b *Batcher[Req, Resp]) flushKey(key string, pb *pendingBatch[Req, Resp]) {
	b.mu.Lock()
	if b.pending[key] != pb {
		b.mu.Unlock()
		return
	}
	delete(b.pending, key)
	b.mu.Unlock()

	b.run(key, pb)
}

func (b *Batcher[Req, Resp]) run(key string, pb *pendingBatch[Req, Resp]) {
	reqs := make([]Req, len(pb.items))
	for i, it := range pb.items {
		reqs[i] = it.req
	}

	outcomes := b.exec(pb.ctx, key, reqs)
	for i, it := range pb.items {
		if i < len(outcomes) {
			it.done <- outcomes[i]
			continue
		}
		it.done <- Outcome[Resp]{Err: errNoOutcome}
	}
}
