package keypool

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Veraticus/spice-ingest/internal/common"
)

// WorkFunc performs one provider call with the credential it is given.
type WorkFunc func(ctx context.Context, cred Credential) (string, error)

type queueResult struct {
	err   error
	value string
}

// queuedRequest is a deferred call waiting for a credential.
type queuedRequest struct {
	ctx        context.Context
	work       WorkFunc
	result     chan queueResult
	retries    int
	maxRetries int
}

func (r *queuedRequest) finish(value string, err error) {
	r.result <- queueResult{value: value, err: err}
}

// requestQueue is a FIFO that also supports pushing retried items to the front.
type requestQueue struct {
	items *list.List
	mu    sync.Mutex
}

func newRequestQueue() *requestQueue {
	return &requestQueue{items: list.New()}
}

func (q *requestQueue) pushBack(r *queuedRequest) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items.PushBack(r)
}

func (q *requestQueue) pushFront(r *queuedRequest) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items.PushFront(r)
}

func (q *requestQueue) pop() *queuedRequest {
	q.mu.Lock()
	defer q.mu.Unlock()

	front := q.items.Front()
	if front == nil {
		return nil
	}
	return q.items.Remove(front).(*queuedRequest)
}

func (q *requestQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// Enqueue runs work with a pooled credential behind a single-consumer FIFO
// queue. Rate-limited and failed attempts put the credential into cooldown or
// count a failure against it, then retry at the front of the queue with the
// next credential, up to maxRetries times.
func (m *Manager) Enqueue(ctx context.Context, work WorkFunc, maxRetries int) (string, error) {
	select {
	case <-m.stopCh:
		return "", common.ErrClosed
	default:
	}

	if maxRetries < 0 {
		maxRetries = 0
	}

	req := &queuedRequest{
		ctx:        ctx,
		work:       work,
		maxRetries: maxRetries,
		result:     make(chan queueResult, 1),
	}
	m.queue.pushBack(req)
	m.signal()

	select {
	case res := <-req.result:
		return res.value, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	case <-m.stopCh:
		return "", common.ErrClosed
	}
}

// QueueLen returns the number of requests waiting in the queue.
func (m *Manager) QueueLen() int {
	return m.queue.len()
}

func (m *Manager) signal() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// consume drains the queue one request at a time.
func (m *Manager) consume() {
	defer m.wg.Done()

	for {
		req := m.queue.pop()
		if req == nil {
			select {
			case <-m.stopCh:
				m.rejectPending()
				return
			case <-m.wake:
				continue
			}
		}

		m.process(req)

		timer := time.NewTimer(m.cfg.QueuePause)
		select {
		case <-m.stopCh:
			timer.Stop()
			m.rejectPending()
			return
		case <-timer.C:
		}
	}
}

func (m *Manager) process(req *queuedRequest) {
	if err := req.ctx.Err(); err != nil {
		req.finish("", err)
		return
	}

	ctx, cancel := context.WithCancel(req.ctx)
	defer cancel()
	stop := context.AfterFunc(m.baseCtx, cancel)
	defer stop()

	cred, err := m.Acquire(ctx)
	if err != nil {
		if errors.Is(err, common.ErrNoCredentialAvailable) && req.retries < req.maxRetries {
			req.retries++
			m.queue.pushFront(req)
			return
		}
		if m.baseCtx.Err() != nil {
			err = common.ErrClosed
		}
		req.finish("", err)
		return
	}

	value, err := req.work(ctx, cred)
	if err == nil {
		m.ReportSuccess(cred)
		req.finish(value, nil)
		return
	}

	if common.IsCanceled(err) && ctx.Err() != nil {
		req.finish("", err)
		return
	}

	if common.IsRateLimitShaped(err) {
		m.ReportRateLimited(cred)
	} else {
		m.ReportFailure(cred, err)
	}

	if req.retries < req.maxRetries {
		req.retries++
		m.logger.Debug("requeueing request",
			"credential", cred.ID,
			"retry", req.retries,
			"max_retries", req.maxRetries,
			"error", err)
		m.queue.pushFront(req)
		return
	}

	req.finish("", fmt.Errorf("request failed after %d attempts: %w", req.retries+1, err))
}

func (m *Manager) rejectPending() {
	for req := m.queue.pop(); req != nil; req = m.queue.pop() {
		req.finish("", common.ErrClosed)
	}
}
