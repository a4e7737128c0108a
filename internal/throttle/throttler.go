package throttle

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Veraticus/spice-ingest/internal/cache"
	"github.com/Veraticus/spice-ingest/internal/common"
)

// Throttler caps concurrent calls and spaces them with shared backoff state.
type Throttler struct {
	lastStart time.Time
	store     cache.Store
	logger    *slog.Logger
	now       func() time.Time
	sleep     func(context.Context, time.Duration) error
	rnd       func() float64
	sem       chan struct{}
	group     singleflight.Group
	cfg       Config
	failures  int
	mu        sync.Mutex
}

// Option configures a Throttler.
type Option func(*Throttler)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Throttler) { t.now = now }
}

// WithSleep overrides how the throttler waits out a delay.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(t *Throttler) { t.sleep = sleep }
}

// WithRand overrides the jitter source.
func WithRand(rnd func() float64) Option {
	return func(t *Throttler) { t.rnd = rnd }
}

// New creates a Throttler. store may be nil, in which case RunCached never
// short-circuits.
func New(cfg Config, store cache.Store, logger *slog.Logger, opts ...Option) *Throttler {
	cfg = cfg.withDefaults()
	t := &Throttler{
		cfg:    cfg,
		store:  store,
		logger: common.LoggerOrDefault(logger),
		now:    time.Now,
		sleep:  common.SleepContext,
		rnd:    rand.Float64,
		sem:    make(chan struct{}, cfg.MaxConcurrency),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run waits for a free slot and the computed delay, then calls fn. Only
// rate-limit-shaped errors grow the shared backoff; a success resets it.
// The error from fn is returned unchanged.
func (t *Throttler) Run(ctx context.Context, fn func(context.Context) error) error {
	select {
	case t.sem <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("waiting for throttle slot: %w", ctx.Err())
	}
	defer func() { <-t.sem }()

	delay := t.nextDelay()
	if delay > 0 {
		if err := t.sleep(ctx, delay); err != nil {
			return fmt.Errorf("throttle delay: %w", err)
		}
	}

	t.mu.Lock()
	t.lastStart = t.now()
	t.mu.Unlock()

	err := fn(ctx)
	t.record(err)
	return err
}

// RunCached returns the cached value for key if present. Otherwise it runs fn
// through Run and caches a successful result. Concurrent calls with the same
// key share one execution, which is detached from any single caller's
// cancellation; each caller stops waiting when its own ctx ends. hit reports
// whether the value came from the cache.
func (t *Throttler) RunCached(ctx context.Context, key string, fn func(context.Context) (string, error)) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	if value, ok := t.lookup(ctx, key); ok {
		return value, true, nil
	}

	shared := context.WithoutCancel(ctx)
	results := t.group.DoChan(key, func() (any, error) {
		if value, ok := t.lookup(shared, key); ok {
			return value, nil
		}

		var value string
		runErr := t.Run(shared, func(ctx context.Context) error {
			var err error
			value, err = fn(ctx)
			return err
		})
		if runErr != nil {
			return "", runErr
		}

		if t.store != nil {
			if err := t.store.Set(shared, key, value); err != nil {
				t.logger.Warn("failed to cache result", "error", err)
			}
		}
		return value, nil
	})

	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case res := <-results:
		if res.Err != nil {
			return "", false, res.Err
		}
		return res.Val.(string), false, nil
	}
}

// ConsecutiveErrors returns the current backoff exponent.
func (t *Throttler) ConsecutiveErrors() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failures
}

func (t *Throttler) lookup(ctx context.Context, key string) (string, bool) {
	if t.store == nil {
		return "", false
	}
	return t.store.Get(ctx, key)
}

func (t *Throttler) nextDelay() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	sinceLast := t.cfg.MinInterval
	if !t.lastStart.IsZero() {
		sinceLast = t.now().Sub(t.lastStart)
	}
	return ComputeDelay(t.cfg, t.failures, sinceLast, t.rnd)
}

func (t *Throttler) record(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch {
	case err == nil:
		t.failures = 0
	case IsRateLimitShaped(err):
		t.failures++
		t.logger.Warn("provider rate limited, backing off",
			"consecutive_errors", t.failures,
			"error", err)
	}
}
