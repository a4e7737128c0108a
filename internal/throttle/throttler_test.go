package throttle

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Veraticus/spice-ingest/internal/cache"
	"github.com/Veraticus/spice-ingest/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSleep struct {
	delays []time.Duration
	mu     sync.Mutex
}

func (r *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func (r *recordingSleep) last() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.delays) == 0 {
		return 0
	}
	return r.delays[len(r.delays)-1]
}

func newTestThrottler(store cache.Store, rs *recordingSleep) *Throttler {
	cfg := Config{
		MaxConcurrency: 2,
		BaseDelay:      100 * time.Millisecond,
		MaxBackoff:     time.Second,
		MinInterval:    time.Nanosecond,
	}
	return New(cfg, store, nil,
		WithSleep(rs.sleep),
		WithRand(func() float64 { return 0 }))
}

func TestThrottler_BackoffState(t *testing.T) {
	rs := &recordingSleep{}
	th := newTestThrottler(nil, rs)
	ctx := context.Background()

	limited := &common.ProviderError{Provider: "gemini", StatusCode: 429}
	for i := 0; i < 2; i++ {
		err := th.Run(ctx, func(context.Context) error { return limited })
		require.ErrorIs(t, err, error(limited))
	}
	assert.Equal(t, 2, th.ConsecutiveErrors())

	err := th.Run(ctx, func(context.Context) error { return errors.New("bad request") })
	require.Error(t, err)
	assert.Equal(t, 2, th.ConsecutiveErrors(), "ordinary errors leave backoff untouched")
	assert.Equal(t, 400*time.Millisecond, rs.last())

	require.NoError(t, th.Run(ctx, func(context.Context) error { return nil }))
	assert.Equal(t, 0, th.ConsecutiveErrors())

	require.NoError(t, th.Run(ctx, func(context.Context) error { return nil }))
	assert.Equal(t, 100*time.Millisecond, rs.last())
}

func TestThrottler_ConcurrencyCap(t *testing.T) {
	rs := &recordingSleep{}
	th := newTestThrottler(nil, rs)

	var inFlight, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = th.Run(context.Background(), func(context.Context) error {
				n := atomic.AddInt32(&inFlight, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&inFlight, -1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
	assert.Len(t, th.sem, 0, "every slot released")
}

func TestThrottler_SlotReleasedOnFailure(t *testing.T) {
	rs := &recordingSleep{}
	th := newTestThrottler(nil, rs)

	for i := 0; i < 5; i++ {
		_ = th.Run(context.Background(), func(context.Context) error { return errors.New("boom") })
	}
	assert.Len(t, th.sem, 0)
}

func TestThrottler_ContextCanceled(t *testing.T) {
	th := New(Config{MaxConcurrency: 1, BaseDelay: time.Hour}, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	called := false
	err := th.Run(ctx, func(context.Context) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, called)
	assert.Len(t, th.sem, 0)
}

func TestThrottler_RunCached(t *testing.T) {
	mem := cache.New[string](10, time.Minute, cache.WithCleanupInterval(0))
	defer mem.Close()

	rs := &recordingSleep{}
	th := newTestThrottler(cache.NewMemoryStore(mem), rs)
	ctx := context.Background()
	key := cache.Key("gemini", "ăn sáng 30k, taxi 80k")

	var calls int32
	work := func(context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		return `{"transactions":[]}`, nil
	}

	first, hit, err := th.RunCached(ctx, key, work)
	require.NoError(t, err)
	assert.False(t, hit)

	second, hit, err := th.RunCached(ctx, key, work)
	require.NoError(t, err)
	assert.True(t, hit)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestThrottler_RunCachedSkipsFailures(t *testing.T) {
	mem := cache.New[string](10, time.Minute, cache.WithCleanupInterval(0))
	defer mem.Close()

	rs := &recordingSleep{}
	th := newTestThrottler(cache.NewMemoryStore(mem), rs)
	ctx := context.Background()

	_, _, err := th.RunCached(ctx, "k", func(context.Context) (string, error) {
		return "", errors.New("provider down")
	})
	require.Error(t, err)
	assert.Equal(t, 0, mem.Len())

	got, hit, err := th.RunCached(ctx, "k", func(context.Context) (string, error) {
		return "fresh", nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "fresh", got)
}

func TestThrottler_RunCachedWithoutStore(t *testing.T) {
	rs := &recordingSleep{}
	th := newTestThrottler(nil, rs)

	var calls int
	for i := 0; i < 2; i++ {
		_, hit, err := th.RunCached(context.Background(), "k", func(context.Context) (string, error) {
			calls++
			return "v", nil
		})
		require.NoError(t, err)
		assert.False(t, hit)
	}
	assert.Equal(t, 2, calls)
}

func TestThrottler_RunCachedSurvivesFirstCallerCancel(t *testing.T) {
	mem := cache.New[string](10, time.Minute, cache.WithCleanupInterval(0))
	defer mem.Close()

	rs := &recordingSleep{}
	th := newTestThrottler(cache.NewMemoryStore(mem), rs)

	started := make(chan struct{})
	release := make(chan struct{})
	var calls int32
	work := func(ctx context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		close(started)
		<-release
		return "shared", ctx.Err()
	}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, _, err := th.RunCached(firstCtx, "k", work)
		firstErr <- err
	}()
	<-started

	type result struct {
		err   error
		value string
	}
	second := make(chan result, 1)
	go func() {
		v, _, err := th.RunCached(context.Background(), "k", work)
		second <- result{value: v, err: err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	require.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, "shared", got.value)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	cached, ok := mem.Get("k")
	require.True(t, ok)
	assert.Equal(t, "shared", cached)
}
