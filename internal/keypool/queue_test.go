package keypool

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Veraticus/spice-ingest/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queueConfig() Config {
	return Config{
		RequestsPerWindow: 100,
		Window:            time.Minute,
		Cooldown:          time.Minute,
		QueuePause:        time.Millisecond,
	}
}

func TestEnqueue_Success(t *testing.T) {
	m := newTestManager(t, queueConfig())
	m.AddCredentials("secret-aaaa-1")

	got, err := m.Enqueue(context.Background(), func(_ context.Context, cred Credential) (string, error) {
		return "ok:" + cred.ID, nil
	}, 3)

	require.NoError(t, err)
	assert.Equal(t, "ok:key-1", got)
	assert.Equal(t, 1, m.Status().TotalRequests)
}

func TestEnqueue_RetriesRateLimitWithNextCredential(t *testing.T) {
	tests := []struct {
		limitErr error
		name     string
	}{
		{name: "provider 429", limitErr: &common.ProviderError{Provider: "gemini", StatusCode: http.StatusTooManyRequests, Body: "slow down"}},
		{name: "quota message", limitErr: errors.New("RESOURCE_EXHAUSTED: quota exceeded")},
		{name: "sentinel", limitErr: common.ErrRateLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(t, queueConfig())
			m.AddCredentials("secret-aaaa-1", "secret-bbbb-2")

			var used []string
			got, err := m.Enqueue(context.Background(), func(_ context.Context, cred Credential) (string, error) {
				used = append(used, cred.ID)
				if len(used) == 1 {
					return "", tt.limitErr
				}
				return "done", nil
			}, 3)

			require.NoError(t, err)
			assert.Equal(t, "done", got)
			assert.Equal(t, []string{"key-1", "key-2"}, used)

			st := m.Status()
			assert.Equal(t, 1, st.CoolingDown)
			assert.Equal(t, 0, st.Keys[0].ConsecutiveFailures, "rate limits are not failures")
		})
	}
}

func TestEnqueue_RetryExhaustion(t *testing.T) {
	m := newTestManager(t, queueConfig())
	m.AddCredentials("secret-aaaa-1", "secret-bbbb-2", "secret-cccc-3")

	var calls int32
	_, err := m.Enqueue(context.Background(), func(context.Context, Credential) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "", errors.New("upstream exploded")
	}, 2)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Contains(t, err.Error(), "upstream exploded")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestEnqueue_FailureDisablesCredential(t *testing.T) {
	cfg := queueConfig()
	cfg.FailureCeiling = 1
	m := newTestManager(t, cfg)
	m.AddCredentials("secret-aaaa-1", "secret-bbbb-2")

	_, err := m.Enqueue(context.Background(), func(_ context.Context, cred Credential) (string, error) {
		if cred.ID == "key-1" {
			return "", errors.New("api key not valid")
		}
		return "fine", nil
	}, 0)
	require.Error(t, err)

	got, err := m.Enqueue(context.Background(), func(_ context.Context, cred Credential) (string, error) {
		return cred.ID, nil
	}, 0)
	require.NoError(t, err)
	assert.Equal(t, "key-2", got)
	assert.Equal(t, 1, m.Status().Disabled)
}

func TestEnqueue_SingleConsumer(t *testing.T) {
	m := newTestManager(t, queueConfig())
	m.AddCredentials("secret-aaaa-1", "secret-bbbb-2", "secret-cccc-3")

	var inFlight, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Enqueue(context.Background(), func(context.Context, Credential) (string, error) {
				n := atomic.AddInt32(&inFlight, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				atomic.AddInt32(&inFlight, -1)
				return "ok", nil
			}, 0)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&peak))
	assert.Equal(t, 10, m.Status().TotalRequests)
}

func TestEnqueue_PoolExhausted(t *testing.T) {
	m := newTestManager(t, queueConfig())

	_, err := m.Enqueue(context.Background(), func(context.Context, Credential) (string, error) {
		t.Fatal("work must not run without a credential")
		return "", nil
	}, 3)
	require.ErrorIs(t, err, common.ErrPoolExhausted)
}

func TestEnqueue_CanceledContext(t *testing.T) {
	m := newTestManager(t, queueConfig())
	m.AddCredentials("secret-aaaa-1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Enqueue(ctx, func(context.Context, Credential) (string, error) {
		return "never", nil
	}, 0)
	require.ErrorIs(t, err, context.Canceled)
}

func TestEnqueue_Closed(t *testing.T) {
	m := NewManager(queueConfig(), nil)
	m.AddCredentials("secret-aaaa-1")
	require.NoError(t, m.Close())

	_, err := m.Enqueue(context.Background(), func(context.Context, Credential) (string, error) {
		return "never", nil
	}, 0)
	require.ErrorIs(t, err, common.ErrClosed)

	// Close is idempotent.
	require.NoError(t, m.Close())
}

func TestEnqueue_CloseRejectsPending(t *testing.T) {
	m := NewManager(queueConfig(), nil)
	m.AddCredentials("secret-aaaa-1")

	started := make(chan struct{})
	errs := make(chan error, 2)

	go func() {
		_, err := m.Enqueue(context.Background(), func(ctx context.Context, _ Credential) (string, error) {
			close(started)
			<-ctx.Done()
			return "", ctx.Err()
		}, 0)
		errs <- err
	}()
	<-started

	go func() {
		_, err := m.Enqueue(context.Background(), func(context.Context, Credential) (string, error) {
			return "late", nil
		}, 0)
		errs <- err
	}()

	require.NoError(t, m.Close())
	for i := 0; i < 2; i++ {
		select {
		case err := <-errs:
			assert.Error(t, err)
		case <-time.After(time.Second):
			t.Fatal("enqueue did not return after Close")
		}
	}
}
