package server

import (
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	now time.Time
	mu  sync.Mutex
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func TestRateLimiter(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	rl := newRateLimiter(3, time.Minute, clock.Now)
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("a"), "request %d", i)
	}
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))

	clock.Advance(59 * time.Second)
	assert.False(t, rl.Allow("a"))

	clock.Advance(time.Second)
	assert.True(t, rl.Allow("a"))
}

func TestRateLimiterCleanup(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	rl := newRateLimiter(1, time.Minute, clock.Now)
	defer rl.Stop()

	rl.Allow("idle")
	clock.Advance(bucketCleanupThreshold + time.Second)
	rl.Allow("fresh")
	rl.cleanup()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.clients, "idle")
	assert.Contains(t, rl.clients, "fresh")
}

func TestRateLimiterStopIdempotent(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	rl.Stop()
	assert.NotPanics(t, rl.Stop)
}

func TestClientID(t *testing.T) {
	r := httptest.NewRequest("POST", "/", nil)
	r.RemoteAddr = "10.0.0.7:5123"
	assert.Equal(t, "10.0.0.7", clientID(r))

	r.Header.Set("X-Client-ID", " web-app ")
	assert.Equal(t, "web-app", clientID(r))
}
