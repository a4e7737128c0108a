package cache

import (
	"sync"
	"time"
)

const (
	// DefaultMaxSize is the entry capacity used when none is configured.
	DefaultMaxSize = 1000
	// DefaultTTL is the entry lifetime used when none is configured.
	DefaultTTL = 5 * time.Minute
)

// entry is a cached value with its creation time.
type entry[V any] struct {
	created time.Time
	value   V
}

// Memory is a thread-safe TTL cache with a fixed capacity. When full, the
// oldest entry is evicted to make room.
type Memory[V any] struct {
	now             func() time.Time
	entries         map[string]entry[V]
	stopCh          chan struct{}
	ttl             time.Duration
	cleanupInterval time.Duration
	maxSize         int
	mu              sync.RWMutex
	closeOnce       sync.Once
}

// Option configures a Memory cache.
type Option func(*memoryOptions)

type memoryOptions struct {
	now             func() time.Time
	cleanupInterval time.Duration
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *memoryOptions) { o.now = now }
}

// WithCleanupInterval sets how often expired entries are purged. Zero disables
// the background purge; expired entries are still invisible to Get.
func WithCleanupInterval(d time.Duration) Option {
	return func(o *memoryOptions) { o.cleanupInterval = d }
}

// New creates a cache holding at most maxSize entries for ttl each.
func New[V any](maxSize int, ttl time.Duration, opts ...Option) *Memory[V] {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	o := memoryOptions{now: time.Now, cleanupInterval: time.Minute}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Memory[V]{
		now:             o.now,
		entries:         make(map[string]entry[V]),
		stopCh:          make(chan struct{}),
		ttl:             ttl,
		cleanupInterval: o.cleanupInterval,
		maxSize:         maxSize,
	}

	if c.cleanupInterval > 0 {
		go c.cleanup()
	}

	return c
}

// Get returns the value for key if present and not expired.
func (c *Memory[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if c.now().Sub(e.created) >= c.ttl {
		return zero, false
	}
	return e.value, true
}

// Set stores value under key, evicting the oldest entry when at capacity.
func (c *Memory[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictOldestLocked()
	}

	c.entries[key] = entry[V]{value: value, created: c.now()}
}

// Delete removes key from the cache.
func (c *Memory[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len returns the number of stored entries, including expired ones not yet purged.
func (c *Memory[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear removes all entries from the cache.
func (c *Memory[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[V])
}

// Purge drops expired entries and returns how many were removed.
func (c *Memory[V]) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if now.Sub(e.created) >= c.ttl {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Close stops the cleanup goroutine.
func (c *Memory[V]) Close() {
	c.closeOnce.Do(func() { close(c.stopCh) })
}

// evictOldestLocked removes the entry with the earliest creation time.
// A linear scan keeps the structure a plain map; capacities are small.
func (c *Memory[V]) evictOldestLocked() {
	var (
		oldestKey string
		oldest    time.Time
		found     bool
	)
	for key, e := range c.entries {
		if !found || e.created.Before(oldest) {
			oldestKey, oldest, found = key, e.created, true
		}
	}
	if found {
		delete(c.entries, oldestKey)
	}
}

// cleanup periodically removes expired entries.
func (c *Memory[V]) cleanup() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.Purge()
		}
	}
}
