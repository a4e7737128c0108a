package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
	mu  sync.Mutex
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)}
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

func TestMemory(t *testing.T) {
	t.Run("basic operations", func(t *testing.T) {
		c := New[string](10, time.Minute, WithCleanupInterval(0))
		defer c.Close()

		_, found := c.Get("missing")
		assert.False(t, found)

		c.Set("key1", "value1")
		got, found := c.Get("key1")
		require.True(t, found)
		assert.Equal(t, "value1", got)
		assert.Equal(t, 1, c.Len())

		c.Delete("key1")
		_, found = c.Get("key1")
		assert.False(t, found)

		c.Set("a", "1")
		c.Set("b", "2")
		c.Clear()
		assert.Equal(t, 0, c.Len())
	})

	t.Run("expiration", func(t *testing.T) {
		clock := newFakeClock()
		c := New[int](10, time.Minute, WithClock(clock.Now), WithCleanupInterval(0))
		defer c.Close()

		c.Set("k", 42)
		clock.Advance(59 * time.Second)
		_, found := c.Get("k")
		assert.True(t, found)

		clock.Advance(time.Second)
		_, found = c.Get("k")
		assert.False(t, found, "entry must be invisible once age reaches ttl")

		assert.Equal(t, 1, c.Purge())
		assert.Equal(t, 0, c.Len())
	})

	t.Run("evicts oldest at capacity", func(t *testing.T) {
		clock := newFakeClock()
		c := New[string](3, time.Hour, WithClock(clock.Now), WithCleanupInterval(0))
		defer c.Close()

		for i := 0; i < 3; i++ {
			c.Set(fmt.Sprintf("k%d", i), "v")
			clock.Advance(time.Second)
		}

		c.Set("k3", "v")
		assert.Equal(t, 3, c.Len())
		_, found := c.Get("k0")
		assert.False(t, found, "oldest entry should be evicted")
		_, found = c.Get("k3")
		assert.True(t, found)
	})

	t.Run("overwrite does not evict", func(t *testing.T) {
		c := New[string](2, time.Hour, WithCleanupInterval(0))
		defer c.Close()

		c.Set("a", "1")
		c.Set("b", "2")
		c.Set("a", "3")

		assert.Equal(t, 2, c.Len())
		got, _ := c.Get("a")
		assert.Equal(t, "3", got)
		_, found := c.Get("b")
		assert.True(t, found)
	})

	t.Run("defaults", func(t *testing.T) {
		c := New[string](0, 0, WithCleanupInterval(0))
		defer c.Close()
		assert.Equal(t, DefaultMaxSize, c.maxSize)
		assert.Equal(t, DefaultTTL, c.ttl)
	})

	t.Run("concurrent access", func(t *testing.T) {
		c := New[int](50, time.Minute)
		defer c.Close()

		var wg sync.WaitGroup
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func(g int) {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					key := fmt.Sprintf("k%d", (g*100+i)%80)
					c.Set(key, i)
					_, _ = c.Get(key)
				}
			}(g)
		}
		wg.Wait()

		assert.LessOrEqual(t, c.Len(), 50)
	})
}

func TestMemoryStore(t *testing.T) {
	mem := New[string](10, time.Minute, WithCleanupInterval(0))
	defer mem.Close()
	store := NewMemoryStore(mem)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "v"))
	got, found := store.Get(ctx, "k")
	assert.True(t, found)
	assert.Equal(t, "v", got)
}

func TestKey(t *testing.T) {
	assert.Equal(t, Key("a", "b"), Key("a", "b"))
	assert.NotEqual(t, Key("ab"), Key("a", "b"))
	assert.Len(t, Key("ăn sáng 30k"), 64)
}
