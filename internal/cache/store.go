package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Store is a string-valued cache shared by request paths. Implementations
// apply their own TTL.
type Store interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string) error
}

// MemoryStore adapts a Memory cache to the Store interface.
type MemoryStore struct {
	mem *Memory[string]
}

// NewMemoryStore wraps mem as a Store.
func NewMemoryStore(mem *Memory[string]) *MemoryStore {
	return &MemoryStore{mem: mem}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) (string, bool) {
	return s.mem.Get(key)
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mem.Set(key, value)
	return nil
}

// Key derives a stable cache key from its parts.
func Key(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])
}
