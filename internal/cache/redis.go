package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Veraticus/spice-ingest/internal/common"
)

// RedisStore is a Store backed by Redis, letting several ingest processes
// share completion results.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects to addr and verifies the connection.
func NewRedisStore(ctx context.Context, addr, prefix string, ttl time.Duration, logger *slog.Logger) (*RedisStore, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	logger = common.LoggerOrDefault(logger)

	client := redis.NewClient(&redis.Options{Addr: addr})
	err := common.Retry(ctx, common.RetryOptions{Logger: logger, Name: "redis ping"}, func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}

	return newRedisStore(client, prefix, ttl, logger), nil
}

func newRedisStore(client *redis.Client, prefix string, ttl time.Duration, logger *slog.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		logger: logger,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Get implements Store. Redis failures are treated as misses.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool) {
	val, err := s.client.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("redis cache get failed", "error", err)
		}
		return "", false
	}
	return val, true
}

// Set implements Store.
func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.prefix+key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write redis cache: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
