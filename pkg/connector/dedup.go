// Copyright 2024-2026 Aiku AI

package connector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper remembers keys for a while. Slack redelivers events that were not
// acknowledged in time, and Socket Mode may deliver an event on more than
// one connection.
type Deduper interface {
	// Seen records key and reports whether it was already recorded.
	Seen(ctx context.Context, key string) (bool, error)
	// Forget drops key so a later delivery is handled again.
	Forget(ctx context.Context, key string) error
}

// MemoryDeduper keeps keys in process memory.
type MemoryDeduper struct {
	ttl time.Duration
	now func() time.Time

	mu        sync.Mutex
	seen      map[string]time.Time
	lastPrune time.Time
}

// NewMemoryDeduper creates a MemoryDeduper that forgets keys after ttl.
func NewMemoryDeduper(ttl time.Duration) *MemoryDeduper {
	return &MemoryDeduper{
		ttl:  ttl,
		now:  time.Now,
		seen: make(map[string]time.Time),
	}
}

// Seen implements Deduper.
func (m *MemoryDeduper) Seen(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if now.Sub(m.lastPrune) > m.ttl {
		for k, expires := range m.seen {
			if now.After(expires) {
				delete(m.seen, k)
			}
		}
		m.lastPrune = now
	}
	if expires, ok := m.seen[key]; ok && !now.After(expires) {
		return true, nil
	}
	m.seen[key] = now.Add(m.ttl)
	return false, nil
}

// Forget implements Deduper.
func (m *MemoryDeduper) Forget(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seen, key)
	return nil
}

// Len returns the number of remembered keys.
func (m *MemoryDeduper) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.seen)
}

// RedisDeduper keeps keys in Redis so several relay instances share them.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDeduper connects to the Redis server at redisURL.
func NewRedisDeduper(ctx context.Context, redisURL string, ttl time.Duration) (*RedisDeduper, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return &RedisDeduper{client: client, ttl: ttl}, nil
}

func dedupKey(key string) string {
	return fmt.Sprintf("slackcord:seen:%s", key)
}

// Seen implements Deduper.
func (r *RedisDeduper) Seen(ctx context.Context, key string) (bool, error) {
	added, err := r.client.SetNX(ctx, dedupKey(key), 1, r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record key: %w", err)
	}
	return !added, nil
}

// Forget implements Deduper.
func (r *RedisDeduper) Forget(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, dedupKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to forget key: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (r *RedisDeduper) Close() error {
	return r.client.Close()
}
