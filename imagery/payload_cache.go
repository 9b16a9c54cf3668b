package imagery

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gogpu/globe/internal/cache"
	"github.com/gogpu/globe/internal/logging"
)

// PayloadCache stores encoded tile bytes by URL. Implementations must be
// safe for concurrent use.
type PayloadCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, payload []byte)
}

// MemoryPayloadCache keeps payloads in process with a soft entry limit.
type MemoryPayloadCache struct {
	c *cache.Cache[string, []byte]
}

// NewMemoryPayloadCache holds about limit payloads.
func NewMemoryPayloadCache(limit int) *MemoryPayloadCache {
	return &MemoryPayloadCache{c: cache.New[string, []byte](limit)}
}

func (m *MemoryPayloadCache) Get(_ context.Context, key string) ([]byte, bool) {
	return m.c.Get(key)
}

func (m *MemoryPayloadCache) Set(_ context.Context, key string, payload []byte) {
	m.c.GetOrCreate(key, func() []byte { return payload })
}

// Len returns the number of cached payloads.
func (m *MemoryPayloadCache) Len() int { return m.c.Len() }

// RedisPayloadCache shares payloads between processes through Redis.
type RedisPayloadCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisPayloadCache stores payloads under prefix with the given TTL.
// A zero TTL keeps entries until Redis evicts them.
func NewRedisPayloadCache(client *redis.Client, prefix string, ttl time.Duration) *RedisPayloadCache {
	return &RedisPayloadCache{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisPayloadCache) Get(ctx context.Context, key string) ([]byte, bool) {
	b, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logging.L().Debug("payload cache get failed", "key", key, "err", err)
		}
		return nil, false
	}
	return b, true
}

func (r *RedisPayloadCache) Set(ctx context.Context, key string, payload []byte) {
	if err := r.client.Set(ctx, r.prefix+key, payload, r.ttl).Err(); err != nil {
		logging.L().Debug("payload cache set failed", "key", key, "err", err)
	}
}
