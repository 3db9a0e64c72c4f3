package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the subset of go-redis the durable cache needs.
// *redis.Client and redis.Cmdable satisfy it.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// RedisConfig configures a RedisCache.
type RedisConfig struct {
	// Prefix namespaces every stored key as "<prefix>:<key>".
	// Default: "brgw"
	Prefix string

	// TTL is the lifetime embedded in every entry.
	// Default: DefaultTTL
	TTL time.Duration

	// OnError observes store failures and undecodable entries. Get treats
	// both as a miss.
	OnError func(op, key string, err error)
}

// RedisCache persists entries in Redis so they survive process restarts.
// It has no capacity bound and no recency tracking.
type RedisCache struct {
	client RedisClient
	config RedisConfig
	now    func() time.Time
}

// envelope is the stored form of an entry. Value is base64 in JSON.
type envelope struct {
	Value     []byte `json:"value"`
	ExpiresAt int64  `json:"expiresAt"`
}

// NewRedisCache creates a Redis-backed cache.
func NewRedisCache(client RedisClient, config RedisConfig) *RedisCache {
	if config.Prefix == "" {
		config.Prefix = "brgw"
	}
	if config.TTL <= 0 {
		config.TTL = DefaultTTL
	}

	return &RedisCache{
		client: client,
		config: config,
		now:    time.Now,
	}
}

func (c *RedisCache) namespaced(key string) string {
	return c.config.Prefix + ":" + key
}

// Get reads and decodes the entry, returning a miss when it is absent,
// unreadable or past its embedded expiry.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	raw, err := c.client.Get(ctx, c.namespaced(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.report("get", key, err)
		return nil, false
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.report("decode", key, err)
		return nil, false
	}
	if c.now().UnixMilli() > env.ExpiresAt {
		return nil, false
	}
	return env.Value, true
}

// Set writes the entry with its expiry embedded. The Redis key TTL is set to
// twice the entry TTL as a retention hint; correctness relies on the
// embedded expiry.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte) error {
	raw, err := json.Marshal(envelope{
		Value:     value,
		ExpiresAt: c.now().Add(c.config.TTL).UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("cache: encode %q: %w", key, err)
	}

	if err := c.client.Set(ctx, c.namespaced(key), raw, 2*c.config.TTL).Err(); err != nil {
		c.report("set", key, err)
		return fmt.Errorf("cache: store %q: %w", key, err)
	}
	return nil
}

// Clear is a no-op; durable entries age out through their expiry.
func (c *RedisCache) Clear(context.Context) error {
	return nil
}

// Ping checks connectivity to the store.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) report(op, key string, err error) {
	if c.config.OnError != nil {
		c.config.OnError(op, key, err)
	}
}

var _ Cache = (*RedisCache)(nil)
