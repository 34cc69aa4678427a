package correlate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "threatbridge:correlate:"

// RedisCache stores correlation results in redis, letting several processes
// that share one immutable knowledge graph also share the memo cache. Cache
// failures degrade to misses; they are never surfaced to the caller.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
	log *slog.Logger
}

// NewRedisCache wraps an existing redis client. A zero ttl stores entries
// without expiry.
func NewRedisCache(rdb *redis.Client, ttl time.Duration, log *slog.Logger) *RedisCache {
	if log == nil {
		log = slog.Default()
	}
	return &RedisCache{rdb: rdb, ttl: ttl, log: log}
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, key string) ([]string, bool) {
	val, err := c.rdb.Get(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Debug("redis cache get failed", "error", err)
		}
		return nil, false
	}
	var incidents []string
	if err := json.Unmarshal([]byte(val), &incidents); err != nil {
		c.log.Debug("redis cache entry corrupt, ignoring", "key", key, "error", err)
		return nil, false
	}
	return incidents, true
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, key string, incidents []string) {
	data, err := json.Marshal(incidents)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, redisKeyPrefix+key, data, c.ttl).Err(); err != nil {
		c.log.Debug("redis cache set failed", "error", err)
	}
}
