// File path: internal/pipeline/redis_cache.go
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/helpmate-bot/helpmate/internal/common"
	"github.com/helpmate-bot/helpmate/internal/common/telemetry"
)

const redisKeyPrefix = "helpmate:answer:"

// RedisCache shares the answer cache across instances. Every Redis failure
// degrades to a miss; the answer path never depends on Redis being up.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (*AnswerResult, bool) {
	data, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			common.Logger().Warn("cache: redis get failed", "error", err)
		}
		telemetry.RecordCacheLookup(false)
		return nil, false
	}
	var result AnswerResult
	if err := json.Unmarshal(data, &result); err != nil {
		common.Logger().Warn("cache: stored answer malformed, dropping", "key", key, "error", err)
		c.client.Del(ctx, redisKeyPrefix+key)
		telemetry.RecordCacheLookup(false)
		return nil, false
	}
	telemetry.RecordCacheLookup(true)
	return &result, true
}

func (c *RedisCache) Set(ctx context.Context, key string, result *AnswerResult) {
	if result == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		common.Logger().Warn("cache: marshal answer failed", "error", err)
		return
	}
	if err := c.client.Set(ctx, redisKeyPrefix+key, data, c.ttl).Err(); err != nil {
		common.Logger().Warn("cache: redis set failed", "error", err)
	}
}

func (c *RedisCache) Invalidate(ctx context.Context) {
	iter := c.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		common.Logger().Warn("cache: redis scan failed", "error", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		common.Logger().Warn("cache: redis delete failed", "error", err)
	}
}

var _ Cache = (*RedisCache)(nil)
