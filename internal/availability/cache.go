package availability

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"garagebook/internal/metrics"
)

// Invalidator drops derived availability state for a slot's date. Write paths
// (reserve, cancel, reschedule, block, unblock, override, schedule upsert)
// call it after committing.
type Invalidator interface {
	Invalidate(ctx context.Context, garageID int64, date string)
}

// NoopInvalidator is used when no cache is configured.
type NoopInvalidator struct{}

func (NoopInvalidator) Invalidate(context.Context, int64, string) {}

// Cache is a Redis-backed, TTL-bounded copy of resolved availability. It is a
// derived representation only: reservation commits never consult it, so a
// stale or lost entry can cost a recompute but never a double booking.
type Cache struct {
	resolver *Resolver
	redis    *redis.Client
	ttl      time.Duration
	logger   *zerolog.Logger
}

// NewCache wraps a resolver with a Redis cache.
func NewCache(resolver *Resolver, redisClient *redis.Client, ttl time.Duration, logger *zerolog.Logger) *Cache {
	return &Cache{resolver: resolver, redis: redisClient, ttl: ttl, logger: logger}
}

func cacheKey(garageID int64, date string) string {
	return fmt.Sprintf("avail:%d:%s", garageID, date)
}

// AvailableSlots returns cached slots when present, otherwise resolves and
// stores. Cache failures degrade to a direct resolve, never to an error.
func (c *Cache) AvailableSlots(ctx context.Context, garageID int64, date string) ([]string, error) {
	key := cacheKey(garageID, date)

	if val, err := c.redis.Get(ctx, key).Result(); err == nil {
		var cached []string
		if err := json.Unmarshal([]byte(val), &cached); err == nil {
			metrics.IncCacheHit()
			return cached, nil
		}
	}
	metrics.IncCacheMiss()

	resolved, err := c.resolver.AvailableSlots(ctx, garageID, date)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(resolved); err == nil {
		if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("availability cache write failed")
		}
	}
	return resolved, nil
}

// Invalidate drops the cached entry for one garage/date.
func (c *Cache) Invalidate(ctx context.Context, garageID int64, date string) {
	key := cacheKey(garageID, date)
	if err := c.redis.Del(ctx, key).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("availability cache invalidation failed")
	}
}
