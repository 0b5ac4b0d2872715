package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"garagebook/internal/models"
)

// RedisQuota is a QuotaGate over a shared Redis counter. The counter is
// replenished by the external top-up flow; this side only consumes. A missing
// key means no quota has been granted.
type RedisQuota struct {
	redis *redis.Client
}

// NewRedisQuota creates a Redis-backed quota gate.
func NewRedisQuota(redisClient *redis.Client) *RedisQuota {
	return &RedisQuota{redis: redisClient}
}

func quotaKey(garageID int64) string {
	return fmt.Sprintf("quota:%d", garageID)
}

// Remaining returns the garage's remaining bookable capacity.
func (q *RedisQuota) Remaining(ctx context.Context, garageID int64) (int64, error) {
	val, err := q.redis.Get(ctx, quotaKey(garageID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read quota: %w", err)
	}
	return val, nil
}

// Consume atomically takes one unit of quota. DECR below zero means the
// garage was already exhausted; the unit is restored and the caller gets
// ErrQuotaExhausted rather than a silent bypass.
func (q *RedisQuota) Consume(ctx context.Context, garageID int64) error {
	key := quotaKey(garageID)

	exists, err := q.redis.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("check quota: %w", err)
	}
	if exists == 0 {
		return models.ErrQuotaExhausted
	}

	remaining, err := q.redis.Decr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("consume quota: %w", err)
	}
	if remaining < 0 {
		if err := q.redis.Incr(ctx, key).Err(); err != nil {
			return fmt.Errorf("restore quota: %w", err)
		}
		return models.ErrQuotaExhausted
	}
	return nil
}

// Restore gives one consumed unit back, for confirmations that failed after
// the gate admitted them.
func (q *RedisQuota) Restore(ctx context.Context, garageID int64) error {
	if err := q.redis.Incr(ctx, quotaKey(garageID)).Err(); err != nil {
		return fmt.Errorf("restore quota: %w", err)
	}
	return nil
}
