package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	interfaces "users-service/internal/interfaces/infrastructure"

	"github.com/go-redis/redis/v8"
)

var _ interfaces.IdempotencyRepository = (*RedisIdempotencyRepository)(nil)

type RedisIdempotencyRepository struct {
	client     redis.UniversalClient
	prefix     string
	ttl        time.Duration
	pendingTTL time.Duration
}

func NewRedisIdempotencyRepository(client redis.UniversalClient, ttl time.Duration) *RedisIdempotencyRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisIdempotencyRepository{
		client:     client,
		prefix:     "idempotency_key:",
		ttl:        ttl,
		pendingTTL: time.Minute,
	}
}

// Reserve stores resp as a pending entry with a short TTL, so a crashed
// request frees its key. It reports false when the key is already taken.
func (r *RedisIdempotencyRepository) Reserve(ctx context.Context, resp *interfaces.StoredResponse) (bool, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return false, fmt.Errorf("failed to marshal idempotency key: %w", err)
	}

	ok, err := r.client.SetNX(ctx, r.getRedisKey(resp.Key), data, r.pendingTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to reserve idempotency key in Redis: %w", err)
	}

	return ok, nil
}

// Complete replaces the reservation with the finished response for the full TTL.
func (r *RedisIdempotencyRepository) Complete(ctx context.Context, resp *interfaces.StoredResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to marshal idempotency key: %w", err)
	}

	if err := r.client.Set(ctx, r.getRedisKey(resp.Key), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store idempotency key in Redis: %w", err)
	}

	return nil
}

func (r *RedisIdempotencyRepository) GetByKey(ctx context.Context, key string) (*interfaces.StoredResponse, error) {
	redisKey := r.getRedisKey(key)

	val, err := r.client.Get(ctx, redisKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, interfaces.ErrIdempotencyKeyNotFound
		}
		return nil, fmt.Errorf("failed to get idempotency key from Redis: %w", err)
	}

	var resp interfaces.StoredResponse
	if err := json.Unmarshal([]byte(val), &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal idempotency key: %w", err)
	}

	return &resp, nil
}

func (r *RedisIdempotencyRepository) Delete(ctx context.Context, key string) error {
	redisKey := r.getRedisKey(key)

	if err := r.client.Del(ctx, redisKey).Err(); err != nil {
		return fmt.Errorf("failed to delete idempotency key from Redis: %w", err)
	}

	return nil
}

func (r *RedisIdempotencyRepository) getRedisKey(key string) string {
	return r.prefix + key
}
