package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"users-service/internal/config"
	"users-service/internal/domain/user"
	interfaces "users-service/internal/interfaces/infrastructure"

	"github.com/go-redis/redis/v8"
)

const userKeyPrefix = "users:"

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(addr, password string, db int, ttl time.Duration) *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisCache{
		client: rdb,
		ttl:    ttl,
	}
}

func NewRedisCacheWithConfig(cfg *config.CacheConfig) *RedisCache {
	return NewRedisCache(
		fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		cfg.Password,
		cfg.DB,
		time.Duration(cfg.TTL)*time.Second,
	)
}

// GetClient exposes the underlying client so other Redis-backed stores can
// share the connection pool.
func (r *RedisCache) GetClient() *redis.Client {
	return r.client
}

func userKey(id int64) string {
	return fmt.Sprintf("%s%d", userKeyPrefix, id)
}

func (r *RedisCache) GetUser(ctx context.Context, id int64) (*user.User, error) {
	val, err := r.client.Get(ctx, userKey(id)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, interfaces.ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get user from cache: %w", err)
	}

	var u user.User
	if err := json.Unmarshal([]byte(val), &u); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached user: %w", err)
	}

	return &u, nil
}

func (r *RedisCache) SetUser(ctx context.Context, u *user.User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	if err := r.client.Set(ctx, userKey(u.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set user in cache: %w", err)
	}

	return nil
}

func (r *RedisCache) InvalidateUser(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, userKey(id))
	}

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete keys: %w", err)
	}

	return nil
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

func (r *RedisCache) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

var _ interfaces.CacheService = (*RedisCache)(nil)
