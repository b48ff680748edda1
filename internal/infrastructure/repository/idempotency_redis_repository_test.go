package repository

import (
	"context"
	"testing"
	"time"

	interfaces "users-service/internal/interfaces/infrastructure"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisIdempotencyRepository(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	repo := NewRedisIdempotencyRepository(client, time.Hour)
	ctx := context.Background()

	_, err := repo.GetByKey(ctx, "k1")
	require.ErrorIs(t, err, interfaces.ErrIdempotencyKeyNotFound)

	reservation := &interfaces.StoredResponse{
		Key:         "k1",
		Method:      "POST",
		Path:        "/users",
		RequestHash: "abc",
	}
	ok, err := repo.Reserve(ctx, reservation)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Reserve(ctx, &interfaces.StoredResponse{Key: "k1", RequestHash: "other"})
	require.NoError(t, err)
	assert.False(t, ok)

	pending, err := repo.GetByKey(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, pending.Pending())
	assert.Equal(t, "abc", pending.RequestHash)
	assert.Equal(t, time.Minute, mr.TTL("idempotency_key:k1"))

	reservation.StatusCode = 201
	reservation.ContentType = "application/json"
	reservation.Body = []byte(`{"success":true}`)
	require.NoError(t, repo.Complete(ctx, reservation))

	got, err := repo.GetByKey(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, got.Pending())
	assert.Equal(t, 201, got.StatusCode)
	assert.Equal(t, reservation.Body, got.Body)
	assert.Equal(t, time.Hour, mr.TTL("idempotency_key:k1"))

	require.NoError(t, repo.Delete(ctx, "k1"))
	_, err = repo.GetByKey(ctx, "k1")
	assert.ErrorIs(t, err, interfaces.ErrIdempotencyKeyNotFound)
}

func TestRedisIdempotencyRepository_PendingExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	repo := NewRedisIdempotencyRepository(client, time.Hour)
	ctx := context.Background()

	ok, err := repo.Reserve(ctx, &interfaces.StoredResponse{Key: "k2"})
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)

	ok, err = repo.Reserve(ctx, &interfaces.StoredResponse{Key: "k2"})
	require.NoError(t, err)
	assert.True(t, ok)
}
