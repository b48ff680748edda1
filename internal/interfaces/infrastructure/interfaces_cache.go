package interfaces

import (
	"context"
	"errors"

	"users-service/internal/domain/user"
)

// ErrCacheMiss is returned by CacheService reads when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

type CacheService interface {
	// User entries
	GetUser(ctx context.Context, id int64) (*user.User, error)
	SetUser(ctx context.Context, u *user.User) error
	InvalidateUser(ctx context.Context, ids ...int64) error

	// Health and connection management
	Health(ctx context.Context) error
	Close() error
}
