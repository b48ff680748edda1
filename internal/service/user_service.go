package service

import (
	"context"
	"errors"
	"fmt"

	"users-service/internal/domain/user"
	interfaces "users-service/internal/interfaces/infrastructure"
	"users-service/pkg/logger"
)

// userService implements the UserService interface
type userService struct {
	userRepo user.UserRepository
	cache    interfaces.CacheService
}

// NewUserService creates a new user service. cache may be nil.
func NewUserService(userRepo user.UserRepository, cache interfaces.CacheService) user.UserService {
	return &userService{
		userRepo: userRepo,
		cache:    cache,
	}
}

// Create persists a new user built from the request's name, username and email.
func (s *userService) Create(ctx context.Context, req *user.CreateUserRequest) (*user.User, error) {
	logger.Info("Creating user with username: %s", req.Username)

	u := user.NewUser(req.Name, req.Username, req.Email)

	if err := s.userRepo.Save(ctx, u); err != nil {
		logger.Error("Failed to create user: %v", err)
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logger.Info("User created successfully with ID: %d", u.ID)
	return u, nil
}

// FindAll returns every user in storage order
func (s *userService) FindAll(ctx context.Context) ([]*user.User, error) {
	logger.Debug("Listing users")

	users, err := s.userRepo.Find(ctx)
	if err != nil {
		logger.Error("Failed to list users: %v", err)
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	if users == nil {
		users = []*user.User{}
	}
	return users, nil
}

// FindOne retrieves a user by ID
func (s *userService) FindOne(ctx context.Context, id int64) (*user.User, error) {
	logger.Debug("Getting user with ID: %d", id)

	if cached := s.cachedUser(ctx, id); cached != nil {
		return cached, nil
	}

	u, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cacheUser(ctx, u)
	return u, nil
}

// Update overwrites the name, username, email and active flag of an existing
// user with the non-empty values present in the request.
func (s *userService) Update(ctx context.Context, id int64, req *user.UpdateUserRequest) (*user.User, error) {
	logger.Info("Updating user with ID: %d", id)

	u, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil && *req.Name != "" {
		u.Name = *req.Name
	}

	if req.Username != nil && *req.Username != "" {
		u.Username = *req.Username
	}

	if req.Email != nil && *req.Email != "" {
		u.Email = *req.Email
	}

	if req.IsActive != nil {
		u.IsActive = *req.IsActive
	}

	if err := s.userRepo.Save(ctx, u); err != nil {
		logger.Error("Failed to update user: %v", err)
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	s.invalidate(ctx, u.ID)

	logger.Info("User updated successfully with ID: %d", u.ID)
	return u, nil
}

// Remove deletes a user. Removing an unknown ID succeeds.
func (s *userService) Remove(ctx context.Context, id int64) error {
	logger.Info("Deleting user with ID: %d", id)

	if err := s.userRepo.Delete(ctx, id); err != nil {
		logger.Error("Failed to delete user: %v", err)
		return fmt.Errorf("failed to delete user: %w", err)
	}
	s.invalidate(ctx, id)

	logger.Info("User deleted successfully with ID: %d", id)
	return nil
}

// CreateMany saves exactly two users inside a manually driven transaction.
// Any failure rolls both back and is returned to the caller.
func (s *userService) CreateMany(ctx context.Context, users []*user.User) error {
	if len(users) != 2 {
		return user.ErrInvalidBatch
	}
	logger.Info("Creating %d users in a transaction", len(users))
	original := ids(users)

	runner, err := s.userRepo.Begin(ctx)
	if err != nil {
		logger.Error("Failed to start transaction: %v", err)
		return fmt.Errorf("failed to create users: %w", err)
	}
	defer func() {
		if err := runner.Release(); err != nil {
			logger.Warn("Failed to release transaction: %v", err)
		}
	}()

	for _, u := range users {
		if err := runner.Save(ctx, u); err != nil {
			logger.Error("Failed to save user %s, rolling back: %v", u.Username, err)
			if rbErr := runner.Rollback(); rbErr != nil {
				err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
			}
			restoreIDs(users, original)
			return fmt.Errorf("failed to create users: %w", err)
		}
	}

	if err := runner.Commit(); err != nil {
		logger.Error("Failed to commit transaction: %v", err)
		restoreIDs(users, original)
		return fmt.Errorf("failed to create users: %w", err)
	}

	s.invalidate(ctx, ids(users)...)
	logger.Info("Created users %v", ids(users))
	return nil
}

// CreateManyScoped is CreateMany expressed as a transaction callback; the
// repository rolls back when the callback returns an error.
func (s *userService) CreateManyScoped(ctx context.Context, users []*user.User) error {
	if len(users) != 2 {
		return user.ErrInvalidBatch
	}
	logger.Info("Creating %d users in a scoped transaction", len(users))
	original := ids(users)

	err := s.userRepo.Transaction(ctx, func(manager user.EntityManager) error {
		for _, u := range users {
			if err := manager.Save(ctx, u); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.Error("Scoped transaction failed: %v", err)
		restoreIDs(users, original)
		return fmt.Errorf("failed to create users: %w", err)
	}

	s.invalidate(ctx, ids(users)...)
	logger.Info("Created users %v", ids(users))
	return nil
}

// load converts a missing row into user.ErrNotFound.
func (s *userService) load(ctx context.Context, id int64) (*user.User, error) {
	u, err := s.userRepo.FindOneBy(ctx, id)
	if err != nil {
		logger.Error("Failed to get user: %v", err)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if u == nil {
		return nil, fmt.Errorf("%w: id %d", user.ErrNotFound, id)
	}

	return u, nil
}

func (s *userService) cachedUser(ctx context.Context, id int64) *user.User {
	if s.cache == nil {
		return nil
	}
	u, err := s.cache.GetUser(ctx, id)
	if err != nil {
		if !errors.Is(err, interfaces.ErrCacheMiss) {
			logger.Warn("Cache read failed for user %d: %v", id, err)
		}
		return nil
	}
	return u
}

func (s *userService) cacheUser(ctx context.Context, u *user.User) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetUser(ctx, u); err != nil {
		logger.Warn("Cache write failed for user %d: %v", u.ID, err)
	}
}

func (s *userService) invalidate(ctx context.Context, userIDs ...int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateUser(ctx, userIDs...); err != nil {
		logger.Warn("Cache invalidation failed for users %v: %v", userIDs, err)
	}
}

func ids(users []*user.User) []int64 {
	out := make([]int64, 0, len(users))
	for _, u := range users {
		out = append(out, u.ID)
	}
	return out
}

// restoreIDs undoes IDs handed out by a transaction that did not commit.
func restoreIDs(users []*user.User, original []int64) {
	for i, u := range users {
		u.ID = original[i]
	}
}
