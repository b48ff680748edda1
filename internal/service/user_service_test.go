package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"users-service/internal/domain/user"
	"users-service/internal/infrastructure/cache"
	"users-service/internal/infrastructure/repository"

	"github.com/alicebob/miniredis/v2"
)

var errStorage = errors.New("storage unavailable")

// failingRepository fails any transactional save of the user named failOn.
type failingRepository struct {
	*repository.MemoryUserRepository
	failOn string
}

type failingManager struct {
	user.EntityManager
	failOn string
}

func (m *failingManager) Save(ctx context.Context, u *user.User) error {
	if u.Username == m.failOn {
		return errStorage
	}
	return m.EntityManager.Save(ctx, u)
}

type failingRunner struct {
	user.QueryRunner
	failOn string
}

func (r *failingRunner) Save(ctx context.Context, u *user.User) error {
	if u.Username == r.failOn {
		return errStorage
	}
	return r.QueryRunner.Save(ctx, u)
}

func (r *failingRepository) Begin(ctx context.Context) (user.QueryRunner, error) {
	runner, err := r.MemoryUserRepository.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &failingRunner{QueryRunner: runner, failOn: r.failOn}, nil
}

func (r *failingRepository) Transaction(ctx context.Context, fn func(manager user.EntityManager) error) error {
	return r.MemoryUserRepository.Transaction(ctx, func(m user.EntityManager) error {
		return fn(&failingManager{EntityManager: m, failOn: r.failOn})
	})
}

func strPtr(s string) *string { return &s }

func TestUserService_Create(t *testing.T) {
	// Initialize dependencies
	userRepo := repository.NewMemoryUserRepository()
	userService := NewUserService(userRepo, nil)
	active := false

	req := &user.CreateUserRequest{
		ID:       99,
		Name:     "Ada",
		Username: "ada",
		Email:    "ada@x.com",
		IsActive: &active,
	}

	created, err := userService.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if created.ID == 0 || created.ID == req.ID {
		t.Errorf("Expected a storage-assigned ID, got %d", created.ID)
	}

	if created.Name != req.Name || created.Username != req.Username || created.Email != req.Email {
		t.Errorf("Expected fields copied from request, got %+v", created)
	}

	if !created.IsActive {
		t.Error("Expected isActive from the request to be ignored")
	}

	second, err := userService.Create(context.Background(), &user.CreateUserRequest{
		Name: "Bob", Username: "bob", Email: "bob@x.com",
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if second.ID == created.ID {
		t.Errorf("Expected unique IDs, both were %d", second.ID)
	}
}

func TestUserService_Create_Conflict(t *testing.T) {
	userRepo := repository.NewMemoryUserRepository(user.NewUser("Ada", "ada", "ada@x.com"))
	userService := NewUserService(userRepo, nil)

	_, err := userService.Create(context.Background(), &user.CreateUserRequest{
		Name: "Other", Username: "ada", Email: "other@x.com",
	})
	if !errors.Is(err, user.ErrConflict) {
		t.Fatalf("Expected ErrConflict, got %v", err)
	}
}

func TestUserService_FindOne(t *testing.T) {
	ada := user.NewUser("Ada", "ada", "ada@x.com")
	userRepo := repository.NewMemoryUserRepository(ada)
	userService := NewUserService(userRepo, nil)

	found, err := userService.FindOne(context.Background(), ada.ID)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if *found != *ada {
		t.Errorf("Expected %+v, got %+v", ada, found)
	}

	_, err = userService.FindOne(context.Background(), ada.ID+100)
	if !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestUserService_FindAll(t *testing.T) {
	userService := NewUserService(repository.NewMemoryUserRepository(), nil)

	users, err := userService.FindAll(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if users == nil || len(users) != 0 {
		t.Fatalf("Expected empty non-nil slice, got %v", users)
	}

	userService = NewUserService(repository.NewMemoryUserRepository(
		user.NewUser("Ada", "ada", "ada@x.com"),
		user.NewUser("Bob", "bob", "bob@x.com"),
	), nil)
	users, err = userService.FindAll(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(users) != 2 {
		t.Errorf("Expected 2 users, got %d", len(users))
	}
}

func TestUserService_Update_PartialEmail(t *testing.T) {
	ada := user.NewUser("Ada", "ada", "ada@x.com")
	userService := NewUserService(repository.NewMemoryUserRepository(ada), nil)
	req := &user.UpdateUserRequest{Email: strPtr("ada2@x.com")}

	updated, err := userService.Update(context.Background(), ada.ID, req)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if updated.Email != "ada2@x.com" || updated.Name != "Ada" || updated.Username != "ada" {
		t.Errorf("Expected only email to change, got %+v", updated)
	}

	again, err := userService.Update(context.Background(), ada.ID, req)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if *again != *updated {
		t.Errorf("Expected re-applying the update to be idempotent, got %+v", again)
	}

	stored, _ := userService.FindOne(context.Background(), ada.ID)
	if stored.Email != "ada2@x.com" {
		t.Errorf("Expected stored email to change, got %s", stored.Email)
	}
}

func TestUserService_Update_EmptyValuesKeepExisting(t *testing.T) {
	ada := user.NewUser("Ada", "ada", "ada@x.com")
	userService := NewUserService(repository.NewMemoryUserRepository(ada), nil)
	inactive := false

	updated, err := userService.Update(context.Background(), ada.ID, &user.UpdateUserRequest{
		Name:     strPtr(""),
		IsActive: &inactive,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if updated.Name != "Ada" {
		t.Errorf("Expected empty name to be ignored, got %q", updated.Name)
	}
	if updated.IsActive {
		t.Error("Expected isActive to be cleared")
	}
}

func TestUserService_Update_NotFound(t *testing.T) {
	userService := NewUserService(repository.NewMemoryUserRepository(), nil)

	_, err := userService.Update(context.Background(), 7, &user.UpdateUserRequest{Name: strPtr("x")})
	if !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestUserService_Remove(t *testing.T) {
	ada := user.NewUser("Ada", "ada", "ada@x.com")
	userService := NewUserService(repository.NewMemoryUserRepository(ada), nil)
	ctx := context.Background()

	if err := userService.Remove(ctx, ada.ID); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, err := userService.FindOne(ctx, ada.ID); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound after remove, got %v", err)
	}
	if err := userService.Remove(ctx, ada.ID); err != nil {
		t.Fatalf("Expected removing twice to succeed, got %v", err)
	}
}

func TestUserService_CreateMany(t *testing.T) {
	variants := map[string]func(user.UserService, context.Context, []*user.User) error{
		"manual": user.UserService.CreateMany,
		"scoped": user.UserService.CreateManyScoped,
	}

	for name, createMany := range variants {
		t.Run(name+"/commits both", func(t *testing.T) {
			repo := repository.NewMemoryUserRepository()
			userService := NewUserService(repo, nil)
			users := []*user.User{
				user.NewUser("Ada", "ada", "ada@x.com"),
				user.NewUser("Bob", "bob", "bob@x.com"),
			}

			if err := createMany(userService, context.Background(), users); err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			all, _ := repo.Find(context.Background())
			if len(all) != 2 {
				t.Fatalf("Expected 2 stored users, got %d", len(all))
			}
			if users[0].ID == 0 || users[1].ID == 0 {
				t.Error("Expected IDs to be assigned")
			}
		})

		t.Run(name+"/second save fails", func(t *testing.T) {
			repo := &failingRepository{MemoryUserRepository: repository.NewMemoryUserRepository(), failOn: "bob"}
			userService := NewUserService(repo, nil)
			users := []*user.User{
				user.NewUser("Ada", "ada", "ada@x.com"),
				user.NewUser("Bob", "bob", "bob@x.com"),
			}

			err := createMany(userService, context.Background(), users)
			if !errors.Is(err, errStorage) {
				t.Fatalf("Expected storage error to surface, got %v", err)
			}
			all, _ := repo.Find(context.Background())
			if len(all) != 0 {
				t.Fatalf("Expected no stored users after rollback, got %d", len(all))
			}
			if users[0].ID != 0 {
				t.Errorf("Expected uncommitted ID to be cleared, got %d", users[0].ID)
			}
		})

		t.Run(name+"/conflict inside batch", func(t *testing.T) {
			repo := repository.NewMemoryUserRepository()
			userService := NewUserService(repo, nil)
			users := []*user.User{
				user.NewUser("Ada", "ada", "ada@x.com"),
				user.NewUser("Ada Again", "ada", "again@x.com"),
			}

			err := createMany(userService, context.Background(), users)
			if !errors.Is(err, user.ErrConflict) {
				t.Fatalf("Expected ErrConflict, got %v", err)
			}
			all, _ := repo.Find(context.Background())
			if len(all) != 0 {
				t.Fatalf("Expected no stored users, got %d", len(all))
			}
		})

		t.Run(name+"/wrong size", func(t *testing.T) {
			userService := NewUserService(repository.NewMemoryUserRepository(), nil)
			err := createMany(userService, context.Background(), []*user.User{user.NewUser("Ada", "ada", "ada@x.com")})
			if !errors.Is(err, user.ErrInvalidBatch) {
				t.Fatalf("Expected ErrInvalidBatch, got %v", err)
			}
		})
	}
}

func TestUserService_CacheReadThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	redisCache := cache.NewRedisCache(mr.Addr(), "", 0, time.Minute)
	defer redisCache.Close()

	ada := user.NewUser("Ada", "ada", "ada@x.com")
	userService := NewUserService(repository.NewMemoryUserRepository(ada), redisCache)
	ctx := context.Background()

	if _, err := userService.FindOne(ctx, ada.ID); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !mr.Exists("users:1") {
		t.Fatal("Expected user to be cached after first read")
	}

	if _, err := userService.Update(ctx, ada.ID, &user.UpdateUserRequest{Email: strPtr("ada2@x.com")}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if mr.Exists("users:1") {
		t.Fatal("Expected update to invalidate the cache entry")
	}

	found, err := userService.FindOne(ctx, ada.ID)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if found.Email != "ada2@x.com" {
		t.Errorf("Expected fresh email, got %s", found.Email)
	}

	if err := userService.Remove(ctx, ada.ID); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, err := userService.FindOne(ctx, ada.ID); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound after remove, got %v", err)
	}
}

func TestUserService_CacheFailureFallsBackToRepository(t *testing.T) {
	mr := miniredis.RunT(t)
	redisCache := cache.NewRedisCache(mr.Addr(), "", 0, time.Minute)
	defer redisCache.Close()
	mr.Close()

	ada := user.NewUser("Ada", "ada", "ada@x.com")
	userService := NewUserService(repository.NewMemoryUserRepository(ada), redisCache)

	found, err := userService.FindOne(context.Background(), ada.ID)
	if err != nil {
		t.Fatalf("Expected cache outage not to fail the read, got %v", err)
	}
	if found.Username != "ada" {
		t.Errorf("Expected ada, got %s", found.Username)
	}
}
