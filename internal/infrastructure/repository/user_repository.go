package repository

import (
	"context"
	"errors"
	"fmt"

	"users-service/internal/domain/user"
	"users-service/internal/infrastructure/database"

	"gorm.io/gorm"
)

var _ user.UserRepository = (*UserRepository)(nil)

// UserRepository implements user.UserRepository using GORM
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new GORM user repository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

func (r *UserRepository) Find(ctx context.Context) ([]*user.User, error) {
	var users []*user.User
	if err := r.db.WithContext(ctx).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepository) FindOneBy(ctx context.Context, id int64) (*user.User, error) {
	var u user.User
	err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// Save inserts a user without an ID and upserts one that has it.
func (r *UserRepository) Save(ctx context.Context, u *user.User) error {
	return save(r.db.WithContext(ctx), u)
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&user.User{}, id).Error
}

func (r *UserRepository) Begin(ctx context.Context) (user.QueryRunner, error) {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", tx.Error)
	}
	return &queryRunner{tx: tx}, nil
}

func (r *UserRepository) Transaction(ctx context.Context, fn func(manager user.EntityManager) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewUserRepository(tx))
	})
}

func (r *UserRepository) Ping(ctx context.Context) error {
	return database.HealthCheck(ctx, r.db)
}

func save(db *gorm.DB, u *user.User) error {
	if err := db.Save(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %v", user.ErrConflict, err)
		}
		return translateSQLError(err)
	}
	return nil
}

// queryRunner drives a gorm transaction by hand.
type queryRunner struct {
	tx   *gorm.DB
	done bool
}

func (q *queryRunner) Save(ctx context.Context, u *user.User) error {
	if q.done {
		return user.ErrTxDone
	}
	return save(q.tx.WithContext(ctx), u)
}

func (q *queryRunner) Commit() error {
	if q.done {
		return user.ErrTxDone
	}
	q.done = true
	return q.tx.Commit().Error
}

func (q *queryRunner) Rollback() error {
	if q.done {
		return user.ErrTxDone
	}
	q.done = true
	return q.tx.Rollback().Error
}

func (q *queryRunner) Release() error {
	if q.done {
		return nil
	}
	return q.Rollback()
}
