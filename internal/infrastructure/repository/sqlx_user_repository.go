package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"users-service/internal/domain/user"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
)

const (
	selectUsers  = `SELECT id, name, username, email, is_active FROM users`
	insertUser   = `INSERT INTO users (name, username, email, is_active) VALUES (?, ?, ?, ?) RETURNING id`
	insertWithID = `INSERT INTO users (id, name, username, email, is_active) VALUES (?, ?, ?, ?, ?)`
	updateUser   = `UPDATE users SET name = ?, username = ?, email = ?, is_active = ? WHERE id = ?`
	deleteUser   = `DELETE FROM users WHERE id = ?`
)

var _ user.UserRepository = (*SQLXUserRepository)(nil)

// SQLXUserRepository implements user.UserRepository with hand-written SQL.
type SQLXUserRepository struct {
	db *sqlx.DB
}

func NewSQLXUserRepository(db *sqlx.DB) *SQLXUserRepository {
	return &SQLXUserRepository{db: db}
}

func (r *SQLXUserRepository) Find(ctx context.Context) ([]*user.User, error) {
	var users []*user.User
	if err := sqlx.SelectContext(ctx, r.db, &users, selectUsers); err != nil {
		return nil, fmt.Errorf("failed to select users: %w", err)
	}
	return users, nil
}

func (r *SQLXUserRepository) FindOneBy(ctx context.Context, id int64) (*user.User, error) {
	var u user.User
	err := sqlx.GetContext(ctx, r.db, &u, r.db.Rebind(selectUsers+` WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to select user %d: %w", id, err)
	}
	return &u, nil
}

func (r *SQLXUserRepository) Save(ctx context.Context, u *user.User) error {
	return saveSQL(ctx, r.db, u)
}

func (r *SQLXUserRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(deleteUser), id); err != nil {
		return fmt.Errorf("failed to delete user %d: %w", id, err)
	}
	return nil
}

func (r *SQLXUserRepository) Begin(ctx context.Context) (user.QueryRunner, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	return &sqlxQueryRunner{tx: tx}, nil
}

func (r *SQLXUserRepository) Transaction(ctx context.Context, fn func(manager user.EntityManager) error) error {
	runner, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer runner.Release()

	if err := fn(runner); err != nil {
		return err
	}
	return runner.Commit()
}

func (r *SQLXUserRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// saveSQL mirrors gorm's Save: insert when the ID is unset, otherwise update
// and fall back to an insert that keeps the ID.
func saveSQL(ctx context.Context, ext sqlx.ExtContext, u *user.User) error {
	if u.ID == 0 {
		var id int64
		row := ext.QueryRowxContext(ctx, ext.Rebind(insertUser), u.Name, u.Username, u.Email, u.IsActive)
		if err := row.Scan(&id); err != nil {
			return translateSQLError(err)
		}
		u.ID = id
		return nil
	}

	res, err := ext.ExecContext(ctx, ext.Rebind(updateUser), u.Name, u.Username, u.Email, u.IsActive, u.ID)
	if err != nil {
		return translateSQLError(err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}

	if _, err := ext.ExecContext(ctx, ext.Rebind(insertWithID), u.ID, u.Name, u.Username, u.Email, u.IsActive); err != nil {
		return translateSQLError(err)
	}
	return nil
}

func translateSQLError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %v", user.ErrConflict, err)
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %v", user.ErrConflict, err)
	}
	return err
}

type sqlxQueryRunner struct {
	tx   *sqlx.Tx
	done bool
}

func (q *sqlxQueryRunner) Save(ctx context.Context, u *user.User) error {
	if q.done {
		return user.ErrTxDone
	}
	return saveSQL(ctx, q.tx, u)
}

func (q *sqlxQueryRunner) Commit() error {
	if q.done {
		return user.ErrTxDone
	}
	q.done = true
	return q.tx.Commit()
}

func (q *sqlxQueryRunner) Rollback() error {
	if q.done {
		return user.ErrTxDone
	}
	q.done = true
	return q.tx.Rollback()
}

func (q *sqlxQueryRunner) Release() error {
	if q.done {
		return nil
	}
	return q.Rollback()
}
