package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"users-service/internal/domain/user"
)

var _ user.UserRepository = (*MemoryUserRepository)(nil)

// MemoryUserRepository is an in-memory implementation of user.UserRepository
// for development and tests. Transactions stage their writes and apply them
// atomically on commit.
type MemoryUserRepository struct {
	users  map[int64]*user.User
	nextID int64
	mutex  sync.RWMutex
}

// NewMemoryUserRepository creates an empty repository seeded with users.
func NewMemoryUserRepository(seed ...*user.User) *MemoryUserRepository {
	repo := &MemoryUserRepository{
		users: make(map[int64]*user.User),
	}
	for _, u := range seed {
		if err := repo.Save(context.Background(), u); err != nil {
			panic(fmt.Sprintf("invalid seed user %q: %v", u.Username, err))
		}
	}
	return repo
}

func (r *MemoryUserRepository) Find(ctx context.Context) ([]*user.User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	users := make([]*user.User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, u.Clone())
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })

	return users, nil
}

func (r *MemoryUserRepository) FindOneBy(ctx context.Context, id int64) (*user.User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	u, exists := r.users[id]
	if !exists {
		return nil, nil
	}
	return u.Clone(), nil
}

func (r *MemoryUserRepository) Save(ctx context.Context, u *user.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if err := r.checkUnique(u, nil); err != nil {
		return err
	}
	r.assignID(u)
	r.users[u.ID] = u.Clone()
	return nil
}

// Delete removes a user; a missing id is not an error.
func (r *MemoryUserRepository) Delete(ctx context.Context, id int64) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	delete(r.users, id)
	return nil
}

func (r *MemoryUserRepository) Begin(ctx context.Context) (user.QueryRunner, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &memoryQueryRunner{repo: r}, nil
}

func (r *MemoryUserRepository) Transaction(ctx context.Context, fn func(manager user.EntityManager) error) error {
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

func (r *MemoryUserRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

// checkUnique must be called with the mutex held. Users in staged are checked
// as if already stored.
func (r *MemoryUserRepository) checkUnique(u *user.User, staged []*user.User) error {
	check := func(other *user.User) error {
		if u.ID != 0 && other.ID == u.ID {
			return nil
		}
		if other.Email == u.Email {
			return fmt.Errorf("%w: email %s", user.ErrConflict, u.Email)
		}
		if other.Username == u.Username {
			return fmt.Errorf("%w: username %s", user.ErrConflict, u.Username)
		}
		return nil
	}

	for _, existing := range r.users {
		if err := check(existing); err != nil {
			return err
		}
	}
	for _, s := range staged {
		if err := check(s); err != nil {
			return err
		}
	}
	return nil
}

// assignID must be called with the mutex held.
func (r *MemoryUserRepository) assignID(u *user.User) {
	if u.ID == 0 {
		r.nextID++
		u.ID = r.nextID
	} else if u.ID > r.nextID {
		r.nextID = u.ID
	}
}

type memoryQueryRunner struct {
	repo   *MemoryUserRepository
	staged []*user.User
	done   bool
}

func (q *memoryQueryRunner) Save(ctx context.Context, u *user.User) error {
	if q.done {
		return user.ErrTxDone
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	q.repo.mutex.Lock()
	defer q.repo.mutex.Unlock()

	others := make([]*user.User, 0, len(q.staged))
	for _, s := range q.staged {
		if u.ID == 0 || s.ID != u.ID {
			others = append(others, s)
		}
	}
	if err := q.repo.checkUnique(u, others); err != nil {
		return err
	}
	q.repo.assignID(u)
	q.staged = append(others, u.Clone())
	return nil
}

func (q *memoryQueryRunner) Commit() error {
	if q.done {
		return user.ErrTxDone
	}
	q.done = true

	q.repo.mutex.Lock()
	defer q.repo.mutex.Unlock()

	for i, u := range q.staged {
		if err := q.repo.checkUnique(u, q.staged[:i]); err != nil {
			return err
		}
	}
	for _, u := range q.staged {
		q.repo.users[u.ID] = u
	}
	q.staged = nil
	return nil
}

func (q *memoryQueryRunner) Rollback() error {
	if q.done {
		return user.ErrTxDone
	}
	q.done = true
	q.staged = nil
	return nil
}

func (q *memoryQueryRunner) Release() error {
	if q.done {
		return nil
	}
	return q.Rollback()
}
