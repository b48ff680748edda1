package user

import "context"

// EntityManager persists users. Inside a transaction it is bound to that
// transaction.
type EntityManager interface {
	Save(ctx context.Context, user *User) error
}

// QueryRunner is a manually driven transaction. Release must be called on
// every path; it rolls back when neither Commit nor Rollback ran.
type QueryRunner interface {
	EntityManager
	Commit() error
	Rollback() error
	Release() error
}

// UserRepository defines the interface for user data access.
// FindOneBy returns (nil, nil) when no row matches. Save inserts when ID is
// zero and otherwise writes every column of the row with that ID.
type UserRepository interface {
	EntityManager
	Find(ctx context.Context) ([]*User, error)
	FindOneBy(ctx context.Context, id int64) (*User, error)
	Delete(ctx context.Context, id int64) error
	Begin(ctx context.Context) (QueryRunner, error)
	Transaction(ctx context.Context, fn func(manager EntityManager) error) error
	Ping(ctx context.Context) error
}

// UserService defines the interface for user business logic
type UserService interface {
	Create(ctx context.Context, req *CreateUserRequest) (*User, error)
	FindAll(ctx context.Context) ([]*User, error)
	FindOne(ctx context.Context, id int64) (*User, error)
	Update(ctx context.Context, id int64, req *UpdateUserRequest) (*User, error)
	Remove(ctx context.Context, id int64) error
	CreateMany(ctx context.Context, users []*User) error
	CreateManyScoped(ctx context.Context, users []*User) error
}
