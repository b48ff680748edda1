package user

import "errors"

var (
	// ErrNotFound indicates no user exists with the requested id.
	ErrNotFound = errors.New("user not found")
	// ErrConflict indicates a username or email is already taken.
	ErrConflict = errors.New("username or email already exists")
	// ErrInvalidBatch indicates a bulk create did not carry exactly two users.
	ErrInvalidBatch = errors.New("batch must contain exactly two users")
	// ErrTxDone indicates the query runner was already committed or rolled back.
	ErrTxDone = errors.New("transaction has already been committed or rolled back")
)
