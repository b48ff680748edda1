package interfaces

import (
	"context"
	"errors"
	"time"
)

// ErrIdempotencyKeyNotFound is returned when no response is stored for a key.
var ErrIdempotencyKeyNotFound = errors.New("idempotency key not found")

// StoredResponse is the replayable outcome of a request sent with an
// Idempotency-Key header. A zero StatusCode marks a request still in flight.
type StoredResponse struct {
	Key         string    `json:"key"`
	Method      string    `json:"method"`
	Path        string    `json:"path"`
	RequestHash string    `json:"request_hash"`
	StatusCode  int       `json:"status_code"`
	ContentType string    `json:"content_type"`
	Body        []byte    `json:"body"`
	CreatedAt   time.Time `json:"created_at"`
}

// Pending reports whether the request that reserved the key has not finished.
func (r *StoredResponse) Pending() bool {
	return r.StatusCode == 0
}

type IdempotencyRepository interface {
	// Reserve records resp as in flight unless the key is already taken.
	Reserve(ctx context.Context, resp *StoredResponse) (bool, error)
	// Complete overwrites the reservation with the finished response.
	Complete(ctx context.Context, resp *StoredResponse) error
	GetByKey(ctx context.Context, key string) (*StoredResponse, error)
	// Delete releases a key so the request can be retried.
	Delete(ctx context.Context, key string) error
}
