package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"time"

	"users-service/internal/api/apierror"
	interfaces "users-service/internal/interfaces/infrastructure"
	"users-service/pkg/logger"
	"users-service/pkg/validator"

	"github.com/gin-gonic/gin"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	ReplayedHeader       = "Idempotent-Replayed"
)

type capturingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *capturingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the stored response for a repeated Idempotency-Key.
// The key is reserved before the handler runs, so concurrent retries get a
// 409 instead of running twice. Only successful responses are kept; any other
// outcome releases the key. Reusing a key for a different method, path or
// body is rejected with 422. Requests without the header pass through.
func Idempotency(repo interfaces.IdempotencyRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			c.Next()
			return
		}
		ctx := c.Request.Context()

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Error(readError(err))
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		hash := requestHash(c.Request.Method, c.Request.URL.Path, body)

		stored, err := repo.GetByKey(ctx, key)
		switch {
		case err == nil:
			respondStored(c, stored, hash)
			return
		case !errors.Is(err, interfaces.ErrIdempotencyKeyNotFound):
			logger.Warn("Idempotency lookup failed for key %s: %v", key, err)
			c.Next()
			return
		}

		reservation := &interfaces.StoredResponse{
			Key:         key,
			Method:      c.Request.Method,
			Path:        c.Request.URL.Path,
			RequestHash: hash,
			CreatedAt:   time.Now(),
		}
		reserved, err := repo.Reserve(ctx, reservation)
		if err != nil {
			logger.Warn("Failed to reserve idempotency key %s: %v", key, err)
			c.Next()
			return
		}
		if !reserved {
			stored, err := repo.GetByKey(ctx, key)
			if err != nil {
				stored = reservation
			}
			respondStored(c, stored, hash)
			return
		}

		writer := &capturingWriter{ResponseWriter: c.Writer}
		c.Writer = writer
		c.Next()
		c.Writer = writer.ResponseWriter

		done := context.WithoutCancel(ctx)
		status := writer.Status()
		if status < 200 || status >= 300 || !writer.Written() {
			if err := repo.Delete(done, key); err != nil {
				logger.Warn("Failed to release idempotency key %s: %v", key, err)
			}
			return
		}

		reservation.StatusCode = status
		reservation.ContentType = writer.Header().Get("Content-Type")
		reservation.Body = writer.body.Bytes()
		if err := repo.Complete(done, reservation); err != nil {
			logger.Warn("Failed to store idempotent response for key %s: %v", key, err)
		}
	}
}

// respondStored answers a request whose key is already known.
func respondStored(c *gin.Context, stored *interfaces.StoredResponse, hash string) {
	switch {
	case stored.RequestHash != hash:
		c.Error(apierror.New(http.StatusUnprocessableEntity, "Idempotency-Key was used for a different request"))
	case stored.Pending():
		c.Error(apierror.New(http.StatusConflict, "A request with this Idempotency-Key is still being processed"))
	default:
		c.Header(ReplayedHeader, "true")
		c.Data(stored.StatusCode, stored.ContentType, stored.Body)
	}
	c.Abort()
}

func requestHash(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

func readError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return validator.ErrBodyTooLarge
	}
	return apierror.BadRequest("Invalid request format", err)
}
