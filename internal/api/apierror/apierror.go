package apierror

import (
	"errors"
	"net/http"

	"users-service/internal/domain/user"
	"users-service/pkg/validator"
)

// Error is an error that knows which HTTP status it maps to.
type Error struct {
	Status  int
	Message string
	Details any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

func BadRequest(message string, err error) *Error {
	return &Error{Status: http.StatusBadRequest, Message: message, Err: err}
}

func Unauthorized(message string) *Error {
	return New(http.StatusUnauthorized, message)
}

func Forbidden(message string) *Error {
	return New(http.StatusForbidden, message)
}

func NotFound(message string, err error) *Error {
	return &Error{Status: http.StatusNotFound, Message: message, Err: err}
}

// From maps err onto an *Error. Errors already of that type are returned as
// is; anything unrecognised becomes a 500.
func From(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return &Error{
			Status:  http.StatusBadRequest,
			Message: "Validation failed",
			Details: []validator.ValidationError(validationErrs),
			Err:     err,
		}
	}

	switch {
	case errors.Is(err, validator.ErrBodyTooLarge):
		return &Error{Status: http.StatusRequestEntityTooLarge, Message: "Request body too large", Err: err}
	case errors.Is(err, validator.ErrMalformedBody):
		return BadRequest("Invalid request format", err)
	case errors.Is(err, user.ErrInvalidBatch):
		return BadRequest(user.ErrInvalidBatch.Error(), err)
	case errors.Is(err, user.ErrNotFound):
		return NotFound("User not found", err)
	case errors.Is(err, user.ErrConflict):
		return &Error{Status: http.StatusConflict, Message: "User already exists", Err: err}
	}

	return &Error{Status: http.StatusInternalServerError, Message: "Internal server error", Err: err}
}
