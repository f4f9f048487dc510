package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation error")
	ErrConflict        = errors.New("conflict")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrQuotaExceeded   = errors.New("quota exceeded")
	ErrInvalidResponse = errors.New("invalid model response")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized returns an AppError for requests with no (or an invalid)
// authenticated identity. HTTP handlers map this to 401.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// QuotaExceeded returns an AppError for anonymous callers who have used up
// their free analysis attempts. HTTP handlers map this to 429.
func QuotaExceeded(message string) *AppError {
	return &AppError{
		Err:     ErrQuotaExceeded,
		Message: message,
	}
}

// InvalidResponse returns an AppError for upstream model output that could
// not be parsed or failed schema validation. This is deliberately distinct
// from a generic internal error so clients can tell "the AI returned
// garbage" apart from "the call itself failed".
func InvalidResponse(message string) *AppError {
	return &AppError{
		Err:     ErrInvalidResponse,
		Message: message,
	}
}
