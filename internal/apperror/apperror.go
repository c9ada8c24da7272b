// Package apperror defines the domain error taxonomy shared by the service
// and handler layers.
//
// Services return *AppError values built by the constructors below. Handlers
// never inspect messages; they match the wrapped sentinel with errors.Is and
// pick the HTTP status from it.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("Validation Error")
	ErrConflict           = errors.New("conflict")
	ErrForbidden          = errors.New("forbidden")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnverified         = errors.New("account not verified")
	ErrInvalidLink        = errors.New("invalid link")
	ErrUpstream           = errors.New("upstream failure")
)

// InvalidCredentialsMessage is shared by the "unknown email" and "wrong
// password" paths so the two are indistinguishable to a caller.
const InvalidCredentialsMessage = "invalid email or password"

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

// NotFoundMessage is NotFound with a caller-supplied message, for lookups
// that are not keyed by id.
func NotFoundMessage(message string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: message,
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

// ConflictMessage is Conflict with a caller-supplied message.
func ConflictMessage(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
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

// Unauthorized means no valid session accompanied the request.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrInvalidCredentials,
		Message: InvalidCredentialsMessage,
	}
}

// Unverified is returned by login for an account whose email has not been
// confirmed yet. A fresh verification email has been sent at that point.
func Unverified(message string) *AppError {
	return &AppError{
		Err:     ErrUnverified,
		Message: message,
	}
}

// InvalidLink covers every failed (userId, token) lookup: unknown user,
// unknown token, or a token that was already consumed.
func InvalidLink() *AppError {
	return &AppError{
		Err:     ErrInvalidLink,
		Message: "Invalid Link",
	}
}

// Upstream wraps a failure of an external collaborator (mail gateway, media
// host). Both ErrUpstream and cause stay reachable through errors.Is.
func Upstream(message string, cause error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %w", ErrUpstream, cause),
		Message: message,
	}
}
