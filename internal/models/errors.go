package models

import (
	"errors"
	"fmt"
)

// Error classes. Every error returned by a service wraps exactly one of these;
// handlers map them onto HTTP status codes.
var (
	ErrValidation   = errors.New("validation error")
	ErrUnauthorized = errors.New("authentication failed")
	ErrForbidden    = errors.New("access denied")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrRateLimited  = errors.New("rate limit exceeded")
)

var (
	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	ErrTokenInvalid       = fmt.Errorf("%w: token is invalid", ErrUnauthorized)
	ErrTokenExpired       = fmt.Errorf("%w: token has expired", ErrUnauthorized)
	ErrTokenNotFound      = fmt.Errorf("%w: token has been revoked", ErrUnauthorized)

	ErrEmailAlreadyExists = fmt.Errorf("%w: email is already registered", ErrConflict)
	ErrJourneyTerminal    = fmt.Errorf("%w: journey is in a terminal state", ErrConflict)
)

// NewValidationError wraps ErrValidation with a client-facing message.
func NewValidationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFound wraps ErrNotFound with the kind of record that was missing.
func NotFound(what string) error {
	return fmt.Errorf("%s %w", what, ErrNotFound)
}
