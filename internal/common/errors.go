// Package common defines shared sentinel errors used across the core
// services and their calling layers. Callers should use errors.Is to
// match these values.
package common

import (
	"errors"
	"fmt"
	"time"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Validation errors carry a human-readable reason when wrapped.
	ErrorValidation = errors.New("validation error")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Auth errors. Bad credentials are a single generic value regardless
	// of root cause so callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrInvalidToken       = errors.New("invalid token")

	// Crypto errors (corrupt/tampered ciphertext).
	ErrCorruptData = errors.New("corrupt data")

	// Rate limiting.
	ErrorRateLimited = errors.New("rate limited")
)

// Conflict variants. Both match ErrorAlreadyExists via errors.Is.
var (
	ErrorEmailTaken   = fmt.Errorf("email %w", ErrorAlreadyExists)
	ErrorDuplicateKey = fmt.Errorf("variable key %w", ErrorAlreadyExists)
)

// RateLimitError is returned when an action is throttled. It matches
// ErrorRateLimited via errors.Is and carries a retry-after hint.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrorRateLimited
}
