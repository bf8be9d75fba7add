// Package common defines shared constants and sentinel errors used across
// the server and client layers of GophAuth. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired = errors.New("token expired")

	// Configuration errors.
	ErrMissingSecret = errors.New("token signing secret is not configured")

	// Credential errors.
	ErrEmptyPassword = errors.New("password must not be empty")
)
