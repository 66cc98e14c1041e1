// Package common defines shared constants and sentinel errors used across
// the server layers of securemsg. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Store errors (connection or query failure).
	ErrStoreUnavailable = errors.New("store unavailable")

	// Auth errors. Wrong username and wrong password are never told apart.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrForbidden          = errors.New("forbidden")

	// Registration errors.
	ErrDuplicateUser = errors.New("user already exists")

	// Message errors.
	ErrUnknownRecipient  = errors.New("unknown recipient")
	ErrUnknownSender     = errors.New("unknown sender")
	ErrEncryptionFailure = errors.New("encryption failure")

	// Export errors.
	ErrUnknownTable = errors.New("unknown table")

	// Validation errors.
	ErrValidation = errors.New("validation error")
)
