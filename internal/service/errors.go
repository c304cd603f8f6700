// Package service holds the business rules between the HTTP handlers and
// the stores: validation, ownership, cache invalidation and credentials.
package service

import "errors"

// Service errors.
var (
	ErrValidation         = errors.New("validation failed")
	ErrExpenseNotFound    = errors.New("expense not found")
	ErrAPIKeyNotFound     = errors.New("API key not found or already revoked")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("token is invalid or expired")
	ErrUsernameTaken      = errors.New("a user with that username already exists")
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
