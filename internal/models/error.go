package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Credential store errors
	ErrValidation     = errors.New("validation failed")
	ErrDuplicateEmail = errors.New("email already registered")
	ErrInvalidID      = errors.New("invalid user id")

	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid email or password")

	// Bearer token errors, each mapped to its own client message
	ErrTokenMissing          = errors.New("token not supplied")
	ErrTokenExpired          = errors.New("token expired")
	ErrTokenInvalidSignature = errors.New("token signature is invalid")
	ErrTokenMalformed        = errors.New("token is malformed")

	// Identity provider errors
	ErrProvider = errors.New("identity provider error")
)

// ValidationError describes a rejected field. Message is safe to show to clients.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError creates a ValidationError for field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
