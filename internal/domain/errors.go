package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across all layers.
var (
	// ErrNotFound means an update or delete targeted an entry the store
	// does not hold. Reads report absence as a nil result instead.
	ErrNotFound = errors.New("not found")

	// ErrValidation means required fields were missing; no remote call
	// was issued.
	ErrValidation = errors.New("validation error")

	// ErrStoreUnavailable wraps transport or auth failures talking to the
	// remote store. The caller decides whether to retry; the core never does.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrDecodeFailed means a stored document could not be decoded into a
	// TimeEntry. The record is excluded from the in-memory collection.
	ErrDecodeFailed = errors.New("decode failed")
)

// ValidationError reports which field failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
