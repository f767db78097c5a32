// Package errs holds the error taxonomy shared by repositories, services and handlers.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the target of an update or delete does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicate is returned when a uniqueness constraint (e.g. registered email) is violated.
	ErrDuplicate = errors.New("already exists")
	// ErrConflict is returned when a write is refused by the current state of its target.
	ErrConflict = errors.New("conflict")
)

// ValidationError describes the first invalid field of an input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is reports ErrValidation so callers can use errors.Is without a type assertion.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid returns a *ValidationError for field.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// Required returns a *ValidationError for a missing field.
func Required(field string) error {
	return &ValidationError{Field: field, Reason: "is required"}
}
