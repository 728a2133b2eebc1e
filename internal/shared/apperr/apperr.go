// Package apperr defines the error taxonomy shared by the orchestrators and
// mapped to HTTP responses at the boundary.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed, missing or oversized input.
	ErrValidation = errors.New("validation failed")
	// ErrPrecondition marks valid input that the current system state forbids.
	ErrPrecondition = errors.New("precondition failed")
	// ErrNotFound marks an absent entity.
	ErrNotFound = errors.New("not found")
	// ErrForbidden marks an ownership mismatch. It is surfaced exactly like ErrNotFound.
	ErrForbidden = errors.New("forbidden")
	// ErrDependency marks an unexpected failure of a provider or storage call.
	ErrDependency = errors.New("dependency failed")
	// ErrConflict marks a uniqueness violation at the persistence layer.
	ErrConflict = errors.New("conflict")
)

// Validation wraps ErrValidation with a message naming the offending constraint.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Precondition wraps ErrPrecondition with a message describing the blocking state.
func Precondition(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPrecondition, fmt.Sprintf(format, args...))
}

// NotFound wraps ErrNotFound with the entity name.
func NotFound(entity string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, entity)
}

// Forbidden wraps ErrForbidden with the entity name.
func Forbidden(entity string) error {
	return fmt.Errorf("%w: %s", ErrForbidden, entity)
}

// Dependency wraps ErrDependency around the underlying cause.
func Dependency(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrDependency, op, err)
}

// IsNotFoundLike reports whether err should be surfaced as "not found".
func IsNotFoundLike(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrForbidden)
}
