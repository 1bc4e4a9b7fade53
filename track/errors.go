/*
errors.go - Error taxonomy for the tracker domain

ERROR CATEGORIES:
  NotFound   - entity absent for the given owner+id
  Conflict   - uniqueness violation (duplicate vacation day)
  Validation - malformed or out-of-range input
  anything else is unexpected and surfaces unwrapped

USAGE:
  Callers branch with errors.Is:

    if errors.Is(err, track.ErrNotFound) { ... }

  The API layer maps the three categories to 404/409/400 and everything
  else to 500.
*/
package track

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when no entity matches the given owner and ID,
	// or when an owner has no settings row where one is required.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a uniqueness invariant would be violated,
	// e.g. a second vacation day on the same date for the same owner.
	ErrConflict = errors.New("conflict")

	// ErrValidation is returned for malformed or out-of-range input.
	ErrValidation = errors.New("validation failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError identifies the missing entity.
type NotFoundError struct {
	Kind string // "work session", "vacation day", ...
	ID   string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Kind)
	}
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ConflictError identifies the conflicting entity.
type ConflictError struct {
	Kind   string
	Detail string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s conflict: %s", e.Kind, e.Detail)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// ValidationError identifies the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
