/*
errors.go - Centralized error types for the booking engine

ERROR CATEGORIES:
  1. Not-found errors  - Missing bookings, clients, offerings
  2. Validation errors - Business rule violations on input
  3. Capacity errors   - Program capacity exhausted on a confirming save

USAGE:
  Callers match with errors.Is / errors.As:

    if errors.Is(err, booking.ErrCapacityExceeded) {
        // reject with 409
    }
*/
package booking

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned when input violates a business rule.
	ErrValidation = errors.New("validation failed")

	// ErrCapacityExceeded is returned by a confirming save when the
	// program has no available slot and the machine runs the reject
	// policy. The booking is not persisted in that case.
	ErrCapacityExceeded = errors.New("program capacity exceeded")

	// ErrNotificationFailed marks a confirmation send failure. It is
	// logged, never surfaced to the caller of a submit.
	ErrNotificationFailed = errors.New("notification failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError identifies which entity was missing.
type NotFoundError struct {
	Kind string // "client", "program", "service", "reservation", "contract", "payment"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ValidationError reports the field that violated a rule.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// CapacityError reports which program ran out of slots.
type CapacityError struct {
	ProgramID string
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("no available slots on program %q", e.ProgramID)
}

func (e *CapacityError) Unwrap() error { return ErrCapacityExceeded }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound reports whether err indicates a missing entity.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsClientError reports whether err is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrCapacityExceeded)
}
