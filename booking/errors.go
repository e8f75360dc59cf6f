/*
errors.go - Centralized error types for the booking engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The API layer classifies them with IsNotFound / IsConflict / IsClientError.

ERROR CATEGORIES:
  1. NotFound          - referenced entity does not exist
  2. Conflict          - overlap, duplicate active assignment, duplicate revenue
  3. InvalidTransition - status move outside the allowed table
  4. IncompleteEntity  - guest fields missing when finalizing a contract
  5. Store errors      - infrastructure failures (everything else)

USAGE:
  var conflict *booking.AvailabilityConflictError
  if errors.As(err, &conflict) {
      for _, r := range conflict.Conflicts { ... }
  }

SEE ALSO:
  - api/handlers.go: writeServiceError maps these to HTTP statuses
*/
package booking

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrPropertyNotFound    = errors.New("property not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrContractNotFound    = errors.New("contract not found")
	ErrAssignmentNotFound  = errors.New("assignment not found")
	ErrRevenueNotFound     = errors.New("revenue not found")

	// ErrConflict is the parent of every invariant violation on shared resources.
	ErrConflict = errors.New("conflict")

	// ErrInvalidTransition is returned for status moves outside the table.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrIncomplete is returned when required guest fields are unset.
	ErrIncomplete = errors.New("incomplete entity")

	// ErrInvalidPeriod is returned when a range is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period")

	// ErrInvalidInput is returned for other malformed operation inputs.
	ErrInvalidInput = errors.New("invalid input")

	// ErrContractRequired is returned when sending a reservation with no contract.
	ErrContractRequired = errors.New("contract must be generated before sending to guest")

	// ErrContractLocked is returned when deleting or editing a finalized contract.
	ErrContractLocked = errors.New("contract is finalized")

	// ErrRevenueExists is returned when a reservation already has a revenue record.
	ErrRevenueExists = fmt.Errorf("%w: revenue already recorded for reservation", ErrConflict)

	// ErrDuplicateExternalEvent is returned when a calendar event id is reused.
	ErrDuplicateExternalEvent = fmt.Errorf("%w: external event already imported", ErrConflict)

	// ErrDuplicateToken is returned by stores when a public token collides.
	// Services regenerate and retry.
	ErrDuplicateToken = errors.New("duplicate public token")
)

// =============================================================================
// STRUCTURED ERRORS - Carry the details callers present
// =============================================================================

// AvailabilityConflictError lists the reservations blocking a range.
type AvailabilityConflictError struct {
	PropertyID string
	Range      DateRange
	Conflicts  []Reservation
}

func (e *AvailabilityConflictError) Error() string {
	return fmt.Sprintf("property %s is not available for %s: %d conflicting reservation(s)",
		e.PropertyID, e.Range, len(e.Conflicts))
}

func (e *AvailabilityConflictError) Unwrap() error { return ErrConflict }

// AssignmentConflictError names the concierge already active on a property.
type AssignmentConflictError struct {
	PropertyID        string
	ActiveConciergeID string
}

func (e *AssignmentConflictError) Error() string {
	return "Property is already assigned to another concierge"
}

func (e *AssignmentConflictError) Unwrap() error { return ErrConflict }

// RevenueOverlapError lists the revenue records overlapping a candidate period.
type RevenueOverlapError struct {
	PropertyID string
	Range      DateRange
	Conflicts  []Revenue
}

func (e *RevenueOverlapError) Error() string {
	return fmt.Sprintf("revenue period %s overlaps %d existing record(s) for property %s",
		e.Range, len(e.Conflicts), e.PropertyID)
}

func (e *RevenueOverlapError) Unwrap() error { return ErrConflict }

// InvalidTransitionError names both the attempted and the current state.
type InvalidTransitionError struct {
	Entity string // "reservation" or "contract"
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("Invalid status transition from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// MissingFieldError names the first unset required guest field.
type MissingFieldError struct {
	Field   string
	Missing []string
}

func (e *MissingFieldError) Error() string {
	if len(e.Missing) > 1 {
		return fmt.Sprintf("missing required guest field: %s (also missing: %s)",
			e.Field, strings.Join(e.Missing[1:], ", "))
	}
	return "missing required guest field: " + e.Field
}

func (e *MissingFieldError) Unwrap() error { return ErrIncomplete }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPropertyNotFound) ||
		errors.Is(err, ErrReservationNotFound) ||
		errors.Is(err, ErrContractNotFound) ||
		errors.Is(err, ErrAssignmentNotFound) ||
		errors.Is(err, ErrRevenueNotFound)
}

// IsConflict returns true for invariant violations on shared resources.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsClientError returns true if the error is due to the caller's request.
func IsClientError(err error) bool {
	return IsConflict(err) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrIncomplete) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrContractRequired) ||
		errors.Is(err, ErrContractLocked)
}
