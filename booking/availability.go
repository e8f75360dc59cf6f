package booking

import (
	"context"
	"fmt"
	"strings"
)

// =============================================================================
// AVAILABILITY CHECKER - The single authority on calendar conflicts
// =============================================================================

// Availability is the result of a probe.
type Availability struct {
	Available bool
	Conflicts []Reservation
}

// Checker decides whether a date range is free on a property's calendar.
// Both the reservation path and the contract path query through it.
type Checker struct {
	Store ReservationStore
}

// Check returns the active reservations of the property overlapping r,
// ignoring excludeID (pass "" to exclude nothing).
func (c *Checker) Check(ctx context.Context, propertyID string, r DateRange, excludeID string) (*Availability, error) {
	if strings.TrimSpace(propertyID) == "" {
		return nil, fmt.Errorf("%w: property id is required", ErrInvalidInput)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}

	conflicts, err := c.Store.FindActiveOverlapping(ctx, propertyID, r, excludeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query overlapping reservations: %w", err)
	}

	return &Availability{Available: len(conflicts) == 0, Conflicts: conflicts}, nil
}

// Require is Check that turns unavailability into an AvailabilityConflictError.
func (c *Checker) Require(ctx context.Context, propertyID string, r DateRange, excludeID string) error {
	result, err := c.Check(ctx, propertyID, r, excludeID)
	if err != nil {
		return err
	}
	if !result.Available {
		return &AvailabilityConflictError{PropertyID: propertyID, Range: r, Conflicts: result.Conflicts}
	}
	return nil
}

// ActiveOverlapping filters reservations the way FindActiveOverlapping must.
// Stores without an indexed query use it directly.
func ActiveOverlapping(all []Reservation, propertyID string, r DateRange, excludeID string) []Reservation {
	var out []Reservation
	for _, existing := range all {
		if existing.PropertyID != propertyID || existing.ID == excludeID {
			continue
		}
		if !existing.Status.Active() {
			continue
		}
		if existing.Range.Overlaps(r) {
			out = append(out, existing)
		}
	}
	return out
}
