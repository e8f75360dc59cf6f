package booking_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trevio/booking-engine/booking"
)

func assign(t *testing.T, e *engine, propertyID, conciergeID string) (*booking.Assignment, error) {
	t.Helper()
	a, _, err := e.concierges.Assign(context.Background(), booking.AssignInput{
		ClientID:    "owner-1",
		ConciergeID: conciergeID,
		PropertyID:  propertyID,
	})
	return a, err
}

func TestAssignment_SecondConciergeRequiresHandover(t *testing.T) {
	forEachStore(t, func(t *testing.T, e *engine) {
		ctx := context.Background()

		// GIVEN: concierge C1 active on property Y
		y := e.property(t, "Y")
		c1, err := assign(t, e, y.ID, "C1")
		require.NoError(t, err)
		assert.Equal(t, booking.AssignmentActive, c1.Status)

		// WHEN: C2 is assigned while C1 is active
		_, err = assign(t, e, y.ID, "C2")

		// THEN: it is rejected naming C1
		var conflict *booking.AssignmentConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, "C1", conflict.ActiveConciergeID)
		assert.Equal(t, "Property is already assigned to another concierge", err.Error())

		// WHEN: C1 is deactivated first
		toggled, err := e.concierges.ToggleStatus(ctx, c1.ID)
		require.NoError(t, err)
		assert.Equal(t, booking.AssignmentInactive, toggled.Status)

		// THEN: C2 can be assigned
		c2, err := assign(t, e, y.ID, "C2")
		require.NoError(t, err)

		active, err := e.concierges.ActiveConcierge(ctx, y.ID)
		require.NoError(t, err)
		assert.Equal(t, c2.ID, active.ID)

		// AND: C1 cannot be reactivated while C2 is active
		_, err = e.concierges.ToggleStatus(ctx, c1.ID)
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, "C2", conflict.ActiveConciergeID)
	})
}

func TestAssignment_SameConciergeReactivates(t *testing.T) {
	forEachStore(t, func(t *testing.T, e *engine) {
		ctx := context.Background()
		y := e.property(t, "Y")

		first, created, err := e.concierges.Assign(ctx, booking.AssignInput{ClientID: "owner-1", ConciergeID: "C1", PropertyID: y.ID})
		require.NoError(t, err)
		assert.True(t, created)

		// Assigning again while active returns the same row.
		again, created, err := e.concierges.Assign(ctx, booking.AssignInput{ClientID: "owner-2", ConciergeID: "C1", PropertyID: y.ID})
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.ID, again.ID)
		assert.Equal(t, "owner-2", again.ClientID)

		// Assigning after deactivation reactivates the same row.
		_, err = e.concierges.ToggleStatus(ctx, first.ID)
		require.NoError(t, err)
		back, created, err := e.concierges.Assign(ctx, booking.AssignInput{ClientID: "owner-2", ConciergeID: "C1", PropertyID: y.ID})
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, booking.AssignmentActive, back.Status)

		all, err := e.concierges.ListByProperty(ctx, y.ID)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})
}

func TestAssignment_UnassignAndListings(t *testing.T) {
	forEachStore(t, func(t *testing.T, e *engine) {
		ctx := context.Background()
		y := e.property(t, "Y")
		z := e.property(t, "Z")

		onY, err := assign(t, e, y.ID, "C1")
		require.NoError(t, err)
		_, err = assign(t, e, z.ID, "C1")
		require.NoError(t, err)

		mine, err := e.concierges.ListByConcierge(ctx, "C1")
		require.NoError(t, err)
		assert.Len(t, mine, 2)

		clients, err := e.concierges.ListByClient(ctx, "owner-1")
		require.NoError(t, err)
		assert.Len(t, clients, 2)

		// Unassigning frees the property.
		require.NoError(t, e.concierges.Unassign(ctx, onY.ID))
		_, err = e.concierges.ActiveConcierge(ctx, y.ID)
		assert.ErrorIs(t, err, booking.ErrAssignmentNotFound)
		_, err = assign(t, e, y.ID, "C2")
		require.NoError(t, err)

		assert.ErrorIs(t, e.concierges.Unassign(ctx, onY.ID), booking.ErrAssignmentNotFound)
		_, err = e.concierges.ToggleStatus(ctx, "missing")
		assert.ErrorIs(t, err, booking.ErrAssignmentNotFound)
	})
}

func TestAssignment_Validation(t *testing.T) {
	forEachStore(t, func(t *testing.T, e *engine) {
		_, err := assign(t, e, "missing", "C1")
		assert.ErrorIs(t, err, booking.ErrPropertyNotFound)

		y := e.property(t, "Y")
		_, err = assign(t, e, y.ID, " ")
		assert.ErrorIs(t, err, booking.ErrInvalidInput)
	})
}
