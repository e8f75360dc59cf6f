package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trevio/booking-engine/booking"
)

func seedProperty(t *testing.T, m *Memory, id string) {
	t.Helper()
	require.NoError(t, m.SaveProperty(context.Background(), booking.Property{ID: id, OwnerID: "o", Name: id}))
}

func reservation(id, propertyID, publicID, start, end string, status booking.ReservationStatus) booking.Reservation {
	return booking.Reservation{
		ID:         id,
		PropertyID: propertyID,
		PublicID:   publicID,
		Status:     status,
		Range:      booking.DateRange{Start: booking.MustParseDate(start), End: booking.MustParseDate(end)},
	}
}

func TestMemory_WithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	seedProperty(t, m, "p1")

	// WHEN: a unit of work writes and then fails
	boom := errors.New("boom")
	err := m.WithTx(ctx, func(st booking.Store) error {
		require.NoError(t, st.InsertReservation(ctx, reservation("r1", "p1", "tok1", "2024-07-01", "2024-07-03", booking.ReservationDraft)))
		require.NoError(t, st.DeleteProperty(ctx, "p1"))
		return boom
	})

	// THEN: none of its writes are visible
	assert.ErrorIs(t, err, boom)
	_, err = m.GetReservation(ctx, "r1")
	assert.ErrorIs(t, err, booking.ErrReservationNotFound)
	_, err = m.GetProperty(ctx, "p1")
	assert.NoError(t, err)
}

func TestMemory_WithTxCommits(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	seedProperty(t, m, "p1")

	err := m.WithTx(ctx, func(st booking.Store) error {
		return st.InsertReservation(ctx, reservation("r1", "p1", "tok1", "2024-07-01", "2024-07-03", booking.ReservationDraft))
	})
	require.NoError(t, err)

	got, err := m.GetReservationByPublicID(ctx, "tok1")
	require.NoError(t, err)
	assert.Equal(t, "r1", got.ID)
}

func TestMemory_Uniqueness(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	seedProperty(t, m, "p1")

	require.NoError(t, m.InsertReservation(ctx, reservation("r1", "p1", "tok1", "2024-07-01", "2024-07-03", booking.ReservationDraft)))

	// Public token
	err := m.InsertReservation(ctx, reservation("r2", "p1", "tok1", "2024-08-01", "2024-08-03", booking.ReservationDraft))
	assert.ErrorIs(t, err, booking.ErrDuplicateToken)

	// External event id
	ev := "evt-1"
	withEvent := reservation("r3", "p1", "tok3", "2024-08-01", "2024-08-03", booking.ReservationDraft)
	withEvent.ExternalEventID = &ev
	require.NoError(t, m.InsertReservation(ctx, withEvent))
	dup := reservation("r4", "p1", "tok4", "2024-09-01", "2024-09-03", booking.ReservationDraft)
	dup.ExternalEventID = &ev
	assert.ErrorIs(t, m.InsertReservation(ctx, dup), booking.ErrDuplicateExternalEvent)

	// One contract per reservation, unique hash
	require.NoError(t, m.InsertContract(ctx, booking.Contract{ID: "c1", ReservationID: "r1", Hash: "h1"}))
	assert.ErrorIs(t, m.InsertContract(ctx, booking.Contract{ID: "c2", ReservationID: "r1", Hash: "h2"}), booking.ErrConflict)
	assert.ErrorIs(t, m.InsertContract(ctx, booking.Contract{ID: "c3", ReservationID: "r3", Hash: "h1"}), booking.ErrDuplicateToken)
	assert.ErrorIs(t, m.InsertContract(ctx, booking.Contract{ID: "c4", ReservationID: "nope", Hash: "h4"}), booking.ErrReservationNotFound)

	// One active assignment per property
	require.NoError(t, m.InsertAssignment(ctx, booking.Assignment{ID: "a1", PropertyID: "p1", ConciergeID: "c1", Status: booking.AssignmentActive}))
	err = m.InsertAssignment(ctx, booking.Assignment{ID: "a2", PropertyID: "p1", ConciergeID: "c2", Status: booking.AssignmentActive})
	var conflict *booking.AssignmentConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "c1", conflict.ActiveConciergeID)
	require.NoError(t, m.InsertAssignment(ctx, booking.Assignment{ID: "a3", PropertyID: "p1", ConciergeID: "c3", Status: booking.AssignmentInactive}))

	// One revenue per reservation
	rid := "r1"
	require.NoError(t, m.InsertRevenue(ctx, booking.Revenue{ID: "v1", PropertyID: "p1", ReservationID: &rid, Amount: decimal.NewFromInt(1)}))
	assert.ErrorIs(t, m.InsertRevenue(ctx, booking.Revenue{ID: "v2", PropertyID: "p1", ReservationID: &rid, Amount: decimal.NewFromInt(1)}), booking.ErrRevenueExists)
}

func TestMemory_FindActiveOverlapping(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	seedProperty(t, m, "p1")
	seedProperty(t, m, "p2")

	for _, r := range []booking.Reservation{
		reservation("draft", "p1", "t1", "2024-07-01", "2024-07-05", booking.ReservationDraft),
		reservation("sent", "p1", "t2", "2024-07-04", "2024-07-06", booking.ReservationSent),
		reservation("confirmed", "p1", "t3", "2024-07-02", "2024-07-03", booking.ReservationConfirmed),
		reservation("cancelled", "p1", "t4", "2024-07-01", "2024-07-10", booking.ReservationCancelled),
		reservation("other", "p2", "t5", "2024-07-01", "2024-07-10", booking.ReservationConfirmed),
	} {
		require.NoError(t, m.InsertReservation(ctx, r))
	}

	probe := booking.DateRange{Start: booking.MustParseDate("2024-07-01"), End: booking.MustParseDate("2024-07-05")}
	got, err := m.FindActiveOverlapping(ctx, "p1", probe, "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "confirmed", got[0].ID)
	assert.Equal(t, "sent", got[1].ID)

	got, err = m.FindActiveOverlapping(ctx, "p1", probe, "sent")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "confirmed", got[0].ID)
}

func TestMemory_Reset(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	seedProperty(t, m, "p1")
	require.NoError(t, m.InsertAssignment(ctx, booking.Assignment{
		ID: "a1", PropertyID: "p1", ConciergeID: "c1", Status: booking.AssignmentActive, AssignedAt: time.Now(),
	}))

	require.NoError(t, m.Reset(ctx))

	_, err := m.GetProperty(ctx, "p1")
	assert.ErrorIs(t, err, booking.ErrPropertyNotFound)
	list, err := m.ListAssignmentsByConcierge(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, list)
}
