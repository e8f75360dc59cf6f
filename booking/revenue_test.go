package booking_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trevio/booking-engine/booking"
)

func revenueInput(propertyID, start, end string, amount int64) booking.RevenueInput {
	return booking.RevenueInput{
		PropertyID: propertyID,
		Amount:     decimal.NewFromInt(amount),
		Range:      dates(start, end),
		CreatedBy:  "owner-1",
	}
}

func TestRevenue_OverlappingPeriodsAreRejected(t *testing.T) {
	forEachStore(t, func(t *testing.T, e *engine) {
		ctx := context.Background()

		// GIVEN: property Z with January revenue
		z := e.property(t, "Z")
		january, err := e.revenue.Create(ctx, revenueInput(z.ID, "2024-01-01", "2024-01-31", 3100))
		require.NoError(t, err)

		// WHEN: recording 2024-01-15..2024-02-15
		_, err = e.revenue.Create(ctx, revenueInput(z.ID, "2024-01-15", "2024-02-15", 1000))

		// THEN: it is rejected listing the January record
		var overlap *booking.RevenueOverlapError
		require.ErrorAs(t, err, &overlap)
		require.Len(t, overlap.Conflicts, 1)
		assert.Equal(t, january.ID, overlap.Conflicts[0].ID)
		assert.True(t, booking.IsConflict(err))

		// AND: adjacent periods and other properties are fine
		_, err = e.revenue.Create(ctx, revenueInput(z.ID, "2024-02-01", "2024-02-29", 2900))
		require.NoError(t, err)
		other := e.property(t, "Other")
		_, err = e.revenue.Create(ctx, revenueInput(other.ID, "2024-01-15", "2024-02-15", 1000))
		require.NoError(t, err)
	})
}

func TestRevenue_Update(t *testing.T) {
	forEachStore(t, func(t *testing.T, e *engine) {
		ctx := context.Background()
		z := e.property(t, "Z")
		jan, err := e.revenue.Create(ctx, revenueInput(z.ID, "2024-01-01", "2024-01-31", 3100))
		require.NoError(t, err)
		_, err = e.revenue.Create(ctx, revenueInput(z.ID, "2024-03-01", "2024-03-31", 3100))
		require.NoError(t, err)

		// Editing a record does not conflict with itself.
		in := revenueInput("ignored", "2024-01-01", "2024-02-10", 3500)
		in.Notes = "extended"
		got, err := e.revenue.Update(ctx, jan.ID, in)
		require.NoError(t, err)
		assert.Equal(t, z.ID, got.PropertyID, "property never changes")
		assert.True(t, decimal.NewFromInt(3500).Equal(got.Amount))
		assert.Equal(t, "extended", got.Notes)

		// Growing into March is refused.
		_, err = e.revenue.Update(ctx, jan.ID, revenueInput(z.ID, "2024-01-01", "2024-03-05", 3500))
		var overlap *booking.RevenueOverlapError
		require.ErrorAs(t, err, &overlap)

		stored, err := e.revenue.Get(ctx, jan.ID)
		require.NoError(t, err)
		assert.True(t, dates("2024-01-01", "2024-02-10").Equal(stored.Range))

		_, err = e.revenue.Update(ctx, "missing", in)
		assert.ErrorIs(t, err, booking.ErrRevenueNotFound)
	})
}

func TestRevenue_FromReservation(t *testing.T) {
	forEachStore(t, func(t *testing.T, e *engine) {
		ctx := context.Background()
		z := e.property(t, "Z")
		res := e.draft(t, z.ID, "2024-07-01", "2024-07-07")

		rev, err := e.revenue.FromReservation(ctx, res.ID, "owner-1", "July stay")
		require.NoError(t, err)
		require.NotNil(t, rev.ReservationID)
		assert.Equal(t, res.ID, *rev.ReservationID)
		assert.True(t, res.TotalPrice.Equal(rev.Amount))
		assert.True(t, res.Range.Equal(rev.Range))

		// A reservation is recorded once.
		_, err = e.revenue.FromReservation(ctx, res.ID, "owner-1", "")
		assert.ErrorIs(t, err, booking.ErrRevenueExists)

		_, err = e.revenue.FromReservation(ctx, "missing", "owner-1", "")
		assert.ErrorIs(t, err, booking.ErrReservationNotFound)
	})
}

func TestRevenue_LinkedReservationChecks(t *testing.T) {
	forEachStore(t, func(t *testing.T, e *engine) {
		ctx := context.Background()
		z := e.property(t, "Z")
		other := e.property(t, "Other")
		res := e.draft(t, other.ID, "2024-07-01", "2024-07-07")

		in := revenueInput(z.ID, "2024-07-01", "2024-07-07", 100)
		in.ReservationID = &res.ID
		_, err := e.revenue.Create(ctx, in)
		assert.ErrorIs(t, err, booking.ErrInvalidInput)

		in.ReservationID = str("missing")
		_, err = e.revenue.Create(ctx, in)
		assert.ErrorIs(t, err, booking.ErrReservationNotFound)

		in = revenueInput(z.ID, "2024-01-01", "2024-01-02", -5)
		_, err = e.revenue.Create(ctx, in)
		assert.ErrorIs(t, err, booking.ErrInvalidInput)

		_, err = e.revenue.Create(ctx, revenueInput("missing", "2024-01-01", "2024-01-02", 5))
		assert.ErrorIs(t, err, booking.ErrPropertyNotFound)
	})
}

func TestRevenue_SummaryAndList(t *testing.T) {
	forEachStore(t, func(t *testing.T, e *engine) {
		ctx := context.Background()
		z := e.property(t, "Z")
		for _, r := range []booking.RevenueInput{
			revenueInput(z.ID, "2024-03-01", "2024-03-31", 300),
			revenueInput(z.ID, "2024-01-01", "2024-01-31", 100),
			revenueInput(z.ID, "2024-02-01", "2024-02-29", 200),
		} {
			_, err := e.revenue.Create(ctx, r)
			require.NoError(t, err)
		}

		list, err := e.revenue.ListByProperty(ctx, z.ID)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, "2024-01-01", list[0].Range.Start.String())
		assert.Equal(t, "2024-03-01", list[2].Range.Start.String())

		// The window catches records that overlap it.
		sum, err := e.revenue.Summary(ctx, z.ID, dates("2024-01-20", "2024-02-10"))
		require.NoError(t, err)
		assert.Equal(t, 2, sum.Count)
		assert.True(t, decimal.NewFromInt(300).Equal(sum.Total), "got %s", sum.Total)

		empty, err := e.revenue.Summary(ctx, z.ID, dates("2025-01-01", "2025-12-31"))
		require.NoError(t, err)
		assert.Equal(t, 0, empty.Count)
		assert.True(t, empty.Total.IsZero())

		_, err = e.revenue.Summary(ctx, z.ID, dates("2024-02-10", "2024-01-20"))
		assert.ErrorIs(t, err, booking.ErrInvalidPeriod)

		require.NoError(t, e.revenue.Delete(ctx, list[0].ID))
		assert.ErrorIs(t, e.revenue.Delete(ctx, list[0].ID), booking.ErrRevenueNotFound)
	})
}

func TestOverlappingRevenue(t *testing.T) {
	all := []booking.Revenue{
		{ID: "a", PropertyID: "p", Range: dates("2024-01-01", "2024-01-31")},
		{ID: "b", PropertyID: "p", Range: dates("2024-02-01", "2024-02-29")},
		{ID: "c", PropertyID: "q", Range: dates("2024-01-01", "2024-01-31")},
	}
	got := booking.OverlappingRevenue(all, "p", dates("2024-01-31", "2024-02-01"), "")
	assert.Len(t, got, 2)

	got = booking.OverlappingRevenue(all, "p", dates("2024-01-31", "2024-02-01"), "a")
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)
}
