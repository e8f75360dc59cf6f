package booking_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trevio/booking-engine/booking"
)

const racers = 20

// race runs fn from n goroutines released together and collects their errors.
func race(n int, fn func(i int) error) []error {
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = fn(i)
		}(i)
	}
	close(start)
	wg.Wait()
	return errs
}

func succeeded(errs []error) int {
	n := 0
	for _, err := range errs {
		if err == nil {
			n++
		}
	}
	return n
}

func TestConcurrentElevation_OneWinner(t *testing.T) {
	forEachStore(t, func(t *testing.T, e *engine) {
		ctx := context.Background()

		// GIVEN: many drafts for the same week
		x := e.property(t, "X")
		drafts := make([]*booking.Reservation, racers)
		for i := range drafts {
			drafts[i] = e.draft(t, x.ID, "2024-07-01", "2024-07-07")
		}

		// WHEN: all of them are sent at once
		errs := race(racers, func(i int) error {
			_, err := e.reservations.UpdateStatus(ctx, drafts[i].ID, booking.StatusChange{Status: booking.ReservationSent})
			return err
		})

		// THEN: exactly one holds the calendar, the rest see the conflict
		require.Equal(t, 1, succeeded(errs))
		for _, err := range errs {
			if err != nil {
				var conflict *booking.AvailabilityConflictError
				assert.ErrorAs(t, err, &conflict)
			}
		}
		assertNoActiveOverlap(t, e, x.ID, 0)
	})
}

func TestConcurrentAssign_OneActiveConcierge(t *testing.T) {
	forEachStore(t, func(t *testing.T, e *engine) {
		ctx := context.Background()
		y := e.property(t, "Y")

		errs := race(racers, func(i int) error {
			_, _, err := e.concierges.Assign(ctx, booking.AssignInput{
				ClientID:    "owner-1",
				ConciergeID: fmt.Sprintf("concierge-%d", i),
				PropertyID:  y.ID,
			})
			return err
		})

		require.Equal(t, 1, succeeded(errs))
		for _, err := range errs {
			if err != nil {
				var conflict *booking.AssignmentConflictError
				assert.ErrorAs(t, err, &conflict)
			}
		}

		list, err := e.concierges.ListByProperty(ctx, y.ID)
		require.NoError(t, err)
		active := 0
		for _, a := range list {
			if a.Status == booking.AssignmentActive {
				active++
			}
		}
		assert.Equal(t, 1, active)
	})
}

func TestConcurrentRevenue_OneRecordPerPeriod(t *testing.T) {
	forEachStore(t, func(t *testing.T, e *engine) {
		ctx := context.Background()
		z := e.property(t, "Z")

		// Every period shares 2024-01-15 with every other one.
		errs := race(racers, func(i int) error {
			start := booking.NewDate(2024, 1, 1).AddDays(i % 14)
			_, err := e.revenue.Create(ctx, booking.RevenueInput{
				PropertyID: z.ID,
				Amount:     decimal.NewFromInt(100),
				Range:      booking.DateRange{Start: start, End: booking.NewDate(2024, 1, 15).AddDays(i % 7)},
				CreatedBy:  "owner-1",
			})
			return err
		})

		require.Equal(t, 1, succeeded(errs))
		for _, err := range errs {
			if err != nil {
				var overlap *booking.RevenueOverlapError
				assert.ErrorAs(t, err, &overlap)
			}
		}

		list, err := e.revenue.ListByProperty(ctx, z.ID)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})
}
