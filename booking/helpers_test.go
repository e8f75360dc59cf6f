package booking_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/trevio/booking-engine/booking"
	"github.com/trevio/booking-engine/booking/store"
	"github.com/trevio/booking-engine/store/sqlite"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// engine bundles the services over one store.
type engine struct {
	store        booking.TxStore
	properties   *booking.PropertyService
	reservations *booking.ReservationService
	contracts    *booking.ContractService
	concierges   *booking.AssignmentService
	revenue      *booking.RevenueService
}

const guestBaseURL = "https://guest.example.com"

func newEngine(st booking.TxStore) *engine {
	return &engine{
		store:        st,
		properties:   booking.NewPropertyService(st),
		reservations: booking.NewReservationService(st, booking.NewHashTokenGenerator("test-secret"), guestBaseURL),
		contracts:    booking.NewContractService(st),
		concierges:   booking.NewAssignmentService(st),
		revenue:      booking.NewRevenueService(st),
	}
}

// forEachStore runs fn against the memory store, an in-memory SQLite
// database and a file-backed one, so every implementation obeys the same rules.
func forEachStore(t *testing.T, fn func(t *testing.T, e *engine)) {
	t.Helper()
	t.Run("memory", func(t *testing.T) {
		fn(t, newEngine(store.NewMemory()))
	})
	t.Run("sqlite", func(t *testing.T) {
		fn(t, newEngine(openSQLite(t, ":memory:")))
	})
	t.Run("sqlite-file", func(t *testing.T) {
		fn(t, newEngine(openSQLite(t, filepath.Join(t.TempDir(), "booking.db"))))
	})
}

func openSQLite(t *testing.T, path string) *sqlite.Store {
	t.Helper()
	db, err := sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func dates(start, end string) booking.DateRange {
	return booking.DateRange{Start: booking.MustParseDate(start), End: booking.MustParseDate(end)}
}

func (e *engine) property(t *testing.T, name string) *booking.Property {
	t.Helper()
	p, err := e.properties.Create(context.Background(), booking.CreatePropertyInput{
		OwnerID: "owner-1",
		Name:    name,
	})
	require.NoError(t, err)
	return p
}

func (e *engine) draft(t *testing.T, propertyID, start, end string) *booking.Reservation {
	t.Helper()
	res, err := e.reservations.Create(context.Background(), booking.CreateReservationInput{
		PropertyID:    propertyID,
		CreatedBy:     "owner-1",
		Range:         dates(start, end),
		TotalPrice:    decimal.NewFromInt(500),
		BookingSource: "direct",
	})
	require.NoError(t, err)
	return res
}

// confirm takes a draft through the guest contract flow until the cascade
// confirms it.
func (e *engine) confirm(t *testing.T, res *booking.Reservation) *booking.Contract {
	t.Helper()
	ctx := context.Background()
	c, _, err := e.reservations.GenerateContract(ctx, res.ID)
	require.NoError(t, err)
	_, err = e.contracts.UpdateGuest(ctx, c.ID, fullGuest())
	require.NoError(t, err)
	_, err = e.reservations.SendToGuest(ctx, res.ID)
	require.NoError(t, err)
	_, err = e.contracts.UpdateStatus(ctx, c.ID, booking.ContractSigned, "10.0.0.1")
	require.NoError(t, err)
	c, err = e.contracts.UpdateStatus(ctx, c.ID, booking.ContractCompleted, "10.0.0.1")
	require.NoError(t, err)
	return c
}

func str(s string) *string { return &s }

func fullGuest() booking.GuestDetails {
	birth := booking.MustParseDate("1990-05-20")
	issued := booking.MustParseDate("2020-01-10")
	return booking.GuestDetails{
		FirstName:         str("Jane"),
		LastName:          str("Doe"),
		BirthDate:         &birth,
		Sex:               str("F"),
		Nationality:       str("FR"),
		Email:             str("jane@example.com"),
		Phone:             str("+33100000000"),
		ResidenceCountry:  str("FR"),
		ResidenceCity:     str("Paris"),
		ResidenceAddress:  str("1 Rue de Rivoli"),
		DocumentType:      str("passport"),
		DocumentNumber:    str("X1234567"),
		DocumentIssueDate: &issued,
	}
}

func reservationIDs(rs []booking.Reservation) []string {
	ids := make([]string, len(rs))
	for i, r := range rs {
		ids[i] = r.ID
	}
	return ids
}

// fixedTokens hands out tokens in order, repeating the last one.
type fixedTokens struct {
	tokens []string
	i      int
}

func (f *fixedTokens) Generate() (string, error) {
	tok := f.tokens[min(f.i, len(f.tokens)-1)]
	f.i++
	return tok, nil
}
