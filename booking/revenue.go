/*
revenue.go - Property revenue ledger and the period guard

INVARIANT:
  For a fixed property, no two revenue records have overlapping date ranges
  (same inclusive overlap test as reservations).

OPERATIONS:
  Create / Update:   property must exist; a linked reservation must exist and
                     belong to the property; the range must not overlap
                     another record of the property
  FromReservation:   amount and range copied from the reservation; rejected
                     if a record already references it
  Summary:           decimal total over records overlapping a window
*/
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RevenueInput enumerates the fields a caller may set on a revenue record.
type RevenueInput struct {
	PropertyID    string
	ReservationID *string
	Amount        decimal.Decimal
	Range         DateRange
	Notes         string
	CreatedBy     string
}

func (in RevenueInput) validate() error {
	if strings.TrimSpace(in.PropertyID) == "" {
		return fmt.Errorf("%w: property id is required", ErrInvalidInput)
	}
	if in.Amount.IsNegative() {
		return fmt.Errorf("%w: amount must not be negative", ErrInvalidInput)
	}
	return in.Range.Validate()
}

// RevenueSummary totals the revenue of a property over a window.
type RevenueSummary struct {
	PropertyID string
	Window     DateRange
	Total      decimal.Decimal
	Count      int
}

type RevenueService struct {
	Store TxStore
	Clock func() time.Time
}

func NewRevenueService(store TxStore) *RevenueService {
	return &RevenueService{Store: store}
}

func (s *RevenueService) now() time.Time {
	if s.Clock != nil {
		return s.Clock().UTC()
	}
	return time.Now().UTC()
}

// requireFreePeriod fails with RevenueOverlapError if r overlaps another record.
func requireFreePeriod(ctx context.Context, st Store, propertyID string, r DateRange, excludeID string) error {
	overlapping, err := st.FindOverlappingRevenue(ctx, propertyID, r, excludeID)
	if err != nil {
		return fmt.Errorf("failed to query overlapping revenue: %w", err)
	}
	if len(overlapping) > 0 {
		return &RevenueOverlapError{PropertyID: propertyID, Range: r, Conflicts: overlapping}
	}
	return nil
}

// checkLinkedReservation verifies the optional reservation reference.
func checkLinkedReservation(ctx context.Context, st Store, in RevenueInput, selfID string) error {
	if in.ReservationID == nil {
		return nil
	}
	res, err := st.GetReservation(ctx, *in.ReservationID)
	if err != nil {
		return err
	}
	if res.PropertyID != in.PropertyID {
		return fmt.Errorf("%w: reservation %s belongs to another property", ErrInvalidInput, res.ID)
	}
	existing, err := st.GetRevenueByReservation(ctx, res.ID)
	switch {
	case err == nil && existing.ID != selfID:
		return ErrRevenueExists
	case err != nil && !errors.Is(err, ErrRevenueNotFound):
		return err
	}
	return nil
}

// Create records a revenue period.
func (s *RevenueService) Create(ctx context.Context, in RevenueInput) (*Revenue, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := s.now()
	rev := Revenue{
		ID:            NewID(),
		PropertyID:    in.PropertyID,
		ReservationID: in.ReservationID,
		Amount:        in.Amount,
		Range:         in.Range,
		Notes:         in.Notes,
		CreatedBy:     in.CreatedBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := s.Store.WithTx(ctx, func(st Store) error {
		if _, err := st.GetProperty(ctx, in.PropertyID); err != nil {
			return err
		}
		if err := checkLinkedReservation(ctx, st, in, ""); err != nil {
			return err
		}
		if err := requireFreePeriod(ctx, st, in.PropertyID, in.Range, ""); err != nil {
			return err
		}
		return st.InsertRevenue(ctx, rev)
	})
	if err != nil {
		return nil, err
	}
	return &rev, nil
}

// Update replaces the editable fields of a revenue record. The property of
// a record never changes.
func (s *RevenueService) Update(ctx context.Context, id string, in RevenueInput) (*Revenue, error) {
	var out *Revenue
	err := s.Store.WithTx(ctx, func(st Store) error {
		rev, err := st.GetRevenue(ctx, id)
		if err != nil {
			return err
		}
		in.PropertyID = rev.PropertyID
		if err := in.validate(); err != nil {
			return err
		}
		if err := checkLinkedReservation(ctx, st, in, rev.ID); err != nil {
			return err
		}
		if err := requireFreePeriod(ctx, st, rev.PropertyID, in.Range, rev.ID); err != nil {
			return err
		}

		rev.ReservationID = in.ReservationID
		rev.Amount = in.Amount
		rev.Range = in.Range
		rev.Notes = in.Notes
		rev.UpdatedAt = s.now()
		if err := st.UpdateRevenue(ctx, *rev); err != nil {
			return fmt.Errorf("failed to update revenue: %w", err)
		}
		out = rev
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FromReservation derives a revenue record from a reservation's own range
// and price.
func (s *RevenueService) FromReservation(ctx context.Context, reservationID, createdBy, notes string) (*Revenue, error) {
	var out *Revenue
	err := s.Store.WithTx(ctx, func(st Store) error {
		res, err := st.GetReservation(ctx, reservationID)
		if err != nil {
			return err
		}
		in := RevenueInput{
			PropertyID:    res.PropertyID,
			ReservationID: &res.ID,
			Amount:        res.TotalPrice,
			Range:         res.Range,
			Notes:         notes,
			CreatedBy:     createdBy,
		}
		if err := checkLinkedReservation(ctx, st, in, ""); err != nil {
			return err
		}
		if err := requireFreePeriod(ctx, st, res.PropertyID, res.Range, ""); err != nil {
			return err
		}

		now := s.now()
		rev := Revenue{
			ID:            NewID(),
			PropertyID:    in.PropertyID,
			ReservationID: in.ReservationID,
			Amount:        in.Amount,
			Range:         in.Range,
			Notes:         in.Notes,
			CreatedBy:     in.CreatedBy,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := st.InsertRevenue(ctx, rev); err != nil {
			return err
		}
		out = &rev
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *RevenueService) Get(ctx context.Context, id string) (*Revenue, error) {
	return s.Store.GetRevenue(ctx, id)
}

func (s *RevenueService) Delete(ctx context.Context, id string) error {
	return s.Store.WithTx(ctx, func(st Store) error {
		if _, err := st.GetRevenue(ctx, id); err != nil {
			return err
		}
		return st.DeleteRevenue(ctx, id)
	})
}

func (s *RevenueService) ListByProperty(ctx context.Context, propertyID string) ([]Revenue, error) {
	if _, err := s.Store.GetProperty(ctx, propertyID); err != nil {
		return nil, err
	}
	return s.Store.ListRevenueByProperty(ctx, propertyID)
}

// Summary totals the records of a property overlapping window.
func (s *RevenueService) Summary(ctx context.Context, propertyID string, window DateRange) (*RevenueSummary, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.Store.GetProperty(ctx, propertyID); err != nil {
		return nil, err
	}
	records, err := s.Store.FindOverlappingRevenue(ctx, propertyID, window, "")
	if err != nil {
		return nil, err
	}
	summary := &RevenueSummary{PropertyID: propertyID, Window: window, Total: decimal.Zero}
	for _, r := range records {
		summary.Total = summary.Total.Add(r.Amount)
		summary.Count++
	}
	return summary, nil
}

// OverlappingRevenue filters records the way FindOverlappingRevenue must.
func OverlappingRevenue(all []Revenue, propertyID string, r DateRange, excludeID string) []Revenue {
	var out []Revenue
	for _, existing := range all {
		if existing.PropertyID == propertyID && existing.ID != excludeID && existing.Range.Overlaps(r) {
			out = append(out, existing)
		}
	}
	return out
}
