/*
reservation.go - Reservation lifecycle

PURPOSE:
  Handles the full lifecycle of a booking:
  1. Creation: validate the property and the calendar, assign a public token
  2. Status moves over an explicit transition table
  3. Contract generation and hand-off to the guest
  4. Administrative delete (bypasses the state machine)

RESERVATION FLOW:
  ┌─────────────────────────────────────────────────────────────────┐
  │                                                                 │
  │   draft ──▶ sent ──▶ signed ──▶ confirmed                       │
  │     │        │         │            │                           │
  │     └────────┴─────────┴────────────┴──▶ cancelled (terminal)   │
  │                                                                 │
  └─────────────────────────────────────────────────────────────────┘

  Contract transitions drive the right half of the diagram:
  contract SIGNED -> reservation signed, contract COMPLETED -> confirmed.

AVAILABILITY:
  Drafts and cancelled reservations do not hold the calendar. Any move from
  one of them into sent/signed/confirmed re-runs the availability check
  inside the same transaction, because other bookings may have been
  confirmed since the draft was created.

ADMINISTRATIVE OVERRIDE:
  StatusChange.Override skips the transition table (any known status may be
  set). The availability check still applies.

SEE ALSO:
  - availability.go: Checker
  - contract.go: Contract transitions and cascade
*/
package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// reservationTransitions is the allowed-next table for reservations.
var reservationTransitions = map[ReservationStatus][]ReservationStatus{
	ReservationDraft:     {ReservationSent, ReservationCancelled},
	ReservationSent:      {ReservationSigned, ReservationCancelled},
	ReservationSigned:    {ReservationConfirmed, ReservationCancelled},
	ReservationConfirmed: {ReservationCancelled},
	ReservationCancelled: nil,
}

// CanTransitionReservation reports whether from -> to is in the table.
func CanTransitionReservation(from, to ReservationStatus) bool {
	for _, next := range reservationTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Placeholder values written into unset guest fields when a contract is
// routed to the guest. The guest replaces them on the contract form.
const GuestPlaceholder = "pending"

var PlaceholderDate = NewDate(1900, time.January, 1)

// =============================================================================
// INPUTS
// =============================================================================

type CreateReservationInput struct {
	PropertyID      string
	CreatedBy       string
	Range           DateRange
	TotalPrice      decimal.Decimal
	BookingSource   string
	ExternalEventID *string
}

func (in CreateReservationInput) validate() error {
	if strings.TrimSpace(in.PropertyID) == "" {
		return fmt.Errorf("%w: property id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.CreatedBy) == "" {
		return fmt.Errorf("%w: creator id is required", ErrInvalidInput)
	}
	if in.TotalPrice.IsNegative() {
		return fmt.Errorf("%w: total price must not be negative", ErrInvalidInput)
	}
	if in.ExternalEventID != nil && strings.TrimSpace(*in.ExternalEventID) == "" {
		return fmt.Errorf("%w: external event id must not be blank", ErrInvalidInput)
	}
	return in.Range.Validate()
}

// StatusChange is the input of UpdateStatus.
type StatusChange struct {
	Status   ReservationStatus
	Override bool
}

// UpdateReservationInput lists the editable fields; nil means unchanged.
type UpdateReservationInput struct {
	Range         *DateRange
	TotalPrice    *decimal.Decimal
	BookingSource *string
}

// LockInput sets the electronic-lock metadata of a stay.
type LockInput struct {
	Code    string
	Enabled bool
}

// SendResult is returned by SendToGuest.
type SendResult struct {
	Reservation     *Reservation
	Contract        *Contract
	ContractFormURL string
}

// =============================================================================
// RESERVATION SERVICE
// =============================================================================

type ReservationService struct {
	Store        TxStore
	Tokens       TokenGenerator
	GuestBaseURL string
	Clock        func() time.Time
}

func NewReservationService(store TxStore, tokens TokenGenerator, guestBaseURL string) *ReservationService {
	return &ReservationService{Store: store, Tokens: tokens, GuestBaseURL: guestBaseURL}
}

func (s *ReservationService) now() time.Time {
	if s.Clock != nil {
		return s.Clock().UTC()
	}
	return time.Now().UTC()
}

// Create books a stay in draft status after checking the calendar.
func (s *ReservationService) Create(ctx context.Context, in CreateReservationInput) (*Reservation, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := s.now()
	res := Reservation{
		ID:              NewID(),
		PropertyID:      in.PropertyID,
		CreatedBy:       in.CreatedBy,
		Range:           in.Range,
		TotalPrice:      in.TotalPrice,
		BookingSource:   in.BookingSource,
		Status:          ReservationDraft,
		ExternalEventID: in.ExternalEventID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err := s.Store.WithTx(ctx, func(st Store) error {
		if _, err := st.GetProperty(ctx, in.PropertyID); err != nil {
			return err
		}
		checker := &Checker{Store: st}
		if err := checker.Require(ctx, in.PropertyID, in.Range, ""); err != nil {
			return err
		}
		return withFreshToken(s.Tokens, func(token string) error {
			res.PublicID = token
			return st.InsertReservation(ctx, res)
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[Reservations] created %s on property %s for %s", res.ID, res.PropertyID, res.Range)
	return &res, nil
}

func (s *ReservationService) Get(ctx context.Context, id string) (*Reservation, error) {
	return s.Store.GetReservation(ctx, id)
}

func (s *ReservationService) GetByPublicID(ctx context.Context, publicID string) (*Reservation, error) {
	return s.Store.GetReservationByPublicID(ctx, publicID)
}

func (s *ReservationService) ListByProperty(ctx context.Context, propertyID string) ([]Reservation, error) {
	if _, err := s.Store.GetProperty(ctx, propertyID); err != nil {
		return nil, err
	}
	return s.Store.ListReservationsByProperty(ctx, propertyID)
}

// CheckAvailability is the read-only probe behind both HTTP availability routes.
func (s *ReservationService) CheckAvailability(ctx context.Context, propertyID string, r DateRange, excludeID string) (*Availability, error) {
	if _, err := s.Store.GetProperty(ctx, propertyID); err != nil {
		return nil, err
	}
	checker := &Checker{Store: s.Store}
	return checker.Check(ctx, propertyID, r, excludeID)
}

// UpdateStatus moves a reservation to change.Status.
func (s *ReservationService) UpdateStatus(ctx context.Context, id string, change StatusChange) (*Reservation, error) {
	var out *Reservation
	err := s.Store.WithTx(ctx, func(st Store) error {
		res, err := st.GetReservation(ctx, id)
		if err != nil {
			return err
		}
		if err := applyReservationStatus(ctx, st, res, change.Status, change.Override, s.now()); err != nil {
			return err
		}
		out = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// applyReservationStatus validates and persists a status move through st.
// It is shared by UpdateStatus, SendToGuest and the contract cascade so the
// table and the availability re-check apply to every path.
func applyReservationStatus(ctx context.Context, st Store, res *Reservation, to ReservationStatus, override bool, now time.Time) error {
	if !to.Valid() {
		return &InvalidTransitionError{Entity: "reservation", From: string(res.Status), To: string(to)}
	}
	if res.Status == to {
		return nil
	}
	if !override && !CanTransitionReservation(res.Status, to) {
		return &InvalidTransitionError{Entity: "reservation", From: string(res.Status), To: string(to)}
	}
	if !res.Status.Active() && to.Active() {
		checker := &Checker{Store: st}
		if err := checker.Require(ctx, res.PropertyID, res.Range, res.ID); err != nil {
			return err
		}
	}

	from := res.Status
	res.Status = to
	res.UpdatedAt = now
	if err := st.UpdateReservation(ctx, *res); err != nil {
		return fmt.Errorf("failed to update reservation status: %w", err)
	}
	log.Printf("[Reservations] %s: %s -> %s", res.ID, from, to)
	return nil
}

// reservationPath is the forward walk of a booking, used by the contract cascade.
var reservationPath = []ReservationStatus{
	ReservationDraft, ReservationSent, ReservationSigned, ReservationConfirmed,
}

func pathIndex(s ReservationStatus) int {
	for i, p := range reservationPath {
		if p == s {
			return i
		}
	}
	return -1
}

// advanceReservation walks res forward along the path until it reaches
// target, one table step at a time. A reservation already past target is
// left alone; a cancelled one cannot be advanced.
func advanceReservation(ctx context.Context, st Store, res *Reservation, target ReservationStatus, now time.Time) error {
	from, to := pathIndex(res.Status), pathIndex(target)
	if from < 0 || to < 0 {
		return &InvalidTransitionError{Entity: "reservation", From: string(res.Status), To: string(target)}
	}
	for _, next := range reservationPath[from+1 : max(from+1, to+1)] {
		if err := applyReservationStatus(ctx, st, res, next, false, now); err != nil {
			return err
		}
	}
	return nil
}

// GenerateContract returns the reservation's contract, creating it in DRAFT
// if none exists. The boolean reports whether a contract was created.
func (s *ReservationService) GenerateContract(ctx context.Context, reservationID string) (*Contract, bool, error) {
	var (
		out     *Contract
		created bool
	)
	err := s.Store.WithTx(ctx, func(st Store) error {
		res, err := st.GetReservation(ctx, reservationID)
		if err != nil {
			return err
		}

		existing, err := st.GetContractByReservation(ctx, reservationID)
		if err == nil {
			out = existing
			return nil
		}
		if !errors.Is(err, ErrContractNotFound) {
			return err
		}

		now := s.now()
		c := Contract{
			ID:            NewID(),
			ReservationID: res.ID,
			Range:         res.Range,
			Status:        ContractDraft,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		err = withFreshToken(s.Tokens, func(token string) error {
			c.Hash = token
			return st.InsertContract(ctx, c)
		})
		if err != nil {
			return err
		}
		out = &c
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, created, nil
}

// SendToGuest routes the contract to the guest: the calendar is re-checked,
// unset guest fields get placeholders, the contract moves to SENT and the
// reservation to sent, all in one unit of work.
func (s *ReservationService) SendToGuest(ctx context.Context, reservationID string) (*SendResult, error) {
	var result SendResult
	err := s.Store.WithTx(ctx, func(st Store) error {
		res, err := st.GetReservation(ctx, reservationID)
		if err != nil {
			return err
		}
		c, err := st.GetContractByReservation(ctx, reservationID)
		if errors.Is(err, ErrContractNotFound) {
			return ErrContractRequired
		}
		if err != nil {
			return err
		}

		checker := &Checker{Store: st}
		if err := checker.Require(ctx, res.PropertyID, res.Range, res.ID); err != nil {
			return err
		}

		now := s.now()
		if c.Status != ContractDraft && c.Status != ContractSent {
			return &InvalidTransitionError{Entity: "contract", From: string(c.Status), To: string(ContractSent)}
		}
		c.Guest = c.Guest.Merge(placeholderGuest(c.Guest))
		c.Status = ContractSent
		c.UpdatedAt = now
		if err := st.UpdateContract(ctx, *c); err != nil {
			return fmt.Errorf("failed to update contract: %w", err)
		}

		if err := applyReservationStatus(ctx, st, res, ReservationSent, false, now); err != nil {
			return err
		}

		result = SendResult{Reservation: res, Contract: c, ContractFormURL: s.ContractFormURL(c.Hash)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ContractFormURL is the guest-facing link for a contract token.
func (s *ReservationService) ContractFormURL(hash string) string {
	return strings.TrimRight(s.GuestBaseURL, "/") + "/contract/" + hash
}

// placeholderGuest returns placeholders for the fields unset in g only.
func placeholderGuest(g GuestDetails) GuestDetails {
	str := func(cur *string) *string {
		if cur != nil {
			return nil
		}
		v := GuestPlaceholder
		return &v
	}
	date := func(cur *Date) *Date {
		if cur != nil {
			return nil
		}
		d := PlaceholderDate
		return &d
	}
	return GuestDetails{
		FirstName:         str(g.FirstName),
		LastName:          str(g.LastName),
		BirthDate:         date(g.BirthDate),
		Sex:               str(g.Sex),
		Nationality:       str(g.Nationality),
		Email:             str(g.Email),
		Phone:             str(g.Phone),
		ResidenceCountry:  str(g.ResidenceCountry),
		ResidenceCity:     str(g.ResidenceCity),
		ResidenceAddress:  str(g.ResidenceAddress),
		DocumentType:      str(g.DocumentType),
		DocumentNumber:    str(g.DocumentNumber),
		DocumentIssueDate: date(g.DocumentIssueDate),
	}
}

// UpdateDetails edits dates, price and source. A new range on an active
// reservation must still be free; the contract range follows the reservation.
func (s *ReservationService) UpdateDetails(ctx context.Context, id string, in UpdateReservationInput) (*Reservation, error) {
	if in.Range != nil {
		if err := in.Range.Validate(); err != nil {
			return nil, err
		}
	}
	if in.TotalPrice != nil && in.TotalPrice.IsNegative() {
		return nil, fmt.Errorf("%w: total price must not be negative", ErrInvalidInput)
	}

	var out *Reservation
	err := s.Store.WithTx(ctx, func(st Store) error {
		res, err := st.GetReservation(ctx, id)
		if err != nil {
			return err
		}
		if res.Status == ReservationCancelled {
			return fmt.Errorf("%w: cancelled reservations cannot be edited", ErrInvalidInput)
		}
		now := s.now()

		if in.Range != nil && !in.Range.Equal(res.Range) {
			if res.Status.Active() {
				checker := &Checker{Store: st}
				if err := checker.Require(ctx, res.PropertyID, *in.Range, res.ID); err != nil {
					return err
				}
			}
			c, err := st.GetContractByReservation(ctx, id)
			switch {
			case err == nil:
				if c.Status.Finalized() {
					return fmt.Errorf("%w: dates of a %s contract cannot change", ErrContractLocked, c.Status)
				}
				c.Range = *in.Range
				c.UpdatedAt = now
				if err := st.UpdateContract(ctx, *c); err != nil {
					return fmt.Errorf("failed to update contract range: %w", err)
				}
			case !errors.Is(err, ErrContractNotFound):
				return err
			}
			res.Range = *in.Range
		}
		if in.TotalPrice != nil {
			res.TotalPrice = *in.TotalPrice
		}
		if in.BookingSource != nil {
			res.BookingSource = *in.BookingSource
		}
		res.UpdatedAt = now
		if err := st.UpdateReservation(ctx, *res); err != nil {
			return fmt.Errorf("failed to update reservation: %w", err)
		}
		out = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetLock stores the electronic-lock code of a stay.
func (s *ReservationService) SetLock(ctx context.Context, id string, in LockInput) (*Reservation, error) {
	if in.Enabled && strings.TrimSpace(in.Code) == "" {
		return nil, fmt.Errorf("%w: lock code is required when the lock is enabled", ErrInvalidInput)
	}
	var out *Reservation
	err := s.Store.WithTx(ctx, func(st Store) error {
		res, err := st.GetReservation(ctx, id)
		if err != nil {
			return err
		}
		res.LockCode = in.Code
		res.LockEnabled = in.Enabled
		res.UpdatedAt = s.now()
		if err := st.UpdateReservation(ctx, *res); err != nil {
			return fmt.Errorf("failed to update lock: %w", err)
		}
		out = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete is the administrative hard delete. It bypasses the state machine
// and takes the contract with it.
func (s *ReservationService) Delete(ctx context.Context, id string) error {
	return s.Store.WithTx(ctx, func(st Store) error {
		if _, err := st.GetReservation(ctx, id); err != nil {
			return err
		}
		return st.DeleteReservation(ctx, id)
	})
}
