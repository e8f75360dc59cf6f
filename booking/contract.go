/*
contract.go - Guest contract lifecycle and cascade onto the reservation

TRANSITION TABLE (enforced):
  DRAFT     -> SENT
  SENT      -> SIGNED
  SIGNED    -> COMPLETED, REJECTED
  REJECTED  -> (terminal)
  COMPLETED -> (terminal)

COMPLETENESS GUARD:
  Independently of the table, leaving DRAFT for SENT, SIGNED or COMPLETED
  requires every guest-identity field. The first missing field is reported.

CASCADE:
  SIGNED    -> reservation signed
  COMPLETED -> reservation confirmed
  The reservation is walked forward step by step (draft -> sent -> signed),
  so a contract moved without SendToGuest still lands its reservation.
  The cascade is written in the same transaction as the contract. If the
  reservation cannot take the new status, nothing is written.

DELETION:
  Only DRAFT, SENT and REJECTED contracts can be deleted. SIGNED and
  COMPLETED contracts are the audit trail of a guest registration.
*/
package booking

import (
	"context"
	"fmt"
	"log"
	"time"
)

var contractTransitions = map[ContractStatus][]ContractStatus{
	ContractDraft:     {ContractSent},
	ContractSent:      {ContractSigned},
	ContractSigned:    {ContractCompleted, ContractRejected},
	ContractRejected:  nil,
	ContractCompleted: nil,
}

// CanTransitionContract reports whether from -> to is in the table.
func CanTransitionContract(from, to ContractStatus) bool {
	for _, next := range contractTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// contractCascade maps contract statuses onto the reservation status they imply.
var contractCascade = map[ContractStatus]ReservationStatus{
	ContractSigned:    ReservationSigned,
	ContractCompleted: ReservationConfirmed,
}

// checkGuestComplete is the pre-save guard on contracts leaving DRAFT.
func checkGuestComplete(from, to ContractStatus, g GuestDetails) error {
	if from != ContractDraft {
		return nil
	}
	if to != ContractSent && to != ContractSigned && to != ContractCompleted {
		return nil
	}
	if missing := g.Missing(); len(missing) > 0 {
		return &MissingFieldError{Field: missing[0], Missing: missing}
	}
	return nil
}

// =============================================================================
// CONTRACT SERVICE
// =============================================================================

type ContractService struct {
	Store TxStore
	Clock func() time.Time
}

func NewContractService(store TxStore) *ContractService {
	return &ContractService{Store: store}
}

func (s *ContractService) now() time.Time {
	if s.Clock != nil {
		return s.Clock().UTC()
	}
	return time.Now().UTC()
}

func (s *ContractService) Get(ctx context.Context, id string) (*Contract, error) {
	return s.Store.GetContract(ctx, id)
}

func (s *ContractService) GetByHash(ctx context.Context, hash string) (*Contract, error) {
	return s.Store.GetContractByHash(ctx, hash)
}

func (s *ContractService) GetByReservation(ctx context.Context, reservationID string) (*Contract, error) {
	return s.Store.GetContractByReservation(ctx, reservationID)
}

// CheckAvailability answers the contract-path availability query through the
// same Checker as reservations, so both paths always agree.
func (s *ContractService) CheckAvailability(ctx context.Context, propertyID string, r DateRange, excludeReservationID string) (*Availability, error) {
	if _, err := s.Store.GetProperty(ctx, propertyID); err != nil {
		return nil, err
	}
	checker := &Checker{Store: s.Store}
	return checker.Check(ctx, propertyID, r, excludeReservationID)
}

// UpdateGuest overlays the given guest fields. Only DRAFT and SENT contracts
// accept edits.
func (s *ContractService) UpdateGuest(ctx context.Context, id string, guest GuestDetails) (*Contract, error) {
	var out *Contract
	err := s.Store.WithTx(ctx, func(st Store) error {
		c, err := st.GetContract(ctx, id)
		if err != nil {
			return err
		}
		if c.Status != ContractDraft && c.Status != ContractSent {
			return fmt.Errorf("%w: %s contracts cannot be edited", ErrContractLocked, c.Status)
		}
		c.Guest = c.Guest.Merge(guest)
		c.UpdatedAt = s.now()
		if err := st.UpdateContract(ctx, *c); err != nil {
			return fmt.Errorf("failed to update guest details: %w", err)
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateStatus moves a contract to status and cascades onto its reservation.
// signerIP is recorded when the contract becomes SIGNED.
func (s *ContractService) UpdateStatus(ctx context.Context, id string, status ContractStatus, signerIP string) (*Contract, error) {
	var out *Contract
	err := s.Store.WithTx(ctx, func(st Store) error {
		c, err := st.GetContract(ctx, id)
		if err != nil {
			return err
		}
		if !status.Valid() || !CanTransitionContract(c.Status, status) {
			return &InvalidTransitionError{Entity: "contract", From: string(c.Status), To: string(status)}
		}
		if err := checkGuestComplete(c.Status, status, c.Guest); err != nil {
			return err
		}

		now := s.now()
		from := c.Status
		c.Status = status
		c.UpdatedAt = now
		if status == ContractSigned {
			signedAt := now
			c.SignedAt = &signedAt
			c.SignerIP = signerIP
		}
		if err := st.UpdateContract(ctx, *c); err != nil {
			return fmt.Errorf("failed to update contract status: %w", err)
		}

		if target, ok := contractCascade[status]; ok {
			res, err := st.GetReservation(ctx, c.ReservationID)
			if err != nil {
				return err
			}
			if err := advanceReservation(ctx, st, res, target, now); err != nil {
				return fmt.Errorf("contract %s -> %s: %w", from, status, err)
			}
		}

		log.Printf("[Contracts] %s: %s -> %s", c.ID, from, status)
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a contract that has not been finalized.
func (s *ContractService) Delete(ctx context.Context, id string) error {
	return s.Store.WithTx(ctx, func(st Store) error {
		c, err := st.GetContract(ctx, id)
		if err != nil {
			return err
		}
		if c.Status.Finalized() {
			return fmt.Errorf("%w: %s contracts cannot be deleted", ErrContractLocked, c.Status)
		}
		return st.DeleteContract(ctx, id)
	})
}
