/*
assignment.go - Concierge-to-property assignments and the exclusivity guard

INVARIANT:
  A property has at most one active concierge at any instant. Reassigning a
  property to another concierge requires deactivating (or unassigning) the
  current one first.

WHAT IT CHECKS:
  1. Assign: no active assignment for a different concierge on the property
  2. ToggleStatus to active: same check, excluding the toggled row
  Same-concierge reassignment reactivates the existing row instead of
  inserting a duplicate.

LIFECYCLE:
  created on Assign, toggled with ToggleStatus, hard-deleted by Unassign.

STORAGE:
  The SQLite store backs the guard with a partial unique index on
  (property_id) WHERE status = 'active'; violations surface as the same
  AssignmentConflictError.
*/
package booking

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

type AssignInput struct {
	ClientID    string
	ConciergeID string
	PropertyID  string
}

func (in AssignInput) validate() error {
	switch {
	case strings.TrimSpace(in.ClientID) == "":
		return fmt.Errorf("%w: client id is required", ErrInvalidInput)
	case strings.TrimSpace(in.ConciergeID) == "":
		return fmt.Errorf("%w: concierge id is required", ErrInvalidInput)
	case strings.TrimSpace(in.PropertyID) == "":
		return fmt.Errorf("%w: property id is required", ErrInvalidInput)
	}
	return nil
}

type AssignmentService struct {
	Store TxStore
	Clock func() time.Time
}

func NewAssignmentService(store TxStore) *AssignmentService {
	return &AssignmentService{Store: store}
}

func (s *AssignmentService) now() time.Time {
	if s.Clock != nil {
		return s.Clock().UTC()
	}
	return time.Now().UTC()
}

// requireExclusive fails if a concierge other than conciergeID is active on the property.
func requireExclusive(ctx context.Context, st Store, propertyID, conciergeID, excludeID string) error {
	existing, err := st.ListAssignmentsByProperty(ctx, propertyID)
	if err != nil {
		return fmt.Errorf("failed to load assignments: %w", err)
	}
	for _, a := range existing {
		if a.ID == excludeID || a.Status != AssignmentActive {
			continue
		}
		if a.ConciergeID != conciergeID {
			return &AssignmentConflictError{PropertyID: propertyID, ActiveConciergeID: a.ConciergeID}
		}
	}
	return nil
}

// Assign makes the concierge responsible for the property.
// The boolean reports whether a new assignment row was created.
func (s *AssignmentService) Assign(ctx context.Context, in AssignInput) (*Assignment, bool, error) {
	if err := in.validate(); err != nil {
		return nil, false, err
	}

	var (
		out     *Assignment
		created bool
	)
	err := s.Store.WithTx(ctx, func(st Store) error {
		if _, err := st.GetProperty(ctx, in.PropertyID); err != nil {
			return err
		}
		if err := requireExclusive(ctx, st, in.PropertyID, in.ConciergeID, ""); err != nil {
			return err
		}

		existing, err := st.ListAssignmentsByProperty(ctx, in.PropertyID)
		if err != nil {
			return err
		}
		for _, a := range existing {
			if a.ConciergeID != in.ConciergeID {
				continue
			}
			a.ClientID = in.ClientID
			if a.Status != AssignmentActive {
				a.Status = AssignmentActive
				a.AssignedAt = s.now()
			}
			if err := st.UpdateAssignment(ctx, a); err != nil {
				return fmt.Errorf("failed to reactivate assignment: %w", err)
			}
			out = &a
			return nil
		}

		a := Assignment{
			ID:          NewID(),
			ClientID:    in.ClientID,
			ConciergeID: in.ConciergeID,
			PropertyID:  in.PropertyID,
			Status:      AssignmentActive,
			AssignedAt:  s.now(),
		}
		if err := st.InsertAssignment(ctx, a); err != nil {
			return err
		}
		out = &a
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	log.Printf("[Concierges] %s active on property %s", out.ConciergeID, out.PropertyID)
	return out, created, nil
}

// ToggleStatus flips an assignment between active and inactive.
func (s *AssignmentService) ToggleStatus(ctx context.Context, id string) (*Assignment, error) {
	var out *Assignment
	err := s.Store.WithTx(ctx, func(st Store) error {
		a, err := st.GetAssignment(ctx, id)
		if err != nil {
			return err
		}
		if a.Status == AssignmentActive {
			a.Status = AssignmentInactive
		} else {
			if err := requireExclusive(ctx, st, a.PropertyID, a.ConciergeID, a.ID); err != nil {
				return err
			}
			a.Status = AssignmentActive
			a.AssignedAt = s.now()
		}
		if err := st.UpdateAssignment(ctx, *a); err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Unassign hard-deletes the assignment.
func (s *AssignmentService) Unassign(ctx context.Context, id string) error {
	return s.Store.WithTx(ctx, func(st Store) error {
		if _, err := st.GetAssignment(ctx, id); err != nil {
			return err
		}
		return st.DeleteAssignment(ctx, id)
	})
}

func (s *AssignmentService) Get(ctx context.Context, id string) (*Assignment, error) {
	return s.Store.GetAssignment(ctx, id)
}

func (s *AssignmentService) ListByProperty(ctx context.Context, propertyID string) ([]Assignment, error) {
	return s.Store.ListAssignmentsByProperty(ctx, propertyID)
}

func (s *AssignmentService) ListByConcierge(ctx context.Context, conciergeID string) ([]Assignment, error) {
	return s.Store.ListAssignmentsByConcierge(ctx, conciergeID)
}

func (s *AssignmentService) ListByClient(ctx context.Context, clientID string) ([]Assignment, error) {
	return s.Store.ListAssignmentsByClient(ctx, clientID)
}

// ActiveConcierge returns the active assignment of a property, or
// ErrAssignmentNotFound if nobody is responsible for it.
func (s *AssignmentService) ActiveConcierge(ctx context.Context, propertyID string) (*Assignment, error) {
	all, err := s.Store.ListAssignmentsByProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	for _, a := range all {
		if a.Status == AssignmentActive {
			return &a, nil
		}
	}
	return nil, ErrAssignmentNotFound
}
