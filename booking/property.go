package booking

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// CreatePropertyInput carries the listing fields the engine needs.
type CreatePropertyInput struct {
	OwnerID   string
	Name      string
	Status    PropertyStatus
	Latitude  float64
	Longitude float64
}

func (in CreatePropertyInput) validate() error {
	if strings.TrimSpace(in.OwnerID) == "" {
		return fmt.Errorf("%w: owner id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	switch in.Status {
	case "", PropertyPending, PropertyEnabled, PropertyDisabled:
	default:
		return fmt.Errorf("%w: unknown property status %q", ErrInvalidInput, in.Status)
	}
	return nil
}

// PropertyService is the minimal listing surface the lifecycle depends on.
type PropertyService struct {
	Store TxStore
	Clock func() time.Time
}

func NewPropertyService(store TxStore) *PropertyService {
	return &PropertyService{Store: store}
}

func (s *PropertyService) Create(ctx context.Context, in CreatePropertyInput) (*Property, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	status := in.Status
	if status == "" {
		status = PropertyPending
	}
	now := time.Now().UTC()
	if s.Clock != nil {
		now = s.Clock().UTC()
	}
	p := Property{
		ID:        NewID(),
		OwnerID:   in.OwnerID,
		Name:      in.Name,
		Status:    status,
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
		CreatedAt: now,
	}
	if err := s.Store.SaveProperty(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save property: %w", err)
	}
	return &p, nil
}

func (s *PropertyService) Get(ctx context.Context, id string) (*Property, error) {
	return s.Store.GetProperty(ctx, id)
}

// Delete removes the property with its reservations, contracts, revenues
// and assignments.
func (s *PropertyService) Delete(ctx context.Context, id string) error {
	return s.Store.WithTx(ctx, func(st Store) error {
		if _, err := st.GetProperty(ctx, id); err != nil {
			return err
		}
		return st.DeleteProperty(ctx, id)
	})
}
