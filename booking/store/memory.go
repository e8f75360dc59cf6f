// Package store provides an in-memory booking.TxStore.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/trevio/booking-engine/booking"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// state holds the rows. Its methods assume the caller holds the lock.
type state struct {
	properties   map[string]booking.Property
	reservations map[string]booking.Reservation
	contracts    map[string]booking.Contract
	assignments  map[string]booking.Assignment
	revenues     map[string]booking.Revenue
}

func newState() *state {
	return &state{
		properties:   make(map[string]booking.Property),
		reservations: make(map[string]booking.Reservation),
		contracts:    make(map[string]booking.Contract),
		assignments:  make(map[string]booking.Assignment),
		revenues:     make(map[string]booking.Revenue),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.properties {
		c.properties[k] = v
	}
	for k, v := range s.reservations {
		c.reservations[k] = v
	}
	for k, v := range s.contracts {
		c.contracts[k] = v
	}
	for k, v := range s.assignments {
		c.assignments[k] = v
	}
	for k, v := range s.revenues {
		c.revenues[k] = v
	}
	return c
}

// ===== PROPERTIES =====

func (s *state) SaveProperty(_ context.Context, p booking.Property) error {
	s.properties[p.ID] = p
	return nil
}

func (s *state) GetProperty(_ context.Context, id string) (*booking.Property, error) {
	p, ok := s.properties[id]
	if !ok {
		return nil, booking.ErrPropertyNotFound
	}
	return &p, nil
}

func (s *state) DeleteProperty(ctx context.Context, id string) error {
	for rid, r := range s.reservations {
		if r.PropertyID == id {
			s.DeleteReservation(ctx, rid)
		}
	}
	for rid, r := range s.revenues {
		if r.PropertyID == id {
			delete(s.revenues, rid)
		}
	}
	for aid, a := range s.assignments {
		if a.PropertyID == id {
			delete(s.assignments, aid)
		}
	}
	delete(s.properties, id)
	return nil
}

// ===== RESERVATIONS =====

func (s *state) checkReservationUnique(r booking.Reservation) error {
	for _, existing := range s.reservations {
		if existing.ID == r.ID {
			continue
		}
		if existing.PublicID == r.PublicID {
			return booking.ErrDuplicateToken
		}
		if r.ExternalEventID != nil && existing.ExternalEventID != nil &&
			*existing.ExternalEventID == *r.ExternalEventID {
			return booking.ErrDuplicateExternalEvent
		}
	}
	return nil
}

func (s *state) InsertReservation(_ context.Context, r booking.Reservation) error {
	if _, ok := s.properties[r.PropertyID]; !ok {
		return booking.ErrPropertyNotFound
	}
	if err := s.checkReservationUnique(r); err != nil {
		return err
	}
	s.reservations[r.ID] = r
	return nil
}

func (s *state) UpdateReservation(_ context.Context, r booking.Reservation) error {
	if _, ok := s.reservations[r.ID]; !ok {
		return booking.ErrReservationNotFound
	}
	if err := s.checkReservationUnique(r); err != nil {
		return err
	}
	s.reservations[r.ID] = r
	return nil
}

func (s *state) DeleteReservation(_ context.Context, id string) error {
	for cid, c := range s.contracts {
		if c.ReservationID == id {
			delete(s.contracts, cid)
		}
	}
	for rid, rev := range s.revenues {
		if rev.ReservationID != nil && *rev.ReservationID == id {
			rev.ReservationID = nil
			s.revenues[rid] = rev
		}
	}
	delete(s.reservations, id)
	return nil
}

func (s *state) GetReservation(_ context.Context, id string) (*booking.Reservation, error) {
	r, ok := s.reservations[id]
	if !ok {
		return nil, booking.ErrReservationNotFound
	}
	return &r, nil
}

func (s *state) GetReservationByPublicID(_ context.Context, publicID string) (*booking.Reservation, error) {
	for _, r := range s.reservations {
		if r.PublicID == publicID {
			return &r, nil
		}
	}
	return nil, booking.ErrReservationNotFound
}

func (s *state) ListReservationsByProperty(_ context.Context, propertyID string) ([]booking.Reservation, error) {
	var out []booking.Reservation
	for _, r := range s.reservations {
		if r.PropertyID == propertyID {
			out = append(out, r)
		}
	}
	sortReservations(out)
	return out, nil
}

func (s *state) FindActiveOverlapping(_ context.Context, propertyID string, r booking.DateRange, excludeID string) ([]booking.Reservation, error) {
	all := make([]booking.Reservation, 0, len(s.reservations))
	for _, res := range s.reservations {
		all = append(all, res)
	}
	out := booking.ActiveOverlapping(all, propertyID, r, excludeID)
	sortReservations(out)
	return out, nil
}

func sortReservations(rs []booking.Reservation) {
	sort.Slice(rs, func(i, j int) bool {
		if !rs[i].Range.Start.Equal(rs[j].Range.Start) {
			return rs[i].Range.Start.Before(rs[j].Range.Start)
		}
		return rs[i].ID < rs[j].ID
	})
}

// ===== CONTRACTS =====

func (s *state) checkContractUnique(c booking.Contract) error {
	for _, existing := range s.contracts {
		if existing.ID == c.ID {
			continue
		}
		if existing.Hash == c.Hash {
			return booking.ErrDuplicateToken
		}
		if existing.ReservationID == c.ReservationID {
			return booking.ErrConflict
		}
	}
	return nil
}

func (s *state) InsertContract(_ context.Context, c booking.Contract) error {
	if _, ok := s.reservations[c.ReservationID]; !ok {
		return booking.ErrReservationNotFound
	}
	if err := s.checkContractUnique(c); err != nil {
		return err
	}
	s.contracts[c.ID] = c
	return nil
}

func (s *state) UpdateContract(_ context.Context, c booking.Contract) error {
	if _, ok := s.contracts[c.ID]; !ok {
		return booking.ErrContractNotFound
	}
	if err := s.checkContractUnique(c); err != nil {
		return err
	}
	s.contracts[c.ID] = c
	return nil
}

func (s *state) DeleteContract(_ context.Context, id string) error {
	delete(s.contracts, id)
	return nil
}

func (s *state) GetContract(_ context.Context, id string) (*booking.Contract, error) {
	c, ok := s.contracts[id]
	if !ok {
		return nil, booking.ErrContractNotFound
	}
	return &c, nil
}

func (s *state) GetContractByHash(_ context.Context, hash string) (*booking.Contract, error) {
	for _, c := range s.contracts {
		if c.Hash == hash {
			return &c, nil
		}
	}
	return nil, booking.ErrContractNotFound
}

func (s *state) GetContractByReservation(_ context.Context, reservationID string) (*booking.Contract, error) {
	for _, c := range s.contracts {
		if c.ReservationID == reservationID {
			return &c, nil
		}
	}
	return nil, booking.ErrContractNotFound
}

// ===== ASSIGNMENTS =====

// checkActiveAssignment mirrors the partial unique index of the SQL store.
func (s *state) checkActiveAssignment(a booking.Assignment) error {
	if a.Status != booking.AssignmentActive {
		return nil
	}
	for _, existing := range s.assignments {
		if existing.ID != a.ID && existing.PropertyID == a.PropertyID && existing.Status == booking.AssignmentActive {
			return &booking.AssignmentConflictError{PropertyID: a.PropertyID, ActiveConciergeID: existing.ConciergeID}
		}
	}
	return nil
}

func (s *state) InsertAssignment(_ context.Context, a booking.Assignment) error {
	if _, ok := s.properties[a.PropertyID]; !ok {
		return booking.ErrPropertyNotFound
	}
	if err := s.checkActiveAssignment(a); err != nil {
		return err
	}
	s.assignments[a.ID] = a
	return nil
}

func (s *state) UpdateAssignment(_ context.Context, a booking.Assignment) error {
	if _, ok := s.assignments[a.ID]; !ok {
		return booking.ErrAssignmentNotFound
	}
	if err := s.checkActiveAssignment(a); err != nil {
		return err
	}
	s.assignments[a.ID] = a
	return nil
}

func (s *state) DeleteAssignment(_ context.Context, id string) error {
	delete(s.assignments, id)
	return nil
}

func (s *state) GetAssignment(_ context.Context, id string) (*booking.Assignment, error) {
	a, ok := s.assignments[id]
	if !ok {
		return nil, booking.ErrAssignmentNotFound
	}
	return &a, nil
}

func (s *state) listAssignments(match func(booking.Assignment) bool) []booking.Assignment {
	var out []booking.Assignment
	for _, a := range s.assignments {
		if match(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AssignedAt.Equal(out[j].AssignedAt) {
			return out[i].AssignedAt.Before(out[j].AssignedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *state) ListAssignmentsByProperty(_ context.Context, propertyID string) ([]booking.Assignment, error) {
	return s.listAssignments(func(a booking.Assignment) bool { return a.PropertyID == propertyID }), nil
}

func (s *state) ListAssignmentsByConcierge(_ context.Context, conciergeID string) ([]booking.Assignment, error) {
	return s.listAssignments(func(a booking.Assignment) bool { return a.ConciergeID == conciergeID }), nil
}

func (s *state) ListAssignmentsByClient(_ context.Context, clientID string) ([]booking.Assignment, error) {
	return s.listAssignments(func(a booking.Assignment) bool { return a.ClientID == clientID }), nil
}

// ===== REVENUE =====

func (s *state) checkRevenueUnique(r booking.Revenue) error {
	if r.ReservationID == nil {
		return nil
	}
	for _, existing := range s.revenues {
		if existing.ID != r.ID && existing.ReservationID != nil && *existing.ReservationID == *r.ReservationID {
			return booking.ErrRevenueExists
		}
	}
	return nil
}

func (s *state) InsertRevenue(_ context.Context, r booking.Revenue) error {
	if _, ok := s.properties[r.PropertyID]; !ok {
		return booking.ErrPropertyNotFound
	}
	if err := s.checkRevenueUnique(r); err != nil {
		return err
	}
	s.revenues[r.ID] = r
	return nil
}

func (s *state) UpdateRevenue(_ context.Context, r booking.Revenue) error {
	if _, ok := s.revenues[r.ID]; !ok {
		return booking.ErrRevenueNotFound
	}
	if err := s.checkRevenueUnique(r); err != nil {
		return err
	}
	s.revenues[r.ID] = r
	return nil
}

func (s *state) DeleteRevenue(_ context.Context, id string) error {
	delete(s.revenues, id)
	return nil
}

func (s *state) GetRevenue(_ context.Context, id string) (*booking.Revenue, error) {
	r, ok := s.revenues[id]
	if !ok {
		return nil, booking.ErrRevenueNotFound
	}
	return &r, nil
}

func (s *state) GetRevenueByReservation(_ context.Context, reservationID string) (*booking.Revenue, error) {
	for _, r := range s.revenues {
		if r.ReservationID != nil && *r.ReservationID == reservationID {
			return &r, nil
		}
	}
	return nil, booking.ErrRevenueNotFound
}

func (s *state) ListRevenueByProperty(_ context.Context, propertyID string) ([]booking.Revenue, error) {
	var out []booking.Revenue
	for _, r := range s.revenues {
		if r.PropertyID == propertyID {
			out = append(out, r)
		}
	}
	sortRevenue(out)
	return out, nil
}

func (s *state) FindOverlappingRevenue(_ context.Context, propertyID string, r booking.DateRange, excludeID string) ([]booking.Revenue, error) {
	all := make([]booking.Revenue, 0, len(s.revenues))
	for _, rev := range s.revenues {
		all = append(all, rev)
	}
	out := booking.OverlappingRevenue(all, propertyID, r, excludeID)
	sortRevenue(out)
	return out, nil
}

func sortRevenue(rs []booking.Revenue) {
	sort.Slice(rs, func(i, j int) bool {
		if !rs[i].Range.Start.Equal(rs[j].Range.Start) {
			return rs[i].Range.Start.Before(rs[j].Range.Start)
		}
		return rs[i].ID < rs[j].ID
	})
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// Memory is a booking.TxStore kept in process memory.
type Memory struct {
	mu sync.RWMutex
	st *state
}

var _ booking.TxStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{st: newState()}
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
// The write lock is held for the whole unit, so units never interleave.
func (m *Memory) WithTx(ctx context.Context, fn func(booking.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.st.clone()
	if err := fn(m.st); err != nil {
		m.st = snapshot
		return err
	}
	return nil
}

// Reset clears every table.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st = newState()
	return nil
}

func (m *Memory) read(fn func(*state) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(m.st)
}

func (m *Memory) write(fn func(*state) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.st)
}

func (m *Memory) SaveProperty(ctx context.Context, p booking.Property) error {
	return m.write(func(s *state) error { return s.SaveProperty(ctx, p) })
}

func (m *Memory) GetProperty(ctx context.Context, id string) (out *booking.Property, err error) {
	err = m.read(func(s *state) error { out, err = s.GetProperty(ctx, id); return err })
	return out, err
}

func (m *Memory) DeleteProperty(ctx context.Context, id string) error {
	return m.write(func(s *state) error { return s.DeleteProperty(ctx, id) })
}

func (m *Memory) InsertReservation(ctx context.Context, r booking.Reservation) error {
	return m.write(func(s *state) error { return s.InsertReservation(ctx, r) })
}

func (m *Memory) UpdateReservation(ctx context.Context, r booking.Reservation) error {
	return m.write(func(s *state) error { return s.UpdateReservation(ctx, r) })
}

func (m *Memory) DeleteReservation(ctx context.Context, id string) error {
	return m.write(func(s *state) error { return s.DeleteReservation(ctx, id) })
}

func (m *Memory) GetReservation(ctx context.Context, id string) (out *booking.Reservation, err error) {
	err = m.read(func(s *state) error { out, err = s.GetReservation(ctx, id); return err })
	return out, err
}

func (m *Memory) GetReservationByPublicID(ctx context.Context, publicID string) (out *booking.Reservation, err error) {
	err = m.read(func(s *state) error { out, err = s.GetReservationByPublicID(ctx, publicID); return err })
	return out, err
}

func (m *Memory) ListReservationsByProperty(ctx context.Context, propertyID string) (out []booking.Reservation, err error) {
	err = m.read(func(s *state) error { out, err = s.ListReservationsByProperty(ctx, propertyID); return err })
	return out, err
}

func (m *Memory) FindActiveOverlapping(ctx context.Context, propertyID string, r booking.DateRange, excludeID string) (out []booking.Reservation, err error) {
	err = m.read(func(s *state) error { out, err = s.FindActiveOverlapping(ctx, propertyID, r, excludeID); return err })
	return out, err
}

func (m *Memory) InsertContract(ctx context.Context, c booking.Contract) error {
	return m.write(func(s *state) error { return s.InsertContract(ctx, c) })
}

func (m *Memory) UpdateContract(ctx context.Context, c booking.Contract) error {
	return m.write(func(s *state) error { return s.UpdateContract(ctx, c) })
}

func (m *Memory) DeleteContract(ctx context.Context, id string) error {
	return m.write(func(s *state) error { return s.DeleteContract(ctx, id) })
}

func (m *Memory) GetContract(ctx context.Context, id string) (out *booking.Contract, err error) {
	err = m.read(func(s *state) error { out, err = s.GetContract(ctx, id); return err })
	return out, err
}

func (m *Memory) GetContractByHash(ctx context.Context, hash string) (out *booking.Contract, err error) {
	err = m.read(func(s *state) error { out, err = s.GetContractByHash(ctx, hash); return err })
	return out, err
}

func (m *Memory) GetContractByReservation(ctx context.Context, reservationID string) (out *booking.Contract, err error) {
	err = m.read(func(s *state) error { out, err = s.GetContractByReservation(ctx, reservationID); return err })
	return out, err
}

func (m *Memory) InsertAssignment(ctx context.Context, a booking.Assignment) error {
	return m.write(func(s *state) error { return s.InsertAssignment(ctx, a) })
}

func (m *Memory) UpdateAssignment(ctx context.Context, a booking.Assignment) error {
	return m.write(func(s *state) error { return s.UpdateAssignment(ctx, a) })
}

func (m *Memory) DeleteAssignment(ctx context.Context, id string) error {
	return m.write(func(s *state) error { return s.DeleteAssignment(ctx, id) })
}

func (m *Memory) GetAssignment(ctx context.Context, id string) (out *booking.Assignment, err error) {
	err = m.read(func(s *state) error { out, err = s.GetAssignment(ctx, id); return err })
	return out, err
}

func (m *Memory) ListAssignmentsByProperty(ctx context.Context, propertyID string) (out []booking.Assignment, err error) {
	err = m.read(func(s *state) error { out, err = s.ListAssignmentsByProperty(ctx, propertyID); return err })
	return out, err
}

func (m *Memory) ListAssignmentsByConcierge(ctx context.Context, conciergeID string) (out []booking.Assignment, err error) {
	err = m.read(func(s *state) error { out, err = s.ListAssignmentsByConcierge(ctx, conciergeID); return err })
	return out, err
}

func (m *Memory) ListAssignmentsByClient(ctx context.Context, clientID string) (out []booking.Assignment, err error) {
	err = m.read(func(s *state) error { out, err = s.ListAssignmentsByClient(ctx, clientID); return err })
	return out, err
}

func (m *Memory) InsertRevenue(ctx context.Context, r booking.Revenue) error {
	return m.write(func(s *state) error { return s.InsertRevenue(ctx, r) })
}

func (m *Memory) UpdateRevenue(ctx context.Context, r booking.Revenue) error {
	return m.write(func(s *state) error { return s.UpdateRevenue(ctx, r) })
}

func (m *Memory) DeleteRevenue(ctx context.Context, id string) error {
	return m.write(func(s *state) error { return s.DeleteRevenue(ctx, id) })
}

func (m *Memory) GetRevenue(ctx context.Context, id string) (out *booking.Revenue, err error) {
	err = m.read(func(s *state) error { out, err = s.GetRevenue(ctx, id); return err })
	return out, err
}

func (m *Memory) GetRevenueByReservation(ctx context.Context, reservationID string) (out *booking.Revenue, err error) {
	err = m.read(func(s *state) error { out, err = s.GetRevenueByReservation(ctx, reservationID); return err })
	return out, err
}

func (m *Memory) ListRevenueByProperty(ctx context.Context, propertyID string) (out []booking.Revenue, err error) {
	err = m.read(func(s *state) error { out, err = s.ListRevenueByProperty(ctx, propertyID); return err })
	return out, err
}

func (m *Memory) FindOverlappingRevenue(ctx context.Context, propertyID string, r booking.DateRange, excludeID string) (out []booking.Revenue, err error) {
	err = m.read(func(s *state) error { out, err = s.FindOverlappingRevenue(ctx, propertyID, r, excludeID); return err })
	return out, err
}
