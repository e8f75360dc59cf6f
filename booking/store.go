/*
store.go - Persistence interfaces for the booking engine

PURPOSE:
  Defines the interface between the lifecycle services and the database.
  Different implementations can use SQLite or in-memory storage.

KEY INTERFACES:
  PropertyStore, ReservationStore, ContractStore,
  AssignmentStore, RevenueStore:  per-entity persistence
  Store:                          all of the above
  TxStore:                        Store + atomic units of work

NOT-FOUND CONTRACT:
  Single-entity getters return the entity-specific sentinel
  (ErrReservationNotFound, ...) when no row exists.

UNIQUENESS CONTRACT:
  Insert/Update map unique-index violations to:
  - ErrDuplicateToken:         reservation public id or contract hash
  - ErrDuplicateExternalEvent: reservation external event id
  - *AssignmentConflictError:  second active assignment on a property

ATOMIC UNITS:
  Every guard (availability, exclusivity, revenue overlap) and every cascade
  (contract -> reservation) runs inside WithTx so the check and the write
  cannot interleave with another unit on the same store.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - booking/store/memory.go: In-memory for testing

SEE ALSO:
  - reservation.go, contract.go, assignment.go, revenue.go: callers
*/
package booking

import "context"

// PropertyStore persists properties.
type PropertyStore interface {
	SaveProperty(ctx context.Context, p Property) error
	GetProperty(ctx context.Context, id string) (*Property, error)

	// DeleteProperty removes the property and everything it owns.
	DeleteProperty(ctx context.Context, id string) error
}

// ReservationStore persists reservations.
type ReservationStore interface {
	InsertReservation(ctx context.Context, r Reservation) error
	UpdateReservation(ctx context.Context, r Reservation) error

	// DeleteReservation hard-deletes a reservation and its contract, and
	// clears revenue references to it.
	DeleteReservation(ctx context.Context, id string) error

	GetReservation(ctx context.Context, id string) (*Reservation, error)
	GetReservationByPublicID(ctx context.Context, publicID string) (*Reservation, error)
	ListReservationsByProperty(ctx context.Context, propertyID string) ([]Reservation, error)

	// FindActiveOverlapping returns reservations of the property whose status
	// is active (not draft, not cancelled), whose range overlaps r, and whose
	// id differs from excludeID. Ordered by start date.
	FindActiveOverlapping(ctx context.Context, propertyID string, r DateRange, excludeID string) ([]Reservation, error)
}

// ContractStore persists contracts.
type ContractStore interface {
	InsertContract(ctx context.Context, c Contract) error
	UpdateContract(ctx context.Context, c Contract) error
	DeleteContract(ctx context.Context, id string) error
	GetContract(ctx context.Context, id string) (*Contract, error)
	GetContractByHash(ctx context.Context, hash string) (*Contract, error)
	GetContractByReservation(ctx context.Context, reservationID string) (*Contract, error)
}

// AssignmentStore persists concierge assignments.
type AssignmentStore interface {
	InsertAssignment(ctx context.Context, a Assignment) error
	UpdateAssignment(ctx context.Context, a Assignment) error
	DeleteAssignment(ctx context.Context, id string) error
	GetAssignment(ctx context.Context, id string) (*Assignment, error)
	ListAssignmentsByProperty(ctx context.Context, propertyID string) ([]Assignment, error)
	ListAssignmentsByConcierge(ctx context.Context, conciergeID string) ([]Assignment, error)
	ListAssignmentsByClient(ctx context.Context, clientID string) ([]Assignment, error)
}

// RevenueStore persists revenue records.
type RevenueStore interface {
	InsertRevenue(ctx context.Context, r Revenue) error
	UpdateRevenue(ctx context.Context, r Revenue) error
	DeleteRevenue(ctx context.Context, id string) error
	GetRevenue(ctx context.Context, id string) (*Revenue, error)

	// GetRevenueByReservation returns ErrRevenueNotFound if no record
	// references the reservation.
	GetRevenueByReservation(ctx context.Context, reservationID string) (*Revenue, error)

	ListRevenueByProperty(ctx context.Context, propertyID string) ([]Revenue, error)

	// FindOverlappingRevenue returns revenue records of the property whose
	// range overlaps r, excluding excludeID.
	FindOverlappingRevenue(ctx context.Context, propertyID string, r DateRange, excludeID string) ([]Revenue, error)
}

// Store is the full persistence surface of the engine.
type Store interface {
	PropertyStore
	ReservationStore
	ContractStore
	AssignmentStore
	RevenueStore
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, every write made through the given Store is rolled back.
	WithTx(ctx context.Context, fn func(Store) error) error
}
