/*
Package booking provides the booking lifecycle engine for rental properties.

PURPOSE:
  Decides whether a stay can be booked, advances a reservation and its guest
  contract through coupled states, and guards the shared resources of a
  property: its calendar, its assigned concierge and its revenue ledger.

KEY CONCEPTS IN THIS FILE (types.go):
  - Property:    A rentable unit owned by one client
  - Reservation: A booking of a property for a DateRange
  - Contract:    The guest-registration document bound 1:1 to a reservation
  - Revenue:     A recorded income period for a property
  - Assignment:  A concierge responsible for a property

DESIGN PRINCIPLES:
  1. Check-and-write: every guard runs inside one TxStore.WithTx unit
  2. Precision: money is decimal.Decimal, never float64
  3. Explicit inputs: each mutating operation takes its own input struct
  4. Explicit transitions: both reservations and contracts move over tables

SEE ALSO:
  - period.go: Date and DateRange, the overlap test
  - reservation.go: Reservation state machine
  - contract.go: Contract state machine and cascade
  - assignment.go, revenue.go: Exclusivity and period guards
*/
package booking

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PROPERTY
// =============================================================================

type PropertyStatus string

const (
	PropertyPending  PropertyStatus = "pending"
	PropertyEnabled  PropertyStatus = "enabled"
	PropertyDisabled PropertyStatus = "disabled"
)

// Property is a rentable unit. Only the fields the engine needs are modeled.
type Property struct {
	ID        string
	OwnerID   string
	Name      string
	Status    PropertyStatus
	Latitude  float64
	Longitude float64
	CreatedAt time.Time
}

// =============================================================================
// RESERVATION
// =============================================================================

type ReservationStatus string

const (
	ReservationDraft     ReservationStatus = "draft"
	ReservationSent      ReservationStatus = "sent"
	ReservationSigned    ReservationStatus = "signed"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationCancelled ReservationStatus = "cancelled"
)

// Valid reports whether s is a known reservation status.
func (s ReservationStatus) Valid() bool {
	switch s {
	case ReservationDraft, ReservationSent, ReservationSigned, ReservationConfirmed, ReservationCancelled:
		return true
	}
	return false
}

// Active reports whether a reservation in this status blocks the calendar.
// Drafts and cancelled reservations never conflict.
func (s ReservationStatus) Active() bool {
	return s == ReservationSent || s == ReservationSigned || s == ReservationConfirmed
}

// Reservation is a booking request against one property.
type Reservation struct {
	ID            string
	PropertyID    string
	CreatedBy     string
	Range         DateRange
	TotalPrice    decimal.Decimal
	BookingSource string
	Status        ReservationStatus

	// PublicID is the guest-facing token, also used for calendar correlation.
	PublicID string

	LockCode    string
	LockEnabled bool

	// ExternalEventID is the calendar event this booking came from; unique when set.
	ExternalEventID *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// CONTRACT
// =============================================================================

type ContractStatus string

const (
	ContractDraft     ContractStatus = "DRAFT"
	ContractSent      ContractStatus = "SENT"
	ContractSigned    ContractStatus = "SIGNED"
	ContractRejected  ContractStatus = "REJECTED"
	ContractCompleted ContractStatus = "COMPLETED"
)

func (s ContractStatus) Valid() bool {
	switch s {
	case ContractDraft, ContractSent, ContractSigned, ContractRejected, ContractCompleted:
		return true
	}
	return false
}

// Finalized contracts are kept as the audit trail of a guest registration.
func (s ContractStatus) Finalized() bool {
	return s == ContractSigned || s == ContractCompleted
}

// GuestDetails are the guest-identity fields of a contract. Nil means unset.
type GuestDetails struct {
	FirstName         *string `json:"firstName,omitempty"`
	LastName          *string `json:"lastName,omitempty"`
	BirthDate         *Date   `json:"birthDate,omitempty"`
	Sex               *string `json:"sex,omitempty"`
	Nationality       *string `json:"nationality,omitempty"`
	Email             *string `json:"email,omitempty"`
	Phone             *string `json:"phone,omitempty"`
	ResidenceCountry  *string `json:"residenceCountry,omitempty"`
	ResidenceCity     *string `json:"residenceCity,omitempty"`
	ResidenceAddress  *string `json:"residenceAddress,omitempty"`
	DocumentType      *string `json:"documentType,omitempty"`
	DocumentNumber    *string `json:"documentNumber,omitempty"`
	DocumentIssueDate *Date   `json:"documentIssueDate,omitempty"`
}

// FirstMissing returns the name of the first unset guest field, or "".
func (g GuestDetails) FirstMissing() string {
	missing := g.Missing()
	if len(missing) == 0 {
		return ""
	}
	return missing[0]
}

// Missing lists every unset guest field in declaration order.
func (g GuestDetails) Missing() []string {
	var out []string
	check := func(name string, set bool) {
		if !set {
			out = append(out, name)
		}
	}
	check("firstName", g.FirstName != nil)
	check("lastName", g.LastName != nil)
	check("birthDate", g.BirthDate != nil)
	check("sex", g.Sex != nil)
	check("nationality", g.Nationality != nil)
	check("email", g.Email != nil)
	check("phone", g.Phone != nil)
	check("residenceCountry", g.ResidenceCountry != nil)
	check("residenceCity", g.ResidenceCity != nil)
	check("residenceAddress", g.ResidenceAddress != nil)
	check("documentType", g.DocumentType != nil)
	check("documentNumber", g.DocumentNumber != nil)
	check("documentIssueDate", g.DocumentIssueDate != nil)
	return out
}

// Merge overlays the set fields of other onto g.
func (g GuestDetails) Merge(other GuestDetails) GuestDetails {
	pick := func(cur, next *string) *string {
		if next != nil {
			return next
		}
		return cur
	}
	pickDate := func(cur, next *Date) *Date {
		if next != nil {
			return next
		}
		return cur
	}
	return GuestDetails{
		FirstName:         pick(g.FirstName, other.FirstName),
		LastName:          pick(g.LastName, other.LastName),
		BirthDate:         pickDate(g.BirthDate, other.BirthDate),
		Sex:               pick(g.Sex, other.Sex),
		Nationality:       pick(g.Nationality, other.Nationality),
		Email:             pick(g.Email, other.Email),
		Phone:             pick(g.Phone, other.Phone),
		ResidenceCountry:  pick(g.ResidenceCountry, other.ResidenceCountry),
		ResidenceCity:     pick(g.ResidenceCity, other.ResidenceCity),
		ResidenceAddress:  pick(g.ResidenceAddress, other.ResidenceAddress),
		DocumentType:      pick(g.DocumentType, other.DocumentType),
		DocumentNumber:    pick(g.DocumentNumber, other.DocumentNumber),
		DocumentIssueDate: pickDate(g.DocumentIssueDate, other.DocumentIssueDate),
	}
}

// Contract is the guest-registration document; exactly one per reservation.
type Contract struct {
	ID            string
	ReservationID string

	// Hash is the public URL token handed to the guest.
	Hash string

	Range  DateRange
	Status ContractStatus
	Guest  GuestDetails

	SignedAt *time.Time
	SignerIP string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// REVENUE
// =============================================================================

// Revenue is a recorded income period. ReservationID is a weak reference.
type Revenue struct {
	ID            string
	PropertyID    string
	ReservationID *string
	Amount        decimal.Decimal
	Range         DateRange
	Notes         string
	CreatedBy     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// =============================================================================
// ASSIGNMENT
// =============================================================================

type AssignmentStatus string

const (
	AssignmentActive   AssignmentStatus = "active"
	AssignmentInactive AssignmentStatus = "inactive"
)

// Assignment links a property to a concierge on behalf of its owning client.
type Assignment struct {
	ID          string
	ClientID    string
	ConciergeID string
	PropertyID  string
	Status      AssignmentStatus
	AssignedAt  time.Time
}
