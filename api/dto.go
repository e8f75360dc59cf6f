/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:
  Request types carry go-playground/validator tags, checked by Handler.decode
  before the domain is called. Domain rules (availability, transitions,
  completeness) are still enforced by the booking package.

SEE ALSO:
  - handlers.go: Uses these types
  - booking/types.go: Domain model
*/
package api

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trevio/booking-engine/booking"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

type CreatePropertyRequest struct {
	OwnerID   string  `json:"ownerId" validate:"required"`
	Name      string  `json:"name" validate:"required,max=200"`
	Status    string  `json:"status" validate:"omitempty,oneof=pending enabled disabled"`
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// CreateReservationRequest is the body of POST /reservations.
type CreateReservationRequest struct {
	PropertyID      string          `json:"propertyId" validate:"required"`
	StartDate       string          `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate         string          `json:"endDate" validate:"required,datetime=2006-01-02"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	BookingSource   string          `json:"bookingSource" validate:"max=100"`
	CreatedBy       string          `json:"createdByUserId" validate:"required"`
	ExternalEventID *string         `json:"externalEventId" validate:"omitempty,min=1"`
}

// UpdateReservationRequest edits dates, price or source. Dates come in pairs.
type UpdateReservationRequest struct {
	StartDate     *string          `json:"startDate" validate:"omitempty,datetime=2006-01-02"`
	EndDate       *string          `json:"endDate" validate:"omitempty,datetime=2006-01-02"`
	TotalPrice    *decimal.Decimal `json:"totalPrice"`
	BookingSource *string          `json:"bookingSource" validate:"omitempty,max=100"`
}

// StatusRequest is the body of the status endpoints. The status value is
// checked by the state machines so errors name both states.
type StatusRequest struct {
	Status   string `json:"status" validate:"required"`
	Override bool   `json:"override"`
}

type LockRequest struct {
	LockCode    string `json:"lockCode" validate:"max=64"`
	LockEnabled bool   `json:"lockEnabled"`
}

// ContractGuestRequest is the body of PUT /reservationcontract/{id}/guest.
// Omitted fields keep their stored value.
type ContractGuestRequest struct {
	FirstName         *string `json:"firstName" validate:"omitempty,min=1,max=100"`
	LastName          *string `json:"lastName" validate:"omitempty,min=1,max=100"`
	BirthDate         *string `json:"birthDate" validate:"omitempty,datetime=2006-01-02"`
	Sex               *string `json:"sex" validate:"omitempty,max=20"`
	Nationality       *string `json:"nationality" validate:"omitempty,min=1,max=100"`
	Email             *string `json:"email" validate:"omitempty,email"`
	Phone             *string `json:"phone" validate:"omitempty,min=3,max=40"`
	ResidenceCountry  *string `json:"residenceCountry" validate:"omitempty,min=1,max=100"`
	ResidenceCity     *string `json:"residenceCity" validate:"omitempty,min=1,max=100"`
	ResidenceAddress  *string `json:"residenceAddress" validate:"omitempty,min=1,max=300"`
	DocumentType      *string `json:"documentType" validate:"omitempty,min=1,max=50"`
	DocumentNumber    *string `json:"documentNumber" validate:"omitempty,min=1,max=100"`
	DocumentIssueDate *string `json:"documentIssueDate" validate:"omitempty,datetime=2006-01-02"`
}

type AssignConciergeRequest struct {
	ClientID    string `json:"clientId" validate:"required"`
	ConciergeID string `json:"conciergeId" validate:"required"`
	PropertyID  string `json:"propertyId" validate:"required"`
}

// RevenueRequest is the body of POST and PUT /propertyrevenue/revenue.
type RevenueRequest struct {
	PropertyID    string          `json:"propertyId"`
	ReservationID *string         `json:"reservationId" validate:"omitempty,min=1"`
	Amount        decimal.Decimal `json:"amount"`
	StartDate     string          `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate       string          `json:"endDate" validate:"required,datetime=2006-01-02"`
	Notes         string          `json:"notes" validate:"max=1000"`
	CreatedBy     string          `json:"createdBy"`
}

type RevenueFromReservationRequest struct {
	CreatedBy string `json:"createdBy"`
	Notes     string `json:"notes" validate:"max=1000"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

type PropertyDTO struct {
	ID        string  `json:"id"`
	OwnerID   string  `json:"ownerId"`
	Name      string  `json:"name"`
	Status    string  `json:"status"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	CreatedAt string  `json:"createdAt"`
}

type ReservationDTO struct {
	ID              string          `json:"id"`
	PropertyID      string          `json:"propertyId"`
	CreatedBy       string          `json:"createdByUserId"`
	StartDate       booking.Date    `json:"startDate"`
	EndDate         booking.Date    `json:"endDate"`
	Nights          int             `json:"nights"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	BookingSource   string          `json:"bookingSource"`
	Status          string          `json:"status"`
	PublicID        string          `json:"publicId"`
	LockCode        string          `json:"lockCode,omitempty"`
	LockEnabled     bool            `json:"lockEnabled"`
	ExternalEventID *string         `json:"externalEventId,omitempty"`
	CreatedAt       string          `json:"createdAt"`
	UpdatedAt       string          `json:"updatedAt"`
}

type ContractDTO struct {
	ID            string               `json:"id"`
	ReservationID string               `json:"reservationId"`
	Hash          string               `json:"hash"`
	StartDate     booking.Date         `json:"startDate"`
	EndDate       booking.Date         `json:"endDate"`
	Status        string               `json:"status"`
	Guest         booking.GuestDetails `json:"guest"`
	MissingFields []string             `json:"missingFields,omitempty"`
	SignedAt      *string              `json:"signedAt,omitempty"`
	SignerIP      string               `json:"signerIp,omitempty"`
	CreatedAt     string               `json:"createdAt"`
	UpdatedAt     string               `json:"updatedAt"`
}

type AssignmentDTO struct {
	ID          string `json:"id"`
	ClientID    string `json:"clientId"`
	ConciergeID string `json:"conciergeId"`
	PropertyID  string `json:"propertyId"`
	Status      string `json:"status"`
	AssignedAt  string `json:"assignedAt"`
}

type RevenueDTO struct {
	ID            string          `json:"id"`
	PropertyID    string          `json:"propertyId"`
	ReservationID *string         `json:"reservationId"`
	Amount        decimal.Decimal `json:"amount"`
	StartDate     booking.Date    `json:"startDate"`
	EndDate       booking.Date    `json:"endDate"`
	Notes         string          `json:"notes"`
	CreatedBy     string          `json:"createdBy"`
	CreatedAt     string          `json:"createdAt"`
	UpdatedAt     string          `json:"updatedAt"`
}

type RevenueSummaryDTO struct {
	PropertyID string          `json:"propertyId"`
	StartDate  booking.Date    `json:"startDate"`
	EndDate    booking.Date    `json:"endDate"`
	Total      decimal.Decimal `json:"total"`
	Count      int             `json:"count"`
}

// AvailabilityDTO is returned by both availability probes.
type AvailabilityDTO struct {
	Available               bool             `json:"available"`
	ConflictingReservations []ReservationDTO `json:"conflictingReservations"`
}

type SendToGuestResponse struct {
	ContractFormURL string         `json:"contractFormUrl"`
	Reservation     ReservationDTO `json:"reservation"`
	Contract        ContractDTO    `json:"contract"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
}

// ErrorResponse is the standard error response. The conflict fields carry
// the records a caller needs to explain a 400.
type ErrorResponse struct {
	Error                   string           `json:"error"`
	Code                    string           `json:"code,omitempty"`
	Details                 any              `json:"details,omitempty"`
	ConflictingReservations []ReservationDTO `json:"conflictingReservations,omitempty"`
	ConflictingRevenues     []RevenueDTO     `json:"conflictingRevenues,omitempty"`
	MissingFields           []string         `json:"missingFields,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func (req ContractGuestRequest) toGuest() (booking.GuestDetails, error) {
	g := booking.GuestDetails{
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Sex:              req.Sex,
		Nationality:      req.Nationality,
		Email:            req.Email,
		Phone:            req.Phone,
		ResidenceCountry: req.ResidenceCountry,
		ResidenceCity:    req.ResidenceCity,
		ResidenceAddress: req.ResidenceAddress,
		DocumentType:     req.DocumentType,
		DocumentNumber:   req.DocumentNumber,
	}
	var err error
	if g.BirthDate, err = optionalDate(req.BirthDate); err != nil {
		return g, fmt.Errorf("%w: birthDate: %v", booking.ErrInvalidInput, err)
	}
	if g.DocumentIssueDate, err = optionalDate(req.DocumentIssueDate); err != nil {
		return g, fmt.Errorf("%w: documentIssueDate: %v", booking.ErrInvalidInput, err)
	}
	return g, nil
}

func optionalDate(s *string) (*booking.Date, error) {
	if s == nil {
		return nil, nil
	}
	d, err := booking.ParseDate(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toPropertyDTO(p booking.Property) PropertyDTO {
	return PropertyDTO{
		ID:        p.ID,
		OwnerID:   p.OwnerID,
		Name:      p.Name,
		Status:    string(p.Status),
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		CreatedAt: formatTimestamp(p.CreatedAt),
	}
}

func toReservationDTO(r booking.Reservation) ReservationDTO {
	return ReservationDTO{
		ID:              r.ID,
		PropertyID:      r.PropertyID,
		CreatedBy:       r.CreatedBy,
		StartDate:       r.Range.Start,
		EndDate:         r.Range.End,
		Nights:          r.Range.Nights(),
		TotalPrice:      r.TotalPrice,
		BookingSource:   r.BookingSource,
		Status:          string(r.Status),
		PublicID:        r.PublicID,
		LockCode:        r.LockCode,
		LockEnabled:     r.LockEnabled,
		ExternalEventID: r.ExternalEventID,
		CreatedAt:       formatTimestamp(r.CreatedAt),
		UpdatedAt:       formatTimestamp(r.UpdatedAt),
	}
}

func toReservationDTOs(rs []booking.Reservation) []ReservationDTO {
	out := make([]ReservationDTO, len(rs))
	for i, r := range rs {
		out[i] = toReservationDTO(r)
	}
	return out
}

func toContractDTO(c booking.Contract) ContractDTO {
	dto := ContractDTO{
		ID:            c.ID,
		ReservationID: c.ReservationID,
		Hash:          c.Hash,
		StartDate:     c.Range.Start,
		EndDate:       c.Range.End,
		Status:        string(c.Status),
		Guest:         c.Guest,
		MissingFields: c.Guest.Missing(),
		SignerIP:      c.SignerIP,
		CreatedAt:     formatTimestamp(c.CreatedAt),
		UpdatedAt:     formatTimestamp(c.UpdatedAt),
	}
	if c.SignedAt != nil {
		s := formatTimestamp(*c.SignedAt)
		dto.SignedAt = &s
	}
	return dto
}

func toAssignmentDTO(a booking.Assignment) AssignmentDTO {
	return AssignmentDTO{
		ID:          a.ID,
		ClientID:    a.ClientID,
		ConciergeID: a.ConciergeID,
		PropertyID:  a.PropertyID,
		Status:      string(a.Status),
		AssignedAt:  formatTimestamp(a.AssignedAt),
	}
}

func toAssignmentDTOs(as []booking.Assignment) []AssignmentDTO {
	out := make([]AssignmentDTO, len(as))
	for i, a := range as {
		out[i] = toAssignmentDTO(a)
	}
	return out
}

func toRevenueDTO(r booking.Revenue) RevenueDTO {
	return RevenueDTO{
		ID:            r.ID,
		PropertyID:    r.PropertyID,
		ReservationID: r.ReservationID,
		Amount:        r.Amount,
		StartDate:     r.Range.Start,
		EndDate:       r.Range.End,
		Notes:         r.Notes,
		CreatedBy:     r.CreatedBy,
		CreatedAt:     formatTimestamp(r.CreatedAt),
		UpdatedAt:     formatTimestamp(r.UpdatedAt),
	}
}

func toRevenueDTOs(rs []booking.Revenue) []RevenueDTO {
	out := make([]RevenueDTO, len(rs))
	for i, r := range rs {
		out[i] = toRevenueDTO(r)
	}
	return out
}
