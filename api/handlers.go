/*
handlers.go - HTTP API handlers for the booking engine

PURPOSE:
  Exposes the booking lifecycle via REST API. Handles HTTP request/response,
  JSON serialization, validation, and delegates to the booking services.

ENDPOINTS:
  Properties:
    POST   /api/properties                         Create property
    GET    /api/properties/{id}                    Get property

  Reservations:
    POST   /api/reservations                       Create (201, or 400 with conflicts)
    GET    /api/reservations/{id}                  Get
    GET    /api/reservations/public/{publicId}     Guest lookup by token
    GET    /api/reservations/property/{propertyId} List by property
    GET    /api/reservations/property/{propertyId}/check-availability
    PUT    /api/reservations/{id}                  Update dates/price/source
    PUT    /api/reservations/{id}/status           Status move {status, override}
    PUT    /api/reservations/{id}/lock             Lock code
    POST   /api/reservations/{id}/generate-contract
    POST   /api/reservations/{id}/send             Route contract to the guest
    DELETE /api/reservations/{id}                  Administrative delete

  Contracts:
    GET    /api/reservationcontract/{id}
    GET    /api/reservationcontract/hash/{hash}
    PUT    /api/reservationcontract/{id}/guest
    PATCH  /api/reservationcontract/{id}/status
    DELETE /api/reservationcontract/{id}
    GET    /api/reservationcontract/property/{propertyId}/check-availability

  Concierges:
    POST   /api/concierges/assign
    PATCH  /api/concierges/status/{assignmentId}
    DELETE /api/concierges/{assignmentId}
    GET    /api/concierges/property/{propertyId}
    GET    /api/concierges/{conciergeId}/properties

  Revenue:
    POST   /api/propertyrevenue/revenue
    PUT    /api/propertyrevenue/revenue/{id}
    DELETE /api/propertyrevenue/revenue/{id}
    POST   /api/propertyrevenue/reservation/{reservationId}
    GET    /api/propertyrevenue/property/{propertyId}
    GET    /api/propertyrevenue/property/{propertyId}/summary

ERROR HANDLING:
  writeServiceError maps booking errors to HTTP statuses:
  - 404: NotFound (entity-specific message)
  - 400: Conflict, InvalidTransition, IncompleteEntity, validation
         (conflicting records are listed in the body)
  - 500: Everything else, logged, generic message

SECURITY NOTE:
  No authentication. Identity (createdByUserId, clientId) is taken from the
  request body and trusted.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/trevio/booking-engine/booking"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store is what the handlers need from persistence.
type Store interface {
	booking.TxStore
	Reset(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store        Store
	Properties   *booking.PropertyService
	Reservations *booking.ReservationService
	Contracts    *booking.ContractService
	Concierges   *booking.AssignmentService
	Revenue      *booking.RevenueService

	validate *validator.Validate

	// scenarioMu serializes seeding and guards currentScenario.
	scenarioMu      sync.RWMutex
	currentScenario string
}

// NewHandler wires the booking services onto store.
func NewHandler(store Store, tokens booking.TokenGenerator, guestBaseURL string) *Handler {
	return &Handler{
		Store:        store,
		Properties:   booking.NewPropertyService(store),
		Reservations: booking.NewReservationService(store, tokens, guestBaseURL),
		Contracts:    booking.NewContractService(store),
		Concierges:   booking.NewAssignmentService(store),
		Revenue:      booking.NewRevenueService(store),
		validate:     validator.New(),
	}
}

// =============================================================================
// PROPERTY HANDLERS
// =============================================================================

// CreateProperty registers a property.
// POST /api/properties
func (h *Handler) CreateProperty(w http.ResponseWriter, r *http.Request) {
	var req CreatePropertyRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, err := h.Properties.Create(r.Context(), booking.CreatePropertyInput{
		OwnerID:   req.OwnerID,
		Name:      req.Name,
		Status:    booking.PropertyStatus(req.Status),
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPropertyDTO(*p))
}

// GetProperty returns one property.
// GET /api/properties/{id}
func (h *Handler) GetProperty(w http.ResponseWriter, r *http.Request) {
	p, err := h.Properties.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPropertyDTO(*p))
}

// =============================================================================
// RESERVATION HANDLERS
// =============================================================================

// CreateReservation books a stay in draft status.
// POST /api/reservations
func (h *Handler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	var req CreateReservationRequest
	if !h.decode(w, r, &req) {
		return
	}
	dr, err := parseRange(req.StartDate, req.EndDate)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	res, err := h.Reservations.Create(r.Context(), booking.CreateReservationInput{
		PropertyID:      req.PropertyID,
		CreatedBy:       req.CreatedBy,
		Range:           dr,
		TotalPrice:      req.TotalPrice,
		BookingSource:   req.BookingSource,
		ExternalEventID: req.ExternalEventID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toReservationDTO(*res))
}

// GetReservation returns one reservation.
// GET /api/reservations/{id}
func (h *Handler) GetReservation(w http.ResponseWriter, r *http.Request) {
	res, err := h.Reservations.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationDTO(*res))
}

// GetReservationByPublicID is the guest-facing lookup.
// GET /api/reservations/public/{publicId}
func (h *Handler) GetReservationByPublicID(w http.ResponseWriter, r *http.Request) {
	res, err := h.Reservations.GetByPublicID(r.Context(), chi.URLParam(r, "publicId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationDTO(*res))
}

// ListPropertyReservations returns the reservations of a property by start date.
// GET /api/reservations/property/{propertyId}
func (h *Handler) ListPropertyReservations(w http.ResponseWriter, r *http.Request) {
	list, err := h.Reservations.ListByProperty(r.Context(), chi.URLParam(r, "propertyId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationDTOs(list))
}

// CheckReservationAvailability probes the calendar.
// GET /api/reservations/property/{propertyId}/check-availability?startDate=&endDate=&excludeReservationId=
func (h *Handler) CheckReservationAvailability(w http.ResponseWriter, r *http.Request) {
	dr, err := queryRange(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	result, err := h.Reservations.CheckAvailability(r.Context(),
		chi.URLParam(r, "propertyId"), dr, r.URL.Query().Get("excludeReservationId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAvailabilityDTO(result))
}

// UpdateReservation edits dates, price and source.
// PUT /api/reservations/{id}
func (h *Handler) UpdateReservation(w http.ResponseWriter, r *http.Request) {
	var req UpdateReservationRequest
	if !h.decode(w, r, &req) {
		return
	}
	in := booking.UpdateReservationInput{TotalPrice: req.TotalPrice, BookingSource: req.BookingSource}
	if (req.StartDate == nil) != (req.EndDate == nil) {
		writeError(w, http.StatusBadRequest, "startDate and endDate must be given together", nil)
		return
	}
	if req.StartDate != nil {
		dr, err := parseRange(*req.StartDate, *req.EndDate)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		in.Range = &dr
	}

	res, err := h.Reservations.UpdateDetails(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationDTO(*res))
}

// UpdateReservationStatus moves a reservation through its state machine.
// PUT /api/reservations/{id}/status
func (h *Handler) UpdateReservationStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.Reservations.UpdateStatus(r.Context(), chi.URLParam(r, "id"), booking.StatusChange{
		Status:   booking.ReservationStatus(req.Status),
		Override: req.Override,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationDTO(*res))
}

// UpdateReservationLock stores the lock code of a stay.
// PUT /api/reservations/{id}/lock
func (h *Handler) UpdateReservationLock(w http.ResponseWriter, r *http.Request) {
	var req LockRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.Reservations.SetLock(r.Context(), chi.URLParam(r, "id"), booking.LockInput{
		Code:    req.LockCode,
		Enabled: req.LockEnabled,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationDTO(*res))
}

// GenerateContract returns the reservation's contract, creating it if needed.
// POST /api/reservations/{id}/generate-contract
func (h *Handler) GenerateContract(w http.ResponseWriter, r *http.Request) {
	c, created, err := h.Reservations.GenerateContract(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, toContractDTO(*c))
}

// SendToGuest routes the contract to the guest.
// POST /api/reservations/{id}/send
func (h *Handler) SendToGuest(w http.ResponseWriter, r *http.Request) {
	result, err := h.Reservations.SendToGuest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SendToGuestResponse{
		ContractFormURL: result.ContractFormURL,
		Reservation:     toReservationDTO(*result.Reservation),
		Contract:        toContractDTO(*result.Contract),
	})
}

// DeleteReservation is the administrative hard delete.
// DELETE /api/reservations/{id}
func (h *Handler) DeleteReservation(w http.ResponseWriter, r *http.Request) {
	if err := h.Reservations.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// CONTRACT HANDLERS
// =============================================================================

// GetContract returns one contract.
// GET /api/reservationcontract/{id}
func (h *Handler) GetContract(w http.ResponseWriter, r *http.Request) {
	c, err := h.Contracts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toContractDTO(*c))
}

// GetContractByHash is the guest form lookup.
// GET /api/reservationcontract/hash/{hash}
func (h *Handler) GetContractByHash(w http.ResponseWriter, r *http.Request) {
	c, err := h.Contracts.GetByHash(r.Context(), chi.URLParam(r, "hash"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toContractDTO(*c))
}

// UpdateContractGuest overlays guest details.
// PUT /api/reservationcontract/{id}/guest
func (h *Handler) UpdateContractGuest(w http.ResponseWriter, r *http.Request) {
	var req ContractGuestRequest
	if !h.decode(w, r, &req) {
		return
	}
	guest, err := req.toGuest()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	c, err := h.Contracts.UpdateGuest(r.Context(), chi.URLParam(r, "id"), guest)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toContractDTO(*c))
}

// UpdateContractStatus moves a contract and cascades onto the reservation.
// PATCH /api/reservationcontract/{id}/status
func (h *Handler) UpdateContractStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.Contracts.UpdateStatus(r.Context(), chi.URLParam(r, "id"),
		booking.ContractStatus(strings.ToUpper(req.Status)), clientIP(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toContractDTO(*c))
}

// DeleteContract removes a contract that is not finalized.
// DELETE /api/reservationcontract/{id}
func (h *Handler) DeleteContract(w http.ResponseWriter, r *http.Request) {
	if err := h.Contracts.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CheckContractAvailability answers through the same checker as reservations.
// GET /api/reservationcontract/property/{propertyId}/check-availability
func (h *Handler) CheckContractAvailability(w http.ResponseWriter, r *http.Request) {
	dr, err := queryRange(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	result, err := h.Contracts.CheckAvailability(r.Context(),
		chi.URLParam(r, "propertyId"), dr, r.URL.Query().Get("excludeReservationId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAvailabilityDTO(result))
}

// =============================================================================
// CONCIERGE HANDLERS
// =============================================================================

// AssignConcierge makes a concierge responsible for a property.
// POST /api/concierges/assign
func (h *Handler) AssignConcierge(w http.ResponseWriter, r *http.Request) {
	var req AssignConciergeRequest
	if !h.decode(w, r, &req) {
		return
	}
	a, created, err := h.Concierges.Assign(r.Context(), booking.AssignInput{
		ClientID:    req.ClientID,
		ConciergeID: req.ConciergeID,
		PropertyID:  req.PropertyID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, toAssignmentDTO(*a))
}

// ToggleConciergeStatus flips active/inactive.
// PATCH /api/concierges/status/{assignmentId}
func (h *Handler) ToggleConciergeStatus(w http.ResponseWriter, r *http.Request) {
	a, err := h.Concierges.ToggleStatus(r.Context(), chi.URLParam(r, "assignmentId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssignmentDTO(*a))
}

// UnassignConcierge deletes an assignment.
// DELETE /api/concierges/{assignmentId}
func (h *Handler) UnassignConcierge(w http.ResponseWriter, r *http.Request) {
	if err := h.Concierges.Unassign(r.Context(), chi.URLParam(r, "assignmentId")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListPropertyConcierges returns every assignment of a property.
// GET /api/concierges/property/{propertyId}
func (h *Handler) ListPropertyConcierges(w http.ResponseWriter, r *http.Request) {
	list, err := h.Concierges.ListByProperty(r.Context(), chi.URLParam(r, "propertyId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssignmentDTOs(list))
}

// ListConciergeProperties returns every assignment of a concierge.
// GET /api/concierges/{conciergeId}/properties
func (h *Handler) ListConciergeProperties(w http.ResponseWriter, r *http.Request) {
	list, err := h.Concierges.ListByConcierge(r.Context(), chi.URLParam(r, "conciergeId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssignmentDTOs(list))
}

// =============================================================================
// REVENUE HANDLERS
// =============================================================================

// CreateRevenue records a revenue period.
// POST /api/propertyrevenue/revenue
func (h *Handler) CreateRevenue(w http.ResponseWriter, r *http.Request) {
	var req RevenueRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.PropertyID == "" {
		writeError(w, http.StatusBadRequest, "propertyId is required", nil)
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rev, err := h.Revenue.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRevenueDTO(*rev))
}

// UpdateRevenue edits a revenue record.
// PUT /api/propertyrevenue/revenue/{id}
func (h *Handler) UpdateRevenue(w http.ResponseWriter, r *http.Request) {
	var req RevenueRequest
	if !h.decode(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rev, err := h.Revenue.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRevenueDTO(*rev))
}

// DeleteRevenue removes a revenue record.
// DELETE /api/propertyrevenue/revenue/{id}
func (h *Handler) DeleteRevenue(w http.ResponseWriter, r *http.Request) {
	if err := h.Revenue.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateRevenueFromReservation derives a record from a reservation.
// POST /api/propertyrevenue/reservation/{reservationId}
func (h *Handler) CreateRevenueFromReservation(w http.ResponseWriter, r *http.Request) {
	var req RevenueFromReservationRequest
	if r.ContentLength != 0 && !h.decode(w, r, &req) {
		return
	}
	rev, err := h.Revenue.FromReservation(r.Context(), chi.URLParam(r, "reservationId"), req.CreatedBy, req.Notes)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRevenueDTO(*rev))
}

// ListPropertyRevenue returns the revenue of a property by start date.
// GET /api/propertyrevenue/property/{propertyId}
func (h *Handler) ListPropertyRevenue(w http.ResponseWriter, r *http.Request) {
	list, err := h.Revenue.ListByProperty(r.Context(), chi.URLParam(r, "propertyId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRevenueDTOs(list))
}

// GetRevenueSummary totals revenue over a window.
// GET /api/propertyrevenue/property/{propertyId}/summary?startDate=&endDate=
func (h *Handler) GetRevenueSummary(w http.ResponseWriter, r *http.Request) {
	dr, err := queryRange(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	sum, err := h.Revenue.Summary(r.Context(), chi.URLParam(r, "propertyId"), dr)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RevenueSummaryDTO{
		PropertyID: sum.PropertyID,
		StartDate:  sum.Window.Start,
		EndDate:    sum.Window.End,
		Total:      sum.Total,
		Count:      sum.Count,
	})
}

// Health is the liveness probe.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func (req RevenueRequest) toInput() (booking.RevenueInput, error) {
	dr, err := parseRange(req.StartDate, req.EndDate)
	if err != nil {
		return booking.RevenueInput{}, err
	}
	return booking.RevenueInput{
		PropertyID:    req.PropertyID,
		ReservationID: req.ReservationID,
		Amount:        req.Amount,
		Range:         dr,
		Notes:         req.Notes,
		CreatedBy:     req.CreatedBy,
	}, nil
}

// decode reads a JSON body into dst and runs its validate tags. It writes
// the 400 itself and reports whether the handler should continue.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:   "Validation failed",
				Code:    "validation",
				Details: fields,
			})
			return false
		}
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

func parseRange(start, end string) (booking.DateRange, error) {
	s, err := booking.ParseDate(start)
	if err != nil {
		return booking.DateRange{}, fmt.Errorf("%w: startDate: %v", booking.ErrInvalidPeriod, err)
	}
	e, err := booking.ParseDate(end)
	if err != nil {
		return booking.DateRange{}, fmt.Errorf("%w: endDate: %v", booking.ErrInvalidPeriod, err)
	}
	return booking.NewDateRange(s, e)
}

func queryRange(r *http.Request) (booking.DateRange, error) {
	q := r.URL.Query()
	return parseRange(q.Get("startDate"), q.Get("endDate"))
}

func toAvailabilityDTO(a *booking.Availability) AvailabilityDTO {
	return AvailabilityDTO{
		Available:               a.Available,
		ConflictingReservations: toReservationDTOs(a.Conflicts),
	}
}

// clientIP is the signer address recorded on a signed contract.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// notFoundMessages gives each missing entity its own message.
var notFoundMessages = []struct {
	err error
	msg string
}{
	{booking.ErrPropertyNotFound, "Property not found"},
	{booking.ErrReservationNotFound, "Reservation not found"},
	{booking.ErrContractNotFound, "Contract not found"},
	{booking.ErrAssignmentNotFound, "Assignment not found"},
	{booking.ErrRevenueNotFound, "Revenue not found"},
}

// writeServiceError maps a booking error onto an HTTP response.
func writeServiceError(w http.ResponseWriter, err error) {
	var (
		availability *booking.AvailabilityConflictError
		assignment   *booking.AssignmentConflictError
		overlap      *booking.RevenueOverlapError
		transition   *booking.InvalidTransitionError
		missing      *booking.MissingFieldError
	)

	switch {
	case booking.IsNotFound(err):
		for _, nf := range notFoundMessages {
			if errors.Is(err, nf.err) {
				writeError(w, http.StatusNotFound, nf.msg, nil)
				return
			}
		}
		writeError(w, http.StatusNotFound, "Not found", nil)
	case errors.As(err, &availability):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:                   "Property is not available for the selected dates",
			Code:                    "conflict",
			ConflictingReservations: toReservationDTOs(availability.Conflicts),
		})
	case errors.As(err, &assignment):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   assignment.Error(),
			Code:    "conflict",
			Details: map[string]string{"activeConciergeId": assignment.ActiveConciergeID},
		})
	case errors.As(err, &overlap):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:               "Revenue period overlaps an existing record",
			Code:                "conflict",
			ConflictingRevenues: toRevenueDTOs(overlap.Conflicts),
		})
	case errors.As(err, &transition):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: transition.Error(),
			Code:  "invalid_transition",
			Details: map[string]string{
				"entity": transition.Entity,
				"from":   transition.From,
				"to":     transition.To,
			},
		})
	case errors.As(err, &missing):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:         missing.Error(),
			Code:          "incomplete",
			Details:       map[string]string{"field": missing.Field},
			MissingFields: missing.Missing,
		})
	case booking.IsClientError(err):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		log.Printf("[API] internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error", nil)
	}
}
