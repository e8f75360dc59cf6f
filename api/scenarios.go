/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for demos. Each scenario goes through the booking services, so the
	seeded data obeys the same rules as data created over the API.

AVAILABLE SCENARIOS:

	calendar-conflict:   Confirmed July stay plus an adjacent draft
	incomplete-contract: Draft contract still missing guest fields
	concierge-handover:  Property with an active concierge
	revenue-ledger:      Property with January revenue on record

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create properties
 3. Create reservations, contracts, assignments and revenue via services

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "calendar-conflict"}

USAGE VIA CLI:

	booking-engine scenario calendar-conflict --db booking.db

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Services used by the loaders
  - cmd/server/main.go: scenario command
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/trevio/booking-engine/booking"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "calendar-conflict",
		Name:        "Calendar Conflict",
		Description: "Confirmed stay 2024-07-01..07-07 and a draft for 07-08..07-10; try booking 07-05..07-10",
		Category:    "reservations",
	},
	{
		ID:          "incomplete-contract",
		Name:        "Incomplete Contract",
		Description: "Draft contract without guest email; moving it to SENT is refused",
		Category:    "contracts",
	},
	{
		ID:          "concierge-handover",
		Name:        "Concierge Handover",
		Description: "Concierge C1 active on a property; deactivate before assigning C2",
		Category:    "concierges",
	},
	{
		ID:          "revenue-ledger",
		Name:        "Revenue Ledger",
		Description: "January 2024 revenue on record; an overlapping period is refused",
		Category:    "revenue",
	},
}

// ErrUnknownScenario is returned by SeedScenario for an unlisted id.
var ErrUnknownScenario = errors.New("unknown scenario")

// Scenarios lists the scenarios SeedScenario accepts.
func Scenarios() []ScenarioDTO {
	out := make([]ScenarioDTO, len(scenarios))
	copy(out, scenarios)
	return out
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	current := h.CurrentScenario()
	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{
		ID:          current,
		Name:        current,
		Description: "Currently loaded scenario",
	})
}

// CurrentScenario is the id of the loaded scenario, empty if none.
func (h *Handler) CurrentScenario() string {
	h.scenarioMu.RLock()
	defer h.scenarioMu.RUnlock()
	return h.currentScenario
}

// LoadScenario loads a predefined scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	err := h.SeedScenario(r.Context(), req.ScenarioID)
	if errors.Is(err, ErrUnknownScenario) {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data.
// POST /api/scenarios/reset
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.scenarioMu.Lock()
	defer h.scenarioMu.Unlock()

	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// SeedScenario resets the store and loads scenario id.
func (h *Handler) SeedScenario(ctx context.Context, id string) error {
	loaders := map[string]func(context.Context) error{
		"calendar-conflict":   h.loadCalendarConflictScenario,
		"incomplete-contract": h.loadIncompleteContractScenario,
		"concierge-handover":  h.loadConciergeHandoverScenario,
		"revenue-ledger":      h.loadRevenueLedgerScenario,
	}
	load, ok := loaders[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownScenario, id)
	}

	h.scenarioMu.Lock()
	defer h.scenarioMu.Unlock()

	if err := h.Store.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset database: %w", err)
	}
	h.currentScenario = ""
	if err := load(ctx); err != nil {
		return err
	}
	h.currentScenario = id
	return nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadCalendarConflictScenario(ctx context.Context) error {
	p, err := h.createDemoProperty(ctx, "Seaside Loft")
	if err != nil {
		return err
	}

	// Confirmed stay: contract completed, cascade lands the reservation.
	stay, err := h.Reservations.Create(ctx, booking.CreateReservationInput{
		PropertyID:    p.ID,
		CreatedBy:     "owner-001",
		Range:         demoRange("2024-07-01", "2024-07-07"),
		TotalPrice:    decimal.RequireFromString("840.00"),
		BookingSource: "direct",
	})
	if err != nil {
		return err
	}
	c, _, err := h.Reservations.GenerateContract(ctx, stay.ID)
	if err != nil {
		return err
	}
	if _, err := h.Contracts.UpdateGuest(ctx, c.ID, demoGuest("Ana", "Silva", "ana@example.com")); err != nil {
		return err
	}
	if _, err := h.Reservations.SendToGuest(ctx, stay.ID); err != nil {
		return err
	}
	for _, status := range []booking.ContractStatus{booking.ContractSigned, booking.ContractCompleted} {
		if _, err := h.Contracts.UpdateStatus(ctx, c.ID, status, "127.0.0.1"); err != nil {
			return err
		}
	}

	// Adjacent draft, shares no night with the confirmed stay.
	_, err = h.Reservations.Create(ctx, booking.CreateReservationInput{
		PropertyID:    p.ID,
		CreatedBy:     "owner-001",
		Range:         demoRange("2024-07-08", "2024-07-10"),
		TotalPrice:    decimal.RequireFromString("300.00"),
		BookingSource: "airbnb",
	})
	return err
}

func (h *Handler) loadIncompleteContractScenario(ctx context.Context) error {
	p, err := h.createDemoProperty(ctx, "Mountain Cabin")
	if err != nil {
		return err
	}
	res, err := h.Reservations.Create(ctx, booking.CreateReservationInput{
		PropertyID:    p.ID,
		CreatedBy:     "owner-001",
		Range:         demoRange("2024-08-10", "2024-08-14"),
		TotalPrice:    decimal.RequireFromString("520.00"),
		BookingSource: "booking.com",
	})
	if err != nil {
		return err
	}
	c, _, err := h.Reservations.GenerateContract(ctx, res.ID)
	if err != nil {
		return err
	}

	guest := demoGuest("Marc", "Dupont", "")
	guest.Email = nil
	_, err = h.Contracts.UpdateGuest(ctx, c.ID, guest)
	return err
}

func (h *Handler) loadConciergeHandoverScenario(ctx context.Context) error {
	p, err := h.createDemoProperty(ctx, "City Studio")
	if err != nil {
		return err
	}
	_, _, err = h.Concierges.Assign(ctx, booking.AssignInput{
		ClientID:    "owner-001",
		ConciergeID: "concierge-c1",
		PropertyID:  p.ID,
	})
	return err
}

func (h *Handler) loadRevenueLedgerScenario(ctx context.Context) error {
	p, err := h.createDemoProperty(ctx, "Harbour Flat")
	if err != nil {
		return err
	}
	_, err = h.Revenue.Create(ctx, booking.RevenueInput{
		PropertyID: p.ID,
		Amount:     decimal.RequireFromString("3100.00"),
		Range:      demoRange("2024-01-01", "2024-01-31"),
		Notes:      "Monthly lease",
		CreatedBy:  "owner-001",
	})
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) createDemoProperty(ctx context.Context, name string) (*booking.Property, error) {
	return h.Properties.Create(ctx, booking.CreatePropertyInput{
		OwnerID: "owner-001",
		Name:    name,
		Status:  booking.PropertyEnabled,
	})
}

func demoRange(start, end string) booking.DateRange {
	return booking.DateRange{Start: booking.MustParseDate(start), End: booking.MustParseDate(end)}
}

func demoGuest(first, last, email string) booking.GuestDetails {
	str := func(s string) *string { return &s }
	birth := booking.MustParseDate("1988-03-14")
	issued := booking.MustParseDate("2019-06-01")
	return booking.GuestDetails{
		FirstName:         str(first),
		LastName:          str(last),
		BirthDate:         &birth,
		Sex:               str("F"),
		Nationality:       str("PT"),
		Email:             str(email),
		Phone:             str("+351900000000"),
		ResidenceCountry:  str("PT"),
		ResidenceCity:     str("Lisbon"),
		ResidenceAddress:  str("Rua Augusta 1"),
		DocumentType:      str("passport"),
		DocumentNumber:    str("P1234567"),
		DocumentIssueDate: &issued,
	}
}
