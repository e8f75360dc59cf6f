package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trevio/booking-engine/booking"
	"github.com/trevio/booking-engine/booking/store"
	"github.com/trevio/booking-engine/store/sqlite"
)

func TestListScenarios(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/scenarios/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[[]ScenarioDTO](t, rec)
	require.Len(t, got, len(Scenarios()))
	for _, sc := range got {
		assert.NotEmpty(t, sc.Name, sc.ID)
		assert.NotEmpty(t, sc.Description, sc.ID)
	}

	rec = s.do(http.MethodGet, "/api/scenarios/current", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))
}

func TestLoadScenario(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/scenarios/load", map[string]string{"scenario_id": "concierge-handover"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/scenarios/current", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "concierge-handover", decode[ScenarioDTO](t, rec).ID)

	// The seeded concierge holds the property, so a second one is refused.
	rec = s.do(http.MethodGet, "/api/concierges/concierge-c1/properties", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	held := decode[[]AssignmentDTO](t, rec)
	require.Len(t, held, 1)
	rec = s.do(http.MethodPost, "/api/concierges/assign", map[string]any{
		"clientId": "owner-001", "conciergeId": "concierge-c2", "propertyId": held[0].PropertyID,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Reset clears data and the current scenario.
	rec = s.do(http.MethodPost, "/api/scenarios/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(http.MethodGet, "/api/concierges/concierge-c1/properties", nil)
	assert.Empty(t, decode[[]AssignmentDTO](t, rec))
	rec = s.do(http.MethodGet, "/api/scenarios/current", nil)
	assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))
}

func TestLoadScenario_Unknown(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/scenarios/load", map[string]string{"scenario_id": "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/scenarios/load", strings.NewReader("{"))
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSeedScenario_AllScenariosOnBothStores(t *testing.T) {
	sqliteStore, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { sqliteStore.Close() })

	stores := map[string]Store{
		"memory": store.NewMemory(),
		"sqlite": sqliteStore,
	}
	for name, st := range stores {
		t.Run(name, func(t *testing.T) {
			h := NewHandler(st, booking.NewHashTokenGenerator("test"), "https://guest.example.com")
			for _, sc := range Scenarios() {
				// Seeding twice proves the reset in between leaves nothing behind.
				require.NoError(t, h.SeedScenario(context.Background(), sc.ID), sc.ID)
				require.NoError(t, h.SeedScenario(context.Background(), sc.ID), sc.ID)
				assert.Equal(t, sc.ID, h.CurrentScenario())
			}
		})
	}
}

func TestScenarioEndpoints_ConcurrentRequests(t *testing.T) {
	s := newTestServer(t)
	ids := Scenarios()

	var wg sync.WaitGroup
	codes := make(chan int, 3*len(ids)*4)
	for round := 0; round < 4; round++ {
		for _, sc := range ids {
			wg.Add(3)
			go func(id string) {
				defer wg.Done()
				codes <- s.do(http.MethodPost, "/api/scenarios/load", map[string]string{"scenario_id": id}).Code
			}(sc.ID)
			go func() {
				defer wg.Done()
				codes <- s.do(http.MethodGet, "/api/scenarios/current", nil).Code
			}()
			go func() {
				defer wg.Done()
				codes <- s.do(http.MethodPost, "/api/scenarios/reset", nil).Code
			}()
		}
	}
	wg.Wait()
	close(codes)
	for code := range codes {
		assert.Equal(t, http.StatusOK, code)
	}

	// A load after the storm still reports itself.
	rec := s.do(http.MethodPost, "/api/scenarios/load", map[string]string{"scenario_id": "revenue-ledger"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(http.MethodGet, "/api/scenarios/current", nil)
	assert.Equal(t, "revenue-ledger", decode[ScenarioDTO](t, rec).ID)
}
