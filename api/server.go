/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address from proxy headers, only with TrustProxy
  3. Logger:     Request logging
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests from the configured origins

ROUTE GROUPS:
  /api/properties/*          Property registration
  /api/reservations/*        Reservation lifecycle
  /api/reservationcontract/* Guest contracts
  /api/concierges/*          Concierge assignments
  /api/propertyrevenue/*     Revenue ledger
  /api/scenarios/*           Demo scenarios
  /api/health                Liveness

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions configures the middleware stack.
type RouterOptions struct {
	AllowedOrigins []string

	// TrustProxy rewrites the client address from X-Forwarded-For / X-Real-IP.
	// Enable only behind a proxy that sets those headers; the address is
	// recorded on signed contracts.
	TrustProxy bool
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	if opts.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: !containsWildcard(opts.AllowedOrigins),
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Route("/properties", func(r chi.Router) {
			r.Post("/", h.CreateProperty)
			r.Get("/{id}", h.GetProperty)
		})

		r.Route("/reservations", func(r chi.Router) {
			r.Post("/", h.CreateReservation)
			r.Get("/public/{publicId}", h.GetReservationByPublicID)
			r.Get("/property/{propertyId}", h.ListPropertyReservations)
			r.Get("/property/{propertyId}/check-availability", h.CheckReservationAvailability)
			r.Get("/{id}", h.GetReservation)
			r.Put("/{id}", h.UpdateReservation)
			r.Delete("/{id}", h.DeleteReservation)
			r.Put("/{id}/status", h.UpdateReservationStatus)
			r.Put("/{id}/lock", h.UpdateReservationLock)
			r.Post("/{id}/generate-contract", h.GenerateContract)
			r.Post("/{id}/send", h.SendToGuest)
		})

		r.Route("/reservationcontract", func(r chi.Router) {
			r.Get("/hash/{hash}", h.GetContractByHash)
			r.Get("/property/{propertyId}/check-availability", h.CheckContractAvailability)
			r.Get("/{id}", h.GetContract)
			r.Delete("/{id}", h.DeleteContract)
			r.Put("/{id}/guest", h.UpdateContractGuest)
			r.Patch("/{id}/status", h.UpdateContractStatus)
		})

		r.Route("/concierges", func(r chi.Router) {
			r.Post("/assign", h.AssignConcierge)
			r.Patch("/status/{assignmentId}", h.ToggleConciergeStatus)
			r.Get("/property/{propertyId}", h.ListPropertyConcierges)
			r.Get("/{conciergeId}/properties", h.ListConciergeProperties)
			r.Delete("/{assignmentId}", h.UnassignConcierge)
		})

		r.Route("/propertyrevenue", func(r chi.Router) {
			r.Post("/revenue", h.CreateRevenue)
			r.Put("/revenue/{id}", h.UpdateRevenue)
			r.Delete("/revenue/{id}", h.DeleteRevenue)
			r.Post("/reservation/{reservationId}", h.CreateRevenueFromReservation)
			r.Get("/property/{propertyId}", h.ListPropertyRevenue)
			r.Get("/property/{propertyId}/summary", h.GetRevenueSummary)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
