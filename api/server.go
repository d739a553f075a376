/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/clients/*        Client CRUD
  /api/programs/*       Training program CRUD
  /api/services/*       Security service CRUD
  /api/reservations/*   Reservation submit/cancel/delete/list
  /api/contracts/*      Contract submit/cancel/delete/list
  /api/payments/*       Payment recording, listing, deletion
  /api/reconciliation/* Payments-vs-price reconciliation
  /api/reports/*        Income, occupancy, uptake, offering summary
  /api/dashboard        Overall counts
  /api/health           Liveness probe

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go, catalog.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Catalog
		r.Route("/clients", func(r chi.Router) {
			r.Get("/", h.ListClients)
			r.Post("/", h.SaveClient)
			r.Get("/{id}", h.GetClient)
			r.Delete("/{id}", h.DeleteClient)
		})
		r.Route("/programs", func(r chi.Router) {
			r.Get("/", h.ListPrograms)
			r.Post("/", h.SaveProgram)
			r.Get("/{id}", h.GetProgram)
			r.Delete("/{id}", h.DeleteProgram)
		})
		r.Route("/services", func(r chi.Router) {
			r.Get("/", h.ListServices)
			r.Post("/", h.SaveService)
			r.Get("/{id}", h.GetService)
			r.Delete("/{id}", h.DeleteService)
		})

		// Bookings
		r.Route("/reservations", func(r chi.Router) {
			r.Get("/", h.ListReservations)
			r.Post("/", h.SubmitReservation)
			r.Get("/{id}", h.GetReservation)
			r.Post("/{id}/cancel", h.CancelReservation)
			r.Delete("/{id}", h.DeleteReservation)
		})
		r.Route("/contracts", func(r chi.Router) {
			r.Get("/", h.ListContracts)
			r.Post("/", h.SubmitContract)
			r.Get("/{id}", h.GetContract)
			r.Post("/{id}/cancel", h.CancelContract)
			r.Delete("/{id}", h.DeleteContract)
		})

		// Payments
		r.Route("/payments", func(r chi.Router) {
			r.Get("/", h.ListPayments)
			r.Post("/", h.CreatePayment)
			r.Get("/{id}", h.GetPayment)
			r.Delete("/{id}", h.DeletePayment)
		})

		// Reconciliation
		r.Route("/reconciliation", func(r chi.Router) {
			r.Get("/", h.ReconcileAll)
			r.Get("/contracts/{id}", h.ReconcileContract)
		})

		// Reports
		r.Route("/reports", func(r chi.Router) {
			r.Get("/income", h.IncomeReport)
			r.Get("/occupancy", h.OccupancyReport)
			r.Get("/uptake", h.UptakeReport)
			r.Get("/summary", h.SummaryReport)
		})
		r.Get("/dashboard", h.Dashboard)

		r.Get("/health", h.Health)
	})

	return r
}
