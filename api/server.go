/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

OWNERSHIP:
  Invoice creation and listing are scoped to an owner supplied in the
  X-Owner-ID header; the requireOwner middleware rejects requests
  without one. Record CRUD and the shift summary are shared data and
  carry no owner scope.

ROUTE GROUPS:
  /api/invoices/*        Invoice records and artifact regeneration
  /api/shifts/*          Shift records and aggregation preview
  /api/carers/*          Carer records
  /api/clients/*         Client records
  /api/line-items/*      Billable line items
  /api/calendar-views/*  Saved calendar views
  /api/demo/load         Demo data seeding (dev only)

SEE ALSO:
  - handlers.go: Invoice handler implementations
  - records.go: Record CRUD handlers
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
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Owner-ID"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Invoice routes
		r.Route("/invoices", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(requireOwner)
				r.Get("/", h.ListInvoices)
				r.Post("/", h.CreateInvoice)
			})
			r.Get("/download", h.DownloadInvoice)
			r.Delete("/", h.DeleteInvoice)
		})

		// Shift routes
		r.Route("/shifts", func(r chi.Router) {
			r.Get("/", h.ListShifts)
			r.Post("/", h.SaveShift)
			r.Put("/", h.SaveShift)
			r.Get("/summary", h.ShiftSummary)
		})

		// Carer routes
		r.Route("/carers", func(r chi.Router) {
			r.Get("/", h.ListCarers)
			r.Post("/", h.CreateCarer)
			r.Get("/{id}", h.GetCarer)
		})

		// Client routes
		r.Route("/clients", func(r chi.Router) {
			r.Get("/", h.ListClients)
			r.Post("/", h.CreateClient)
			r.Get("/{id}", h.GetClient)
		})

		// Line item routes
		r.Route("/line-items", func(r chi.Router) {
			r.Get("/", h.ListLineItems)
			r.Post("/", h.CreateLineItem)
		})

		// Calendar view routes
		r.Route("/calendar-views", func(r chi.Router) {
			r.Get("/", h.ListCalendarViews)
			r.Post("/", h.SaveCalendarView)
			r.Put("/", h.SaveCalendarView)
			r.Delete("/", h.DeleteCalendarView)
		})

		// Demo data (dev only)
		r.Post("/demo/load", h.LoadDemoData)
	})

	return r
}
