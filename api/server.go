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
  4. CORS:       Cross-origin requests for the browser client
  5. RequireAuth: Bearer token -> owner ID (ledger routes only)

ROUTE GROUPS:
  /api/v1/work-sessions/*   Work-session ledger + sync
  /api/v1/vacation-days/*   Vacation ledger + full-state sync
  /api/v1/school-holidays/* School-holiday registry
  /api/v1/settings          Per-owner settings
  /api/v1/overtime-summary  Overtime engine
  /health, /version         Unauthenticated probes

SEE ALSO:
  - handlers.go: Handler implementations
  - auth.go: Bearer-token middleware
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig carries the deployment-specific router inputs.
type RouterConfig struct {
	// AllowedOrigins are the CORS origins the browser client is served from.
	AllowedOrigins []string

	// Tokens maps bearer tokens to owner IDs.
	Tokens map[string]string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// Unauthenticated probes
	r.Get("/health", h.Health)
	r.Get("/version", h.Version)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(RequireAuth(cfg.Tokens))

		r.Route("/work-sessions", func(r chi.Router) {
			r.Get("/", h.ListSessions)
			r.Post("/", h.CreateSession)
			r.Post("/sync", h.SyncSessions)
			r.Get("/{id}", h.GetSession)
			r.Put("/{id}", h.UpdateSession)
			r.Delete("/{id}", h.DeleteSession)
		})

		r.Route("/vacation-days", func(r chi.Router) {
			r.Get("/", h.ListVacationDays)
			r.Post("/", h.CreateVacationDay)
			r.Post("/sync", h.SyncVacationDays)
			r.Delete("/{id}", h.DeleteVacationDay)
		})

		r.Route("/school-holidays", func(r chi.Router) {
			r.Get("/", h.ListSchoolHolidays)
			r.Post("/", h.CreateSchoolHoliday)
			r.Put("/{id}", h.UpdateSchoolHoliday)
			r.Delete("/{id}", h.DeleteSchoolHoliday)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", h.GetSettings)
			r.Put("/", h.UpdateSettings)
		})

		r.Get("/overtime-summary", h.GetOvertimeSummary)
	})

	return r
}
