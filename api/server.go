/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

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
  4. CORS:       Cross-origin requests for the desk frontend
  5. Auth:       Bearer-token resolution into request context

AUTH MODEL:
  The auth middleware never rejects a request on its own; it only
  attaches the operator when a valid token is present. Handlers that
  mutate state check for the operator and fail with 401 themselves, so
  read endpoints stay open for report screens.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/baitulmaal/zakat-engine/auth"
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
	r.Use(auth.Middleware(h.Tokens, h.Auth))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Auth routes
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", h.Login)
			r.Get("/me", h.Me)
		})

		// Account and ledger routes
		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", h.ListAccounts)
			r.Post("/", h.CreateAccount)
			r.Get("/balances", h.ListBalances)
			r.Get("/{id}", h.GetAccount)
			r.Put("/{id}", h.UpdateAccount)
			r.Delete("/{id}", h.DeleteAccount)
			r.Get("/{id}/ledger", h.GetLedger)
			r.Get("/{id}/balance", h.GetBalance)
			r.Post("/{id}/recompute", h.RecomputeBalance)
		})
		r.Post("/ledger/entries", h.AppendEntry)

		// Rekonsiliasi routes
		r.Route("/rekonsiliasi", func(r chi.Router) {
			r.Get("/", h.ListRekonsiliasi)
			r.Post("/", h.CreateRekonsiliasi)
			r.Get("/summary", h.RekonsiliasiSummary)
			r.Delete("/{id}", h.DeleteRekonsiliasi)
		})

		// Hak amil routes
		r.Route("/hakamil", func(r chi.Router) {
			r.Get("/config", h.GetHakAmilConfig)
			r.Put("/config", h.UpdateHakAmilConfig)
			r.Get("/summary", h.HakAmilSummary)
			r.Get("/summary/monthly", h.HakAmilMonthlySummary)
		})

		// Income routes
		r.Route("/pemasukan", func(r chi.Router) {
			r.Post("/uang", h.RecordUang)
			r.Post("/beras", h.RecordBeras)
		})

		// Bulk payment-sheet routes
		r.Route("/bulk", func(r chi.Router) {
			r.Post("/", h.SubmitBulk)
			r.Get("/{receiptNo}", h.ReprintBulk)
		})

		// Master data routes
		r.Route("/muzakki", func(r chi.Router) {
			r.Get("/", h.ListMuzakki)
			r.Post("/", h.CreateMuzakki)
		})
		r.Route("/tahun", func(r chi.Router) {
			r.Get("/", h.ListTahun)
			r.Post("/", h.CreateTahun)
		})
	})

	return r
}
