package api

import (
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/valle1212i/admin-portal-sub000/internal/auth"
)

// SetupRoutes configures the router: the unauthenticated webhook and
// health endpoints, the OAuth endpoints, and the session-protected admin
// API.
func SetupRoutes(h *Handlers, authManager *auth.Manager, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "x-signature", "x-tenant-id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.HandleHealth)

	// Portal-facing: authenticated by HMAC signature, not session.
	r.Post("/webhook/ingest", h.HandleIngest)

	if authManager != nil {
		r.Get("/auth/login", authManager.HandleLogin)
		r.Get("/auth/callback", authManager.HandleCallback)
		r.Get("/auth/logout", authManager.HandleLogout)
		r.Get("/auth/user", authManager.HandleUserInfo)
	}

	devMode := os.Getenv("DEV_MODE") == "true" || os.Getenv("ENVIRONMENT") == "development"

	r.Route("/api", func(r chi.Router) {
		if authManager != nil && !devMode {
			r.Use(authManager.RequireAuth)
		}

		r.Get("/submissions", h.HandleListSubmissions)
		r.Get("/submissions/{id}", h.HandleGetSubmission)

		r.Get("/cases", h.HandleListCases)
		r.Get("/cases/{id}", h.HandleGetCase)
		r.Post("/cases/{id}/assign", h.HandleAssignCase)
		r.Post("/cases/{id}/notes", h.HandleAddNote)
		r.Post("/cases/{id}/close", h.HandleCloseCase)

		r.Post("/customers/{id}/change-package", h.HandleChangePackage)
		r.Post("/package-change/{customerId}/{requestId}/approve", h.HandleApproveChange)
		r.Post("/package-change/{customerId}/{requestId}/reject", h.HandleRejectChange)

		r.Get("/outbox", h.HandleListOutbox)
		r.Post("/outbox/{id}/retry", h.HandleRetryOutbox)
	})

	return r
}
