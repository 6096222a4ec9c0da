package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/careconnect/portal-api/internal/api/auth"
	"github.com/careconnect/portal-api/internal/api/health"
	"github.com/careconnect/portal-api/internal/api/user"
	"github.com/careconnect/portal-api/internal/rolegate"
)

// Config contains the handlers and middleware the router wires together.
type Config struct {
	AuthHandler   *auth.HandlerImpl
	UserHandler   *user.HandlerImpl
	HealthHandler *health.HandlerImpl

	Authenticate func(http.Handler) http.Handler
	RequireRoles func(gate rolegate.Gate) func(http.Handler) http.Handler
	RateLimit    func(http.Handler) http.Handler

	AllowedOrigins []string
}

// SetupRouter configures the application router. Server-wide middleware
// (request ID, logging, recoverer) is applied in main before mounting.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", cfg.HealthHandler.Health)

	r.Route("/api/v1", func(r chi.Router) {
		// Public auth routes; the credential endpoints sit behind the rate
		// limiter.
		r.Group(func(r chi.Router) {
			r.Use(cfg.RateLimit)
			r.Post("/auth/register", cfg.AuthHandler.Register)
			r.Post("/auth/login", cfg.AuthHandler.Login)
			r.Post("/auth/reset-password", cfg.AuthHandler.RequestPasswordReset)
			r.Post("/auth/reset-password/complete", cfg.AuthHandler.CompletePasswordReset)
		})
		r.Post("/auth/refresh", cfg.AuthHandler.Refresh)
		r.Post("/auth/verify-email", cfg.AuthHandler.VerifyEmail)
		r.Get("/auth/permissions", cfg.AuthHandler.Permissions)
		// Logout acknowledges unconditionally. The clients most likely to
		// call it hold an expired or already-discarded token, so it cannot
		// sit behind Authenticate.
		r.Post("/auth/logout", cfg.AuthHandler.Logout)

		// Protected routes.
		r.Group(func(r chi.Router) {
			r.Use(cfg.Authenticate)

			r.Group(func(r chi.Router) {
				r.Use(cfg.RequireRoles(rolegate.GateProfile))
				r.Get("/users/me", cfg.UserHandler.GetProfile)
				r.Put("/users/me", cfg.UserHandler.UpdateProfile)
			})

			r.Group(func(r chi.Router) {
				r.Use(cfg.RequireRoles(rolegate.GateUserDirectory))
				r.Get("/users", cfg.UserHandler.ListUsers)
			})

			r.Group(func(r chi.Router) {
				r.Use(cfg.RequireRoles(rolegate.GateUserStatus))
				r.Put("/users/{id}/status", cfg.UserHandler.SetUserStatus)
			})
		})
	})

	return r
}
