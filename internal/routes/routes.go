package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/stogden/crease/internal/auth"
	"github.com/stogden/crease/internal/handlers"
	"github.com/stogden/crease/internal/middleware"
	"github.com/stogden/crease/internal/models"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	adminHandler *handlers.AdminHandler,
	tokenManager *auth.TokenManager,
) {
	// Credential endpoints are the expensive and abusable ones; they get the
	// tight per-IP window.
	credentialLimit := middleware.RateLimitByIP(middleware.DefaultAuthRateLimit())

	// Public routes - no authentication required
	router.With(credentialLimit).Post("/auth/login", authHandler.Login)
	router.With(credentialLimit).Post("/auth/register", authHandler.Register)
	router.With(credentialLimit).Post("/auth/forgot-password", authHandler.ForgotPassword)
	router.With(credentialLimit).Post("/auth/reset-password", authHandler.ResetPassword)

	// Protected routes - authentication required
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(tokenManager))
		r.Use(middleware.RateLimitByAccount(middleware.DefaultAuthenticatedRateLimit()))

		r.Get("/auth/me", authHandler.Me)
		r.Post("/auth/change-password", authHandler.ChangePassword)

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(models.RoleAdmin))
			r.Post("/admin/accounts/{id}/unlock", adminHandler.Unlock)
			r.Post("/admin/accounts/{id}/approve", adminHandler.Approve)
			r.Post("/admin/accounts/{id}/reject", adminHandler.Reject)
			r.Get("/admin/accounts/{id}/audit", adminHandler.AuditTrail)
		})
	})
}
