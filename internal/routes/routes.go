package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/kadirbarquet/usuarios-api/internal/auth"
	"github.com/kadirbarquet/usuarios-api/internal/handlers"
	"github.com/kadirbarquet/usuarios-api/internal/middleware"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	healthHandler *handlers.HealthHandler,
	authHandler *handlers.AuthHandler,
	oauthHandler *handlers.OAuthHandler,
	userHandler *handlers.UserHandler,
	tokens auth.TokenVerifier,
	rateLimitConfig middleware.RateLimitConfig,
) {
	router.Get("/", healthHandler.Root)
	router.Get("/health", healthHandler.Health)

	// Public routes - password auth is rate limited per client IP
	router.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(rateLimitConfig))
		r.Post("/registro", authHandler.Registro)
		r.Post("/login", authHandler.Login)
	})

	// Browser flow - session cookie only, never a bearer token
	router.Get("/auth/google", oauthHandler.GoogleStart)
	router.Get("/auth/google/callback", oauthHandler.GoogleCallback)
	router.Get("/auth/session", authHandler.Session)
	router.Get("/logout", authHandler.Logout)

	// Protected routes - bearer token required
	router.Group(func(r chi.Router) {
		r.Use(auth.AuthMiddleware(tokens))

		r.Get("/perfil", authHandler.Perfil)
		userHandler.RegisterRoutes(r)
	})
}
