package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ledgerkit/identity-service/internal/api/http/handlers"
	"github.com/ledgerkit/identity-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration. OAuth and Admin
// are optional; nil disables their routes.
type RouteConfig struct {
	Health            *handlers.HealthHandler
	Auth              *handlers.AuthHandler
	OAuth             *handlers.OAuthHandler
	Session           *handlers.SessionHandler
	Admin             *handlers.AdminHandler
	SessionMiddleware *auth.SessionMiddleware
	BootstrapEnabled  bool
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/signup", cfg.Auth.SignUp)
	authGroup.Post("/logout", cfg.Auth.Logout)
	if cfg.BootstrapEnabled {
		authGroup.Post("/bootstrap", cfg.Auth.Bootstrap)
	}

	if cfg.OAuth != nil {
		authGroup.Get("/oauth/google", cfg.OAuth.Redirect)
		authGroup.Get("/oauth/google/callback", cfg.OAuth.Callback)
	}

	sessionGroup := app.Group("/session", cfg.SessionMiddleware.Handle, auth.RequireSession())
	sessionGroup.Get("", cfg.Session.Show)
	sessionGroup.Post("/refresh", cfg.Session.Refresh)
	sessionGroup.Post("/welcome", cfg.Session.Welcome)

	if cfg.Admin != nil {
		adminGroup := app.Group("/admin", cfg.SessionMiddleware.Handle, auth.RequireAdmin())
		adminGroup.Get("/auth/outcomes", cfg.Admin.AuthOutcomes)
	}
}
