package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jionu102/codeit-image-post-auth/internal/api/http/handlers"
	"github.com/jionu102/codeit-image-post-auth/internal/auth"
	"github.com/jionu102/codeit-image-post-auth/internal/config"
	"github.com/jionu102/codeit-image-post-auth/internal/domain"
	"github.com/jionu102/codeit-image-post-auth/internal/observability"
)

// RouteConfig bundles dependencies for route registration. Auth is used in
// token mode, Session and Sessions in session mode.
type RouteConfig struct {
	Mode          string
	Health        *handlers.HealthHandler
	Auth          *handlers.AuthHandler
	Session       *handlers.SessionHandler
	Sessions      auth.SessionResolver
	Identity      *handlers.IdentityHandler
	Admin         *handlers.AdminHandler
	Authenticator *auth.Authenticator
	Metrics       *observability.Metrics
}

// RegisterRoutes wires HTTP routes. Exactly one authentication mechanism is
// mounted.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry(), promhttp.HandlerOpts{})))
	}

	authGroup := app.Group("/auth")
	var authenticate fiber.Handler
	switch cfg.Mode {
	case config.ModeSession:
		authenticate = cfg.Authenticator.Session(cfg.Sessions)
		authGroup.Post("/login", cfg.Session.Login)
		authGroup.Post("/logout", cfg.Session.Logout)
	default:
		authenticate = cfg.Authenticator.Bearer()
		authGroup.Post("/login", cfg.Auth.Login)
		authGroup.Post("/refresh", cfg.Auth.Refresh)
		authGroup.Post("/logout", cfg.Auth.Logout)
	}

	api := app.Group("/api", authenticate)
	api.Get("/debug/context", cfg.Identity.DebugContext)
	api.Get("/me", auth.RequireAuthenticated(), cfg.Identity.Me)
	if cfg.Admin != nil {
		api.Post("/admin/sweep", auth.RequireRole(domain.RoleAdmin), cfg.Admin.Sweep)
	}
}
