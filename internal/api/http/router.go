package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-analytics/internal/api/http/handlers"
	"github.com/spec-kit/support-analytics/internal/auth"
	"github.com/spec-kit/support-analytics/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Analytics      *handlers.AnalyticsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/organizations/register", cfg.Users.RegisterOrganization)
	authGroup.Post("/login", cfg.Users.Login)

	authProtected := authGroup.Group("", cfg.AuthMiddleware.Handle)
	authProtected.Post("/users/register", auth.RequireRole(domain.UserRoleAdmin), cfg.Users.RegisterUser)
	authProtected.Post("/password/change", cfg.Users.ChangePassword)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id/status", cfg.Tickets.UpdateStatus)
	tickets.Patch("/:id/priority", cfg.Tickets.UpdatePriority)
	tickets.Patch("/:id/assignee", cfg.Tickets.AssignTicket)
	tickets.Post("/:id/first-response", cfg.Tickets.MarkFirstResponse)

	analytics := app.Group("/analytics", cfg.AuthMiddleware.Handle)
	analytics.Get("/time-series", cfg.Analytics.TimeSeries)
	analytics.Get("/aggregations", cfg.Analytics.Aggregations)
	analytics.Get("/distribution/:field", cfg.Analytics.Distribution)
	analytics.Get("/group-by", cfg.Analytics.GroupBy)
	analytics.Get("/percentiles", cfg.Analytics.Percentiles)
	analytics.Get("/dashboard", cfg.Analytics.Dashboard)
	analytics.Get("/dashboard/overview", cfg.Analytics.DashboardOverview)
	analytics.Get("/performance", cfg.Analytics.Performance)
	analytics.Get("/export", cfg.Analytics.Export)
	analytics.Get("/cache/stats", auth.RequireRole(domain.UserRoleAdmin), cfg.Analytics.CacheStats)
	analytics.Post("/cache/invalidate", auth.RequireRole(domain.UserRoleAdmin), cfg.Analytics.InvalidateCache)
}
