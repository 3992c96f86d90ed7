package http

import (
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/support-desk/internal/api/http/handlers"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Profile        *handlers.ProfileHandler
	SupportTickets *handlers.SupportTicketsHandler
	Attachments    *handlers.AttachmentsHandler
	AdminTickets   *handlers.AdminTicketsHandler
	AdminUsers     *handlers.AdminUsersHandler
	AuthMiddleware *auth.AuthMiddleware
	RateLimiter    *RateLimiter
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry(), promhttp.HandlerOpts{})))

	authGroup := app.Group("/auth", cfg.RateLimiter.Handle)
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/password/forgot", cfg.Auth.ForgotPassword)
	authGroup.Post("/password/reset", cfg.Auth.ResetPassword)
	authGroup.Post("/logout", cfg.AuthMiddleware.Handle, cfg.Auth.Logout)

	me := app.Group("/me", cfg.RateLimiter.Handle, cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	me.Get("/", cfg.Profile.Me)
	me.Put("/", cfg.Profile.UpdateMe)

	support := app.Group("/support", cfg.RateLimiter.Handle, cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	support.Post("/make-enquiry", cfg.SupportTickets.MakeEnquiry)
	support.Get("/tickets", cfg.SupportTickets.ListMyTickets)
	support.Get("/tickets/:id", cfg.SupportTickets.GetTicket)
	support.Post("/tickets/:id/comments", cfg.SupportTickets.AddComment)
	support.Get("/attachment/url/*", cfg.Attachments.SignedURL)
	support.Get("/attachment/stream/*", cfg.Attachments.Stream)

	admin := app.Group("/admin", cfg.RateLimiter.Handle, cfg.AuthMiddleware.Handle, auth.RequireAdmin())
	admin.Get("/tickets", cfg.AdminTickets.ListTickets)
	admin.Get("/tickets/statistics", cfg.AdminTickets.Statistics)
	admin.Get("/tickets/:id", cfg.AdminTickets.GetTicket)
	admin.Patch("/tickets/:id/status", cfg.AdminTickets.UpdateStatus)
	admin.Patch("/tickets/:id/assign", cfg.AdminTickets.Assign)
	admin.Post("/tickets/:id/comments", cfg.AdminTickets.AddComment)
	admin.Delete("/tickets/:id", cfg.AdminTickets.DeleteTicket)

	admin.Get("/users", cfg.AdminUsers.ListUsers)
	admin.Get("/users/:id", cfg.AdminUsers.GetUser)
	admin.Patch("/users/:id/role", cfg.AdminUsers.UpdateRole)
	admin.Patch("/users/:id/status", cfg.AdminUsers.UpdateStatus)
	admin.Delete("/users/:id", cfg.AdminUsers.DeleteUser)
}
