package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/mail-service/internal/api/http/handlers"
	"github.com/spec-kit/mail-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Auth    *handlers.AuthHandler
	Emails  *handlers.EmailsHandler
	Metrics fiber.Handler
	Guard   *auth.SessionGuard
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics)
	}

	app.Get("/", cfg.Auth.Index)
	app.Get("/check_auth", cfg.Auth.CheckAuth)
	app.Post("/register", cfg.Auth.Register)
	app.Post("/login", cfg.Auth.Login)
	app.Post("/logout", cfg.Auth.Logout)

	guard := cfg.Guard.Handle
	app.Post("/change-password", guard, cfg.Auth.ChangePassword)
	app.Get("/users", guard, cfg.Auth.ListUsers)

	emails := app.Group("/emails", guard)
	emails.Get("/", cfg.Emails.Inbox())
	emails.Get("/sent", cfg.Emails.Sent())
	emails.Get("/read", cfg.Emails.Read())
	emails.Get("/received", cfg.Emails.Received())
	emails.Get("/spam", cfg.Emails.Spam())
	emails.Get("/archived", cfg.Emails.Archived())
	emails.Get("/:id", cfg.Emails.GetEmail)

	app.Post("/send_email", guard, cfg.Emails.SendEmail)
	app.Post("/email/:id/action", guard, cfg.Emails.ApplyAction)
}
