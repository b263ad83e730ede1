package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fieldkit/locate-service/internal/api/http/handlers"
	"github.com/fieldkit/locate-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Messages       *handlers.MessagesHandler
	Users          *handlers.UsersHandler
	AuthMiddleware *auth.AuthMiddleware
	UploadDir      string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/debug/metrics", cfg.Health.Metrics)

	if cfg.UploadDir != "" {
		app.Static("/uploads", cfg.UploadDir)
	}

	api := app.Group("/api", cfg.AuthMiddleware.Handle)

	api.Get("/me", cfg.Users.GetProfile)
	api.Put("/me", cfg.Users.UpdateProfile)
	api.Put("/me/device-token", cfg.Users.RegisterDeviceToken)

	tickets := api.Group("/tickets", auth.RequireLocator())
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Post("/:id/close", cfg.Tickets.CloseTicket)
	tickets.Post("/:id/en-route", cfg.Tickets.SetEnRoute)

	tickets.Get("/:id/messages", cfg.Messages.ListMessages)
	tickets.Post("/:id/messages", cfg.Messages.SendMessage)
	tickets.Get("/:id/messages/stream", cfg.Messages.StreamThread)
	tickets.Post("/:id/attachments", cfg.Messages.UploadAttachment)
}
