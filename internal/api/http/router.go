package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/investinkids/feedback-service/internal/api/http/handlers"
	"github.com/investinkids/feedback-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Reports        *handlers.ReportsHandler
	Attachments    *handlers.AttachmentsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle)

	api.Post("/reports", cfg.Reports.Submit)
	api.Get("/reports", cfg.Reports.List)
	api.Get("/reports/stats", cfg.Reports.Stats)
	api.Get("/reports/:id", cfg.Reports.Get)
	api.Post("/reports/:id/claim", cfg.Reports.Claim)
	api.Post("/reports/:id/complete", cfg.Reports.Complete)
	api.Delete("/reports/:id", auth.RequireAdmin(), cfg.Reports.Purge)

	api.Post("/attachments", cfg.Attachments.Upload)
	api.Get("/attachments/:ref/url", cfg.Attachments.DownloadURL)
}
