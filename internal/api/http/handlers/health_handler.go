package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/investinkids/feedback-service/internal/observability"
)

// HealthHandler exposes liveness and readiness probes.
type HealthHandler struct {
	checks  map[string]func(context.Context) error
	metrics *observability.Metrics
}

// NewHealthHandler constructs handler with named readiness checks.
func NewHealthHandler(checks map[string]func(context.Context) error, metrics *observability.Metrics) *HealthHandler {
	return &HealthHandler{checks: checks, metrics: metrics}
}

// Live GET /health/live.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Ready GET /health/ready. Runs every registered dependency check.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	result := fiber.Map{}
	healthy := true
	for name, check := range h.checks {
		if err := check(c.UserContext()); err != nil {
			result[name] = err.Error()
			healthy = false
		} else {
			result[name] = "ok"
		}
	}
	if !healthy {
		return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "checks": result})
	}
	return c.JSON(fiber.Map{"status": "ok", "checks": result})
}

// Metrics GET /health/metrics. Debug counters, not a scrape format.
func (h *HealthHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.metrics.Snapshot()})
}
