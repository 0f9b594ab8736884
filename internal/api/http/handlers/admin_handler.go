package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ledgerkit/identity-service/internal/observability"
)

// AdminHandler exposes operator-only introspection endpoints.
type AdminHandler struct {
	metrics *observability.Metrics
}

// NewAdminHandler constructs handler.
func NewAdminHandler(metrics *observability.Metrics) *AdminHandler {
	return &AdminHandler{metrics: metrics}
}

// AuthOutcomes handles GET /admin/auth/outcomes, returning the internal
// authentication outcome counters.
func (h *AdminHandler) AuthOutcomes(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": fiber.Map{"outcomes": h.metrics.AuthOutcomes()}})
}
