package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

type HealthHandler struct {
	services map[string]bool
}

// NewHealthHandler takes the configured state of each vendor integration.
func NewHealthHandler(services map[string]bool) *HealthHandler {
	return &HealthHandler{services: services}
}

// Root handles GET /
func (h *HealthHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"timestamp": time.Now().UnixMilli()})
}

// Health handles GET /health
// @Summary      Health check
// @Description  Service status and which integrations are configured
// @Tags         Health
// @Produce      json
// @Success      200 {object} map[string]interface{}
// @Router       /health [get]
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":   "ok",
		"services": h.services,
	})
}
