package handlers

import (
	"github.com/gofiber/fiber/v2"

	"pricewatch/internal/services"
)

type JobHandler struct {
	Collector *services.Collector
}

// Collect triggers a collector run. A run already in progress yields 409;
// triggers are never queued.
func (h *JobHandler) Collect(c *fiber.Ctx) error {
	summary, err := h.Collector.Run(c.Context())
	if err != nil {
		return fail(c, err)
	}
	if summary.Skipped {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":   "collector run already in progress",
			"summary": summary,
		})
	}
	return c.JSON(summary)
}
