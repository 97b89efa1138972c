package handlers

import (
	"github.com/gofiber/fiber/v2"

	"pricewatch/internal/services"
	"pricewatch/internal/validate"
)

type StatsHandler struct {
	Comp *services.ComparisonService
}

func (h *StatsHandler) User(c *fiber.Ctx) error {
	owner, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid owner id")
	}
	stats, err := h.Comp.UserStats(owner)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(stats)
}
