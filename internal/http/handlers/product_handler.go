package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "pricewatch/internal/log"
	"pricewatch/internal/services"
	"pricewatch/internal/validate"
)

type ProductHandler struct {
	Tracker *services.TrackerService
}

type registerProductReq struct {
	OwnerID string `json:"owner_id"`
	Article string `json:"article"`
}

// Register tracks a new product, fetching live data before the row is
// written. Blocks for the duration of one fetch.
func (h *ProductHandler) Register(c *fiber.Ctx) error {
	var req registerProductReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	owner, ok := validate.ID(req.OwnerID)
	if !ok {
		return badRequest(c, "invalid owner_id")
	}
	article, ok := validate.Article(req.Article)
	if !ok {
		return badRequest(c, "article must be 5-20 alphanumeric characters")
	}

	p, err := h.Tracker.Register(c.Context(), owner, article)
	if err != nil {
		return fail(c, err)
	}
	applog.Info(c, "product.registered", map[string]any{"article": article, "owner": owner})
	return c.Status(fiber.StatusCreated).JSON(p)
}

// History returns the product's price snapshots, newest first. Failed rows
// are included only with include_failed=1.
func (h *ProductHandler) History(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid product id")
	}
	days := validate.Days(c.Query("days"), 30, 365)
	limit := validate.Limit(c.Query("limit"), 100, 1000)
	includeFailed := c.Query("include_failed") == "1"

	snaps, err := h.Tracker.PriceHistory(id, days, limit, includeFailed)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"product_id": id, "days": days, "snapshots": snaps})
}

// Average returns the rolling window aggregate. A window with no successful
// snapshots reports sample_count=0 with null avg/min/max, never zeros.
func (h *ProductHandler) Average(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid product id")
	}
	days := validate.Days(c.Query("days"), 7, 365)

	agg, err := h.Tracker.PriceAverage(id, days)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(agg)
}
