package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"pricewatch/internal/domain"
	applog "pricewatch/internal/log"
	"pricewatch/internal/services"
	"pricewatch/internal/validate"
)

type CompareHandler struct {
	Comp *services.ComparisonService
}

// Get computes the comparison for a group. With refresh=1 every member is
// refetched live; the call blocks for the duration of those fetches. A
// failed snapshot write is fail-open: the computed result is returned with
// persisted=false.
func (h *CompareHandler) Get(c *fiber.Ctx) error {
	groupID, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid group id")
	}
	refresh := c.Query("refresh") == "1"

	result, err := h.Comp.Compute(c.Context(), groupID, refresh)
	if err != nil {
		if errors.Is(err, domain.ErrPersistence) && result != nil {
			applog.Error(c, "compare.persist.fail", err, map[string]any{"group_id": groupID})
			return c.JSON(result)
		}
		return fail(c, err)
	}
	return c.JSON(result)
}

type quickCompareReq struct {
	OwnerID           string `json:"owner_id"`
	OwnArticle        string `json:"own_article"`
	CompetitorArticle string `json:"competitor_article"`
	Name              string `json:"name"`
}

// Quick is the one-shot compare: new group, two live-fetched members,
// metrics computed immediately.
func (h *CompareHandler) Quick(c *fiber.Ctx) error {
	var req quickCompareReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	owner, ok := validate.ID(req.OwnerID)
	if !ok {
		return badRequest(c, "invalid owner_id")
	}
	ownArticle, ok := validate.Article(req.OwnArticle)
	if !ok {
		return badRequest(c, "own_article must be 5-20 alphanumeric characters")
	}
	compArticle, ok := validate.Article(req.CompetitorArticle)
	if !ok {
		return badRequest(c, "competitor_article must be 5-20 alphanumeric characters")
	}
	name, ok := validate.Name(req.Name)
	if !ok {
		return badRequest(c, "name too long")
	}

	result, err := h.Comp.QuickCompare(c.Context(), owner, ownArticle, compArticle, name)
	if err != nil {
		if errors.Is(err, domain.ErrPersistence) && result != nil {
			return c.Status(fiber.StatusCreated).JSON(result)
		}
		return fail(c, err)
	}
	applog.Info(c, "compare.quick", map[string]any{"group_id": result.Group.ID, "owner": owner})
	return c.Status(fiber.StatusCreated).JSON(result)
}

// History lists the group's comparison snapshots within the window, newest
// first.
func (h *CompareHandler) History(c *fiber.Ctx) error {
	groupID, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid group id")
	}
	days := validate.Days(c.Query("days"), 30, 365)

	snaps, err := h.Comp.History(groupID, days)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"group_id": groupID, "days": days, "snapshots": snaps})
}
