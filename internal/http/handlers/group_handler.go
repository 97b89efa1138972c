package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "pricewatch/internal/log"
	"pricewatch/internal/services"
	"pricewatch/internal/validate"
)

type GroupHandler struct {
	Comp *services.ComparisonService
}

type createGroupReq struct {
	OwnerID string `json:"owner_id"`
	Name    string `json:"name"`
	Type    string `json:"type"`
}

func (h *GroupHandler) Create(c *fiber.Ctx) error {
	var req createGroupReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	owner, ok := validate.ID(req.OwnerID)
	if !ok {
		return badRequest(c, "invalid owner_id")
	}
	name, ok := validate.Name(req.Name)
	if !ok {
		return badRequest(c, "name too long")
	}
	groupType, ok := validate.GroupType(req.Type)
	if !ok {
		return badRequest(c, "type must be comparison, variants or similar")
	}

	g, err := h.Comp.CreateGroup(owner, name, groupType)
	if err != nil {
		return fail(c, err)
	}
	applog.Info(c, "group.created", map[string]any{"group_id": g.ID, "owner": owner})
	return c.Status(fiber.StatusCreated).JSON(g)
}

type addMemberReq struct {
	Article   string `json:"article"`
	Role      string `json:"role"`
	ScrapeNow bool   `json:"scrape_now"`
}

func (h *GroupHandler) AddMember(c *fiber.Ctx) error {
	groupID, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid group id")
	}
	var req addMemberReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	article, ok := validate.Article(req.Article)
	if !ok {
		return badRequest(c, "article must be 5-20 alphanumeric characters")
	}
	role, ok := validate.Role(req.Role)
	if !ok {
		return badRequest(c, "role must be own, competitor or item")
	}

	m, err := h.Comp.AddMember(c.Context(), groupID, article, role, req.ScrapeNow)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(m)
}
