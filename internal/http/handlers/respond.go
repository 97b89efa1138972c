package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"pricewatch/internal/domain"
	applog "pricewatch/internal/log"
	"pricewatch/internal/repos"
)

// fail maps engine errors onto HTTP statuses with a uniform JSON body.
func fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrProductNotFound), errors.Is(err, domain.ErrGroupNotFound), repos.IsNotFound(err):
		status = fiber.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateMember):
		status = fiber.StatusConflict
	case errors.Is(err, domain.ErrInsufficientMembers):
		status = fiber.StatusUnprocessableEntity
	}
	if status == fiber.StatusInternalServerError {
		applog.Error(c, "server.error", err, nil)
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}
