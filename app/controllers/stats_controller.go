package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/OrderFox/internal/pkg/statistics"
)

// HandleGetStats returns cached shop statistics.
func HandleGetStats(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(statistics.GetStatistics())
}
