package controllers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/ManuelReschke/OrderFox/app/repository"
	"github.com/ManuelReschke/OrderFox/internal/pkg/usercontext"
)

// HandleListOrders returns the caller's orders, newest first.
func HandleListOrders(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	offset, limit := parsePagination(c)
	orderRepo := repository.GetGlobalFactory().GetOrderRepository()

	orders, err := orderRepo.GetByUserID(userCtx.UserID, offset, limit)
	if err != nil {
		log.Printf("orders: list failed for user %d: %v", userCtx.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "order_list_failed"})
	}
	total, err := orderRepo.CountByUserID(userCtx.UserID)
	if err != nil {
		log.Printf("orders: count failed for user %d: %v", userCtx.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "order_list_failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"orders": orders,
		"total":  total,
	})
}

// HandleGetOrder returns one of the caller's orders by its public id.
func HandleGetOrder(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	publicID := c.Params("publicID")
	order, err := repository.GetGlobalFactory().GetOrderRepository().GetByPublicID(publicID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "order_not_found"})
		}
		log.Printf("orders: lookup failed for %s: %v", publicID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "order_lookup_failed"})
	}
	if order.UserID != userCtx.UserID {
		// Do not leak existence of other users' orders.
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "order_not_found"})
	}

	return c.Status(fiber.StatusOK).JSON(order)
}
