package controllers

import (
	"errors"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/ManuelReschke/OrderFox/app/repository"
	"github.com/ManuelReschke/OrderFox/internal/pkg/usercontext"
)

type updateCartRequest struct {
	ProductID uint `json:"product_id" validate:"required"`
	Quantity  int  `json:"quantity" validate:"min=0,max=999"`
}

// HandleGetCart returns the caller's cart positions with a subtotal.
func HandleGetCart(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	items, err := repository.GetGlobalFactory().GetUserRepository().GetCartItems(userCtx.UserID)
	if err != nil {
		log.Printf("cart: load failed for user %d: %v", userCtx.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "cart_load_failed"})
	}

	var subtotal int64
	for _, item := range items {
		if item.Product != nil {
			subtotal += item.Product.OfferPriceCents * int64(item.Quantity)
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"items":          items,
		"subtotal_cents": subtotal,
	})
}

// HandleUpdateCart sets the quantity for one product position. Quantity 0
// removes the position.
func HandleUpdateCart(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	var req updateCartRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Malformed JSON body"})
	}
	if err := validator.New().Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": err.Error()})
	}

	userRepo := repository.GetGlobalFactory().GetUserRepository()
	if req.Quantity == 0 {
		if err := userRepo.RemoveCartItem(userCtx.UserID, req.ProductID); err != nil {
			log.Printf("cart: remove failed for user %d product %d: %v", userCtx.UserID, req.ProductID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "cart_update_failed"})
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true})
	}

	if _, err := repository.GetGlobalFactory().GetProductRepository().GetByID(req.ProductID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown_product"})
		}
		log.Printf("cart: product lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "cart_update_failed"})
	}

	if err := userRepo.SetCartItem(userCtx.UserID, req.ProductID, req.Quantity); err != nil {
		log.Printf("cart: set failed for user %d product %d: %v", userCtx.UserID, req.ProductID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "cart_update_failed"})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true})
}
