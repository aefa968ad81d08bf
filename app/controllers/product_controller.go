package controllers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/ManuelReschke/OrderFox/app/repository"
	"github.com/ManuelReschke/OrderFox/internal/pkg/metrics/counter"
)

// HandleListProducts returns the active catalog, newest first.
func HandleListProducts(c *fiber.Ctx) error {
	offset, limit := parsePagination(c)

	repo := repository.GetGlobalFactory().GetProductRepository()
	products, err := repo.List(offset, limit)
	if err != nil {
		log.Printf("products: list failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "product_list_failed"})
	}
	total, err := repo.Count()
	if err != nil {
		log.Printf("products: count failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "product_list_failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"products": products,
		"total":    total,
		"offset":   offset,
		"limit":    limit,
	})
}

// HandleGetProduct returns one product and buffers a view count increment.
func HandleGetProduct(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_product_id"})
	}

	product, err := repository.GetGlobalFactory().GetProductRepository().GetByID(uint(id))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "product_not_found"})
	}
	if err != nil {
		log.Printf("products: lookup failed for %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "product_lookup_failed"})
	}
	if !product.IsActive {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "product_not_found"})
	}

	// Best effort, a lost view count never fails the request.
	if err := counter.AddProductView(product.ID); err != nil {
		log.Printf("products: view counter failed for %d: %v", product.ID, err)
	}

	return c.Status(fiber.StatusOK).JSON(product)
}
