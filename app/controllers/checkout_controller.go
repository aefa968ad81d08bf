package controllers

import (
	"context"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ManuelReschke/OrderFox/app/models"
	"github.com/ManuelReschke/OrderFox/app/repository"
	"github.com/ManuelReschke/OrderFox/internal/pkg/env"
	"github.com/ManuelReschke/OrderFox/internal/pkg/payments"
	"github.com/ManuelReschke/OrderFox/internal/pkg/usercontext"
)

// Pricing on top of the product subtotal. Tax applies to the fee-inclusive
// amount.
const (
	serviceFeePercent = 2
	taxPercent        = 20
)

type checkoutItemRequest struct {
	ProductID uint `json:"product_id" validate:"required"`
	Quantity  int  `json:"quantity" validate:"required,min=1,max=999"`
}

type createCheckoutSessionRequest struct {
	Address string                `json:"address" validate:"required,max=2000"`
	Items   []checkoutItemRequest `json:"items" validate:"required,min=1,dive"`
}

// HandleCreateCheckoutSession creates a pending order and opens a hosted
// payment session for it. The order/user join keys travel as session
// metadata and come back through the webhook.
func HandleCreateCheckoutSession(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	var req createCheckoutSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Malformed JSON body"})
	}
	if err := validator.New().Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": err.Error()})
	}

	productIDs := make([]uint, 0, len(req.Items))
	for _, item := range req.Items {
		productIDs = append(productIDs, item.ProductID)
	}
	products, err := repository.GetGlobalFactory().GetProductRepository().GetActiveByIDs(productIDs)
	if err != nil {
		log.Printf("checkout: product lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "product_lookup_failed"})
	}
	productsByID := make(map[uint]models.Product, len(products))
	for _, p := range products {
		productsByID[p.ID] = p
	}

	var subtotal int64
	orderItems := make([]models.OrderItem, 0, len(req.Items))
	lineItems := make([]payments.CheckoutLineItem, 0, len(req.Items))
	for _, item := range req.Items {
		product, ok := productsByID[item.ProductID]
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   "unknown_product",
				"message": "Product " + strconv.FormatUint(uint64(item.ProductID), 10) + " does not exist or is inactive",
			})
		}
		subtotal += product.OfferPriceCents * int64(item.Quantity)
		orderItems = append(orderItems, models.OrderItem{
			ProductID:      product.ID,
			ProductName:    product.Name,
			UnitPriceCents: product.OfferPriceCents,
			Quantity:       item.Quantity,
		})
		lineItems = append(lineItems, payments.CheckoutLineItem{
			Name:            product.Name,
			Currency:        product.Currency,
			UnitAmountCents: product.OfferPriceCents,
			Quantity:        item.Quantity,
		})
	}

	order := &models.Order{
		PublicID:      uuid.NewString(),
		UserID:        userCtx.UserID,
		Address:       req.Address,
		AmountCents:   computeOrderTotalCents(subtotal),
		Currency:      "usd",
		PaymentMethod: models.PaymentMethodStripe,
		Paid:          false,
		Items:         orderItems,
	}
	if err := repository.GetGlobalFactory().GetOrderRepository().Create(order); err != nil {
		log.Printf("checkout: order create failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "order_create_failed"})
	}

	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	client := payments.NewStripeClientFromEnv()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	session, err := client.CreateCheckoutSession(ctx, payments.CreateCheckoutSessionParams{
		SuccessURL: base + "/order-placed",
		CancelURL:  base + "/cart",
		LineItems:  lineItems,
		Metadata: map[string]string{
			payments.MetadataKeyOrderID: order.PublicID,
			payments.MetadataKeyUserID:  strconv.FormatUint(uint64(userCtx.UserID), 10),
		},
		IdempotencyKey: uuid.NewString(),
	})
	if err != nil {
		// The pending order stays; the session-expired webhook (or no webhook
		// at all) means it is cleaned up or simply never paid.
		log.Printf("checkout: session create failed for order %s: %v", order.PublicID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "checkout_session_failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":  true,
		"order_id": order.PublicID,
		"url":      session.URL,
	})
}

// computeOrderTotalCents applies the service fee and then tax on the
// fee-inclusive amount, flooring at each step.
func computeOrderTotalCents(subtotalCents int64) int64 {
	fee := subtotalCents * serviceFeePercent / 100
	afterFee := subtotalCents + fee
	tax := afterFee * taxPercent / 100
	return afterFee + tax
}
