package controllers

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/OrderFox/app/repository"
	"github.com/ManuelReschke/OrderFox/internal/pkg/cache"
	"github.com/ManuelReschke/OrderFox/internal/pkg/database"
	"github.com/ManuelReschke/OrderFox/internal/pkg/env"
	"github.com/ManuelReschke/OrderFox/internal/pkg/mail"
	"github.com/ManuelReschke/OrderFox/internal/pkg/payments"
)

// HandleStripeWebhook receives signed payment notifications and applies them
// to order/user state. The body is verified raw, exactly as received; any
// parsing before the signature check would invalidate it.
func HandleStripeWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := strings.TrimSpace(c.Get("Stripe-Signature"))
	secret := env.GetEnv("STRIPE_WEBHOOK_SECRET", "")

	// Verification comes before any write. A forged or replayed payload must
	// leave zero traces in the store.
	if err := payments.VerifyWebhookSignature(rawBody, signature, secret, payments.DefaultSignatureTolerance, time.Now()); err != nil {
		log.Printf("stripe webhook rejected: %v", err)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	}

	ev, err := payments.ParseWebhookEvent(rawBody)
	if err != nil {
		log.Printf("stripe webhook payload invalid: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}

	svc := payments.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	created, stored, err := svc.RecordWebhookEvent(ctx, payments.WebhookEventInput{
		Provider:        payments.ProviderStripe,
		ProviderEventID: ev.ID,
		EventType:       ev.Type,
		PayloadJSON:     string(rawBody),
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}
	// Redeliveries of an event that already processed cleanly are acked
	// without re-running the engine. An event whose first attempt errored is
	// reprocessed; the engine's conditional writes keep that safe.
	if !created && stored.Processed() {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true, "duplicate": true})
	}

	outcome := payments.OutcomeForEventType(ev.Type)
	if outcome == payments.OutcomeUnhandled {
		log.Printf("stripe webhook: unhandled event type %s", ev.Type)
		_ = svc.MarkWebhookProcessed(ctx, stored.ID, nil)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true, "ignored": true})
	}

	resolver := payments.NewResolver(payments.NewStripeClientFromEnv(), cache.NewStore())
	rc, err := resolver.Resolve(ctx, ev)
	if err != nil {
		_ = svc.MarkWebhookProcessed(ctx, stored.ID, err)
		return respondReconcileError(c, ev, err)
	}

	result, applyErr := svc.Apply(ctx, rc, outcome)
	_ = svc.MarkWebhookProcessed(ctx, stored.ID, applyErr)
	if applyErr != nil {
		return respondReconcileError(c, ev, applyErr)
	}

	// Only the first paid transition sends a confirmation; redeliveries end
	// in StatusAlreadyPaid and stay silent.
	if result.Status == payments.StatusPaid {
		sendOrderConfirmation(rc)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true, "status": string(result.Status)})
}

// sendOrderConfirmation mails the customer after a successful payment. Best
// effort; the webhook is already acknowledged at this point and a mail
// failure must not trigger a redelivery.
func sendOrderConfirmation(rc payments.ReconciliationContext) {
	factory := repository.GetGlobalFactory()

	user, err := factory.GetUserRepository().GetByID(rc.UserID)
	if err != nil {
		log.Printf("stripe webhook: confirmation mail skipped, user %d lookup failed: %v", rc.UserID, err)
		return
	}
	order, err := factory.GetOrderRepository().GetByPublicID(rc.OrderID)
	if err != nil {
		log.Printf("stripe webhook: confirmation mail skipped, order %s lookup failed: %v", rc.OrderID, err)
		return
	}

	if err := mail.SendOrderConfirmation(user.Email, order); err != nil {
		log.Printf("stripe webhook: confirmation mail to user %d failed: %v", rc.UserID, err)
	}
}

// respondReconcileError maps resolution/engine failures to wire responses.
// Transient faults get a 5xx so the provider redelivers; caller-data-shaped
// faults get a 4xx and are logged loudly since redelivery can not fix them.
func respondReconcileError(c *fiber.Ctx, ev *payments.WebhookEvent, err error) error {
	var resolutionErr *payments.ResolutionError
	if errors.As(err, &resolutionErr) {
		if resolutionErr.Transient {
			log.Printf("stripe webhook %s (%s): retryable resolution failure: %v", ev.ID, ev.Type, err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "resolution_failed"})
		}
		log.Printf("stripe webhook %s (%s): ALERT permanent resolution failure: %v", ev.ID, ev.Type, err)
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "resolution_failed"})
	}

	var policyErr *payments.PolicyViolation
	if errors.As(err, &policyErr) {
		log.Printf("stripe webhook %s (%s): ALERT policy violation: %v", ev.ID, ev.Type, err)
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "policy_violation"})
	}

	var storeErr *payments.StoreError
	if errors.As(err, &storeErr) {
		if storeErr.NotFound {
			log.Printf("stripe webhook %s (%s): order not found: %v", ev.ID, ev.Type, err)
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "order_not_found"})
		}
		log.Printf("stripe webhook %s (%s): store failure: %v", ev.ID, ev.Type, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "store_failure"})
	}

	log.Printf("stripe webhook %s (%s): reconciliation failed: %v", ev.ID, ev.Type, err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "reconciliation_failed"})
}
