package payments

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ManuelReschke/OrderFox/app/models"
	"gorm.io/gorm"
)

// ProviderStripe tags events and webhook log rows from Stripe.
const ProviderStripe = "stripe"

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
}

// Service applies verified, resolved payment events to order and user state.
// It holds no state across calls; all idempotency lives in the conditional
// store writes, so concurrent or redelivered events converge on the same
// terminal order state.
type Service struct {
	repo Repository
}

// NewService creates a reconciliation service from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// NewServiceFromDB creates a reconciliation service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db))
}

// Apply performs exactly one of mark-paid, delete-pending or no-op for the
// given context and outcome.
//
// Paid marks the order and then clears the user's cart; the cart is never
// touched when the order update did not happen, so a failure can not split
// the pair. An already-paid order re-runs only the idempotent cart clear and
// reports success. Failed/Expired deletes
// the order only while unpaid; a paid order is terminal and the delete is
// rejected as a policy violation.
func (s *Service) Apply(ctx context.Context, rc ReconciliationContext, outcome Outcome) (*Result, error) {
	_ = ctx
	if strings.TrimSpace(rc.OrderID) == "" || rc.UserID == 0 {
		return nil, &ResolutionError{Reason: "reconciliation context is incomplete"}
	}

	switch outcome {
	case OutcomeUnhandled:
		return &Result{Status: StatusIgnored, OrderID: rc.OrderID, UserID: rc.UserID}, nil

	case OutcomePaid:
		return s.applyPaid(rc)

	case OutcomeFailed, OutcomeExpired:
		return s.applyFailed(rc)

	default:
		return nil, fmt.Errorf("unknown payment outcome: %q", outcome)
	}
}

func (s *Service) applyPaid(rc ReconciliationContext) (*Result, error) {
	mark, err := s.repo.MarkOrderPaid(rc.OrderID)
	if err != nil {
		return nil, &StoreError{Op: "order paid update", Err: err}
	}

	switch mark {
	case MarkPaidUpdated:
		if err := s.repo.ClearUserCart(rc.UserID); err != nil {
			// The order is committed as paid; surface the cart failure so the
			// provider redelivers and the idempotent retry finishes the pair.
			return nil, &StoreError{Op: "cart clear", Err: err}
		}
		return &Result{Status: StatusPaid, OrderID: rc.OrderID, UserID: rc.UserID, CartCleared: true}, nil

	case MarkPaidAlready:
		// A previous attempt may have flipped the flag and then lost the
		// cart clear. Re-clearing is idempotent and finishes the pair; the
		// duplicate gate upstream keeps cleanly processed events from
		// reaching this path at all.
		if err := s.repo.ClearUserCart(rc.UserID); err != nil {
			return nil, &StoreError{Op: "cart clear", Err: err}
		}
		return &Result{Status: StatusAlreadyPaid, OrderID: rc.OrderID, UserID: rc.UserID, CartCleared: true}, nil

	default:
		return nil, notFoundError("order paid update")
	}
}

func (s *Service) applyFailed(rc ReconciliationContext) (*Result, error) {
	res, err := s.repo.DeleteOrderIfUnpaid(rc.OrderID)
	if err != nil {
		return nil, &StoreError{Op: "order delete", Err: err}
	}

	switch res {
	case DeleteDone:
		return &Result{Status: StatusDeleted, OrderID: rc.OrderID, UserID: rc.UserID}, nil

	case DeleteRejectedPaid:
		return nil, &PolicyViolation{
			OrderID: rc.OrderID,
			Reason:  "failure event for an order already marked paid",
		}

	default:
		return nil, notFoundError("order delete")
	}
}

// RecordWebhookEvent persists webhook payloads idempotently. Events without
// a provider id are keyed by a payload hash so redeliveries still collapse.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.PaymentWebhookEvent, error) {
	_ = ctx
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.PaymentWebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}
