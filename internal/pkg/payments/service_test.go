package payments

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ManuelReschke/OrderFox/app/models"
)

type fakeRepository struct {
	markResult   MarkPaidResult
	markErr      error
	deleteResult DeleteResult
	deleteErr    error
	clearCartErr error

	markedOrders   []string
	deletedOrders  []string
	clearedCarts   []uint
	storedEvents   []*models.PaymentWebhookEvent
	processedIDs   []uint
	processedErrs  []string
	existingEvent  *models.PaymentWebhookEvent
	createEventErr error
}

func (f *fakeRepository) MarkOrderPaid(publicID string) (MarkPaidResult, error) {
	f.markedOrders = append(f.markedOrders, publicID)
	return f.markResult, f.markErr
}

func (f *fakeRepository) DeleteOrderIfUnpaid(publicID string) (DeleteResult, error) {
	f.deletedOrders = append(f.deletedOrders, publicID)
	return f.deleteResult, f.deleteErr
}

func (f *fakeRepository) ClearUserCart(userID uint) error {
	f.clearedCarts = append(f.clearedCarts, userID)
	return f.clearCartErr
}

func (f *fakeRepository) CreateWebhookEventIfNotExists(event *models.PaymentWebhookEvent) (bool, *models.PaymentWebhookEvent, error) {
	if f.createEventErr != nil {
		return false, nil, f.createEventErr
	}
	if f.existingEvent != nil {
		return false, f.existingEvent, nil
	}
	f.storedEvents = append(f.storedEvents, event)
	return true, event, nil
}

func (f *fakeRepository) MarkWebhookProcessed(id uint, processingError string) error {
	f.processedIDs = append(f.processedIDs, id)
	f.processedErrs = append(f.processedErrs, processingError)
	return nil
}

func TestServiceApply_PaidMarksOrderAndClearsCart(t *testing.T) {
	repo := &fakeRepository{markResult: MarkPaidUpdated}
	svc := NewService(repo)

	res, err := svc.Apply(context.Background(), ReconciliationContext{OrderID: "order-1", UserID: 7}, OutcomePaid)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.Status != StatusPaid || !res.CartCleared {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(repo.markedOrders) != 1 || repo.markedOrders[0] != "order-1" {
		t.Fatalf("expected one paid update for order-1, got %v", repo.markedOrders)
	}
	if len(repo.clearedCarts) != 1 || repo.clearedCarts[0] != 7 {
		t.Fatalf("expected cart clear for user 7, got %v", repo.clearedCarts)
	}
}

func TestServiceApply_PaidAlreadyPaidFinishesCartClear(t *testing.T) {
	repo := &fakeRepository{markResult: MarkPaidAlready}
	svc := NewService(repo)

	res, err := svc.Apply(context.Background(), ReconciliationContext{OrderID: "order-1", UserID: 7}, OutcomePaid)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.Status != StatusAlreadyPaid {
		t.Fatalf("unexpected result: %+v", res)
	}
	// A reprocessed event whose first attempt lost the cart clear must
	// still converge on an empty cart.
	if len(repo.clearedCarts) != 1 || repo.clearedCarts[0] != 7 {
		t.Fatalf("expected idempotent cart clear, got %v", repo.clearedCarts)
	}
	if len(repo.markedOrders) != 1 {
		t.Fatalf("expected exactly one conditional paid update, got %v", repo.markedOrders)
	}
}

func TestServiceApply_PaidOrderMissing(t *testing.T) {
	repo := &fakeRepository{markResult: MarkPaidNotFound}
	svc := NewService(repo)

	_, err := svc.Apply(context.Background(), ReconciliationContext{OrderID: "order-x", UserID: 7}, OutcomePaid)
	var storeErr *StoreError
	if !errors.As(err, &storeErr) || !storeErr.NotFound {
		t.Fatalf("expected not-found *StoreError, got %v", err)
	}
}

func TestServiceApply_PaidCartClearFailureSurfaces(t *testing.T) {
	repo := &fakeRepository{markResult: MarkPaidUpdated, clearCartErr: errors.New("deadlock")}
	svc := NewService(repo)

	_, err := svc.Apply(context.Background(), ReconciliationContext{OrderID: "order-1", UserID: 7}, OutcomePaid)
	var storeErr *StoreError
	if !errors.As(err, &storeErr) || storeErr.NotFound {
		t.Fatalf("expected retryable *StoreError, got %v", err)
	}
}

func TestServiceApply_FailedDeletesPendingOrder(t *testing.T) {
	for _, outcome := range []Outcome{OutcomeFailed, OutcomeExpired} {
		repo := &fakeRepository{deleteResult: DeleteDone}
		svc := NewService(repo)

		res, err := svc.Apply(context.Background(), ReconciliationContext{OrderID: "order-2", UserID: 5}, outcome)
		if err != nil {
			t.Fatalf("%s: Apply: %v", outcome, err)
		}
		if res.Status != StatusDeleted {
			t.Fatalf("%s: unexpected result: %+v", outcome, res)
		}
		if len(repo.deletedOrders) != 1 || repo.deletedOrders[0] != "order-2" {
			t.Fatalf("%s: expected delete of order-2, got %v", outcome, repo.deletedOrders)
		}
		if len(repo.clearedCarts) != 0 {
			t.Fatalf("%s: failure outcomes must not touch the cart", outcome)
		}
	}
}

func TestServiceApply_FailedOnPaidOrderIsPolicyViolation(t *testing.T) {
	repo := &fakeRepository{deleteResult: DeleteRejectedPaid}
	svc := NewService(repo)

	_, err := svc.Apply(context.Background(), ReconciliationContext{OrderID: "order-3", UserID: 5}, OutcomeFailed)
	var policyErr *PolicyViolation
	if !errors.As(err, &policyErr) {
		t.Fatalf("expected *PolicyViolation, got %v", err)
	}
	if policyErr.OrderID != "order-3" {
		t.Fatalf("violation must name the order, got %+v", policyErr)
	}
}

func TestServiceApply_FailedOrderMissing(t *testing.T) {
	repo := &fakeRepository{deleteResult: DeleteNotFound}
	svc := NewService(repo)

	_, err := svc.Apply(context.Background(), ReconciliationContext{OrderID: "order-x", UserID: 5}, OutcomeFailed)
	var storeErr *StoreError
	if !errors.As(err, &storeErr) || !storeErr.NotFound {
		t.Fatalf("expected not-found *StoreError, got %v", err)
	}
}

func TestServiceApply_UnhandledIsIgnoredWithoutWrites(t *testing.T) {
	repo := &fakeRepository{}
	svc := NewService(repo)

	res, err := svc.Apply(context.Background(), ReconciliationContext{OrderID: "order-1", UserID: 7}, OutcomeUnhandled)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.Status != StatusIgnored {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(repo.markedOrders)+len(repo.deletedOrders)+len(repo.clearedCarts) != 0 {
		t.Fatalf("unhandled outcomes must not mutate anything")
	}
}

func TestServiceApply_IncompleteContext(t *testing.T) {
	svc := NewService(&fakeRepository{})

	_, err := svc.Apply(context.Background(), ReconciliationContext{OrderID: "", UserID: 7}, OutcomePaid)
	var resErr *ResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("expected *ResolutionError for missing order id, got %v", err)
	}

	_, err = svc.Apply(context.Background(), ReconciliationContext{OrderID: "order-1", UserID: 0}, OutcomePaid)
	if !errors.As(err, &resErr) {
		t.Fatalf("expected *ResolutionError for missing user id, got %v", err)
	}
}

func TestServiceRecordWebhookEvent(t *testing.T) {
	repo := &fakeRepository{}
	svc := NewService(repo)

	created, stored, err := svc.RecordWebhookEvent(context.Background(), WebhookEventInput{
		Provider:        "Stripe",
		ProviderEventID: "evt_1",
		EventType:       "payment_intent.succeeded",
		PayloadJSON:     `{"id":"evt_1"}`,
	})
	if err != nil {
		t.Fatalf("RecordWebhookEvent: %v", err)
	}
	if !created || stored == nil {
		t.Fatalf("expected new event to be created")
	}
	if stored.Provider != "stripe" {
		t.Fatalf("provider must be normalized lowercase, got %q", stored.Provider)
	}
}

func TestServiceRecordWebhookEvent_MissingIDFallsBackToHash(t *testing.T) {
	repo := &fakeRepository{}
	svc := NewService(repo)

	_, stored, err := svc.RecordWebhookEvent(context.Background(), WebhookEventInput{
		Provider:    "stripe",
		EventType:   "checkout.session.completed",
		PayloadJSON: `{"type":"checkout.session.completed"}`,
	})
	if err != nil {
		t.Fatalf("RecordWebhookEvent: %v", err)
	}
	if !strings.HasPrefix(stored.ProviderEventID, "hash:") {
		t.Fatalf("id-less events must be keyed by payload hash, got %q", stored.ProviderEventID)
	}
}

func TestServiceRecordWebhookEvent_Duplicate(t *testing.T) {
	existing := &models.PaymentWebhookEvent{ID: 11, Provider: "stripe", ProviderEventID: "evt_1"}
	repo := &fakeRepository{existingEvent: existing}
	svc := NewService(repo)

	created, stored, err := svc.RecordWebhookEvent(context.Background(), WebhookEventInput{
		Provider:        "stripe",
		ProviderEventID: "evt_1",
		EventType:       "payment_intent.succeeded",
		PayloadJSON:     `{}`,
	})
	if err != nil {
		t.Fatalf("RecordWebhookEvent: %v", err)
	}
	if created {
		t.Fatalf("redelivered event must not count as created")
	}
	if stored.ID != 11 {
		t.Fatalf("expected the stored row back, got %+v", stored)
	}
}

func TestServiceMarkWebhookProcessed(t *testing.T) {
	repo := &fakeRepository{}
	svc := NewService(repo)

	if err := svc.MarkWebhookProcessed(context.Background(), 0, nil); err == nil {
		t.Fatalf("expected error for zero event id")
	}

	if err := svc.MarkWebhookProcessed(context.Background(), 42, errors.New("boom")); err != nil {
		t.Fatalf("MarkWebhookProcessed: %v", err)
	}
	if len(repo.processedIDs) != 1 || repo.processedIDs[0] != 42 {
		t.Fatalf("expected event 42 marked, got %v", repo.processedIDs)
	}
	if repo.processedErrs[0] != "boom" {
		t.Fatalf("processing error must be recorded, got %q", repo.processedErrs[0])
	}
}
