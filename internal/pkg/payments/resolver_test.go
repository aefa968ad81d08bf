package payments

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeSessionLister struct {
	sessions []CheckoutSession
	err      error
	calls    int
}

func (f *fakeSessionLister) ListCheckoutSessions(ctx context.Context, paymentIntentID string) ([]CheckoutSession, error) {
	f.calls++
	return f.sessions, f.err
}

type fakeCache struct {
	data map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string]string{}}
}

func (f *fakeCache) Get(key string) (string, error) {
	return f.data[key], nil
}

func (f *fakeCache) Set(key string, value interface{}, expiration time.Duration) error {
	f.data[key] = value.(string)
	return nil
}

func TestResolverDirectMetadata(t *testing.T) {
	lister := &fakeSessionLister{}
	r := NewResolver(lister, nil)

	ev := &WebhookEvent{
		Type:       "checkout.session.completed",
		ObjectID:   "cs_1",
		ObjectType: "checkout.session",
		Metadata:   map[string]string{"orderId": "order-1", "userId": "12"},
	}

	rc, err := r.Resolve(context.Background(), ev)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if rc.OrderID != "order-1" || rc.UserID != 12 {
		t.Fatalf("unexpected context: %+v", rc)
	}
	if lister.calls != 0 {
		t.Fatalf("direct metadata must not hit the provider, got %d calls", lister.calls)
	}
}

func TestResolverDirectMetadata_Incomplete(t *testing.T) {
	r := NewResolver(&fakeSessionLister{}, nil)

	tests := []struct {
		name     string
		metadata map[string]string
	}{
		{name: "missing orderId", metadata: map[string]string{"userId": "12"}},
		{name: "missing userId", metadata: map[string]string{"orderId": "order-1"}},
		{name: "non numeric userId", metadata: map[string]string{"orderId": "order-1", "userId": "abc"}},
		{name: "zero userId", metadata: map[string]string{"orderId": "order-1", "userId": "0"}},
		{name: "empty", metadata: nil},
	}

	for _, tt := range tests {
		ev := &WebhookEvent{ObjectType: "checkout.session", ObjectID: "cs_1", Metadata: tt.metadata}
		_, err := r.Resolve(context.Background(), ev)
		var resErr *ResolutionError
		if !errors.As(err, &resErr) {
			t.Fatalf("%s: expected *ResolutionError, got %v", tt.name, err)
		}
		if resErr.Transient {
			t.Fatalf("%s: broken metadata will not self-heal, must be permanent", tt.name)
		}
	}
}

func TestResolverIndirectLookup(t *testing.T) {
	lister := &fakeSessionLister{
		sessions: []CheckoutSession{
			{ID: "cs_1", Metadata: map[string]string{"orderId": "order-9", "userId": "3"}},
		},
	}
	cache := newFakeCache()
	r := NewResolver(lister, cache)

	ev := &WebhookEvent{
		Type:            "payment_intent.succeeded",
		ObjectID:        "pi_9",
		ObjectType:      "payment_intent",
		PaymentIntentID: "pi_9",
	}

	rc, err := r.Resolve(context.Background(), ev)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if rc.OrderID != "order-9" || rc.UserID != 3 {
		t.Fatalf("unexpected context: %+v", rc)
	}
	if lister.calls != 1 {
		t.Fatalf("expected one provider lookup, got %d", lister.calls)
	}

	// Redelivery of the same intent resolves from cache without a lookup.
	rc2, err := r.Resolve(context.Background(), ev)
	if err != nil {
		t.Fatalf("Resolve (cached): %v", err)
	}
	if rc2 != rc {
		t.Fatalf("cached context differs: %+v vs %+v", rc2, rc)
	}
	if lister.calls != 1 {
		t.Fatalf("cached resolution must not hit the provider again, got %d calls", lister.calls)
	}
}

func TestResolverIndirectLookup_NoPaymentIntent(t *testing.T) {
	r := NewResolver(&fakeSessionLister{}, nil)

	ev := &WebhookEvent{Type: "payment_intent.succeeded", ObjectID: "", ObjectType: "payment_intent"}
	_, err := r.Resolve(context.Background(), ev)

	var resErr *ResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("expected *ResolutionError, got %v", err)
	}
	if resErr.Transient {
		t.Fatalf("an event without an intent reference can never resolve, must be permanent")
	}
}

func TestResolverIndirectLookup_ProviderError(t *testing.T) {
	lister := &fakeSessionLister{err: errors.New("connection refused")}
	r := NewResolver(lister, nil)

	ev := &WebhookEvent{Type: "payment_intent.succeeded", PaymentIntentID: "pi_1"}
	_, err := r.Resolve(context.Background(), ev)

	var resErr *ResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("expected *ResolutionError, got %v", err)
	}
	if !resErr.Transient {
		t.Fatalf("provider failures are retryable, must be transient")
	}
}

func TestResolverIndirectLookup_NoSessions(t *testing.T) {
	lister := &fakeSessionLister{sessions: nil}
	r := NewResolver(lister, nil)

	ev := &WebhookEvent{Type: "payment_intent.succeeded", PaymentIntentID: "pi_1"}
	_, err := r.Resolve(context.Background(), ev)

	var resErr *ResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("expected *ResolutionError, got %v", err)
	}
	if !resErr.Transient {
		t.Fatalf("a not-yet-propagated session is worth a redelivery, must be transient")
	}
}

func TestResolverIndirectLookup_SessionWithoutMetadata(t *testing.T) {
	lister := &fakeSessionLister{sessions: []CheckoutSession{{ID: "cs_1"}}}
	cache := newFakeCache()
	r := NewResolver(lister, cache)

	ev := &WebhookEvent{Type: "payment_intent.succeeded", PaymentIntentID: "pi_1"}
	_, err := r.Resolve(context.Background(), ev)

	var resErr *ResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("expected *ResolutionError, got %v", err)
	}
	if resErr.Transient {
		t.Fatalf("a session that never got metadata will not self-heal, must be permanent")
	}
	if len(cache.data) != 0 {
		t.Fatalf("failed resolutions must not be cached")
	}
}
