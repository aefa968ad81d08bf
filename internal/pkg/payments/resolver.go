package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"
)

const (
	// MetadataKeyOrderID and MetadataKeyUserID are the join keys the
	// checkout endpoint attaches to every session it opens.
	MetadataKeyOrderID = "orderId"
	MetadataKeyUserID  = "userId"

	resolvedContextCachePrefix = "payments:resolved:"
	resolvedContextCacheTTL    = 30 * time.Minute
)

// SessionLister is the single provider capability the resolver needs.
type SessionLister interface {
	ListCheckoutSessions(ctx context.Context, paymentIntentID string) ([]CheckoutSession, error)
}

// ContextCache caches resolved contexts across redeliveries of the same
// payment intent. Implemented by the redis cache package; a nil cache is
// valid and simply disables caching.
type ContextCache interface {
	Get(key string) (string, error)
	Set(key string, value interface{}, expiration time.Duration) error
}

// Resolver turns a verified webhook event into the order/user context the
// reconciler mutates against. It performs no writes beyond the cache.
type Resolver struct {
	sessions SessionLister
	cache    ContextCache
}

func NewResolver(sessions SessionLister, cache ContextCache) *Resolver {
	return &Resolver{sessions: sessions, cache: cache}
}

// Resolve supports two event shapes: checkout.session events carry the
// metadata directly; payment_intent events only reference the intent, so the
// originating session is looked up at the provider. A context with only one
// of the two join keys is rejected outright, a half-identified mutation is
// worse than a refused one.
func (r *Resolver) Resolve(ctx context.Context, ev *WebhookEvent) (ReconciliationContext, error) {
	if ev.HasDirectMetadata() {
		return contextFromMetadata(ev.Metadata)
	}

	intentID := strings.TrimSpace(ev.PaymentIntentID)
	if intentID == "" {
		return ReconciliationContext{}, &ResolutionError{
			Reason: fmt.Sprintf("event %s carries neither metadata nor a payment intent", ev.Type),
		}
	}

	if cached, ok := r.cachedContext(intentID); ok {
		return cached, nil
	}

	sessions, err := r.sessions.ListCheckoutSessions(ctx, intentID)
	if err != nil {
		return ReconciliationContext{}, &ResolutionError{
			Reason:    fmt.Sprintf("session lookup for %s: %v", intentID, err),
			Transient: true,
		}
	}
	if len(sessions) == 0 {
		// The session may simply not have propagated provider-side yet.
		return ReconciliationContext{}, &ResolutionError{
			Reason:    "no checkout session for payment intent " + intentID,
			Transient: true,
		}
	}

	// Most recent first per provider list ordering.
	rc, err := contextFromMetadata(sessions[0].Metadata)
	if err != nil {
		return ReconciliationContext{}, err
	}
	r.storeContext(intentID, rc)
	return rc, nil
}

func contextFromMetadata(metadata map[string]string) (ReconciliationContext, error) {
	orderID := strings.TrimSpace(metadata[MetadataKeyOrderID])
	rawUserID := strings.TrimSpace(metadata[MetadataKeyUserID])

	if orderID == "" {
		return ReconciliationContext{}, &ResolutionError{Reason: "missing orderId in session metadata"}
	}
	if rawUserID == "" {
		return ReconciliationContext{}, &ResolutionError{Reason: "missing userId in session metadata"}
	}
	userID, err := strconv.ParseUint(rawUserID, 10, 32)
	if err != nil || userID == 0 {
		return ReconciliationContext{}, &ResolutionError{Reason: "invalid userId in session metadata: " + rawUserID}
	}

	return ReconciliationContext{OrderID: orderID, UserID: uint(userID)}, nil
}

func (r *Resolver) cachedContext(intentID string) (ReconciliationContext, bool) {
	if r.cache == nil {
		return ReconciliationContext{}, false
	}
	raw, err := r.cache.Get(resolvedContextCachePrefix + intentID)
	if err != nil || raw == "" {
		return ReconciliationContext{}, false
	}
	var rc ReconciliationContext
	if err := json.Unmarshal([]byte(raw), &rc); err != nil || rc.OrderID == "" || rc.UserID == 0 {
		return ReconciliationContext{}, false
	}
	return rc, true
}

func (r *Resolver) storeContext(intentID string, rc ReconciliationContext) {
	if r.cache == nil {
		return
	}
	raw, err := json.Marshal(rc)
	if err != nil {
		return
	}
	// Best effort, resolution works without the cache.
	if err := r.cache.Set(resolvedContextCachePrefix+intentID, string(raw), resolvedContextCacheTTL); err != nil {
		log.Printf("payments: failed to cache resolved context for %s: %v", intentID, err)
	}
}
