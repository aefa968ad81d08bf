package payments

import (
	"encoding/json"
	"errors"
	"strings"
)

// WebhookEvent is the decoded, already signature-verified provider
// notification. Only the fields the reconciler consumes are unpacked; the
// raw payload is kept for the event log.
type WebhookEvent struct {
	ID              string
	Type            string
	ObjectID        string
	ObjectType      string
	PaymentIntentID string
	Metadata        map[string]string
}

// ParseWebhookEvent unpacks the provider event envelope. It is only called
// after VerifyWebhookSignature has accepted the payload.
func ParseWebhookEvent(payload []byte) (*WebhookEvent, error) {
	var raw struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object struct {
				ID            string            `json:"id"`
				Object        string            `json:"object"`
				PaymentIntent string            `json:"payment_intent"`
				Metadata      map[string]string `json:"metadata"`
			} `json:"object"`
		} `json:"data"`
	}

	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, err
	}
	if strings.TrimSpace(raw.Type) == "" {
		return nil, errors.New("webhook payload missing event type")
	}
	if strings.TrimSpace(raw.Data.Object.ID) == "" {
		return nil, errors.New("webhook payload missing data object id")
	}

	ev := &WebhookEvent{
		ID:              strings.TrimSpace(raw.ID),
		Type:            strings.TrimSpace(raw.Type),
		ObjectID:        strings.TrimSpace(raw.Data.Object.ID),
		ObjectType:      strings.TrimSpace(raw.Data.Object.Object),
		PaymentIntentID: strings.TrimSpace(raw.Data.Object.PaymentIntent),
		Metadata:        raw.Data.Object.Metadata,
	}
	if ev.ObjectType == "payment_intent" || strings.HasPrefix(ev.Type, "payment_intent.") {
		ev.PaymentIntentID = ev.ObjectID
	}
	return ev, nil
}

// OutcomeForEventType is the total mapping from provider event type to
// reconciliation outcome. Anything not listed is unhandled by contract, so
// new provider event types are acknowledged without action instead of
// guessing an effect.
func OutcomeForEventType(eventType string) Outcome {
	switch strings.ToLower(strings.TrimSpace(eventType)) {
	case "payment_intent.succeeded", "checkout.session.completed":
		return OutcomePaid
	case "payment_intent.payment_failed", "payment_intent.canceled":
		return OutcomeFailed
	case "checkout.session.expired":
		return OutcomeExpired
	default:
		return OutcomeUnhandled
	}
}

// HasDirectMetadata reports whether the event object itself carries the
// checkout metadata, i.e. no provider lookup is needed to resolve it.
func (e *WebhookEvent) HasDirectMetadata() bool {
	return e != nil && e.ObjectType == "checkout.session"
}
