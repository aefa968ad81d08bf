package controllers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/OrderFox/internal/pkg/payments"
)

func stripeSignatureHeader(payload []byte, secret string, ts int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func newWebhookTestApp() *fiber.App {
	app := fiber.New()
	app.Post("/webhooks/stripe", HandleStripeWebhook)
	return app
}

func TestHandleStripeWebhook_RejectsMissingSignature(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test")
	app := newWebhookTestApp()

	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1"}}}`)
	req := httptest.NewRequest("POST", "/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestHandleStripeWebhook_RejectsForgedSignature(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test")
	app := newWebhookTestApp()

	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1"}}}`)
	req := httptest.NewRequest("POST", "/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", stripeSignatureHeader(payload, "whsec_attacker", time.Now().Unix()))

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestHandleStripeWebhook_RejectsUnparsablePayload(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test")
	app := newWebhookTestApp()

	payload := []byte(`{"id":"evt_1"`)
	req := httptest.NewRequest("POST", "/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", stripeSignatureHeader(payload, "whsec_test", time.Now().Unix()))

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestRespondReconcileErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "transient resolution",
			err:  &payments.ResolutionError{Reason: "session not propagated", Transient: true},
			want: fiber.StatusServiceUnavailable,
		},
		{
			name: "permanent resolution",
			err:  &payments.ResolutionError{Reason: "metadata missing"},
			want: fiber.StatusUnprocessableEntity,
		},
		{
			name: "policy violation",
			err:  &payments.PolicyViolation{OrderID: "order-1", Reason: "paid order"},
			want: fiber.StatusConflict,
		},
		{
			name: "order not found",
			err:  &payments.StoreError{Op: "order paid update", NotFound: true},
			want: fiber.StatusNotFound,
		},
		{
			name: "store failure",
			err:  &payments.StoreError{Op: "order delete", Err: errors.New("connection reset")},
			want: fiber.StatusInternalServerError,
		},
		{
			name: "unknown failure",
			err:  errors.New("unexpected"),
			want: fiber.StatusInternalServerError,
		},
	}

	ev := &payments.WebhookEvent{ID: "evt_1", Type: "payment_intent.succeeded"}

	for _, tt := range tests {
		app := fiber.New()
		app.Post("/x", func(c *fiber.Ctx) error {
			return respondReconcileError(c, ev, tt.err)
		})

		resp, err := app.Test(httptest.NewRequest("POST", "/x", nil))
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, resp.StatusCode, tt.name)
	}
}
