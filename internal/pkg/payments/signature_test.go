package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"testing"
	"time"
)

func signPayload(t *testing.T, payload []byte, secret string, ts int64) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature_Valid(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded"}`)
	secret := "whsec_test"
	now := time.Unix(1700000000, 0)
	ts := now.Unix()

	header := fmt.Sprintf("t=%d,v1=%s", ts, signPayload(t, payload, secret, ts))
	if err := VerifyWebhookSignature(payload, header, secret, DefaultSignatureTolerance, now); err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}
}

func TestVerifyWebhookSignature_MultipleV1(t *testing.T) {
	payload := []byte(`{"id":"evt_2"}`)
	secret := "whsec_test"
	now := time.Unix(1700000000, 0)
	ts := now.Unix()

	// One stale MAC from a rotated secret plus the current one.
	header := fmt.Sprintf("t=%d,v1=%s,v1=%s",
		ts,
		signPayload(t, payload, "whsec_old", ts),
		signPayload(t, payload, secret, ts),
	)
	if err := VerifyWebhookSignature(payload, header, secret, DefaultSignatureTolerance, now); err != nil {
		t.Fatalf("expected one of multiple v1 entries to match, got %v", err)
	}
}

func TestVerifyWebhookSignature_TamperedPayload(t *testing.T) {
	payload := []byte(`{"amount":100}`)
	secret := "whsec_test"
	now := time.Unix(1700000000, 0)
	ts := now.Unix()

	header := fmt.Sprintf("t=%d,v1=%s", ts, signPayload(t, payload, secret, ts))
	tampered := []byte(`{"amount":999}`)

	err := VerifyWebhookSignature(tampered, header, secret, DefaultSignatureTolerance, now)
	if _, ok := err.(*VerificationError); !ok {
		t.Fatalf("expected *VerificationError for tampered payload, got %v", err)
	}
}

func TestVerifyWebhookSignature_WrongSecret(t *testing.T) {
	payload := []byte(`{}`)
	now := time.Unix(1700000000, 0)
	ts := now.Unix()

	header := fmt.Sprintf("t=%d,v1=%s", ts, signPayload(t, payload, "whsec_a", ts))
	if err := VerifyWebhookSignature(payload, header, "whsec_b", DefaultSignatureTolerance, now); err == nil {
		t.Fatalf("expected signature from a different secret to fail")
	}
}

func TestVerifyWebhookSignature_StaleTimestamp(t *testing.T) {
	payload := []byte(`{}`)
	secret := "whsec_test"
	now := time.Unix(1700000000, 0)
	ts := now.Add(-10 * time.Minute).Unix()

	header := fmt.Sprintf("t=%d,v1=%s", ts, signPayload(t, payload, secret, ts))
	err := VerifyWebhookSignature(payload, header, secret, DefaultSignatureTolerance, now)
	if _, ok := err.(*VerificationError); !ok {
		t.Fatalf("expected *VerificationError for stale timestamp, got %v", err)
	}
}

func TestVerifyWebhookSignature_FutureTimestamp(t *testing.T) {
	payload := []byte(`{}`)
	secret := "whsec_test"
	now := time.Unix(1700000000, 0)
	ts := now.Add(10 * time.Minute).Unix()

	header := fmt.Sprintf("t=%d,v1=%s", ts, signPayload(t, payload, secret, ts))
	if err := VerifyWebhookSignature(payload, header, secret, DefaultSignatureTolerance, now); err == nil {
		t.Fatalf("expected far-future timestamp to fail")
	}
}

func TestVerifyWebhookSignature_ZeroToleranceDisablesCheck(t *testing.T) {
	payload := []byte(`{}`)
	secret := "whsec_test"
	now := time.Unix(1700000000, 0)
	ts := now.Add(-24 * time.Hour).Unix()

	header := fmt.Sprintf("t=%d,v1=%s", ts, signPayload(t, payload, secret, ts))
	if err := VerifyWebhookSignature(payload, header, secret, 0, now); err != nil {
		t.Fatalf("expected tolerance 0 to skip the timestamp check, got %v", err)
	}
}

func TestVerifyWebhookSignature_MalformedHeaders(t *testing.T) {
	payload := []byte(`{}`)
	secret := "whsec_test"
	now := time.Unix(1700000000, 0)
	ts := now.Unix()
	validMac := signPayload(t, payload, secret, ts)

	tests := []struct {
		name   string
		header string
	}{
		{name: "empty", header: ""},
		{name: "whitespace only", header: "   "},
		{name: "missing timestamp", header: "v1=" + validMac},
		{name: "missing v1", header: fmt.Sprintf("t=%d", ts)},
		{name: "non numeric timestamp", header: "t=abc,v1=" + validMac},
		{name: "non hex signature", header: fmt.Sprintf("t=%d,v1=zzzz", ts)},
	}

	for _, tt := range tests {
		err := VerifyWebhookSignature(payload, tt.header, secret, DefaultSignatureTolerance, now)
		if _, ok := err.(*VerificationError); !ok {
			t.Fatalf("%s: expected *VerificationError, got %v", tt.name, err)
		}
	}
}

func TestVerifyWebhookSignature_EmptySecret(t *testing.T) {
	payload := []byte(`{}`)
	now := time.Unix(1700000000, 0)
	ts := now.Unix()

	header := fmt.Sprintf("t=%d,v1=%s", ts, signPayload(t, payload, "whsec_test", ts))
	if err := VerifyWebhookSignature(payload, header, "", DefaultSignatureTolerance, now); err == nil {
		t.Fatalf("expected missing secret configuration to fail verification")
	}
}
