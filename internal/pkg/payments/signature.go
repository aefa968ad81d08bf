package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultSignatureTolerance bounds how old a webhook timestamp may be before
// the event is treated as a replay.
const DefaultSignatureTolerance = 5 * time.Minute

// VerifyWebhookSignature checks a Stripe-style signature header against the
// raw request body. The header carries a unix timestamp and one or more
// hex-encoded HMAC-SHA256 values computed over "<timestamp>.<payload>":
//
//	t=1492774577,v1=5257a869e7...,v1=badd96a...
//
// The payload must be the untransformed request body; re-encoding it before
// verification breaks the MAC. A missing header is a verification failure,
// not a pass-through. Returns nil only for a cryptographically valid,
// in-tolerance signature, otherwise a *VerificationError.
func VerifyWebhookSignature(payload []byte, signatureHeader, secret string, tolerance time.Duration, now time.Time) error {
	sig := strings.TrimSpace(signatureHeader)
	if sig == "" {
		return &VerificationError{Reason: "missing signature header"}
	}
	if strings.TrimSpace(secret) == "" {
		return &VerificationError{Reason: "webhook secret is not configured"}
	}

	timestamp, macs, err := parseSignatureHeader(sig)
	if err != nil {
		return err
	}

	if tolerance > 0 {
		age := now.Sub(time.Unix(timestamp, 0))
		if age > tolerance || age < -tolerance {
			return &VerificationError{Reason: fmt.Sprintf("timestamp outside tolerance: t=%d", timestamp)}
		}
	}

	mac := hmac.New(sha256.New, []byte(strings.TrimSpace(secret)))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	for _, candidate := range macs {
		if hmac.Equal(candidate, expected) {
			return nil
		}
	}
	return &VerificationError{Reason: "no matching v1 signature"}
}

func parseSignatureHeader(header string) (int64, [][]byte, error) {
	var timestamp int64 = -1
	var macs [][]byte

	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return 0, nil, &VerificationError{Reason: "invalid signature timestamp"}
			}
			timestamp = ts
		case "v1":
			decoded, err := hex.DecodeString(strings.ToLower(value))
			if err != nil {
				return 0, nil, &VerificationError{Reason: "signature is not valid hex"}
			}
			macs = append(macs, decoded)
		}
	}

	if timestamp < 0 {
		return 0, nil, &VerificationError{Reason: "signature header missing timestamp"}
	}
	if len(macs) == 0 {
		return 0, nil, &VerificationError{Reason: "signature header missing v1 entry"}
	}
	return timestamp, macs, nil
}
