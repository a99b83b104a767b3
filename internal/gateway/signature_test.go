package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func signPayload(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestHMACVerifier(t *testing.T) {
	verifier := NewHMACVerifier("top-secret")
	payload := []byte(`{"merchant_tx_id":"pay-1","status":"SUCCESS"}`)

	if !verifier.Verify(payload, signPayload("top-secret", payload)) {
		t.Error("valid signature rejected")
	}
	if verifier.Verify(payload, signPayload("wrong-secret", payload)) {
		t.Error("signature with wrong secret accepted")
	}
	if verifier.Verify(payload, "deadbeef") {
		t.Error("garbage signature accepted")
	}
	if verifier.Verify([]byte(`{"merchant_tx_id":"pay-2"}`), signPayload("top-secret", payload)) {
		t.Error("signature for different payload accepted")
	}
}
