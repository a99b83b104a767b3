package util

import (
	"strings"
	"testing"
)

func TestNewMerchantTxID(t *testing.T) {
	id := NewMerchantTxID("user-12345678")
	if !strings.HasPrefix(id, "pay-user-123-") {
		t.Errorf("unexpected merchant_tx_id format: %s", id)
	}

	short := NewMerchantTxID("u1")
	if !strings.HasPrefix(short, "pay-u1-") {
		t.Errorf("short user id must not be truncated: %s", short)
	}
}

func TestNewMerchantTxID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewMerchantTxID("user-1")
		if seen[id] {
			t.Fatalf("duplicate merchant_tx_id generated: %s", id)
		}
		seen[id] = true
	}
}
