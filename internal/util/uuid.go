package util

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
)

func GenerateUUID() string {
	newUUID, err := uuid.NewRandom()
	if err != nil {
		log.Fatalf("Failed to generate UUID: %v", err)
	}
	return newUUID.String()
}

// NewMerchantTxID генерирует ключ идемпотентности для попытки платежа до
// обращения к шлюзу: фрагмент userID + отметка времени + случайный nonce.
func NewMerchantTxID(userID string) string {
	fragment := userID
	if len(fragment) > 8 {
		fragment = fragment[:8]
	}
	nonce := strings.ReplaceAll(GenerateUUID(), "-", "")[:12]
	return fmt.Sprintf("pay-%s-%d-%s", fragment, time.Now().UnixMilli(), nonce)
}
