package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusSuccess PaymentStatus = "SUCCESS"
	PaymentStatusFailed  PaymentStatus = "FAILED"
	PaymentStatusExpired PaymentStatus = "EXPIRED"
)

// Terminal сообщает, является ли статус конечным. Из конечного статуса
// переходы невозможны.
func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentStatusSuccess, PaymentStatusFailed, PaymentStatusExpired:
		return true
	}
	return false
}

// PaymentAttempt — одна попытка пополнения через внешний шлюз.
// MerchantTxID генерируется до обращения к шлюзу и служит ключом
// идемпотентности; после перехода в конечный статус изменяется только
// Metadata.
type PaymentAttempt struct {
	ID                string
	MerchantTxID      string
	UserID            string
	Amount            decimal.Decimal
	Status            PaymentStatus
	PaymentMethod     string
	GatewayTxID       string
	ExternalInvoiceID string
	Metadata          map[string]string
	PollCount         int
	NextPollAt        time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
