package event

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatusChangedEvent публикуется при переходе попытки платежа в
// конечный статус и потребляется биллингом/UI.
type PaymentStatusChangedEvent struct {
	MerchantTxID string          `json:"merchant_tx_id"`
	GatewayTxID  string          `json:"gateway_tx_id,omitempty"`
	UserID       string          `json:"user_id"`
	Amount       decimal.Decimal `json:"amount"`
	Status       string          `json:"status"`
	Reason       string          `json:"reason,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
}
