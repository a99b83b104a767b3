package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestAccountFloor(t *testing.T) {
	tests := []struct {
		name    string
		account Account
		want    decimal.Decimal
	}{
		{"prepaid", Account{PlanType: PlanPrepaid, CreditLimit: decimal.NewFromInt(500)}, decimal.Zero},
		{"postpaid", Account{PlanType: PlanPostpaid, CreditLimit: decimal.NewFromInt(500)}, decimal.NewFromInt(-500)},
		{"postpaid zero limit", Account{PlanType: PlanPostpaid, CreditLimit: decimal.Zero}, decimal.Zero},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.account.Floor(); !got.Equal(tt.want) {
				t.Errorf("Floor() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestPaymentStatusTerminal(t *testing.T) {
	tests := []struct {
		status PaymentStatus
		want   bool
	}{
		{PaymentStatusPending, false},
		{PaymentStatusSuccess, true},
		{PaymentStatusFailed, true},
		{PaymentStatusExpired, true},
	}
	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.want {
			t.Errorf("Terminal(%s) = %v, want %v", tt.status, got, tt.want)
		}
	}
}
