package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PlanType string

const (
	PlanPrepaid  PlanType = "PREPAID"
	PlanPostpaid PlanType = "POSTPAID"
)

// Account представляет кредитный счет пользователя. Баланс изменяется только
// через леджер; счет никогда не удаляется, только архивируется.
type Account struct {
	ID          string
	UserID      string
	PlanType    PlanType
	Balance     decimal.Decimal
	CreditLimit decimal.Decimal
	Archived    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Floor возвращает минимально допустимый баланс счета:
// ноль для prepaid, минус кредитный лимит для postpaid.
func (a *Account) Floor() decimal.Decimal {
	if a.PlanType == PlanPostpaid {
		return a.CreditLimit.Neg()
	}
	return decimal.Zero
}
