package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type EntryKind string

const (
	EntryCredit EntryKind = "CREDIT"
	EntryDebit  EntryKind = "DEBIT"
)

// LedgerTransaction — неизменяемая запись леджера. Seq монотонно растет в
// пределах счета, BalanceAfter — снимок баланса после применения записи.
type LedgerTransaction struct {
	AccountID    string
	Seq          int64
	Kind         EntryKind
	Amount       decimal.Decimal
	Description  string
	BalanceAfter decimal.Decimal
	OccurredAt   time.Time
}
