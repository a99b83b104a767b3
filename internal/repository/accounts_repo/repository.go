package accounts_repo

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vanshjhamb9/swaroop-admin-sub001/internal/domain"
)

type AccountRepository interface {
	CreateTx(ctx context.Context, querier domain.Querier, account *domain.Account) error
	GetForUserTx(ctx context.Context, querier domain.Querier, userID string) (*domain.Account, error)
	// LockForUserTx захватывает строку счета (SELECT ... FOR UPDATE) до конца
	// транзакции. Все изменения баланса проходят только под этой блокировкой.
	LockForUserTx(ctx context.Context, querier domain.Querier, userID string) (*domain.Account, error)
	SetBalanceTx(ctx context.Context, querier domain.Querier, accountID string, balance decimal.Decimal, updatedAt time.Time) error
	ArchiveTx(ctx context.Context, querier domain.Querier, accountID string) error
}
