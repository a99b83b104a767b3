package ledger_repo

import (
	"context"

	"github.com/vanshjhamb9/swaroop-admin-sub001/internal/domain"
)

// LedgerRepository пишет в append-only журнал транзакций. Записи никогда не
// изменяются и не удаляются.
type LedgerRepository interface {
	AppendTx(ctx context.Context, querier domain.Querier, entry *domain.LedgerTransaction) error
	LastSeqTx(ctx context.Context, querier domain.Querier, accountID string) (int64, error)
	ListByAccount(ctx context.Context, querier domain.Querier, accountID string, limit int) ([]domain.LedgerTransaction, error)
}
