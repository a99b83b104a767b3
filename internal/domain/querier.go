package domain

import (
	"context"
	"database/sql"
)

// Querier абстрагирует *sql.DB и *sql.Tx, чтобы репозитории могли работать
// как с пулом, так и внутри открытой транзакции.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxManager выполняет fn внутри одной транзакции хранилища. Если fn
// возвращает ошибку, все изменения откатываются.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(q Querier) error) error
}
