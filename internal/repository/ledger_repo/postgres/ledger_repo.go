package postgres

import (
	"context"
	"fmt"

	"github.com/vanshjhamb9/swaroop-admin-sub001/internal/domain"
)

type LedgerRepository struct{}

func NewLedgerRepository() *LedgerRepository {
	return &LedgerRepository{}
}

func (r *LedgerRepository) AppendTx(ctx context.Context, querier domain.Querier, entry *domain.LedgerTransaction) error {
	query := `
		INSERT INTO ledger_transactions (account_id, seq, kind, amount, description, balance_after, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := querier.ExecContext(ctx, query,
		entry.AccountID,
		entry.Seq,
		entry.Kind,
		entry.Amount,
		entry.Description,
		entry.BalanceAfter,
		entry.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append ledger transaction: %w", err)
	}
	return nil
}

func (r *LedgerRepository) LastSeqTx(ctx context.Context, querier domain.Querier, accountID string) (int64, error) {
	query := `
		SELECT COALESCE(MAX(seq), 0)
		FROM ledger_transactions
		WHERE account_id = $1
	`
	var seq int64
	err := querier.QueryRowContext(ctx, query, accountID).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("failed to get last ledger seq for account %s: %w", accountID, err)
	}
	return seq, nil
}

func (r *LedgerRepository) ListByAccount(ctx context.Context, querier domain.Querier, accountID string, limit int) ([]domain.LedgerTransaction, error) {
	query := `
		SELECT account_id, seq, kind, amount, description, balance_after, occurred_at
		FROM ledger_transactions
		WHERE account_id = $1
		ORDER BY seq DESC
		LIMIT $2
	`
	rows, err := querier.QueryContext(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger transactions for account %s: %w", accountID, err)
	}
	defer rows.Close()

	var entries []domain.LedgerTransaction
	for rows.Next() {
		var e domain.LedgerTransaction
		if err := rows.Scan(
			&e.AccountID,
			&e.Seq,
			&e.Kind,
			&e.Amount,
			&e.Description,
			&e.BalanceAfter,
			&e.OccurredAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ledger transaction: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger transactions: %w", err)
	}
	return entries, nil
}
