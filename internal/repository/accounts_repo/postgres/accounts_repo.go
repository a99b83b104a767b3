package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/vanshjhamb9/swaroop-admin-sub001/internal/domain"
)

type AccountRepository struct{}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{}
}

func (r *AccountRepository) CreateTx(ctx context.Context, querier domain.Querier, account *domain.Account) error {
	query := `
		INSERT INTO accounts (id, user_id, plan_type, balance, credit_limit, archived, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := querier.ExecContext(ctx, query,
		account.ID, account.UserID, account.PlanType, account.Balance,
		account.CreditLimit, account.Archived, account.CreatedAt, account.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return domain.ErrAccountAlreadyExists
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (r *AccountRepository) GetForUserTx(ctx context.Context, querier domain.Querier, userID string) (*domain.Account, error) {
	return r.getForUser(ctx, querier, userID, false)
}

func (r *AccountRepository) LockForUserTx(ctx context.Context, querier domain.Querier, userID string) (*domain.Account, error) {
	return r.getForUser(ctx, querier, userID, true)
}

func (r *AccountRepository) getForUser(ctx context.Context, querier domain.Querier, userID string, forUpdate bool) (*domain.Account, error) {
	query := `
		SELECT id, user_id, plan_type, balance, credit_limit, archived, created_at, updated_at
		FROM accounts
		WHERE user_id = $1
	`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	account := &domain.Account{}
	err := querier.QueryRowContext(ctx, query, userID).Scan(
		&account.ID,
		&account.UserID,
		&account.PlanType,
		&account.Balance,
		&account.CreditLimit,
		&account.Archived,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account for user %s: %w", userID, err)
	}
	return account, nil
}

func (r *AccountRepository) SetBalanceTx(ctx context.Context, querier domain.Querier, accountID string, balance decimal.Decimal, updatedAt time.Time) error {
	query := `
		UPDATE accounts
		SET balance = $1, updated_at = $2
		WHERE id = $3
	`
	res, err := querier.ExecContext(ctx, query, balance, updatedAt, accountID)
	if err != nil {
		return fmt.Errorf("failed to set balance for account %s: %w", accountID, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) ArchiveTx(ctx context.Context, querier domain.Querier, accountID string) error {
	query := `
		UPDATE accounts
		SET archived = TRUE, updated_at = $1
		WHERE id = $2
	`
	res, err := querier.ExecContext(ctx, query, time.Now(), accountID)
	if err != nil {
		return fmt.Errorf("failed to archive account %s: %w", accountID, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}
