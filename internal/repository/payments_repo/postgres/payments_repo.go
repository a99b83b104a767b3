package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/vanshjhamb9/swaroop-admin-sub001/internal/domain"
)

type PaymentRepository struct{}

func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{}
}

func (r *PaymentRepository) CreateTx(ctx context.Context, querier domain.Querier, attempt *domain.PaymentAttempt) error {
	metadata, err := json.Marshal(attempt.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal attempt metadata: %w", err)
	}
	query := `
		INSERT INTO payment_attempts
			(id, merchant_tx_id, user_id, amount, status, payment_method, gateway_tx_id,
			 external_invoice_id, metadata, poll_count, next_poll_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = querier.ExecContext(ctx, query,
		attempt.ID,
		attempt.MerchantTxID,
		attempt.UserID,
		attempt.Amount,
		attempt.Status,
		attempt.PaymentMethod,
		nullable(attempt.GatewayTxID),
		nullable(attempt.ExternalInvoiceID),
		metadata,
		attempt.PollCount,
		attempt.NextPollAt,
		attempt.CreatedAt,
		attempt.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return domain.ErrDuplicatePayment
		}
		return fmt.Errorf("failed to create payment attempt: %w", err)
	}
	return nil
}

func (r *PaymentRepository) GetByMerchantTxIDTx(ctx context.Context, querier domain.Querier, merchantTxID string) (*domain.PaymentAttempt, error) {
	query := `
		SELECT id, merchant_tx_id, user_id, amount, status, payment_method, gateway_tx_id,
		       external_invoice_id, metadata, poll_count, next_poll_at, created_at, updated_at
		FROM payment_attempts
		WHERE merchant_tx_id = $1
	`
	row := querier.QueryRowContext(ctx, query, merchantTxID)
	attempt, err := scanAttempt(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrUnknownTransaction
		}
		return nil, fmt.Errorf("failed to get payment attempt %s: %w", merchantTxID, err)
	}
	return attempt, nil
}

func (r *PaymentRepository) CompareAndSetStatusTx(ctx context.Context, querier domain.Querier, merchantTxID string, from, to domain.PaymentStatus) (bool, error) {
	query := `
		UPDATE payment_attempts
		SET status = $1, updated_at = $2
		WHERE merchant_tx_id = $3 AND status = $4
	`
	res, err := querier.ExecContext(ctx, query, to, time.Now(), merchantTxID, from)
	if err != nil {
		return false, fmt.Errorf("failed to CAS payment attempt status %s: %w", merchantTxID, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected for status CAS: %w", err)
	}
	return rowsAffected == 1, nil
}

func (r *PaymentRepository) SetGatewayTxIDTx(ctx context.Context, querier domain.Querier, merchantTxID, gatewayTxID string) error {
	query := `
		UPDATE payment_attempts
		SET gateway_tx_id = $1, updated_at = $2
		WHERE merchant_tx_id = $3
	`
	res, err := querier.ExecContext(ctx, query, gatewayTxID, time.Now(), merchantTxID)
	if err != nil {
		return fmt.Errorf("failed to set gateway tx id for %s: %w", merchantTxID, err)
	}
	return requireOneRow(res)
}

func (r *PaymentRepository) SetMetadataTx(ctx context.Context, querier domain.Querier, merchantTxID string, metadata map[string]string) error {
	payload, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal attempt metadata: %w", err)
	}
	query := `
		UPDATE payment_attempts
		SET metadata = $1, updated_at = $2
		WHERE merchant_tx_id = $3
	`
	res, err := querier.ExecContext(ctx, query, payload, time.Now(), merchantTxID)
	if err != nil {
		return fmt.Errorf("failed to set metadata for %s: %w", merchantTxID, err)
	}
	return requireOneRow(res)
}

func (r *PaymentRepository) ListDuePending(ctx context.Context, querier domain.Querier, now time.Time, limit int) ([]domain.PaymentAttempt, error) {
	query := `
		SELECT id, merchant_tx_id, user_id, amount, status, payment_method, gateway_tx_id,
		       external_invoice_id, metadata, poll_count, next_poll_at, created_at, updated_at
		FROM payment_attempts
		WHERE status = $1 AND next_poll_at <= $2
		ORDER BY next_poll_at ASC
		LIMIT $3
	`
	rows, err := querier.QueryContext(ctx, query, domain.PaymentStatusPending, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list due pending attempts: %w", err)
	}
	defer rows.Close()

	var attempts []domain.PaymentAttempt
	for rows.Next() {
		attempt, err := scanAttempt(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment attempt: %w", err)
		}
		attempts = append(attempts, *attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payment attempts: %w", err)
	}
	return attempts, nil
}

func (r *PaymentRepository) SchedulePollTx(ctx context.Context, querier domain.Querier, merchantTxID string, pollCount int, nextPollAt time.Time) error {
	query := `
		UPDATE payment_attempts
		SET poll_count = $1, next_poll_at = $2, updated_at = $3
		WHERE merchant_tx_id = $4
	`
	res, err := querier.ExecContext(ctx, query, pollCount, nextPollAt, time.Now(), merchantTxID)
	if err != nil {
		return fmt.Errorf("failed to schedule poll for %s: %w", merchantTxID, err)
	}
	return requireOneRow(res)
}

func scanAttempt(scan func(dest ...any) error) (*domain.PaymentAttempt, error) {
	attempt := &domain.PaymentAttempt{}
	var gatewayTxID, externalInvoiceID sql.NullString
	var metadata []byte
	err := scan(
		&attempt.ID,
		&attempt.MerchantTxID,
		&attempt.UserID,
		&attempt.Amount,
		&attempt.Status,
		&attempt.PaymentMethod,
		&gatewayTxID,
		&externalInvoiceID,
		&metadata,
		&attempt.PollCount,
		&attempt.NextPollAt,
		&attempt.CreatedAt,
		&attempt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	attempt.GatewayTxID = gatewayTxID.String
	attempt.ExternalInvoiceID = externalInvoiceID.String
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &attempt.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal attempt metadata: %w", err)
		}
	}
	return attempt, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func requireOneRow(res sql.Result) error {
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrUnknownTransaction
	}
	return nil
}
