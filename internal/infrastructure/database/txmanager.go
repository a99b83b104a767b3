package database

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/vanshjhamb9/swaroop-admin-sub001/internal/domain"
)

// SQLTxManager реализует domain.TxManager поверх *sql.DB.
type SQLTxManager struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewSQLTxManager(db *sql.DB, logger *zap.Logger) *SQLTxManager {
	return &SQLTxManager{db: db, logger: logger}
}

func (m *SQLTxManager) WithinTx(ctx context.Context, fn func(q domain.Querier) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("не удалось начать транзакцию: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Восстановлена паника внутри транзакции, выполняется откат", zap.Any("panic", r))
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			m.logger.Error("Не удалось откатить транзакцию", zap.Error(rbErr))
			return fmt.Errorf("откат транзакции завершился неудачей после ошибки: %w", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("не удалось зафиксировать транзакцию: %w", err)
	}
	return nil
}
