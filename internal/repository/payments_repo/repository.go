package payments_repo

import (
	"context"
	"time"

	"github.com/vanshjhamb9/swaroop-admin-sub001/internal/domain"
)

type PaymentRepository interface {
	CreateTx(ctx context.Context, querier domain.Querier, attempt *domain.PaymentAttempt) error
	GetByMerchantTxIDTx(ctx context.Context, querier domain.Querier, merchantTxID string) (*domain.PaymentAttempt, error)
	// CompareAndSetStatusTx атомарно переводит попытку из from в to и
	// сообщает, выиграл ли вызывающий этот переход. Это единственная точка
	// синхронизации между webhook и поллером для одной попытки.
	CompareAndSetStatusTx(ctx context.Context, querier domain.Querier, merchantTxID string, from, to domain.PaymentStatus) (bool, error)
	SetGatewayTxIDTx(ctx context.Context, querier domain.Querier, merchantTxID, gatewayTxID string) error
	SetMetadataTx(ctx context.Context, querier domain.Querier, merchantTxID string, metadata map[string]string) error
	ListDuePending(ctx context.Context, querier domain.Querier, now time.Time, limit int) ([]domain.PaymentAttempt, error)
	SchedulePollTx(ctx context.Context, querier domain.Querier, merchantTxID string, pollCount int, nextPollAt time.Time) error
}
