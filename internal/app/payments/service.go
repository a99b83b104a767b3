package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vanshjhamb9/swaroop-admin-sub001/internal/app/ledger"
	"github.com/vanshjhamb9/swaroop-admin-sub001/internal/domain"
	"github.com/vanshjhamb9/swaroop-admin-sub001/internal/domain/event"
	"github.com/vanshjhamb9/swaroop-admin-sub001/internal/gateway"
	"github.com/vanshjhamb9/swaroop-admin-sub001/internal/repository/outbox_repo"
	"github.com/vanshjhamb9/swaroop-admin-sub001/internal/repository/payments_repo"
	"github.com/vanshjhamb9/swaroop-admin-sub001/internal/util"
)

type InitiateResult struct {
	MerchantTxID string
	RedirectURL  string
}

// PaymentService создает попытки платежа и доводит их до конечного статуса.
// Reconcile — единственный путь применения результата шлюза: он вызывается
// и из webhook-обработчика, и из поллера, и идемпотентен относительно
// повторных доставок.
type PaymentService interface {
	Initiate(ctx context.Context, userID string, amount decimal.Decimal, paymentMethod string) (*InitiateResult, error)
	Reconcile(ctx context.Context, merchantTxID string, outcome gateway.Outcome) error
	Expire(ctx context.Context, merchantTxID string) error
	Status(ctx context.Context, merchantTxID string) (*domain.PaymentAttempt, error)
	DuePending(ctx context.Context, now time.Time, limit int) ([]domain.PaymentAttempt, error)
	SchedulePoll(ctx context.Context, merchantTxID string, pollCount int, nextPollAt time.Time) error
}

type paymentService struct {
	db          domain.Querier
	txm         domain.TxManager
	paymentRepo payments_repo.PaymentRepository
	outboxRepo  outbox_repo.OutboxRepository
	ledger      ledger.LedgerService
	gateway     gateway.Client
	eventsTopic string
	backoffBase time.Duration
	logger      *zap.Logger
}

func NewPaymentService(
	db domain.Querier,
	txm domain.TxManager,
	paymentRepo payments_repo.PaymentRepository,
	outboxRepo outbox_repo.OutboxRepository,
	ledgerService ledger.LedgerService,
	gatewayClient gateway.Client,
	eventsTopic string,
	backoffBase time.Duration,
	logger *zap.Logger,
) PaymentService {
	return &paymentService{
		db:          db,
		txm:         txm,
		paymentRepo: paymentRepo,
		outboxRepo:  outboxRepo,
		ledger:      ledgerService,
		gateway:     gatewayClient,
		eventsTopic: eventsTopic,
		backoffBase: backoffBase,
		logger:      logger,
	}
}

func (s *paymentService) Initiate(ctx context.Context, userID string, amount decimal.Decimal, paymentMethod string) (*InitiateResult, error) {
	if !amount.IsPositive() {
		return nil, domain.ErrNonPositiveAmount
	}

	// Ключ идемпотентности существует до любого внешнего вызова: даже если
	// обращение к шлюзу не вернется, попытку можно сверить по этому ключу.
	merchantTxID := util.NewMerchantTxID(userID)
	now := time.Now()
	attempt := &domain.PaymentAttempt{
		ID:            util.GenerateUUID(),
		MerchantTxID:  merchantTxID,
		UserID:        userID,
		Amount:        amount,
		Status:        domain.PaymentStatusPending,
		PaymentMethod: paymentMethod,
		NextPollAt:    now.Add(s.backoffBase),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := s.txm.WithinTx(ctx, func(q domain.Querier) error {
		return s.paymentRepo.CreateTx(ctx, q, attempt)
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicatePayment) {
			s.logger.Error("Коллизия merchant_tx_id при создании попытки платежа", zap.String("merchant_tx_id", merchantTxID))
			return nil, domain.ErrDuplicatePayment
		}
		return nil, fmt.Errorf("не удалось создать попытку платежа: %w", err)
	}

	session, err := s.gateway.CreateSession(ctx, merchantTxID, userID, amount)
	if err != nil {
		// Попытка остается PENDING и переходит во владение поллера: платеж
		// мог пройти на стороне шлюза, источник истины — сверка.
		s.logger.Warn("Шлюз недоступен при инициации платежа, попытка остается в ожидании",
			zap.String("merchant_tx_id", merchantTxID),
			zap.Error(err))
		return &InitiateResult{MerchantTxID: merchantTxID}, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}

	if session.GatewayTxID != "" {
		err = s.txm.WithinTx(ctx, func(q domain.Querier) error {
			return s.paymentRepo.SetGatewayTxIDTx(ctx, q, merchantTxID, session.GatewayTxID)
		})
		if err != nil {
			s.logger.Error("Не удалось сохранить идентификатор транзакции шлюза",
				zap.String("merchant_tx_id", merchantTxID),
				zap.Error(err))
		}
	}

	s.logger.Info("Попытка платежа создана",
		zap.String("merchant_tx_id", merchantTxID),
		zap.String("user_id", userID),
		zap.String("amount", amount.String()),
		zap.String("gateway_tx_id", session.GatewayTxID))
	return &InitiateResult{MerchantTxID: merchantTxID, RedirectURL: session.RedirectURL}, nil
}

func (s *paymentService) Reconcile(ctx context.Context, merchantTxID string, outcome gateway.Outcome) error {
	if !outcome.Terminal() {
		return nil
	}

	target := domain.PaymentStatusFailed
	if outcome.Status == gateway.OutcomeSuccess {
		target = domain.PaymentStatusSuccess
	}

	err := s.txm.WithinTx(ctx, func(q domain.Querier) error {
		attempt, err := s.paymentRepo.GetByMerchantTxIDTx(ctx, q, merchantTxID)
		if err != nil {
			return err
		}
		if attempt.Status.Terminal() {
			s.logger.Info("Повторная доставка результата отброшена: попытка уже в конечном статусе",
				zap.String("merchant_tx_id", merchantTxID),
				zap.String("status", string(attempt.Status)))
			return nil
		}

		won, err := s.paymentRepo.CompareAndSetStatusTx(ctx, q, merchantTxID, domain.PaymentStatusPending, target)
		if err != nil {
			return err
		}
		if !won {
			// Конкурирующая доставка выиграла переход; результат отбрасывается.
			s.logger.Info("Переход статуса проигран конкурирующей доставке",
				zap.String("merchant_tx_id", merchantTxID))
			return nil
		}

		if target == domain.PaymentStatusSuccess {
			if _, err := s.ledger.ApplyTx(ctx, q, attempt.UserID, domain.EntryCredit, attempt.Amount, "payment:"+merchantTxID); err != nil {
				// Откат вернет попытку в PENDING; результат безопасно доставить повторно.
				s.logger.Error("Не удалось применить кредит леджера, переход будет откачен",
					zap.String("merchant_tx_id", merchantTxID),
					zap.Error(err))
				return fmt.Errorf("не удалось применить кредит для платежа %s: %w", merchantTxID, err)
			}
		}

		if outcome.GatewayTxID != "" && outcome.GatewayTxID != attempt.GatewayTxID {
			if err := s.paymentRepo.SetGatewayTxIDTx(ctx, q, merchantTxID, outcome.GatewayTxID); err != nil {
				return err
			}
		}
		if outcome.Reason != "" {
			metadata := attempt.Metadata
			if metadata == nil {
				metadata = map[string]string{}
			}
			metadata["outcome_reason"] = outcome.Reason
			if err := s.paymentRepo.SetMetadataTx(ctx, q, merchantTxID, metadata); err != nil {
				return err
			}
		}

		return s.enqueueStatusEventTx(ctx, q, attempt, target, outcome.Reason)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Попытка платежа сверена",
		zap.String("merchant_tx_id", merchantTxID),
		zap.String("status", string(target)))
	return nil
}

// Expire переводит зависшую попытку в EXPIRED после окончания окна
// наблюдения. Конечный статус без эффекта в леджере.
func (s *paymentService) Expire(ctx context.Context, merchantTxID string) error {
	err := s.txm.WithinTx(ctx, func(q domain.Querier) error {
		attempt, err := s.paymentRepo.GetByMerchantTxIDTx(ctx, q, merchantTxID)
		if err != nil {
			return err
		}
		if attempt.Status.Terminal() {
			return nil
		}
		won, err := s.paymentRepo.CompareAndSetStatusTx(ctx, q, merchantTxID, domain.PaymentStatusPending, domain.PaymentStatusExpired)
		if err != nil {
			return err
		}
		if !won {
			return nil
		}
		return s.enqueueStatusEventTx(ctx, q, attempt, domain.PaymentStatusExpired, "observation window elapsed")
	})
	if err != nil {
		return fmt.Errorf("не удалось пометить попытку %s как истекшую: %w", merchantTxID, err)
	}

	s.logger.Info("Попытка платежа истекла без результата от шлюза",
		zap.String("merchant_tx_id", merchantTxID))
	return nil
}

func (s *paymentService) Status(ctx context.Context, merchantTxID string) (*domain.PaymentAttempt, error) {
	attempt, err := s.paymentRepo.GetByMerchantTxIDTx(ctx, s.db, merchantTxID)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownTransaction) {
			return nil, domain.ErrUnknownTransaction
		}
		return nil, fmt.Errorf("не удалось получить попытку платежа %s: %w", merchantTxID, err)
	}
	return attempt, nil
}

func (s *paymentService) DuePending(ctx context.Context, now time.Time, limit int) ([]domain.PaymentAttempt, error) {
	return s.paymentRepo.ListDuePending(ctx, s.db, now, limit)
}

func (s *paymentService) SchedulePoll(ctx context.Context, merchantTxID string, pollCount int, nextPollAt time.Time) error {
	return s.txm.WithinTx(ctx, func(q domain.Querier) error {
		return s.paymentRepo.SchedulePollTx(ctx, q, merchantTxID, pollCount, nextPollAt)
	})
}

func (s *paymentService) enqueueStatusEventTx(ctx context.Context, querier domain.Querier, attempt *domain.PaymentAttempt, status domain.PaymentStatus, reason string) error {
	payload, err := json.Marshal(event.PaymentStatusChangedEvent{
		MerchantTxID: attempt.MerchantTxID,
		GatewayTxID:  attempt.GatewayTxID,
		UserID:       attempt.UserID,
		Amount:       attempt.Amount,
		Status:       string(status),
		Reason:       reason,
		Timestamp:    time.Now(),
	})
	if err != nil {
		return fmt.Errorf("не удалось подготовить payload события статуса платежа: %w", err)
	}

	msg := &domain.OutboxMessage{
		ID:            util.GenerateUUID(),
		AggregateID:   attempt.MerchantTxID,
		AggregateType: "payment_attempt",
		MessageType:   "payment.status_changed",
		Topic:         s.eventsTopic,
		Key:           attempt.UserID,
		Payload:       payload,
		Status:        domain.OutboxStatusPending,
		CreatedAt:     time.Now(),
	}
	if err := s.outboxRepo.CreateMessageTx(ctx, querier, msg); err != nil {
		return fmt.Errorf("не удалось создать outbox сообщение для платежа %s: %w", attempt.MerchantTxID, err)
	}
	return nil
}
