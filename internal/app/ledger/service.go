package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vanshjhamb9/swaroop-admin-sub001/internal/domain"
	"github.com/vanshjhamb9/swaroop-admin-sub001/internal/repository/accounts_repo"
	"github.com/vanshjhamb9/swaroop-admin-sub001/internal/repository/ledger_repo"
	"github.com/vanshjhamb9/swaroop-admin-sub001/internal/util"
)

// LedgerService — единственная точка изменения балансов. Каждое успешное
// применение добавляет ровно одну запись в журнал и обновляет баланс счета
// в той же транзакции хранилища.
type LedgerService interface {
	Apply(ctx context.Context, userID string, kind domain.EntryKind, amount decimal.Decimal, description string) (*domain.LedgerTransaction, error)
	ApplyTx(ctx context.Context, querier domain.Querier, userID string, kind domain.EntryKind, amount decimal.Decimal, description string) (*domain.LedgerTransaction, error)
	Balance(ctx context.Context, userID string) (*domain.Account, error)
	Transactions(ctx context.Context, userID string, limit int) ([]domain.LedgerTransaction, error)
	Provision(ctx context.Context, userID string, plan domain.PlanType, creditLimit decimal.Decimal) (*domain.Account, error)
	Archive(ctx context.Context, userID string) error
}

type ledgerService struct {
	db           domain.Querier
	txm          domain.TxManager
	accountRepo  accounts_repo.AccountRepository
	ledgerRepo   ledger_repo.LedgerRepository
	defaultPlan  domain.PlanType
	defaultLimit decimal.Decimal
	logger       *zap.Logger
}

func NewLedgerService(
	db domain.Querier,
	txm domain.TxManager,
	accountRepo accounts_repo.AccountRepository,
	ledgerRepo ledger_repo.LedgerRepository,
	defaultPlan domain.PlanType,
	defaultLimit decimal.Decimal,
	logger *zap.Logger,
) LedgerService {
	return &ledgerService{
		db:           db,
		txm:          txm,
		accountRepo:  accountRepo,
		ledgerRepo:   ledgerRepo,
		defaultPlan:  defaultPlan,
		defaultLimit: defaultLimit,
		logger:       logger,
	}
}

func (s *ledgerService) Apply(ctx context.Context, userID string, kind domain.EntryKind, amount decimal.Decimal, description string) (*domain.LedgerTransaction, error) {
	var entry *domain.LedgerTransaction
	err := s.txm.WithinTx(ctx, func(q domain.Querier) error {
		var applyErr error
		entry, applyErr = s.ApplyTx(ctx, q, userID, kind, amount, description)
		return applyErr
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ApplyTx применяет запись внутри уже открытой транзакции. Строка счета
// блокируется до конца транзакции, поэтому обновления одного счета строго
// сериализованы; разные счета не блокируют друг друга.
func (s *ledgerService) ApplyTx(ctx context.Context, querier domain.Querier, userID string, kind domain.EntryKind, amount decimal.Decimal, description string) (*domain.LedgerTransaction, error) {
	if !amount.IsPositive() {
		return nil, domain.ErrNonPositiveAmount
	}

	account, err := s.accountRepo.LockForUserTx(ctx, querier, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrAccountNotFound) {
			return nil, fmt.Errorf("не удалось заблокировать счет пользователя %s: %w", userID, err)
		}
		account, err = s.createDefaultAccountTx(ctx, querier, userID)
		if err != nil {
			return nil, err
		}
	}

	if account.Archived {
		s.logger.Warn("Попытка изменить архивированный счет", zap.String("user_id", userID), zap.String("account_id", account.ID))
		return nil, domain.ErrAccountArchived
	}

	newBalance := account.Balance
	switch kind {
	case domain.EntryCredit:
		newBalance = newBalance.Add(amount)
	case domain.EntryDebit:
		newBalance = newBalance.Sub(amount)
	default:
		return nil, fmt.Errorf("неизвестный тип записи леджера: %s", kind)
	}

	if newBalance.LessThan(account.Floor()) {
		s.logger.Warn("Списание нарушило бы минимальный баланс счета",
			zap.String("user_id", userID),
			zap.String("balance", account.Balance.String()),
			zap.String("amount", amount.String()),
			zap.String("floor", account.Floor().String()))
		return nil, domain.ErrInsufficientCredit
	}

	lastSeq, err := s.ledgerRepo.LastSeqTx(ctx, querier, account.ID)
	if err != nil {
		return nil, fmt.Errorf("не удалось получить последний номер записи для счета %s: %w", account.ID, err)
	}

	now := time.Now()
	entry := &domain.LedgerTransaction{
		AccountID:    account.ID,
		Seq:          lastSeq + 1,
		Kind:         kind,
		Amount:       amount,
		Description:  description,
		BalanceAfter: newBalance,
		OccurredAt:   now,
	}
	if err := s.ledgerRepo.AppendTx(ctx, querier, entry); err != nil {
		return nil, fmt.Errorf("не удалось добавить запись леджера для счета %s: %w", account.ID, err)
	}
	if err := s.accountRepo.SetBalanceTx(ctx, querier, account.ID, newBalance, now); err != nil {
		return nil, fmt.Errorf("не удалось обновить баланс счета %s: %w", account.ID, err)
	}

	s.logger.Info("Запись леджера применена",
		zap.String("account_id", account.ID),
		zap.String("user_id", userID),
		zap.String("kind", string(kind)),
		zap.String("amount", amount.String()),
		zap.String("balance_after", newBalance.String()))
	return entry, nil
}

func (s *ledgerService) createDefaultAccountTx(ctx context.Context, querier domain.Querier, userID string) (*domain.Account, error) {
	now := time.Now()
	account := &domain.Account{
		ID:          util.GenerateUUID(),
		UserID:      userID,
		PlanType:    s.defaultPlan,
		Balance:     decimal.Zero,
		CreditLimit: s.defaultLimit,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.accountRepo.CreateTx(ctx, querier, account); err != nil {
		return nil, fmt.Errorf("не удалось создать счет для пользователя %s: %w", userID, err)
	}
	s.logger.Info("Счет создан лениво при первой транзакции",
		zap.String("account_id", account.ID),
		zap.String("user_id", userID),
		zap.String("plan_type", string(account.PlanType)))
	return account, nil
}

func (s *ledgerService) Balance(ctx context.Context, userID string) (*domain.Account, error) {
	account, err := s.accountRepo.GetForUserTx(ctx, s.db, userID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("не удалось получить счет пользователя %s: %w", userID, err)
	}
	return account, nil
}

func (s *ledgerService) Transactions(ctx context.Context, userID string, limit int) ([]domain.LedgerTransaction, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	account, err := s.accountRepo.GetForUserTx(ctx, s.db, userID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("не удалось получить счет пользователя %s: %w", userID, err)
	}
	entries, err := s.ledgerRepo.ListByAccount(ctx, s.db, account.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("не удалось получить историю леджера для счета %s: %w", account.ID, err)
	}
	return entries, nil
}

func (s *ledgerService) Provision(ctx context.Context, userID string, plan domain.PlanType, creditLimit decimal.Decimal) (*domain.Account, error) {
	if plan != domain.PlanPrepaid && plan != domain.PlanPostpaid {
		return nil, fmt.Errorf("неизвестный тип плана: %s", plan)
	}
	if creditLimit.IsNegative() {
		return nil, fmt.Errorf("кредитный лимит не может быть отрицательным")
	}

	now := time.Now()
	account := &domain.Account{
		ID:          util.GenerateUUID(),
		UserID:      userID,
		PlanType:    plan,
		Balance:     decimal.Zero,
		CreditLimit: creditLimit,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := s.txm.WithinTx(ctx, func(q domain.Querier) error {
		return s.accountRepo.CreateTx(ctx, q, account)
	})
	if err != nil {
		if errors.Is(err, domain.ErrAccountAlreadyExists) {
			s.logger.Warn("Попытка создать существующий счет", zap.String("user_id", userID))
			return nil, domain.ErrAccountAlreadyExists
		}
		return nil, fmt.Errorf("не удалось создать счет для пользователя %s: %w", userID, err)
	}

	s.logger.Info("Счет успешно создан",
		zap.String("account_id", account.ID),
		zap.String("user_id", userID),
		zap.String("plan_type", string(plan)),
		zap.String("credit_limit", creditLimit.String()))
	return account, nil
}

func (s *ledgerService) Archive(ctx context.Context, userID string) error {
	err := s.txm.WithinTx(ctx, func(q domain.Querier) error {
		account, err := s.accountRepo.LockForUserTx(ctx, q, userID)
		if err != nil {
			return err
		}
		return s.accountRepo.ArchiveTx(ctx, q, account.ID)
	})
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return domain.ErrAccountNotFound
		}
		return fmt.Errorf("не удалось архивировать счет пользователя %s: %w", userID, err)
	}
	s.logger.Info("Счет архивирован", zap.String("user_id", userID))
	return nil
}
