package payments

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vanshjhamb9/swaroop-admin-sub001/internal/app/ledger"
	"github.com/vanshjhamb9/swaroop-admin-sub001/internal/domain"
	"github.com/vanshjhamb9/swaroop-admin-sub001/internal/gateway"
)

// memStore держит все таблицы в памяти; memTxManager берет мьютекс на всю
// транзакцию и откатывает снимок при ошибке, моделируя атомарность и
// сериализацию реального транзакционного менеджера.
type memStore struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account            // keyed by userID
	ledger   map[string][]domain.LedgerTransaction // keyed by accountID
	attempts map[string]*domain.PaymentAttempt     // keyed by merchantTxID
	outbox   []domain.OutboxMessage
}

func newMemStore() *memStore {
	return &memStore{
		accounts: make(map[string]*domain.Account),
		ledger:   make(map[string][]domain.LedgerTransaction),
		attempts: make(map[string]*domain.PaymentAttempt),
	}
}

type storeSnapshot struct {
	accounts map[string]*domain.Account
	ledger   map[string][]domain.LedgerTransaction
	attempts map[string]*domain.PaymentAttempt
	outbox   []domain.OutboxMessage
}

func copyAttempt(a *domain.PaymentAttempt) *domain.PaymentAttempt {
	cp := *a
	if a.Metadata != nil {
		cp.Metadata = make(map[string]string, len(a.Metadata))
		for k, v := range a.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}

func (s *memStore) snapshot() storeSnapshot {
	snap := storeSnapshot{
		accounts: make(map[string]*domain.Account, len(s.accounts)),
		ledger:   make(map[string][]domain.LedgerTransaction, len(s.ledger)),
		attempts: make(map[string]*domain.PaymentAttempt, len(s.attempts)),
		outbox:   append([]domain.OutboxMessage(nil), s.outbox...),
	}
	for k, v := range s.accounts {
		cp := *v
		snap.accounts[k] = &cp
	}
	for k, v := range s.ledger {
		snap.ledger[k] = append([]domain.LedgerTransaction(nil), v...)
	}
	for k, v := range s.attempts {
		snap.attempts[k] = copyAttempt(v)
	}
	return snap
}

func (s *memStore) restore(snap storeSnapshot) {
	s.accounts = snap.accounts
	s.ledger = snap.ledger
	s.attempts = snap.attempts
	s.outbox = snap.outbox
}

type memTxManager struct {
	store *memStore
}

func (m *memTxManager) WithinTx(_ context.Context, fn func(q domain.Querier) error) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	snap := m.store.snapshot()
	if err := fn(nil); err != nil {
		m.store.restore(snap)
		return err
	}
	return nil
}

type memAccountRepo struct {
	store *memStore
}

func (r *memAccountRepo) CreateTx(_ context.Context, _ domain.Querier, account *domain.Account) error {
	if _, ok := r.store.accounts[account.UserID]; ok {
		return domain.ErrAccountAlreadyExists
	}
	cp := *account
	r.store.accounts[account.UserID] = &cp
	return nil
}

func (r *memAccountRepo) GetForUserTx(_ context.Context, _ domain.Querier, userID string) (*domain.Account, error) {
	account, ok := r.store.accounts[userID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	cp := *account
	return &cp, nil
}

func (r *memAccountRepo) LockForUserTx(ctx context.Context, q domain.Querier, userID string) (*domain.Account, error) {
	return r.GetForUserTx(ctx, q, userID)
}

func (r *memAccountRepo) SetBalanceTx(_ context.Context, _ domain.Querier, accountID string, balance decimal.Decimal, updatedAt time.Time) error {
	for _, account := range r.store.accounts {
		if account.ID == accountID {
			account.Balance = balance
			account.UpdatedAt = updatedAt
			return nil
		}
	}
	return domain.ErrAccountNotFound
}

func (r *memAccountRepo) ArchiveTx(_ context.Context, _ domain.Querier, accountID string) error {
	for _, account := range r.store.accounts {
		if account.ID == accountID {
			account.Archived = true
			return nil
		}
	}
	return domain.ErrAccountNotFound
}

type memLedgerRepo struct {
	store *memStore
}

func (r *memLedgerRepo) AppendTx(_ context.Context, _ domain.Querier, entry *domain.LedgerTransaction) error {
	r.store.ledger[entry.AccountID] = append(r.store.ledger[entry.AccountID], *entry)
	return nil
}

func (r *memLedgerRepo) LastSeqTx(_ context.Context, _ domain.Querier, accountID string) (int64, error) {
	entries := r.store.ledger[accountID]
	if len(entries) == 0 {
		return 0, nil
	}
	return entries[len(entries)-1].Seq, nil
}

func (r *memLedgerRepo) ListByAccount(_ context.Context, _ domain.Querier, accountID string, limit int) ([]domain.LedgerTransaction, error) {
	entries := r.store.ledger[accountID]
	var out []domain.LedgerTransaction
	for i := len(entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, entries[i])
	}
	return out, nil
}

type memPaymentRepo struct {
	store *memStore
}

func (r *memPaymentRepo) CreateTx(_ context.Context, _ domain.Querier, attempt *domain.PaymentAttempt) error {
	if _, ok := r.store.attempts[attempt.MerchantTxID]; ok {
		return domain.ErrDuplicatePayment
	}
	r.store.attempts[attempt.MerchantTxID] = copyAttempt(attempt)
	return nil
}

func (r *memPaymentRepo) GetByMerchantTxIDTx(_ context.Context, _ domain.Querier, merchantTxID string) (*domain.PaymentAttempt, error) {
	attempt, ok := r.store.attempts[merchantTxID]
	if !ok {
		return nil, domain.ErrUnknownTransaction
	}
	return copyAttempt(attempt), nil
}

func (r *memPaymentRepo) CompareAndSetStatusTx(_ context.Context, _ domain.Querier, merchantTxID string, from, to domain.PaymentStatus) (bool, error) {
	attempt, ok := r.store.attempts[merchantTxID]
	if !ok {
		return false, domain.ErrUnknownTransaction
	}
	if attempt.Status != from {
		return false, nil
	}
	attempt.Status = to
	attempt.UpdatedAt = time.Now()
	return true, nil
}

func (r *memPaymentRepo) SetGatewayTxIDTx(_ context.Context, _ domain.Querier, merchantTxID, gatewayTxID string) error {
	attempt, ok := r.store.attempts[merchantTxID]
	if !ok {
		return domain.ErrUnknownTransaction
	}
	attempt.GatewayTxID = gatewayTxID
	return nil
}

func (r *memPaymentRepo) SetMetadataTx(_ context.Context, _ domain.Querier, merchantTxID string, metadata map[string]string) error {
	attempt, ok := r.store.attempts[merchantTxID]
	if !ok {
		return domain.ErrUnknownTransaction
	}
	cp := make(map[string]string, len(metadata))
	for k, v := range metadata {
		cp[k] = v
	}
	attempt.Metadata = cp
	return nil
}

func (r *memPaymentRepo) ListDuePending(_ context.Context, _ domain.Querier, now time.Time, limit int) ([]domain.PaymentAttempt, error) {
	var out []domain.PaymentAttempt
	for _, attempt := range r.store.attempts {
		if attempt.Status == domain.PaymentStatusPending && !attempt.NextPollAt.After(now) {
			out = append(out, *copyAttempt(attempt))
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *memPaymentRepo) SchedulePollTx(_ context.Context, _ domain.Querier, merchantTxID string, pollCount int, nextPollAt time.Time) error {
	attempt, ok := r.store.attempts[merchantTxID]
	if !ok {
		return domain.ErrUnknownTransaction
	}
	attempt.PollCount = pollCount
	attempt.NextPollAt = nextPollAt
	return nil
}

type memOutboxRepo struct {
	store *memStore
}

func (r *memOutboxRepo) CreateMessageTx(_ context.Context, _ domain.Querier, msg *domain.OutboxMessage) error {
	r.store.outbox = append(r.store.outbox, *msg)
	return nil
}

func (r *memOutboxRepo) GetPendingMessages(_ context.Context, _ domain.Querier, limit int) ([]domain.OutboxMessage, error) {
	var out []domain.OutboxMessage
	for _, msg := range r.store.outbox {
		if msg.Status == domain.OutboxStatusPending {
			out = append(out, msg)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *memOutboxRepo) UpdateMessageStatusTx(_ context.Context, _ domain.Querier, id string, status domain.OutboxMessageStatus) error {
	for i := range r.store.outbox {
		if r.store.outbox[i].ID == id {
			r.store.outbox[i].Status = status
			return nil
		}
	}
	return errors.New("outbox message not found")
}

type fakeGateway struct {
	mu          sync.Mutex
	session     gateway.Session
	createErr   error
	createCalls int
}

func (g *fakeGateway) CreateSession(_ context.Context, _, _ string, _ decimal.Decimal) (*gateway.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createCalls++
	if g.createErr != nil {
		return nil, g.createErr
	}
	cp := g.session
	return &cp, nil
}

func (g *fakeGateway) QueryStatus(_ context.Context, _ string) (*gateway.Outcome, error) {
	return &gateway.Outcome{Status: gateway.OutcomePending}, nil
}

type testEnv struct {
	store    *memStore
	gateway  *fakeGateway
	ledger   ledger.LedgerService
	payments PaymentService
}

func newTestEnv() *testEnv {
	store := newMemStore()
	txm := &memTxManager{store: store}
	gw := &fakeGateway{session: gateway.Session{GatewayTxID: "gw-1", RedirectURL: "https://pay.example/s/gw-1"}}

	ledgerService := ledger.NewLedgerService(
		nil,
		txm,
		&memAccountRepo{store: store},
		&memLedgerRepo{store: store},
		domain.PlanPrepaid,
		decimal.Zero,
		zap.NewNop(),
	)
	paymentService := NewPaymentService(
		nil,
		txm,
		&memPaymentRepo{store: store},
		&memOutboxRepo{store: store},
		ledgerService,
		gw,
		"payment_status_events",
		5*time.Second,
		zap.NewNop(),
	)
	return &testEnv{store: store, gateway: gw, ledger: ledgerService, payments: paymentService}
}
