package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vanshjhamb9/swaroop-admin-sub001/internal/domain"
)

// memStore is a shared in-memory backing store for the fake repositories.
// memTxManager holds the store mutex for the whole transaction function and
// restores a snapshot on error, which models the atomicity and per-account
// serialization the real SQL transaction manager provides.
type memStore struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account            // keyed by userID
	ledger   map[string][]domain.LedgerTransaction // keyed by accountID
}

func newMemStore() *memStore {
	return &memStore{
		accounts: make(map[string]*domain.Account),
		ledger:   make(map[string][]domain.LedgerTransaction),
	}
}

type storeSnapshot struct {
	accounts map[string]*domain.Account
	ledger   map[string][]domain.LedgerTransaction
}

func (s *memStore) snapshot() storeSnapshot {
	snap := storeSnapshot{
		accounts: make(map[string]*domain.Account, len(s.accounts)),
		ledger:   make(map[string][]domain.LedgerTransaction, len(s.ledger)),
	}
	for k, v := range s.accounts {
		cp := *v
		snap.accounts[k] = &cp
	}
	for k, v := range s.ledger {
		snap.ledger[k] = append([]domain.LedgerTransaction(nil), v...)
	}
	return snap
}

func (s *memStore) restore(snap storeSnapshot) {
	s.accounts = snap.accounts
	s.ledger = snap.ledger
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

func newTestService(store *memStore, plan domain.PlanType, limit decimal.Decimal) LedgerService {
	return NewLedgerService(
		nil,
		&memTxManager{store: store},
		&memAccountRepo{store: store},
		&memLedgerRepo{store: store},
		plan,
		limit,
		zap.NewNop(),
	)
}
