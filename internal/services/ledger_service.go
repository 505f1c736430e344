package services

import (
	"context"
	"fmt"

	"metas/internal/clock"
	"metas/internal/core"
)

const (
	defaultTransactionLimit = 50
	maxTransactionLimit     = 200
)

// TransactionStore is the persistence surface LedgerService needs.
type TransactionStore interface {
	AppendTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, ownerID string, id int64) error
	ListTransactions(ctx context.Context, ownerID string, limit int) ([]core.Transaction, error)
	ReadBalanceSummary(ctx context.Context, ownerID string, year, month int) (core.BalanceSummary, error)
}

// LedgerService records income/expense entries and serves balance summaries.
type LedgerService struct {
	store TransactionStore
	clock clock.Clock
}

func NewLedgerService(store TransactionStore, clk clock.Clock) *LedgerService {
	if clk == nil {
		clk = clock.System{}
	}
	return &LedgerService{store: store, clock: clk}
}

// Add validates and stores a ledger entry. An entry without a date is
// stamped with today; a future date is clamped to today.
func (s *LedgerService) Add(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	today := s.clock.Today()

	t.ID = 0
	t.Normalize()
	if t.Date.IsEmpty() || t.Date.After(today.Time) {
		t.Date = today
	}

	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	saved, err := s.store.AppendTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	return saved, nil
}

// Delete removes a ledger entry scoped to its owner.
func (s *LedgerService) Delete(ctx context.Context, ownerID string, id int64) error {
	return s.store.DeleteTransaction(ctx, ownerID, id)
}

// List returns the owner's most recent entries. A non-positive limit falls
// back to the default; oversized limits are capped.
func (s *LedgerService) List(ctx context.Context, ownerID string, limit int) ([]core.Transaction, error) {
	if limit <= 0 {
		limit = defaultTransactionLimit
	}
	if limit > maxTransactionLimit {
		limit = maxTransactionLimit
	}
	return s.store.ListTransactions(ctx, ownerID, limit)
}

// Summary returns the balance overview. Zero year/month default to the
// current month.
func (s *LedgerService) Summary(ctx context.Context, ownerID string, year, month int) (core.BalanceSummary, error) {
	if year == 0 || month == 0 {
		now := s.clock.Now()
		year, month = now.Year(), int(now.Month())
	}
	if month < 1 || month > 12 {
		return core.BalanceSummary{}, core.ErrInvalidDate
	}
	return s.store.ReadBalanceSummary(ctx, ownerID, year, month)
}
