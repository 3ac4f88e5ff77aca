package cache

import (
	"context"
	"fmt"
	"log/slog"

	"condofin/internal/core"
	"condofin/internal/ledger"

	"github.com/shopspring/decimal"
)

var _ ledger.TransactionStore = (*CachedStore)(nil)

// CachedStore is a read-through cache in front of a transaction store. Entries
// are keyed by condominium so a write drops only that condominium's entries,
// plus the unscoped ones.
type CachedStore struct {
	inner    ledger.TransactionStore
	txs      Cache[[]core.FinancialTransaction]
	counts   Cache[int]
	balances Cache[decimal.Decimal]
}

func NewCachedStore(inner ledger.TransactionStore, txs Cache[[]core.FinancialTransaction], counts Cache[int], balances Cache[decimal.Decimal]) *CachedStore {
	return &CachedStore{inner: inner, txs: txs, counts: counts, balances: balances}
}

const (
	kindFind    = "find"
	kindCount   = "count"
	kindBalance = "balance"
)

func cacheKey(kind string, condominiumID int64, rest string) string {
	return fmt.Sprintf("%s:%d:%s", kind, condominiumID, rest)
}

func (s *CachedStore) FindByFilters(ctx context.Context, f core.Filters) ([]core.FinancialTransaction, error) {
	key := cacheKey(kindFind, f.CondominiumID, f.Key())
	if txs, ok := s.txs.Get(ctx, key); ok {
		return cloneAll(txs), nil
	}
	txs, err := s.inner.FindByFilters(ctx, f)
	if err != nil {
		return nil, err
	}
	s.txs.Set(ctx, key, cloneAll(txs))
	return txs, nil
}

func (s *CachedStore) CountByFilters(ctx context.Context, f core.Filters) (int, error) {
	key := cacheKey(kindCount, f.CondominiumID, f.Key())
	if n, ok := s.counts.Get(ctx, key); ok {
		return n, nil
	}
	n, err := s.inner.CountByFilters(ctx, f)
	if err != nil {
		return 0, err
	}
	s.counts.Set(ctx, key, n)
	return n, nil
}

func (s *CachedStore) CalculateTotalBalance(ctx context.Context, condominiumID int64, start, end core.Date) (decimal.Decimal, error) {
	key := cacheKey(kindBalance, condominiumID, start.String()+".."+end.String())
	if v, ok := s.balances.Get(ctx, key); ok {
		return v, nil
	}
	v, err := s.inner.CalculateTotalBalance(ctx, condominiumID, start, end)
	if err != nil {
		return decimal.Zero, err
	}
	s.balances.Set(ctx, key, v)
	return v, nil
}

func (s *CachedStore) Save(ctx context.Context, tx *core.FinancialTransaction) error {
	var previous int64
	if tx.ID != nil {
		if old, err := s.inner.FindByID(ctx, *tx.ID); err == nil {
			previous = old.CondominiumID
		}
	}
	if err := s.inner.Save(ctx, tx); err != nil {
		return err
	}
	s.Invalidate(ctx, tx.CondominiumID)
	if previous != 0 && previous != tx.CondominiumID {
		s.Invalidate(ctx, previous)
	}
	return nil
}

// FindByID is not cached; writers need the current row.
func (s *CachedStore) FindByID(ctx context.Context, id int64) (core.FinancialTransaction, error) {
	return s.inner.FindByID(ctx, id)
}

func (s *CachedStore) Delete(ctx context.Context, id int64) error {
	tx, err := s.inner.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.inner.Delete(ctx, id); err != nil {
		return err
	}
	s.Invalidate(ctx, tx.CondominiumID)
	return nil
}

// Invalidate drops every cached read scoped to condominiumID and every
// unscoped read.
func (s *CachedStore) Invalidate(ctx context.Context, condominiumID int64) {
	n := 0
	for _, condo := range []int64{condominiumID, 0} {
		n += s.txs.DeletePrefix(ctx, cacheKey(kindFind, condo, ""))
		n += s.counts.DeletePrefix(ctx, cacheKey(kindCount, condo, ""))
		n += s.balances.DeletePrefix(ctx, cacheKey(kindBalance, condo, ""))
	}
	slog.DebugContext(ctx, "Cache invalidated", "condominium_id", condominiumID, "entries", n)
}

func cloneAll(txs []core.FinancialTransaction) []core.FinancialTransaction {
	out := make([]core.FinancialTransaction, len(txs))
	for i, tx := range txs {
		out[i] = tx.Clone()
	}
	return out
}
