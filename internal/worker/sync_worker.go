package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"condofin/internal/amqp"
	"condofin/internal/core"
	"condofin/internal/sheets"
)

// TransactionSource is the store surface the worker reads.
type TransactionSource interface {
	FindByFilters(ctx context.Context, f core.Filters) ([]core.FinancialTransaction, error)
	FindByID(ctx context.Context, id int64) (core.FinancialTransaction, error)
}

// Invalidator drops cached reads for a condominium.
type Invalidator interface {
	Invalidate(ctx context.Context, condominiumID int64)
}

// SyncWorker applies ledger events to the caches and the Sheets mirror.
type SyncWorker struct {
	store     TransactionSource
	mirror    sheets.Mirror
	cache     Invalidator
	batchSize int
}

// NewSyncWorker builds a worker. mirror and cache may be nil.
func NewSyncWorker(store TransactionSource, mirror sheets.Mirror, cache Invalidator, batchSize int) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &SyncWorker{
		store:     store,
		mirror:    mirror,
		cache:     cache,
		batchSize: batchSize,
	}
}

// HandleEvent processes a single ledger event from AMQP
func (w *SyncWorker) HandleEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"event_id", ev.EventID,
		"event_type", ev.Type,
		"transaction_id", ev.TransactionID,
		"condominium_id", ev.CondominiumID)

	if w.cache != nil {
		w.cache.Invalidate(ctx, ev.CondominiumID)
	}
	if w.mirror == nil {
		return nil
	}

	switch ev.Type {
	case amqp.EventTransactionRecorded:
		tx, err := w.store.FindByID(ctx, ev.TransactionID)
		if errors.Is(err, core.ErrNotFound) {
			// deleted before the event was consumed; its own event follows
			slog.WarnContext(ctx, "Recorded transaction no longer exists", "transaction_id", ev.TransactionID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("get transaction from storage: %w", err)
		}
		if _, err := w.mirror.UpsertTransaction(ctx, tx); err != nil {
			return fmt.Errorf("mirror transaction: %w", err)
		}
		return nil
	case amqp.EventTransactionDeleted:
		if err := w.mirror.DeleteTransaction(ctx, ev.TransactionID); err != nil {
			return fmt.Errorf("delete mirrored transaction: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
}

// ReconcileResult counts the mirror writes of one reconcile pass.
type ReconcileResult struct {
	Upserted int
	Deleted  int
	Errors   int
	// Remaining is the number of differences left for the next pass.
	Remaining int
}

// Reconcile brings the mirror in line with the store. It recovers from missed
// AMQP messages and worker downtime. At most batchSize rows are written per pass.
func (w *SyncWorker) Reconcile(ctx context.Context) (ReconcileResult, error) {
	var res ReconcileResult
	if w.mirror == nil {
		return res, nil
	}

	stored, err := w.store.FindByFilters(ctx, core.Filters{})
	if err != nil {
		return res, fmt.Errorf("list stored transactions: %w", err)
	}
	mirrored, err := w.mirror.ListTransactions(ctx)
	if err != nil {
		return res, fmt.Errorf("list mirrored transactions: %w", err)
	}

	upserts, deletes := diff(stored, mirrored)
	if len(upserts) == 0 && len(deletes) == 0 {
		slog.InfoContext(ctx, "Mirror is in sync", "transactions", len(stored))
		return res, nil
	}

	budget := w.batchSize
	for _, tx := range upserts {
		if budget == 0 {
			res.Remaining++
			continue
		}
		budget--
		if _, err := w.mirror.UpsertTransaction(ctx, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror transaction during reconcile",
				"transaction_id", *tx.ID, "error", err)
			res.Errors++
			continue
		}
		res.Upserted++
	}
	for _, id := range deletes {
		if budget == 0 {
			res.Remaining++
			continue
		}
		budget--
		if err := w.mirror.DeleteTransaction(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Failed to delete mirrored transaction during reconcile",
				"transaction_id", id, "error", err)
			res.Errors++
			continue
		}
		res.Deleted++
	}

	slog.InfoContext(ctx, "Reconcile completed",
		"upserted", res.Upserted,
		"deleted", res.Deleted,
		"errors", res.Errors,
		"remaining", res.Remaining)
	return res, nil
}

// diff returns the stored transactions the mirror lacks or holds stale, in id
// order, and the mirrored ids that are gone from the store.
func diff(stored, mirrored []core.FinancialTransaction) ([]core.FinancialTransaction, []int64) {
	byID := make(map[int64]core.FinancialTransaction, len(mirrored))
	for _, m := range mirrored {
		if m.ID != nil {
			byID[*m.ID] = m
		}
	}

	var upserts []core.FinancialTransaction
	for _, tx := range stored {
		if tx.ID == nil {
			continue
		}
		m, ok := byID[*tx.ID]
		delete(byID, *tx.ID)
		if !ok || !sameRow(tx, m) {
			upserts = append(upserts, tx)
		}
	}
	sort.Slice(upserts, func(i, j int) bool { return *upserts[i].ID < *upserts[j].ID })

	deletes := make([]int64, 0, len(byID))
	for id := range byID {
		deletes = append(deletes, id)
	}
	sort.Slice(deletes, func(i, j int) bool { return deletes[i] < deletes[j] })
	return upserts, deletes
}

// sameRow compares the columns the mirror holds.
func sameRow(a, b core.FinancialTransaction) bool {
	return a.CondominiumID == b.CondominiumID &&
		a.Date.Equal(b.Date.Time) &&
		a.Type == b.Type &&
		a.Category == b.Category &&
		a.Description == b.Description &&
		a.Amount.Equal(b.Amount) &&
		a.Status == b.Status &&
		a.Reference == b.Reference
}
