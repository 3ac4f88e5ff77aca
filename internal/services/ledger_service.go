package services

import (
	"context"
	"fmt"
	"log/slog"

	"condofin/internal/core"
	"condofin/internal/ledger"
)

// LedgerService records and removes transactions and announces each change.
type LedgerService struct {
	store     ledger.TransactionStore
	publisher ledger.EventPublisher
}

// NewLedgerService wires the service. publisher may be nil when no broker is configured.
func NewLedgerService(store ledger.TransactionStore, publisher ledger.EventPublisher) *LedgerService {
	return &LedgerService{store: store, publisher: publisher}
}

// RecordTransaction saves tx and publishes a recorded event. tx.ID is set on insert.
func (s *LedgerService) RecordTransaction(ctx context.Context, tx *core.FinancialTransaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	if err := s.store.Save(ctx, tx); err != nil {
		return fmt.Errorf("save transaction: %w", err)
	}

	// Publishing is best effort; the worker's reconcile pass repairs the mirror.
	if s.publisher == nil {
		slog.WarnContext(ctx, "No event publisher configured, skipping recorded event", "id", *tx.ID)
		return nil
	}
	if err := s.publisher.PublishTransactionRecorded(ctx, *tx); err != nil {
		slog.ErrorContext(ctx, "Failed to publish recorded event",
			"id", *tx.ID, "error", err)
	}
	return nil
}

// DeleteTransaction removes the transaction and publishes a deleted event.
func (s *LedgerService) DeleteTransaction(ctx context.Context, id int64) error {
	tx, err := s.store.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load transaction: %w", err)
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	if s.publisher == nil {
		slog.WarnContext(ctx, "No event publisher configured, skipping deleted event", "id", id)
		return nil
	}
	if err := s.publisher.PublishTransactionDeleted(ctx, tx); err != nil {
		slog.ErrorContext(ctx, "Failed to publish deleted event",
			"id", id, "error", err)
	}
	return nil
}
