package sheets

import (
	"context"

	"condofin/internal/core"
)

// Ports for the spreadsheet mirror of the ledger.
type (
	// LedgerMirror keeps one row per transaction, keyed by transaction id.
	LedgerMirror interface {
		UpsertTransaction(ctx context.Context, tx core.FinancialTransaction) (rowRef string, err error)
		// DeleteTransaction removes the row for id. A missing row is not an error.
		DeleteTransaction(ctx context.Context, id int64) error
	}

	// MirrorLister reads back the mirrored transactions.
	MirrorLister interface {
		ListTransactions(ctx context.Context) ([]core.FinancialTransaction, error)
	}

	Mirror interface {
		LedgerMirror
		MirrorLister
	}
)
