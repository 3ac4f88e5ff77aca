// Package ledger declares the ports the reporting core and the services depend on.
package ledger

import (
	"context"

	"condofin/internal/core"

	"github.com/shopspring/decimal"
)

// Ports for the transaction store and its collaborators.
type (
	// TransactionReader is the read surface the report and chart engines consume.
	TransactionReader interface {
		// FindByFilters returns matching transactions in no guaranteed order.
		FindByFilters(ctx context.Context, f core.Filters) ([]core.FinancialTransaction, error)
		CountByFilters(ctx context.Context, f core.Filters) (int, error)
		// CalculateTotalBalance is the signed sum (revenue positive, expense negative).
		// Zero dates leave the corresponding bound open.
		CalculateTotalBalance(ctx context.Context, condominiumID int64, start, end core.Date) (decimal.Decimal, error)
	}

	// TransactionWriter is used by transaction-producing collaborators, never by the engines.
	TransactionWriter interface {
		// Save inserts tx when tx.ID is nil and updates it otherwise. The ID is set on insert.
		Save(ctx context.Context, tx *core.FinancialTransaction) error
		FindByID(ctx context.Context, id int64) (core.FinancialTransaction, error)
		Delete(ctx context.Context, id int64) error
	}

	TransactionStore interface {
		TransactionReader
		TransactionWriter
	}

	InvoiceStore interface {
		// SaveInvoice inserts or updates the invoice together with its items.
		SaveInvoice(ctx context.Context, inv *core.Invoice) error
		FindInvoice(ctx context.Context, id int64) (core.Invoice, error)
		ListInvoices(ctx context.Context, f core.InvoiceFilters) ([]core.Invoice, error)
	}

	// EventPublisher announces ledger changes to other processes.
	EventPublisher interface {
		PublishTransactionRecorded(ctx context.Context, tx core.FinancialTransaction) error
		PublishTransactionDeleted(ctx context.Context, tx core.FinancialTransaction) error
	}
)
