package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"condofin/internal/core"
	"condofin/internal/ledger"

	"github.com/shopspring/decimal"
)

// DefaultInvoiceCategory is the revenue category used for invoice transactions
// when the caller does not pick one.
const DefaultInvoiceCategory = "taxa_condominio"

// InvoiceService bills units and keeps the ledger in step with invoice state.
type InvoiceService struct {
	invoices ledger.InvoiceStore
	store    ledger.TransactionReader
	ledger   *LedgerService
	now      func() time.Time
}

func NewInvoiceService(invoices ledger.InvoiceStore, store ledger.TransactionReader, ledgerSvc *LedgerService) *InvoiceService {
	return &InvoiceService{invoices: invoices, store: store, ledger: ledgerSvc, now: time.Now}
}

// GenerateInvoice totals and saves inv, then records the pending revenue
// transaction that bills it. The transaction is dated on the due date. When the
// transaction cannot be recorded the invoice is saved again as canceled.
func (s *InvoiceService) GenerateInvoice(ctx context.Context, inv *core.Invoice, category string) (core.FinancialTransaction, error) {
	inv.ID = nil
	inv.TotalAmount = inv.CalculateTotal()
	inv.TotalPaid = decimal.Zero
	inv.Status = core.InvoicePending
	if err := inv.Validate(s.now()); err != nil {
		return core.FinancialTransaction{}, err
	}
	if err := s.invoices.SaveInvoice(ctx, inv); err != nil {
		return core.FinancialTransaction{}, fmt.Errorf("save invoice: %w", err)
	}

	if strings.TrimSpace(category) == "" {
		category = DefaultInvoiceCategory
	}
	id := *inv.ID
	tx := core.FinancialTransaction{
		CondominiumID: inv.CondominiumID,
		Amount:        inv.TotalAmount,
		Type:          core.Revenue,
		Category:      category,
		Description:   fmt.Sprintf("Invoice %s/%d unit %d", inv.ReferenceMonth, inv.ReferenceYear, inv.UnitID),
		Date:          inv.DueDate,
		Status:        core.StatusPending,
		InvoiceID:     &id,
		Reference:     "INV-" + strconv.FormatInt(id, 10),
		Metadata:      map[string]string{"unit_id": strconv.FormatInt(inv.UnitID, 10)},
	}
	if err := s.ledger.RecordTransaction(ctx, &tx); err != nil {
		err = fmt.Errorf("record invoice transaction: %w", err)
		// an invoice without its ledger entry must not stay open
		inv.Status = core.InvoiceCanceled
		if cerr := s.invoices.SaveInvoice(ctx, inv); cerr != nil {
			return core.FinancialTransaction{}, errors.Join(err, fmt.Errorf("cancel invoice %d: %w", id, cerr))
		}
		slog.WarnContext(ctx, "Invoice canceled after ledger write failed",
			"invoice_id", id,
			"error", err)
		return core.FinancialTransaction{}, err
	}

	slog.InfoContext(ctx, "Invoice generated",
		"invoice_id", id,
		"condominium_id", inv.CondominiumID,
		"unit_id", inv.UnitID,
		"total", inv.TotalAmount.StringFixed(2))
	return tx, nil
}

// RegisterPayment applies a payment to the invoice. Once the invoice is fully
// paid its open transactions are completed and stamped with paymentID.
func (s *InvoiceService) RegisterPayment(ctx context.Context, invoiceID int64, amount decimal.Decimal, paymentID int64) (core.Invoice, error) {
	inv, err := s.invoices.FindInvoice(ctx, invoiceID)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("load invoice: %w", err)
	}
	if err := inv.RegisterPayment(amount); err != nil {
		return core.Invoice{}, err
	}
	if err := s.invoices.SaveInvoice(ctx, &inv); err != nil {
		return core.Invoice{}, fmt.Errorf("save invoice: %w", err)
	}

	if inv.Status == core.InvoicePaid {
		n, err := s.updateLinked(ctx, invoiceID, func(tx *core.FinancialTransaction) bool {
			if tx.Status != core.StatusPending && tx.Status != core.StatusOverdue {
				return false
			}
			tx.Status = core.StatusCompleted
			tx.PaymentID = &paymentID
			return true
		})
		if err != nil {
			return core.Invoice{}, err
		}
		slog.InfoContext(ctx, "Invoice settled",
			"invoice_id", invoiceID,
			"payment_id", paymentID,
			"transactions_completed", n)
	}
	return inv, nil
}

// MarkOverdue moves every open invoice due strictly before asOf to overdue,
// together with its pending transactions. It returns the number of invoices moved.
func (s *InvoiceService) MarkOverdue(ctx context.Context, asOf core.Date) (int, error) {
	if asOf.IsZero() {
		asOf = core.DateOf(s.now())
	}
	due, err := s.invoices.ListInvoices(ctx, core.InvoiceFilters{DueBefore: asOf})
	if err != nil {
		return 0, fmt.Errorf("list invoices: %w", err)
	}

	moved := 0
	for i := range due {
		inv := &due[i]
		if inv.Status == core.InvoiceOverdue || !inv.IsOverdue(asOf) {
			continue
		}
		inv.Status = core.InvoiceOverdue
		if err := s.invoices.SaveInvoice(ctx, inv); err != nil {
			return moved, fmt.Errorf("save invoice %d: %w", *inv.ID, err)
		}
		if _, err := s.updateLinked(ctx, *inv.ID, func(tx *core.FinancialTransaction) bool {
			if tx.Status != core.StatusPending {
				return false
			}
			tx.Status = core.StatusOverdue
			return true
		}); err != nil {
			return moved, err
		}
		moved++
	}

	slog.InfoContext(ctx, "Overdue sweep completed",
		"as_of", asOf.String(),
		"candidates", len(due),
		"invoices_overdue", moved)
	return moved, nil
}

// updateLinked applies change to every transaction of the invoice and records
// the ones it reports as modified.
func (s *InvoiceService) updateLinked(ctx context.Context, invoiceID int64, change func(*core.FinancialTransaction) bool) (int, error) {
	txs, err := s.store.FindByFilters(ctx, core.Filters{InvoiceID: invoiceID})
	if err != nil {
		return 0, fmt.Errorf("find invoice transactions: %w", err)
	}
	n := 0
	for i := range txs {
		if !change(&txs[i]) {
			continue
		}
		if err := s.ledger.RecordTransaction(ctx, &txs[i]); err != nil {
			return n, fmt.Errorf("update transaction %d: %w", *txs[i].ID, err)
		}
		n++
	}
	return n, nil
}
