package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	InvoicePending  InvoiceStatus = "pending"
	InvoicePaid     InvoiceStatus = "paid"
	InvoiceOverdue  InvoiceStatus = "overdue"
	InvoicePartial  InvoiceStatus = "partial"
	InvoiceCanceled InvoiceStatus = "canceled"
)

// MinReferenceYear is the first billing year accepted.
const MinReferenceYear = 2020

type (
	InvoiceStatus string

	InvoiceItem struct {
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
		Quantity    int             `json:"quantity"`
		Type        string          `json:"type,omitempty"`
	}

	// Invoice bills the items of one unit for one reference month.
	Invoice struct {
		ID             *int64          `json:"id"`
		CondominiumID  int64           `json:"condominium_id"`
		UnitID         int64           `json:"unit_id"`
		ReferenceMonth string          `json:"reference_month"`
		ReferenceYear  int             `json:"reference_year"`
		Items          []InvoiceItem   `json:"items"`
		TotalAmount    decimal.Decimal `json:"total_amount"`
		TotalPaid      decimal.Decimal `json:"total_paid"`
		DueDate        Date            `json:"due_date"`
		Status         InvoiceStatus   `json:"status"`
	}

	// InvoiceFilters selects invoices. Zero values mean "any".
	InvoiceFilters struct {
		CondominiumID int64
		Status        InvoiceStatus
		DueBefore     Date
	}
)

var (
	ErrNoItems       = errors.New("invoice needs at least one item")
	ErrOverpayment   = errors.New("payment exceeds outstanding amount")
	ErrInvoiceClosed = errors.New("invoice is not open for payments")
)

func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoicePending, InvoicePaid, InvoiceOverdue, InvoicePartial, InvoiceCanceled:
		return true
	default:
		return false
	}
}

func (it InvoiceItem) Subtotal() decimal.Decimal {
	return it.Amount.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

func (it InvoiceItem) Validate() error {
	if strings.TrimSpace(it.Description) == "" {
		return errors.New("empty item description")
	}
	if !it.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !IsWholeCents(it.Amount) {
		return ErrSubCentAmount
	}
	if it.Quantity < 1 {
		return errors.New("item quantity must be at least 1")
	}
	return nil
}

// CalculateTotal sums item subtotals.
func (inv Invoice) CalculateTotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range inv.Items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// Outstanding is what is still owed.
func (inv Invoice) Outstanding() decimal.Decimal {
	return inv.TotalAmount.Sub(inv.TotalPaid)
}

// Validate checks the invoice against the billing rules as of now.
func (inv Invoice) Validate(now time.Time) error {
	if inv.CondominiumID <= 0 {
		return &ValidationError{Field: "condominium_id", Message: ErrInvalidCondominium.Error()}
	}
	if inv.UnitID <= 0 {
		return &ValidationError{Field: "unit_id", Message: "invalid unit id"}
	}
	if !validReferenceMonth(inv.ReferenceMonth) {
		return &ValidationError{Field: "reference_month", Message: fmt.Sprintf("invalid reference month %q (want 01..12)", inv.ReferenceMonth)}
	}
	if inv.ReferenceYear < MinReferenceYear || inv.ReferenceYear > now.Year()+1 {
		return &ValidationError{Field: "reference_year", Message: fmt.Sprintf("reference year %d outside [%d, %d]", inv.ReferenceYear, MinReferenceYear, now.Year()+1)}
	}
	if len(inv.Items) == 0 {
		return &ValidationError{Field: "items", Message: ErrNoItems.Error()}
	}
	for i, it := range inv.Items {
		if err := it.Validate(); err != nil {
			return &ValidationError{Field: fmt.Sprintf("items[%d]", i), Message: err.Error()}
		}
	}
	if err := inv.DueDate.Validate(); err != nil {
		return &ValidationError{Field: "due_date", Message: err.Error()}
	}
	if inv.TotalPaid.IsNegative() || inv.TotalPaid.GreaterThan(inv.TotalAmount) {
		return &ValidationError{Field: "total_paid", Message: "total paid must be between 0 and total amount"}
	}
	if inv.Status != "" && !inv.Status.IsValid() {
		return &ValidationError{Field: "status", Message: "invalid invoice status: " + string(inv.Status)}
	}
	return nil
}

// RegisterPayment applies amount to the invoice and moves it to partial or paid.
func (inv *Invoice) RegisterPayment(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return &ValidationError{Field: "amount", Message: ErrInvalidAmount.Error()}
	}
	if !IsWholeCents(amount) {
		return &ValidationError{Field: "amount", Message: ErrSubCentAmount.Error()}
	}
	if inv.Status == InvoicePaid || inv.Status == InvoiceCanceled {
		return ErrInvoiceClosed
	}
	if amount.GreaterThan(inv.Outstanding()) {
		return &ValidationError{Field: "amount", Message: ErrOverpayment.Error()}
	}
	inv.TotalPaid = inv.TotalPaid.Add(amount)
	if inv.TotalPaid.Equal(inv.TotalAmount) {
		inv.Status = InvoicePaid
	} else {
		inv.Status = InvoicePartial
	}
	return nil
}

// IsOverdue reports whether the invoice is unpaid past its due date.
func (inv Invoice) IsOverdue(asOf Date) bool {
	switch inv.Status {
	case InvoicePaid, InvoiceCanceled:
		return false
	}
	return inv.DueDate.Before(asOf.Time)
}

func validReferenceMonth(m string) bool {
	if len(m) != 2 {
		return false
	}
	if m[0] == '0' {
		return m[1] >= '1' && m[1] <= '9'
	}
	return m[0] == '1' && m[1] >= '0' && m[1] <= '2'
}

func (f InvoiceFilters) Matches(inv Invoice) bool {
	if f.CondominiumID != 0 && inv.CondominiumID != f.CondominiumID {
		return false
	}
	if f.Status != "" && inv.Status != f.Status {
		return false
	}
	if !f.DueBefore.IsZero() && !inv.DueDate.Before(f.DueBefore.Time) {
		return false
	}
	return true
}
