package core

import (
	"fmt"
	"strings"
)

// Filters selects transactions. Zero values mean "any".
// StartDate and EndDate bound the transaction date inclusively.
type Filters struct {
	CondominiumID int64
	Type          TransactionType
	Status        TransactionStatus
	StartDate     Date
	EndDate       Date
	InvoiceID     int64
}

func (f Filters) Validate() error {
	if f.CondominiumID < 0 {
		return &ValidationError{Field: "condominium_id", Message: ErrInvalidCondominium.Error()}
	}
	if f.Type != "" && !f.Type.IsValid() {
		return &ValidationError{Field: "type", Message: ErrInvalidType.Error() + ": " + string(f.Type)}
	}
	if f.Status != "" && !f.Status.IsValid() {
		return &ValidationError{Field: "status", Message: ErrInvalidStatus.Error() + ": " + string(f.Status)}
	}
	if !f.StartDate.IsZero() && !f.EndDate.IsZero() && f.StartDate.After(f.EndDate.Time) {
		return &ValidationError{Field: "start_date", Message: "start date must not be after end date"}
	}
	return nil
}

// Matches reports whether t satisfies every set filter.
func (f Filters) Matches(t FinancialTransaction) bool {
	if f.CondominiumID != 0 && t.CondominiumID != f.CondominiumID {
		return false
	}
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if !f.StartDate.IsZero() && t.Date.Before(f.StartDate.Time) {
		return false
	}
	if !f.EndDate.IsZero() && t.Date.After(f.EndDate.Time) {
		return false
	}
	if f.InvoiceID != 0 && (t.InvoiceID == nil || *t.InvoiceID != f.InvoiceID) {
		return false
	}
	return true
}

// Key is a stable textual form of the filters, used for cache keys.
func (f Filters) Key() string {
	var b strings.Builder
	fmt.Fprintf(&b, "c=%d", f.CondominiumID)
	if f.Type != "" {
		fmt.Fprintf(&b, "|t=%s", f.Type)
	}
	if f.Status != "" {
		fmt.Fprintf(&b, "|s=%s", f.Status)
	}
	if !f.StartDate.IsZero() {
		fmt.Fprintf(&b, "|from=%s", f.StartDate)
	}
	if !f.EndDate.IsZero() {
		fmt.Fprintf(&b, "|to=%s", f.EndDate)
	}
	if f.InvoiceID != 0 {
		fmt.Fprintf(&b, "|inv=%d", f.InvoiceID)
	}
	return b.String()
}

// ValidateWindow checks the inputs shared by every ranged report and chart.
func ValidateWindow(condominiumID int64, start, end Date) error {
	if condominiumID <= 0 {
		return &ValidationError{Field: "condominium_id", Message: ErrInvalidCondominium.Error()}
	}
	if start.IsZero() {
		return &ValidationError{Field: "start_date", Message: "start date is required"}
	}
	if end.IsZero() {
		return &ValidationError{Field: "end_date", Message: "end date is required"}
	}
	if start.After(end.Time) {
		return &ValidationError{Field: "start_date", Message: "start date must not be after end date"}
	}
	return nil
}
