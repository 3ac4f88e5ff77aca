package core

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const DateLayout = "2006-01-02"

const (
	Revenue TransactionType = "revenue"
	Expense TransactionType = "expense"
)

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusCancelled TransactionStatus = "cancelled"
	StatusOverdue   TransactionStatus = "overdue"
)

type (
	TransactionType   string
	TransactionStatus string

	Date struct {
		time.Time
	}

	// FinancialTransaction is one ledger entry. ID is nil until the entry is persisted.
	FinancialTransaction struct {
		ID            *int64            `json:"id"`
		CondominiumID int64             `json:"condominium_id"`
		Amount        decimal.Decimal   `json:"amount"`
		Type          TransactionType   `json:"type"`
		Category      string            `json:"category"`
		Description   string            `json:"description,omitempty"`
		Date          Date              `json:"date"`
		Status        TransactionStatus `json:"status"`
		InvoiceID     *int64            `json:"invoice_id,omitempty"`
		PaymentID     *int64            `json:"payment_id,omitempty"`
		Reference     string            `json:"reference,omitempty"`
		Metadata      map[string]string `json:"metadata,omitempty"`
	}
)

var (
	ErrInvalidDay         = errors.New("invalid day")
	ErrInvalidMonth       = errors.New("invalid month")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrSubCentAmount      = errors.New("amount has more than 2 decimal places")
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrInvalidStatus      = errors.New("invalid transaction status")
	ErrInvalidCondominium = errors.New("invalid condominium id")
	ErrEmptyCategory      = errors.New("empty category")
	ErrNotFound           = errors.New("not found")
)

func (t TransactionType) IsValid() bool {
	return t == Revenue || t == Expense
}

func (s TransactionStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCancelled, StatusOverdue:
		return true
	default:
		return false
	}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses an ISO date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// IsEmpty returns true if the date is zero (optional range bounds)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// String returns the ISO representation, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// MonthKey returns the YYYY-MM bucket the date falls in.
func (d Date) MonthKey() string {
	return d.Format("2006-01")
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Clone returns a copy that shares no pointers or maps with t.
func (t FinancialTransaction) Clone() FinancialTransaction {
	if t.ID != nil {
		id := *t.ID
		t.ID = &id
	}
	if t.InvoiceID != nil {
		v := *t.InvoiceID
		t.InvoiceID = &v
	}
	if t.PaymentID != nil {
		v := *t.PaymentID
		t.PaymentID = &v
	}
	if t.Metadata != nil {
		md := make(map[string]string, len(t.Metadata))
		for k, v := range t.Metadata {
			md[k] = v
		}
		t.Metadata = md
	}
	return t
}

// Signed returns the amount as it contributes to a balance: revenue positive, expense negative.
func (t FinancialTransaction) Signed() decimal.Decimal {
	if t.Type == Expense {
		return t.Amount.Neg()
	}
	return t.Amount
}

func (t FinancialTransaction) Validate() error {
	if t.CondominiumID <= 0 {
		return &ValidationError{Field: "condominium_id", Message: ErrInvalidCondominium.Error()}
	}
	if !t.Amount.IsPositive() {
		return &ValidationError{Field: "amount", Message: ErrInvalidAmount.Error()}
	}
	if !IsWholeCents(t.Amount) {
		return &ValidationError{Field: "amount", Message: ErrSubCentAmount.Error()}
	}
	if !t.Type.IsValid() {
		return &ValidationError{Field: "type", Message: ErrInvalidType.Error() + ": " + string(t.Type)}
	}
	if !t.Status.IsValid() {
		return &ValidationError{Field: "status", Message: ErrInvalidStatus.Error() + ": " + string(t.Status)}
	}
	if err := t.Date.Validate(); err != nil {
		return &ValidationError{Field: "date", Message: err.Error()}
	}
	if strings.TrimSpace(t.Category) == "" {
		return &ValidationError{Field: "category", Message: ErrEmptyCategory.Error()}
	}
	if len(t.Description) > 255 {
		return &ValidationError{Field: "description", Message: "description too long (max 255 characters)"}
	}
	return nil
}
