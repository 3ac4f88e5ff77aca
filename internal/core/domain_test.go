package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func validTransaction() FinancialTransaction {
	return FinancialTransaction{
		CondominiumID: 1,
		Amount:        decimal.NewFromInt(1000),
		Type:          Revenue,
		Category:      "aluguel",
		Date:          NewDate(2024, 1, 15),
		Status:        StatusCompleted,
	}
}

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false},
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateJSON(t *testing.T) {
	d := NewDate(2024, 1, 15)
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2024-01-15"` {
		t.Fatalf("unexpected encoding %s", b)
	}
	var back Date
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(d.Time) {
		t.Fatalf("round trip mismatch: %v vs %v", back, d)
	}
	if d.MonthKey() != "2024-01" {
		t.Fatalf("month key: %s", d.MonthKey())
	}
}

func TestTransactionValidate(t *testing.T) {
	if err := validTransaction().Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	tests := []struct {
		name  string
		field string
		mut   func(*FinancialTransaction)
	}{
		{"zero condominium", "condominium_id", func(tx *FinancialTransaction) { tx.CondominiumID = 0 }},
		{"zero amount", "amount", func(tx *FinancialTransaction) { tx.Amount = decimal.Zero }},
		{"negative amount", "amount", func(tx *FinancialTransaction) { tx.Amount = decimal.NewFromInt(-5) }},
		{"sub-cent amount", "amount", func(tx *FinancialTransaction) { tx.Amount = decimal.RequireFromString("10.555") }},
		{"amount below one cent", "amount", func(tx *FinancialTransaction) { tx.Amount = decimal.RequireFromString("0.004") }},
		{"bad type", "type", func(tx *FinancialTransaction) { tx.Type = "transfer" }},
		{"bad status", "status", func(tx *FinancialTransaction) { tx.Status = "archived" }},
		{"zero date", "date", func(tx *FinancialTransaction) { tx.Date = Date{} }},
		{"empty category", "category", func(tx *FinancialTransaction) { tx.Category = "  " }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := validTransaction()
			tt.mut(&tx)
			err := tx.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("field = %q, want %q", verr.Field, tt.field)
			}
		})
	}
}

func TestSigned(t *testing.T) {
	tx := validTransaction()
	if !tx.Signed().Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("revenue should be positive")
	}
	tx.Type = Expense
	if !tx.Signed().Equal(decimal.NewFromInt(-1000)) {
		t.Fatalf("expense should be negative")
	}
}

func TestFilters(t *testing.T) {
	tx := validTransaction()

	t.Run("inclusive range", func(t *testing.T) {
		f := Filters{CondominiumID: 1, StartDate: NewDate(2024, 1, 15), EndDate: NewDate(2024, 1, 15)}
		if !f.Matches(tx) {
			t.Fatalf("bounds must be inclusive")
		}
	})

	t.Run("mismatches", func(t *testing.T) {
		for _, f := range []Filters{
			{CondominiumID: 2},
			{Type: Expense},
			{Status: StatusOverdue},
			{StartDate: NewDate(2024, 1, 16)},
			{EndDate: NewDate(2024, 1, 14)},
			{InvoiceID: 9},
		} {
			if f.Matches(tx) {
				t.Errorf("filters %s should not match", f.Key())
			}
		}
	})

	t.Run("start after end", func(t *testing.T) {
		f := Filters{StartDate: NewDate(2024, 2, 1), EndDate: NewDate(2024, 1, 1)}
		var verr *ValidationError
		if err := f.Validate(); !errors.As(err, &verr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("key", func(t *testing.T) {
		f := Filters{CondominiumID: 1, Type: Revenue, StartDate: NewDate(2024, 1, 1), EndDate: NewDate(2024, 1, 31)}
		if got := f.Key(); got != "c=1|t=revenue|from=2024-01-01|to=2024-01-31" {
			t.Fatalf("unexpected key %q", got)
		}
	})
}

func TestValidateWindow(t *testing.T) {
	start, end := NewDate(2024, 1, 1), NewDate(2024, 1, 31)
	if err := ValidateWindow(1, start, end); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	for _, err := range []error{
		ValidateWindow(0, start, end),
		ValidateWindow(1, Date{}, end),
		ValidateWindow(1, start, Date{}),
		ValidateWindow(1, end, start),
	} {
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("expected ValidationError, got %v", err)
		}
	}
}
