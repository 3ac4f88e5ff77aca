package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"condofin/internal/core"

	"github.com/shopspring/decimal"
)

func TestStoreSaveAndFilter(t *testing.T) {
	s := New()
	ctx := context.Background()
	txs := []core.FinancialTransaction{
		{CondominiumID: 1, Amount: decimal.NewFromInt(1000), Type: core.Revenue, Category: "aluguel", Date: core.NewDate(2024, 1, 15), Status: core.StatusCompleted},
		{CondominiumID: 1, Amount: decimal.NewFromInt(500), Type: core.Expense, Category: "manutencao", Date: core.NewDate(2024, 1, 20), Status: core.StatusCompleted},
		{CondominiumID: 2, Amount: decimal.NewFromInt(70), Type: core.Expense, Category: "limpeza", Date: core.NewDate(2024, 1, 20), Status: core.StatusOverdue},
	}
	for i := range txs {
		if err := s.Save(ctx, &txs[i]); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	if *txs[0].ID != 1 || *txs[2].ID != 3 {
		t.Fatalf("ids = %d, %d", *txs[0].ID, *txs[2].ID)
	}

	got, err := s.FindByFilters(ctx, core.Filters{CondominiumID: 1})
	if err != nil || len(got) != 2 {
		t.Fatalf("find: %v, %d", err, len(got))
	}
	if got[0].Category != "aluguel" || got[1].Category != "manutencao" {
		t.Fatalf("insertion order not kept: %s, %s", got[0].Category, got[1].Category)
	}

	// returned values are copies
	got[0].Category = "changed"
	again, _ := s.FindByID(ctx, *txs[0].ID)
	if again.Category != "aluguel" {
		t.Fatalf("store was mutated through a returned value")
	}

	balance, err := s.CalculateTotalBalance(ctx, 1, core.Date{}, core.Date{})
	if err != nil || !balance.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("balance = %s, %v", balance, err)
	}

	if err := s.Delete(ctx, *txs[1].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n, _ := s.CountByFilters(ctx, core.Filters{}); n != 2 {
		t.Fatalf("count after delete = %d", n)
	}
	if _, err := s.FindByID(ctx, *txs[1].ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreUpdateUnknown(t *testing.T) {
	s := New()
	id := int64(9)
	tx := core.FinancialTransaction{ID: &id, CondominiumID: 1, Amount: decimal.NewFromInt(1), Type: core.Revenue, Category: "x", Date: core.NewDate(2024, 1, 1), Status: core.StatusPending}
	if err := s.Save(context.Background(), &tx); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNewFromFile(t *testing.T) {
	dir := t.TempDir()

	s, err := NewFromFile(filepath.Join(dir, "missing.json"))
	if err != nil {
		t.Fatalf("missing file: %v", err)
	}
	if n, _ := s.CountByFilters(context.Background(), core.Filters{}); n != 0 {
		t.Fatalf("expected empty store, got %d", n)
	}

	path := filepath.Join(dir, "seed.json")
	seed := `[
		{"id": 40, "condominium_id": 1, "amount": "1000.00", "type": "revenue", "category": "aluguel", "date": "2024-01-15", "status": "completed"},
		{"condominium_id": 1, "amount": "200", "type": "expense", "category": "limpeza", "date": "2024-01-05", "status": "overdue"}
	]`
	if err := os.WriteFile(path, []byte(seed), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err = NewFromFile(path)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	got, _ := s.FindByFilters(context.Background(), core.Filters{Status: core.StatusOverdue})
	if len(got) != 1 || *got[0].ID != 2 {
		t.Fatalf("seeded overdue = %+v", got)
	}

	if err := os.WriteFile(path, []byte(`[{"condominium_id": 0}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFromFile(path); err == nil {
		t.Fatal("expected error for invalid seed")
	}
}
