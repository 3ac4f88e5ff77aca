package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"condofin/internal/core"

	"github.com/shopspring/decimal"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func tx(amount string, typ core.TransactionType, category string, status core.TransactionStatus, day int) core.FinancialTransaction {
	return core.FinancialTransaction{
		CondominiumID: 1,
		Amount:        decimal.RequireFromString(amount),
		Type:          typ,
		Category:      category,
		Date:          core.NewDate(2024, 1, day),
		Status:        status,
	}
}

func seed(t *testing.T, repo *Repository, txs ...core.FinancialTransaction) []int64 {
	t.Helper()
	ids := make([]int64, 0, len(txs))
	for i := range txs {
		if err := repo.Save(context.Background(), &txs[i]); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
		if txs[i].ID == nil {
			t.Fatalf("save %d: id not set", i)
		}
		ids = append(ids, *txs[i].ID)
	}
	return ids
}

func TestRepositoryFindByFilters(t *testing.T) {
	repo := newTestRepo(t)
	other := tx("99.99", core.Revenue, "aluguel", core.StatusCompleted, 10)
	other.CondominiumID = 2
	seed(t, repo,
		tx("1000", core.Revenue, "aluguel", core.StatusCompleted, 15),
		tx("500", core.Expense, "manutencao", core.StatusCompleted, 20),
		tx("800", core.Revenue, "taxa_condominio", core.StatusPending, 31),
		tx("200", core.Expense, "limpeza", core.StatusOverdue, 5),
		other,
	)

	ctx := context.Background()
	tests := []struct {
		name string
		f    core.Filters
		want int
	}{
		{"condominium", core.Filters{CondominiumID: 1}, 4},
		{"revenue", core.Filters{CondominiumID: 1, Type: core.Revenue}, 2},
		{"overdue", core.Filters{CondominiumID: 1, Status: core.StatusOverdue}, 1},
		{"inclusive range", core.Filters{CondominiumID: 1, StartDate: core.NewDate(2024, 1, 15), EndDate: core.NewDate(2024, 1, 31)}, 3},
		{"open start", core.Filters{CondominiumID: 1, EndDate: core.NewDate(2024, 1, 15)}, 2},
		{"all", core.Filters{}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.FindByFilters(ctx, tt.f)
			if err != nil {
				t.Fatalf("find: %v", err)
			}
			if len(got) != tt.want {
				t.Fatalf("found %d, want %d", len(got), tt.want)
			}
			n, err := repo.CountByFilters(ctx, tt.f)
			if err != nil {
				t.Fatalf("count: %v", err)
			}
			if n != tt.want {
				t.Fatalf("count = %d, want %d", n, tt.want)
			}
		})
	}
}

func TestRepositoryRejectsInvertedRange(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.FindByFilters(context.Background(), core.Filters{
		StartDate: core.NewDate(2024, 2, 1),
		EndDate:   core.NewDate(2024, 1, 1),
	})
	var verr *core.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestRepositoryCalculateTotalBalance(t *testing.T) {
	repo := newTestRepo(t)
	seed(t, repo,
		tx("1000.10", core.Revenue, "aluguel", core.StatusCompleted, 15),
		tx("500.05", core.Expense, "manutencao", core.StatusCompleted, 20),
		tx("0.01", core.Expense, "limpeza", core.StatusCompleted, 25),
	)

	got, err := repo.CalculateTotalBalance(context.Background(), 1, core.Date{}, core.Date{})
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if want := decimal.RequireFromString("500.04"); !got.Equal(want) {
		t.Fatalf("balance = %s, want %s", got, want)
	}

	got, err = repo.CalculateTotalBalance(context.Background(), 1, core.NewDate(2024, 1, 16), core.NewDate(2024, 1, 31))
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if want := decimal.RequireFromString("-500.06"); !got.Equal(want) {
		t.Fatalf("ranged balance = %s, want %s", got, want)
	}

	got, err = repo.CalculateTotalBalance(context.Background(), 42, core.Date{}, core.Date{})
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !got.IsZero() {
		t.Fatalf("empty balance = %s, want 0", got)
	}
}

func TestRepositorySaveFindDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	invoiceID := int64(7)
	in := tx("123.45", core.Revenue, "taxa_condominio", core.StatusPending, 10)
	in.Description = "Taxa de janeiro"
	in.InvoiceID = &invoiceID
	in.Reference = "INV-7"
	in.Metadata = map[string]string{"unit": "101"}
	id := seed(t, repo, in)[0]

	got, err := repo.FindByID(ctx, id)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !got.Amount.Equal(in.Amount) || got.Category != in.Category || got.Reference != "INV-7" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.Date.String() != "2024-01-10" {
		t.Fatalf("date = %s", got.Date)
	}
	if got.InvoiceID == nil || *got.InvoiceID != 7 || got.PaymentID != nil {
		t.Fatalf("invoice/payment ids = %v/%v", got.InvoiceID, got.PaymentID)
	}
	if got.Metadata["unit"] != "101" {
		t.Fatalf("metadata = %v", got.Metadata)
	}

	got.Status = core.StatusCompleted
	if err := repo.Save(ctx, &got); err != nil {
		t.Fatalf("update: %v", err)
	}
	byInvoice, err := repo.FindByFilters(ctx, core.Filters{InvoiceID: 7, Status: core.StatusCompleted})
	if err != nil || len(byInvoice) != 1 {
		t.Fatalf("find by invoice: %v, %d results", err, len(byInvoice))
	}

	if err := repo.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.FindByID(ctx, id); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.Delete(ctx, id); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestRepositorySaveValidates(t *testing.T) {
	repo := newTestRepo(t)
	bad := tx("10", core.Revenue, "", core.StatusPending, 1)
	var verr *core.ValidationError
	if err := repo.Save(context.Background(), &bad); !errors.As(err, &verr) || verr.Field != "category" {
		t.Fatalf("expected category ValidationError, got %v", err)
	}
}

func TestRepositoryRejectsSubCentAmounts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	for _, amount := range []string{"10.555", "0.004"} {
		t.Run(amount, func(t *testing.T) {
			bad := tx(amount, core.Revenue, "aluguel", core.StatusCompleted, 1)
			var verr *core.ValidationError
			if err := repo.Save(ctx, &bad); !errors.As(err, &verr) || verr.Field != "amount" {
				t.Fatalf("expected amount ValidationError, got %v", err)
			}
		})
	}
	if n, err := repo.CountByFilters(ctx, core.Filters{}); err != nil || n != 0 {
		t.Fatalf("rejected amounts were stored: n=%d err=%v", n, err)
	}

	exact := tx("10.55", core.Revenue, "aluguel", core.StatusCompleted, 1)
	ids := seed(t, repo, exact)
	got, err := repo.FindByID(ctx, ids[0])
	if err != nil {
		t.Fatal(err)
	}
	if !got.Amount.Equal(exact.Amount) {
		t.Fatalf("amount = %s, want %s", got.Amount, exact.Amount)
	}
	balance, err := repo.CalculateTotalBalance(ctx, 1, core.Date{}, core.Date{})
	if err != nil || !balance.Equal(exact.Amount) {
		t.Fatalf("balance = %s err=%v", balance, err)
	}
}

func TestRepositoryInvoices(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	inv := core.Invoice{
		CondominiumID:  1,
		UnitID:         101,
		ReferenceMonth: "01",
		ReferenceYear:  2024,
		Items: []core.InvoiceItem{
			{Description: "Taxa condominial", Amount: decimal.NewFromInt(450), Quantity: 1, Type: "taxa_condominio"},
			{Description: "Fundo de reserva", Amount: decimal.RequireFromString("22.50"), Quantity: 2},
		},
		DueDate: core.NewDate(2024, 1, 20),
		Status:  core.InvoicePending,
	}
	inv.TotalAmount = inv.CalculateTotal()
	if err := repo.SaveInvoice(ctx, &inv); err != nil {
		t.Fatalf("save invoice: %v", err)
	}

	got, err := repo.FindInvoice(ctx, *inv.ID)
	if err != nil {
		t.Fatalf("find invoice: %v", err)
	}
	if len(got.Items) != 2 || got.Items[1].Quantity != 2 || !got.TotalAmount.Equal(decimal.NewFromInt(495)) {
		t.Fatalf("invoice round trip mismatch: %+v", got)
	}

	if err := got.RegisterPayment(decimal.NewFromInt(495)); err != nil {
		t.Fatalf("payment: %v", err)
	}
	got.Items = got.Items[:1]
	if err := repo.SaveInvoice(ctx, &got); err != nil {
		t.Fatalf("update invoice: %v", err)
	}

	paid, err := repo.ListInvoices(ctx, core.InvoiceFilters{CondominiumID: 1, Status: core.InvoicePaid})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(paid) != 1 || len(paid[0].Items) != 1 {
		t.Fatalf("paid invoices = %+v", paid)
	}

	due, err := repo.ListInvoices(ctx, core.InvoiceFilters{DueBefore: core.NewDate(2024, 1, 20)})
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("due before is strict, got %d invoices", len(due))
	}

	if _, err := repo.FindInvoice(ctx, 999); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRebind(t *testing.T) {
	pg := &Repository{dialect: DialectPostgres}
	if got := pg.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Fatalf("postgres rebind = %q", got)
	}
	lite := &Repository{dialect: DialectSQLite}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Fatalf("sqlite rebind = %q", got)
	}
}
