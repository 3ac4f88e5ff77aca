package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"condofin/internal/core"
	"condofin/internal/ledger"

	"github.com/shopspring/decimal"
)

// Ensure interface conformance
var (
	_ ledger.TransactionStore = (*Store)(nil)
	_ ledger.InvoiceStore     = (*Store)(nil)
)

// Store keeps transactions and invoices in process memory. Reads return copies
// in insertion order.
type Store struct {
	mu       sync.Mutex
	nextID   int64
	order    []int64
	txs      map[int64]core.FinancialTransaction
	nextInv  int64
	invoices map[int64]core.Invoice
}

func New() *Store {
	return &Store{
		txs:      make(map[int64]core.FinancialTransaction),
		invoices: make(map[int64]core.Invoice),
	}
}

// NewFromFile seeds the store from a JSON array of transactions. A missing file
// yields an empty store.
func NewFromFile(path string) (*Store, error) {
	s := New()
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed []core.FinancialTransaction
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("decode seed file %s: %w", path, err)
	}
	for i := range seed {
		seed[i].ID = nil
		if err := s.Save(context.Background(), &seed[i]); err != nil {
			return nil, fmt.Errorf("seed transaction %d: %w", i, err)
		}
	}
	return s, nil
}

func (s *Store) FindByFilters(_ context.Context, f core.Filters) ([]core.FinancialTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.FinancialTransaction, 0)
	for _, id := range s.order {
		tx := s.txs[id]
		if f.Matches(tx) {
			out = append(out, tx.Clone())
		}
	}
	return out, nil
}

func (s *Store) CountByFilters(ctx context.Context, f core.Filters) (int, error) {
	txs, err := s.FindByFilters(ctx, f)
	if err != nil {
		return 0, err
	}
	return len(txs), nil
}

func (s *Store) CalculateTotalBalance(ctx context.Context, condominiumID int64, start, end core.Date) (decimal.Decimal, error) {
	txs, err := s.FindByFilters(ctx, core.Filters{CondominiumID: condominiumID, StartDate: start, EndDate: end})
	if err != nil {
		return decimal.Zero, err
	}
	balance := decimal.Zero
	for _, tx := range txs {
		balance = balance.Add(tx.Signed())
	}
	return balance, nil
}

func (s *Store) Save(_ context.Context, tx *core.FinancialTransaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.ID == nil {
		s.nextID++
		id := s.nextID
		tx.ID = &id
		s.order = append(s.order, id)
	} else if _, ok := s.txs[*tx.ID]; !ok {
		return fmt.Errorf("update transaction %d: %w", *tx.ID, core.ErrNotFound)
	}
	s.txs[*tx.ID] = tx.Clone()
	return nil
}

func (s *Store) FindByID(_ context.Context, id int64) (core.FinancialTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok {
		return core.FinancialTransaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return tx.Clone(), nil
}

func (s *Store) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txs[id]; !ok {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	delete(s.txs, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) SaveInvoice(_ context.Context, inv *core.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inv.ID == nil {
		s.nextInv++
		id := s.nextInv
		inv.ID = &id
	} else if _, ok := s.invoices[*inv.ID]; !ok {
		return fmt.Errorf("update invoice %d: %w", *inv.ID, core.ErrNotFound)
	}
	cp := *inv
	cp.Items = append([]core.InvoiceItem(nil), inv.Items...)
	s.invoices[*inv.ID] = cp
	return nil
}

func (s *Store) FindInvoice(_ context.Context, id int64) (core.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[id]
	if !ok {
		return core.Invoice{}, fmt.Errorf("invoice %d: %w", id, core.ErrNotFound)
	}
	inv.Items = append([]core.InvoiceItem(nil), inv.Items...)
	return inv, nil
}

func (s *Store) ListInvoices(_ context.Context, f core.InvoiceFilters) ([]core.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Invoice, 0)
	for _, inv := range s.invoices {
		if f.Matches(inv) {
			inv.Items = append([]core.InvoiceItem(nil), inv.Items...)
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return *out[i].ID < *out[j].ID })
	return out, nil
}
