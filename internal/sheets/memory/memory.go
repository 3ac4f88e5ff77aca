package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"condofin/internal/core"
	ports "condofin/internal/sheets"
)

var _ ports.Mirror = (*Mirror)(nil)

// Mirror is an in-process stand-in for the spreadsheet mirror.
type Mirror struct {
	mu   sync.Mutex
	rows map[int64]core.FinancialTransaction
}

func New() *Mirror {
	return &Mirror{rows: make(map[int64]core.FinancialTransaction)}
}

// UpsertTransaction stores tx under its id and returns a synthetic row reference.
func (m *Mirror) UpsertTransaction(_ context.Context, tx core.FinancialTransaction) (string, error) {
	if tx.ID == nil {
		return "", fmt.Errorf("mirror unsaved transaction")
	}
	if err := tx.Validate(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[*tx.ID] = tx
	return fmt.Sprintf("mem:%d", *tx.ID), nil
}

func (m *Mirror) DeleteTransaction(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

// ListTransactions returns mirrored rows ordered by id.
func (m *Mirror) ListTransactions(_ context.Context) ([]core.FinancialTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.FinancialTransaction, 0, len(m.rows))
	for _, tx := range m.rows {
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool { return *out[i].ID < *out[j].ID })
	return out, nil
}
