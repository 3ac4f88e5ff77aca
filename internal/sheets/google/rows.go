package google

import (
	"fmt"
	"strconv"
	"strings"

	"condofin/internal/core"

	"github.com/shopspring/decimal"
)

// Mirror sheet columns, A through I.
var headerRow = []any{"id", "date", "condominium_id", "type", "category", "description", "amount", "status", "reference"}

const lastColumn = "I"

func transactionRow(tx core.FinancialTransaction) []any {
	return []any{
		*tx.ID,
		tx.Date.String(),
		tx.CondominiumID,
		string(tx.Type),
		tx.Category,
		tx.Description,
		tx.Amount.StringFixed(2),
		string(tx.Status),
		tx.Reference,
	}
}

// parseRow converts a values row back into a transaction. Amounts may come back
// formatted with a decimal comma depending on the sheet locale.
func parseRow(row []any) (core.FinancialTransaction, error) {
	cols := toStrings(row)
	if len(cols) < 8 {
		return core.FinancialTransaction{}, fmt.Errorf("row has %d columns, want at least 8", len(cols))
	}
	id, err := strconv.ParseInt(cols[0], 10, 64)
	if err != nil {
		return core.FinancialTransaction{}, fmt.Errorf("parse id %q: %w", cols[0], err)
	}
	date, err := core.ParseDate(cols[1])
	if err != nil {
		return core.FinancialTransaction{}, fmt.Errorf("parse date %q: %w", cols[1], err)
	}
	condo, err := strconv.ParseInt(cols[2], 10, 64)
	if err != nil {
		return core.FinancialTransaction{}, fmt.Errorf("parse condominium %q: %w", cols[2], err)
	}
	amount, err := decimal.NewFromString(strings.ReplaceAll(cols[6], ",", "."))
	if err != nil {
		return core.FinancialTransaction{}, fmt.Errorf("parse amount %q: %w", cols[6], err)
	}
	tx := core.FinancialTransaction{
		ID:            &id,
		Date:          date,
		CondominiumID: condo,
		Type:          core.TransactionType(cols[3]),
		Category:      cols[4],
		Description:   cols[5],
		Amount:        amount,
		Status:        core.TransactionStatus(cols[7]),
		Reference:     safeGet(cols, 8),
	}
	if err := tx.Validate(); err != nil {
		return core.FinancialTransaction{}, err
	}
	return tx, nil
}

// findRow returns the 1-based sheet row whose first column equals id, or 0.
func findRow(values [][]any, id int64) int {
	want := strconv.FormatInt(id, 10)
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == want {
			return i + 1
		}
	}
	return 0
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
