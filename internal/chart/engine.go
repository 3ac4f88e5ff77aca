// Package chart shapes ledger transactions into chart-ready label and series data.
package chart

import (
	"context"

	"condofin/internal/core"
	"condofin/internal/ledger"

	"github.com/shopspring/decimal"
)

const (
	TypePie  = "pie"
	TypeLine = "line"
	TypeBar  = "bar"
)

// Dataset keys.
const (
	SeriesData     = "data"
	SeriesRevenue  = "revenue"
	SeriesExpenses = "expenses"
)

// Chart is a chart value: every dataset is aligned positionally with Labels.
type Chart struct {
	Type     string               `json:"type"`
	Labels   []string             `json:"labels"`
	Datasets map[string][]float64 `json:"datasets"`
}

// Logger is the single log call the engine makes per generated chart.
type Logger interface {
	InfoContext(ctx context.Context, msg string, args ...any)
}

type Engine struct {
	store  ledger.TransactionReader
	logger Logger
}

func NewEngine(store ledger.TransactionReader, logger Logger) *Engine {
	return &Engine{store: store, logger: logger}
}

func (e *Engine) GenerateRevenueCategoryChart(ctx context.Context, condominiumID int64, start, end core.Date) (Chart, error) {
	return e.categoryChart(ctx, condominiumID, start, end, core.Revenue)
}

func (e *Engine) GenerateExpenseCategoryChart(ctx context.Context, condominiumID int64, start, end core.Date) (Chart, error) {
	return e.categoryChart(ctx, condominiumID, start, end, core.Expense)
}

func (e *Engine) categoryChart(ctx context.Context, condominiumID int64, start, end core.Date, typ core.TransactionType) (Chart, error) {
	if err := core.ValidateWindow(condominiumID, start, end); err != nil {
		return Chart{}, err
	}
	txs, err := e.store.FindByFilters(ctx, core.Filters{
		CondominiumID: condominiumID,
		Type:          typ,
		StartDate:     start,
		EndDate:       end,
	})
	if err != nil {
		return Chart{}, err
	}
	b := core.NewBreakdown()
	for _, tx := range txs {
		b.Add(tx.Category, tx.Amount)
	}
	c := single(TypePie, b)
	e.logger.InfoContext(ctx, "Category chart generated",
		"condominium_id", condominiumID,
		"type", typ,
		"categories", b.Len(),
		"total", b.Total().StringFixed(2))
	return c, nil
}

// GenerateCashFlowChart emits one point per transaction, in store order. Dates
// repeat when several transactions share a day.
func (e *Engine) GenerateCashFlowChart(ctx context.Context, condominiumID int64, start, end core.Date) (Chart, error) {
	if err := core.ValidateWindow(condominiumID, start, end); err != nil {
		return Chart{}, err
	}
	txs, err := e.store.FindByFilters(ctx, core.Filters{
		CondominiumID: condominiumID,
		StartDate:     start,
		EndDate:       end,
	})
	if err != nil {
		return Chart{}, err
	}

	labels := make([]string, 0, len(txs))
	data := make([]float64, 0, len(txs))
	net := decimal.Zero
	for _, tx := range txs {
		labels = append(labels, tx.Date.String())
		data = append(data, toFloat(tx.Signed()))
		net = net.Add(tx.Signed())
	}
	e.logger.InfoContext(ctx, "Cash flow chart generated",
		"condominium_id", condominiumID,
		"points", len(labels),
		"net", net.StringFixed(2))
	return Chart{Type: TypeLine, Labels: labels, Datasets: map[string][]float64{SeriesData: data}}, nil
}

// GenerateDelinquencyChart groups overdue transactions by category. Like the
// delinquency report it filters on status only.
func (e *Engine) GenerateDelinquencyChart(ctx context.Context, condominiumID int64, referenceDate core.Date) (Chart, error) {
	if condominiumID <= 0 {
		return Chart{}, &core.ValidationError{Field: "condominium_id", Message: core.ErrInvalidCondominium.Error()}
	}
	txs, err := e.store.FindByFilters(ctx, core.Filters{CondominiumID: condominiumID, Status: core.StatusOverdue})
	if err != nil {
		return Chart{}, err
	}
	b := core.NewBreakdown()
	for _, tx := range txs {
		b.Add(tx.Category, tx.Amount)
	}
	e.logger.InfoContext(ctx, "Delinquency chart generated",
		"condominium_id", condominiumID,
		"reference_date", referenceDate.String(),
		"total", b.Total().StringFixed(2))
	return single(TypeBar, b), nil
}

// GenerateRevenueExpenseComparisonChart buckets both types by YYYY-MM. Months
// appear in the order they are first seen.
func (e *Engine) GenerateRevenueExpenseComparisonChart(ctx context.Context, condominiumID int64, start, end core.Date) (Chart, error) {
	if err := core.ValidateWindow(condominiumID, start, end); err != nil {
		return Chart{}, err
	}
	txs, err := e.store.FindByFilters(ctx, core.Filters{
		CondominiumID: condominiumID,
		StartDate:     start,
		EndDate:       end,
	})
	if err != nil {
		return Chart{}, err
	}

	months := core.NewBreakdown()
	revenue := core.NewBreakdown()
	expenses := core.NewBreakdown()
	for _, tx := range txs {
		key := tx.Date.MonthKey()
		months.Touch(key)
		switch tx.Type {
		case core.Revenue:
			revenue.Add(key, tx.Amount)
		case core.Expense:
			expenses.Add(key, tx.Amount)
		}
	}

	labels := months.Keys()
	if labels == nil {
		labels = []string{}
	}
	revSeries := make([]float64, len(labels))
	expSeries := make([]float64, len(labels))
	for i, m := range labels {
		if v, ok := revenue.Get(m); ok {
			revSeries[i] = toFloat(v)
		}
		if v, ok := expenses.Get(m); ok {
			expSeries[i] = toFloat(v)
		}
	}
	e.logger.InfoContext(ctx, "Comparison chart generated",
		"condominium_id", condominiumID,
		"months", len(labels),
		"total_revenue", revenue.Total().StringFixed(2),
		"total_expenses", expenses.Total().StringFixed(2))
	return Chart{
		Type:     TypeBar,
		Labels:   labels,
		Datasets: map[string][]float64{SeriesRevenue: revSeries, SeriesExpenses: expSeries},
	}, nil
}

func single(typ string, b *core.Breakdown) Chart {
	labels := b.Keys()
	if labels == nil {
		labels = []string{}
	}
	data := make([]float64, 0, len(labels))
	for _, v := range b.Values() {
		data = append(data, toFloat(v))
	}
	return Chart{Type: typ, Labels: labels, Datasets: map[string][]float64{SeriesData: data}}
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}
