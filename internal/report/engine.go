// Package report aggregates ledger transactions into revenue, expense,
// delinquency and consolidated reports and exports them as CSV or JSON.
package report

import (
	"context"
	"time"

	"condofin/internal/core"
	"condofin/internal/ledger"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Logger is the single log call the engine makes per successful operation.
type Logger interface {
	InfoContext(ctx context.Context, msg string, args ...any)
}

type (
	RevenueReport struct {
		TotalRevenue decimal.Decimal             `json:"total_revenue"`
		Categories   *core.Breakdown             `json:"categories"`
		Transactions []core.FinancialTransaction `json:"transactions"`
	}

	ExpenseReport struct {
		TotalExpenses decimal.Decimal             `json:"total_expenses"`
		Categories    *core.Breakdown             `json:"categories"`
		Transactions  []core.FinancialTransaction `json:"transactions"`
	}

	DelinquencyReport struct {
		TotalDelinquentAmount  decimal.Decimal             `json:"total_delinquent_amount"`
		DelinquentTransactions []core.FinancialTransaction `json:"delinquent_transactions"`
		// DelinquencyRate is a percentage with one decimal.
		DelinquencyRate decimal.Decimal `json:"delinquency_rate"`
	}

	ConsolidatedReport struct {
		TotalRevenue      decimal.Decimal `json:"total_revenue"`
		TotalExpenses     decimal.Decimal `json:"total_expenses"`
		NetBalance        decimal.Decimal `json:"net_balance"`
		RevenueCategories *core.Breakdown `json:"revenue_categories"`
		ExpenseCategories *core.Breakdown `json:"expense_categories"`
	}
)

// Engine builds reports from a transaction reader. It keeps no state between calls.
type Engine struct {
	store  ledger.TransactionReader
	logger Logger
	now    func() time.Time
}

func NewEngine(store ledger.TransactionReader, logger Logger) *Engine {
	return &Engine{store: store, logger: logger, now: time.Now}
}

func (e *Engine) GenerateRevenueReport(ctx context.Context, condominiumID int64, start, end core.Date) (RevenueReport, error) {
	if err := core.ValidateWindow(condominiumID, start, end); err != nil {
		return RevenueReport{}, err
	}
	txs, total, cats, err := e.aggregate(ctx, condominiumID, start, end, core.Revenue)
	if err != nil {
		return RevenueReport{}, err
	}
	e.logger.InfoContext(ctx, "Revenue report generated",
		"condominium_id", condominiumID,
		"total_revenue", total.StringFixed(2),
		"transactions", len(txs))
	return RevenueReport{TotalRevenue: total, Categories: cats, Transactions: txs}, nil
}

func (e *Engine) GenerateExpenseReport(ctx context.Context, condominiumID int64, start, end core.Date) (ExpenseReport, error) {
	if err := core.ValidateWindow(condominiumID, start, end); err != nil {
		return ExpenseReport{}, err
	}
	txs, total, cats, err := e.aggregate(ctx, condominiumID, start, end, core.Expense)
	if err != nil {
		return ExpenseReport{}, err
	}
	e.logger.InfoContext(ctx, "Expense report generated",
		"condominium_id", condominiumID,
		"total_expenses", total.StringFixed(2),
		"transactions", len(txs))
	return ExpenseReport{TotalExpenses: total, Categories: cats, Transactions: txs}, nil
}

// GenerateDelinquencyReport selects overdue transactions by status only. The
// reference date does not narrow the query; a zero date means today.
func (e *Engine) GenerateDelinquencyReport(ctx context.Context, condominiumID int64, referenceDate core.Date) (DelinquencyReport, error) {
	if condominiumID <= 0 {
		return DelinquencyReport{}, &core.ValidationError{Field: "condominium_id", Message: core.ErrInvalidCondominium.Error()}
	}
	if referenceDate.IsZero() {
		referenceDate = core.DateOf(e.now())
	}

	overdue, err := e.store.FindByFilters(ctx, core.Filters{CondominiumID: condominiumID, Status: core.StatusOverdue})
	if err != nil {
		return DelinquencyReport{}, err
	}
	all, err := e.store.CountByFilters(ctx, core.Filters{CondominiumID: condominiumID})
	if err != nil {
		return DelinquencyReport{}, err
	}

	if overdue == nil {
		overdue = []core.FinancialTransaction{}
	}
	total := decimal.Zero
	for _, tx := range overdue {
		total = total.Add(tx.Amount)
	}
	rate := delinquencyRate(len(overdue), all)

	e.logger.InfoContext(ctx, "Delinquency report generated",
		"condominium_id", condominiumID,
		"reference_date", referenceDate.String(),
		"total_delinquent_amount", total.StringFixed(2),
		"delinquency_rate", rate.StringFixed(1))
	return DelinquencyReport{
		TotalDelinquentAmount:  total,
		DelinquentTransactions: overdue,
		DelinquencyRate:        rate,
	}, nil
}

// GenerateConsolidatedReport reads revenue and expenses for the window concurrently.
func (e *Engine) GenerateConsolidatedReport(ctx context.Context, condominiumID int64, start, end core.Date) (ConsolidatedReport, error) {
	if err := core.ValidateWindow(condominiumID, start, end); err != nil {
		return ConsolidatedReport{}, err
	}

	var (
		rep ConsolidatedReport
		g   errgroup.Group
	)
	g.Go(func() error {
		_, total, cats, err := e.aggregate(ctx, condominiumID, start, end, core.Revenue)
		rep.TotalRevenue, rep.RevenueCategories = total, cats
		return err
	})
	g.Go(func() error {
		_, total, cats, err := e.aggregate(ctx, condominiumID, start, end, core.Expense)
		rep.TotalExpenses, rep.ExpenseCategories = total, cats
		return err
	})
	if err := g.Wait(); err != nil {
		return ConsolidatedReport{}, err
	}
	rep.NetBalance = rep.TotalRevenue.Sub(rep.TotalExpenses)

	e.logger.InfoContext(ctx, "Consolidated report generated",
		"condominium_id", condominiumID,
		"total_revenue", rep.TotalRevenue.StringFixed(2),
		"total_expenses", rep.TotalExpenses.StringFixed(2),
		"net_balance", rep.NetBalance.StringFixed(2))
	return rep, nil
}

func (e *Engine) aggregate(ctx context.Context, condominiumID int64, start, end core.Date, typ core.TransactionType) ([]core.FinancialTransaction, decimal.Decimal, *core.Breakdown, error) {
	txs, err := e.store.FindByFilters(ctx, core.Filters{
		CondominiumID: condominiumID,
		Type:          typ,
		StartDate:     start,
		EndDate:       end,
	})
	if err != nil {
		return nil, decimal.Zero, nil, err
	}
	cats := core.NewBreakdown()
	total := decimal.Zero
	for _, tx := range txs {
		cats.Add(tx.Category, tx.Amount)
		total = total.Add(tx.Amount)
	}
	if txs == nil {
		txs = []core.FinancialTransaction{}
	}
	return txs, total, cats, nil
}

func delinquencyRate(delinquent, total int) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(delinquent)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(total))).
		Round(1)
}
