package main

import (
	"context"
	"fmt"
	"time"

	"condofin/internal/archive"
	"condofin/internal/chart"
	"condofin/internal/core"
	"condofin/internal/services"
)

func reportCmd(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("report", a.out)
	kind := fs.String("type", "consolidated", "revenue, expense, delinquency or consolidated")
	condo := fs.Int64("condo", 0, "condominium id")
	format := fs.String("format", "json", "json or csv")
	var start, end, ref dateFlag
	fs.Var(&start, "start", "window start (YYYY-MM-DD)")
	fs.Var(&end, "end", "window end (YYYY-MM-DD)")
	fs.Var(&ref, "ref", "delinquency reference date, default today")
	if err := parse(fs, args); err != nil {
		return err
	}

	var (
		data any
		err  error
	)
	switch *kind {
	case "revenue":
		data, err = a.reports.GenerateRevenueReport(ctx, *condo, start.Date, end.Date)
	case "expense":
		data, err = a.reports.GenerateExpenseReport(ctx, *condo, start.Date, end.Date)
	case "delinquency":
		data, err = a.reports.GenerateDelinquencyReport(ctx, *condo, ref.Date)
	case "consolidated":
		data, err = a.reports.GenerateConsolidatedReport(ctx, *condo, start.Date, end.Date)
	default:
		return fmt.Errorf("%w: unknown report type %q", errUsage, *kind)
	}
	if err != nil {
		return err
	}

	out, err := a.reports.ExportReport(ctx, data, *format)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, out)
	return err
}

func chartCmd(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("chart", a.out)
	kind := fs.String("type", "comparison", "revenue, expense, cashflow, delinquency or comparison")
	condo := fs.Int64("condo", 0, "condominium id")
	var start, end, ref dateFlag
	fs.Var(&start, "start", "window start (YYYY-MM-DD)")
	fs.Var(&end, "end", "window end (YYYY-MM-DD)")
	fs.Var(&ref, "ref", "delinquency reference date, default today")
	if err := parse(fs, args); err != nil {
		return err
	}

	var (
		c   chart.Chart
		err error
	)
	switch *kind {
	case "revenue":
		c, err = a.charts.GenerateRevenueCategoryChart(ctx, *condo, start.Date, end.Date)
	case "expense":
		c, err = a.charts.GenerateExpenseCategoryChart(ctx, *condo, start.Date, end.Date)
	case "cashflow":
		c, err = a.charts.GenerateCashFlowChart(ctx, *condo, start.Date, end.Date)
	case "delinquency":
		c, err = a.charts.GenerateDelinquencyChart(ctx, *condo, ref.Date)
	case "comparison":
		c, err = a.charts.GenerateRevenueExpenseComparisonChart(ctx, *condo, start.Date, end.Date)
	default:
		return fmt.Errorf("%w: unknown chart type %q", errUsage, *kind)
	}
	if err != nil {
		return err
	}
	return a.printJSON(c)
}

func balanceCmd(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("balance", a.out)
	condo := fs.Int64("condo", 0, "condominium id")
	var start, end dateFlag
	fs.Var(&start, "start", "optional window start (YYYY-MM-DD)")
	fs.Var(&end, "end", "optional window end (YYYY-MM-DD)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *condo <= 0 {
		return &core.ValidationError{Field: "condominium_id", Message: core.ErrInvalidCondominium.Error()}
	}
	if !start.IsZero() && !end.IsZero() && start.After(end.Time) {
		return &core.ValidationError{Field: "start_date", Message: "start date must not be after end date"}
	}

	bal, err := a.backend.Transactions.CalculateTotalBalance(ctx, *condo, start.Date, end.Date)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, bal.StringFixed(2))
	return err
}

func recordCmd(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("record", a.out)
	condo := fs.Int64("condo", 0, "condominium id")
	typ := fs.String("type", "", "revenue or expense")
	category := fs.String("category", "", "category")
	description := fs.String("description", "", "description")
	status := fs.String("status", string(core.StatusCompleted), "pending, completed, cancelled or overdue")
	reference := fs.String("reference", "", "external reference")
	var amount amountFlag
	var date dateFlag
	fs.Var(&amount, "amount", "positive amount")
	fs.Var(&date, "date", "transaction date (YYYY-MM-DD), default today")
	if err := parse(fs, args); err != nil {
		return err
	}
	if date.IsZero() {
		date.Date = core.DateOf(time.Now())
	}

	tx := core.FinancialTransaction{
		CondominiumID: *condo,
		Amount:        amount.Decimal,
		Type:          core.TransactionType(*typ),
		Category:      *category,
		Description:   *description,
		Date:          date.Date,
		Status:        core.TransactionStatus(*status),
		Reference:     *reference,
	}
	if err := a.backend.Ledger.RecordTransaction(ctx, &tx); err != nil {
		return err
	}
	return a.printJSON(tx)
}

func deleteCmd(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("delete", a.out)
	id := fs.Int64("id", 0, "transaction id")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := a.backend.Ledger.DeleteTransaction(ctx, *id); err != nil {
		return err
	}
	_, err := fmt.Fprintf(a.out, "deleted transaction %d\n", *id)
	return err
}

func invoiceCmd(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("invoice", a.out)
	condo := fs.Int64("condo", 0, "condominium id")
	unit := fs.Int64("unit", 0, "unit id")
	month := fs.String("month", "", "reference month, 01..12")
	year := fs.Int("year", time.Now().Year(), "reference year")
	category := fs.String("category", services.DefaultInvoiceCategory, "revenue category of the invoice transaction")
	var due dateFlag
	var items itemsFlag
	fs.Var(&due, "due", "due date (YYYY-MM-DD)")
	fs.Var(&items, "item", `line item "description=amount[xquantity]", repeatable`)
	if err := parse(fs, args); err != nil {
		return err
	}

	inv := &core.Invoice{
		CondominiumID:  *condo,
		UnitID:         *unit,
		ReferenceMonth: *month,
		ReferenceYear:  *year,
		Items:          items,
		DueDate:        due.Date,
	}
	tx, err := a.backend.Invoices.GenerateInvoice(ctx, inv, *category)
	if err != nil {
		return err
	}
	return a.printJSON(struct {
		Invoice     *core.Invoice             `json:"invoice"`
		Transaction core.FinancialTransaction `json:"transaction"`
	}{inv, tx})
}

func payCmd(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("pay", a.out)
	invoiceID := fs.Int64("invoice", 0, "invoice id")
	paymentID := fs.Int64("payment", 0, "payment id")
	var amount amountFlag
	fs.Var(&amount, "amount", "amount paid")
	if err := parse(fs, args); err != nil {
		return err
	}
	inv, err := a.backend.Invoices.RegisterPayment(ctx, *invoiceID, amount.Decimal, *paymentID)
	if err != nil {
		return err
	}
	return a.printJSON(inv)
}

func sweepCmd(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("sweep", a.out)
	var asOf dateFlag
	fs.Var(&asOf, "as-of", "sweep date (YYYY-MM-DD), default today")
	if err := parse(fs, args); err != nil {
		return err
	}
	n, err := a.backend.Invoices.MarkOverdue(ctx, asOf.Date)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.out, "%d invoices marked overdue\n", n)
	return err
}

func archiveCmd(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("archive", a.out)
	condo := fs.Int64("condo", 0, "condominium id")
	month := fs.String("month", "", "month to archive (YYYY-MM), default last month")
	get := fs.String("get", "", "print the archived json or csv instead of uploading")
	if err := parse(fs, args); err != nil {
		return err
	}

	ref := time.Now().AddDate(0, 0, -time.Now().Day()) // last day of previous month
	if *month != "" {
		t, err := time.Parse("2006-01", *month)
		if err != nil {
			return &core.ValidationError{Field: "month", Message: fmt.Sprintf("invalid month %q (want YYYY-MM)", *month)}
		}
		ref = t
	}

	bucket, err := archive.NewGCSBucket(ctx, a.cfg.GCSBucket)
	if err != nil {
		return err
	}
	defer bucket.Close()
	archiver := archive.NewArchiver(bucket, a.reports)

	if *get != "" {
		data, err := archiver.Fetch(ctx, *condo, ref.Year(), ref.Month(), *get)
		if err != nil {
			return err
		}
		_, err = a.out.Write(data)
		return err
	}

	names, err := archiver.ArchiveMonth(ctx, *condo, ref.Year(), ref.Month())
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Fprintf(a.out, "gs://%s/%s\n", a.cfg.GCSBucket, name)
	}
	return nil
}
