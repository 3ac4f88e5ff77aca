package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"condofin/internal/core"
	"condofin/internal/ledger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// Dialect selects placeholder syntax for the underlying database.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Ensure interface conformance
var (
	_ ledger.TransactionStore = (*Repository)(nil)
	_ ledger.InvoiceStore     = (*Repository)(nil)
)

// Repository is the SQL-backed transaction and invoice store. Amounts are kept
// as integer cents and dates as ISO text so both dialects share every query.
type Repository struct {
	db      *sql.DB
	dialect Dialect
}

// NewRepository wraps an already migrated database.
func NewRepository(db *sql.DB, dialect Dialect) *Repository {
	return &Repository{db: db, dialect: dialect}
}

func NewSQLiteRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return NewRepository(db, DialectSQLite), nil
}

func NewPostgresRepository(ctx context.Context, databaseURL string) (*Repository, error) {
	config, err := pgx.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	db := stdlib.OpenDB(*config)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunPostgresMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return NewRepository(db, DialectPostgres), nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const txColumns = `id, condominium_id, amount_cents, type, category, description, tx_date, status, invoice_id, payment_id, reference, metadata`

// FindByFilters implements ledger.TransactionReader
func (r *Repository) FindByFilters(ctx context.Context, f core.Filters) ([]core.FinancialTransaction, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	where, args := whereClause(f)
	query := r.rebind(`SELECT ` + txColumns + ` FROM transactions` + where + ` ORDER BY id`)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &core.PersistenceError{Op: "find transactions", Err: err}
	}
	defer rows.Close()

	out := make([]core.FinancialTransaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, &core.PersistenceError{Op: "scan transaction", Err: err}
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.PersistenceError{Op: "iterate transactions", Err: err}
	}
	return out, nil
}

// CountByFilters implements ledger.TransactionReader
func (r *Repository) CountByFilters(ctx context.Context, f core.Filters) (int, error) {
	if err := f.Validate(); err != nil {
		return 0, err
	}
	where, args := whereClause(f)
	var n int
	err := r.db.QueryRowContext(ctx, r.rebind(`SELECT COUNT(*) FROM transactions`+where), args...).Scan(&n)
	if err != nil {
		return 0, &core.PersistenceError{Op: "count transactions", Err: err}
	}
	return n, nil
}

// CalculateTotalBalance implements ledger.TransactionReader
func (r *Repository) CalculateTotalBalance(ctx context.Context, condominiumID int64, start, end core.Date) (decimal.Decimal, error) {
	f := core.Filters{CondominiumID: condominiumID, StartDate: start, EndDate: end}
	if err := f.Validate(); err != nil {
		return decimal.Zero, err
	}
	where, args := whereClause(f)
	query := r.rebind(`SELECT CAST(COALESCE(SUM(CASE WHEN type = 'revenue' THEN amount_cents ELSE -amount_cents END), 0) AS BIGINT) FROM transactions` + where)

	var cents int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&cents); err != nil {
		return decimal.Zero, &core.PersistenceError{Op: "calculate balance", Err: err}
	}
	return core.FromCents(cents), nil
}

// Save implements ledger.TransactionWriter
func (r *Repository) Save(ctx context.Context, tx *core.FinancialTransaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	metadata, err := encodeMetadata(tx.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	args := []any{
		tx.CondominiumID, core.Cents(tx.Amount), string(tx.Type), tx.Category, tx.Description,
		tx.Date.String(), string(tx.Status), nullInt(tx.InvoiceID), nullInt(tx.PaymentID), tx.Reference, metadata,
	}

	if tx.ID == nil {
		var id int64
		query := r.rebind(`INSERT INTO transactions
			(condominium_id, amount_cents, type, category, description, tx_date, status, invoice_id, payment_id, reference, metadata)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
		if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
			return &core.PersistenceError{Op: "insert transaction", Err: err}
		}
		tx.ID = &id
		slog.InfoContext(ctx, "Transaction saved",
			"id", id,
			"condominium_id", tx.CondominiumID,
			"type", tx.Type,
			"amount", tx.Amount.StringFixed(2))
		return nil
	}

	query := r.rebind(`UPDATE transactions SET
		condominium_id = ?, amount_cents = ?, type = ?, category = ?, description = ?, tx_date = ?,
		status = ?, invoice_id = ?, payment_id = ?, reference = ?, metadata = ?
		WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, append(args, *tx.ID)...)
	if err != nil {
		return &core.PersistenceError{Op: "update transaction", Err: err}
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update transaction %d: %w", *tx.ID, core.ErrNotFound)
	}
	return nil
}

// FindByID implements ledger.TransactionWriter
func (r *Repository) FindByID(ctx context.Context, id int64) (core.FinancialTransaction, error) {
	row := r.db.QueryRowContext(ctx, r.rebind(`SELECT `+txColumns+` FROM transactions WHERE id = ?`), id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.FinancialTransaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.FinancialTransaction{}, &core.PersistenceError{Op: "get transaction", Err: err}
	}
	return tx, nil
}

// Delete implements ledger.TransactionWriter
func (r *Repository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, r.rebind(`DELETE FROM transactions WHERE id = ?`), id)
	if err != nil {
		return &core.PersistenceError{Op: "delete transaction", Err: err}
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	slog.InfoContext(ctx, "Transaction deleted", "id", id)
	return nil
}

// SaveInvoice implements ledger.InvoiceStore. The invoice row and its items are
// written in one database transaction.
func (r *Repository) SaveInvoice(ctx context.Context, inv *core.Invoice) error {
	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return &core.PersistenceError{Op: "begin invoice transaction", Err: err}
	}
	defer dbtx.Rollback()

	args := []any{
		inv.CondominiumID, inv.UnitID, inv.ReferenceMonth, inv.ReferenceYear,
		core.Cents(inv.TotalAmount), core.Cents(inv.TotalPaid), inv.DueDate.String(), string(inv.Status),
	}

	var id int64
	if inv.ID == nil {
		query := r.rebind(`INSERT INTO invoices
			(condominium_id, unit_id, reference_month, reference_year, total_cents, paid_cents, due_date, status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
		if err := dbtx.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
			return &core.PersistenceError{Op: "insert invoice", Err: err}
		}
	} else {
		id = *inv.ID
		query := r.rebind(`UPDATE invoices SET
			condominium_id = ?, unit_id = ?, reference_month = ?, reference_year = ?,
			total_cents = ?, paid_cents = ?, due_date = ?, status = ?
			WHERE id = ?`)
		res, err := dbtx.ExecContext(ctx, query, append(args, id)...)
		if err != nil {
			return &core.PersistenceError{Op: "update invoice", Err: err}
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("update invoice %d: %w", id, core.ErrNotFound)
		}
		if _, err := dbtx.ExecContext(ctx, r.rebind(`DELETE FROM invoice_items WHERE invoice_id = ?`), id); err != nil {
			return &core.PersistenceError{Op: "clear invoice items", Err: err}
		}
	}

	itemQuery := r.rebind(`INSERT INTO invoice_items (invoice_id, position, description, amount_cents, quantity, item_type)
		VALUES (?, ?, ?, ?, ?, ?)`)
	for i, it := range inv.Items {
		if _, err := dbtx.ExecContext(ctx, itemQuery, id, i, it.Description, core.Cents(it.Amount), it.Quantity, it.Type); err != nil {
			return &core.PersistenceError{Op: "insert invoice item", Err: err}
		}
	}

	if err := dbtx.Commit(); err != nil {
		return &core.PersistenceError{Op: "commit invoice", Err: err}
	}
	inv.ID = &id
	return nil
}

// FindInvoice implements ledger.InvoiceStore
func (r *Repository) FindInvoice(ctx context.Context, id int64) (core.Invoice, error) {
	row := r.db.QueryRowContext(ctx, r.rebind(`SELECT `+invoiceColumns+` FROM invoices WHERE id = ?`), id)
	inv, err := scanInvoice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Invoice{}, fmt.Errorf("invoice %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Invoice{}, &core.PersistenceError{Op: "get invoice", Err: err}
	}
	if inv.Items, err = r.loadItems(ctx, id); err != nil {
		return core.Invoice{}, err
	}
	return inv, nil
}

// ListInvoices implements ledger.InvoiceStore
func (r *Repository) ListInvoices(ctx context.Context, f core.InvoiceFilters) ([]core.Invoice, error) {
	var (
		clauses []string
		args    []any
	)
	if f.CondominiumID != 0 {
		clauses = append(clauses, "condominium_id = ?")
		args = append(args, f.CondominiumID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(f.Status))
	}
	if !f.DueBefore.IsZero() {
		clauses = append(clauses, "due_date < ?")
		args = append(args, f.DueBefore.String())
	}
	query := `SELECT ` + invoiceColumns + ` FROM invoices`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	rows, err := r.db.QueryContext(ctx, r.rebind(query+" ORDER BY id"), args...)
	if err != nil {
		return nil, &core.PersistenceError{Op: "list invoices", Err: err}
	}
	out := make([]core.Invoice, 0)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			rows.Close()
			return nil, &core.PersistenceError{Op: "scan invoice", Err: err}
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, &core.PersistenceError{Op: "iterate invoices", Err: err}
	}
	rows.Close()

	for i := range out {
		if out[i].Items, err = r.loadItems(ctx, *out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

const invoiceColumns = `id, condominium_id, unit_id, reference_month, reference_year, total_cents, paid_cents, due_date, status`

func (r *Repository) loadItems(ctx context.Context, invoiceID int64) ([]core.InvoiceItem, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(`SELECT description, amount_cents, quantity, item_type
		FROM invoice_items WHERE invoice_id = ? ORDER BY position`), invoiceID)
	if err != nil {
		return nil, &core.PersistenceError{Op: "list invoice items", Err: err}
	}
	defer rows.Close()

	var items []core.InvoiceItem
	for rows.Next() {
		var (
			it    core.InvoiceItem
			cents int64
		)
		if err := rows.Scan(&it.Description, &cents, &it.Quantity, &it.Type); err != nil {
			return nil, &core.PersistenceError{Op: "scan invoice item", Err: err}
		}
		it.Amount = core.FromCents(cents)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.PersistenceError{Op: "iterate invoice items", Err: err}
	}
	return items, nil
}

// rebind rewrites ? placeholders to $n for Postgres.
func (r *Repository) rebind(query string) string {
	if r.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

func whereClause(f core.Filters) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if f.CondominiumID != 0 {
		clauses = append(clauses, "condominium_id = ?")
		args = append(args, f.CondominiumID)
	}
	if f.Type != "" {
		clauses = append(clauses, "type = ?")
		args = append(args, string(f.Type))
	}
	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(f.Status))
	}
	if !f.StartDate.IsZero() {
		clauses = append(clauses, "tx_date >= ?")
		args = append(args, f.StartDate.String())
	}
	if !f.EndDate.IsZero() {
		clauses = append(clauses, "tx_date <= ?")
		args = append(args, f.EndDate.String())
	}
	if f.InvoiceID != 0 {
		clauses = append(clauses, "invoice_id = ?")
		args = append(args, f.InvoiceID)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s scanner) (core.FinancialTransaction, error) {
	var (
		tx                   core.FinancialTransaction
		id                   int64
		cents                int64
		txType, status, date string
		metadata             string
		invoiceID, paymentID sql.NullInt64
	)
	err := s.Scan(&id, &tx.CondominiumID, &cents, &txType, &tx.Category, &tx.Description,
		&date, &status, &invoiceID, &paymentID, &tx.Reference, &metadata)
	if err != nil {
		return tx, err
	}
	tx.ID = &id
	tx.Amount = core.FromCents(cents)
	tx.Type = core.TransactionType(txType)
	tx.Status = core.TransactionStatus(status)
	if tx.Date, err = core.ParseDate(date); err != nil {
		return tx, fmt.Errorf("parse date %q: %w", date, err)
	}
	if invoiceID.Valid {
		v := invoiceID.Int64
		tx.InvoiceID = &v
	}
	if paymentID.Valid {
		v := paymentID.Int64
		tx.PaymentID = &v
	}
	if metadata != "" {
		if err := json.Unmarshal([]byte(metadata), &tx.Metadata); err != nil {
			return tx, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return tx, nil
}

func scanInvoice(s scanner) (core.Invoice, error) {
	var (
		inv             core.Invoice
		id              int64
		total, paid     int64
		dueDate, status string
	)
	err := s.Scan(&id, &inv.CondominiumID, &inv.UnitID, &inv.ReferenceMonth, &inv.ReferenceYear,
		&total, &paid, &dueDate, &status)
	if err != nil {
		return inv, err
	}
	inv.ID = &id
	inv.TotalAmount = core.FromCents(total)
	inv.TotalPaid = core.FromCents(paid)
	inv.Status = core.InvoiceStatus(status)
	if inv.DueDate, err = core.ParseDate(dueDate); err != nil {
		return inv, fmt.Errorf("parse due date %q: %w", dueDate, err)
	}
	return inv, nil
}

func encodeMetadata(md map[string]string) (string, error) {
	if len(md) == 0 {
		return "", nil
	}
	b, err := json.Marshal(md)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
