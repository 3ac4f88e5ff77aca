package log

import "condofin/internal/core"

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRunID         = "run_id"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldDuration      = "duration_ms"
	FieldCondominiumID = "condominium_id"
	FieldTransactionID = "transaction_id"
	FieldInvoiceID     = "invoice_id"
	FieldEventID       = "event_id"
	FieldEventType     = "event_type"
	FieldAmount        = "amount"
	FieldCategory      = "category"
	FieldStartDate     = "start_date"
	FieldEndDate       = "end_date"
	FieldFormat        = "format"
	FieldSheetsRef     = "sheets_ref"
	FieldObject        = "object"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentCLI     = "cli"
	ComponentReport  = "report"
	ComponentChart   = "chart"
	ComponentLedger  = "ledger"
	ComponentInvoice = "invoice"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentSheets  = "sheets"
	ComponentCache   = "cache"
	ComponentArchive = "archive"
	ComponentBackend = "backend"
)

// Operations defines standard operation names
const (
	OpRecord   = "record"
	OpDelete   = "delete"
	OpReport   = "report"
	OpChart    = "chart"
	OpExport   = "export"
	OpSync     = "sync"
	OpSweep    = "overdue_sweep"
	OpArchive  = "archive"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithWindow adds the condominium and reporting window.
func (f LogFields) WithWindow(condominiumID int64, start, end core.Date) LogFields {
	f[FieldCondominiumID] = condominiumID
	f[FieldStartDate] = start.String()
	f[FieldEndDate] = end.String()
	return f
}

// WithTransaction adds transaction fields. Unsaved transactions carry no id.
func (f LogFields) WithTransaction(tx core.FinancialTransaction) LogFields {
	if tx.ID != nil {
		f[FieldTransactionID] = *tx.ID
	}
	f[FieldCondominiumID] = tx.CondominiumID
	f[FieldAmount] = tx.Amount.StringFixed(2)
	f[FieldCategory] = tx.Category
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
