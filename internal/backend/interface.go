package backend

import (
	"context"
	"time"

	"condofin/internal/amqp"
	"condofin/internal/cache"
	"condofin/internal/ledger"
	"condofin/internal/services"
)

// Store is what every storage backend provides.
type Store interface {
	ledger.TransactionStore
	ledger.InvoiceStore
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult is the wired ledger: the raw store, the transaction store the
// engines and services should read through, and the services built on top.
type BackendResult struct {
	Store        Store
	Transactions ledger.TransactionStore
	// Cache is nil when caching is disabled.
	Cache *cache.CachedStore
	// Publisher is nil when AMQP is not configured or unreachable.
	Publisher *amqp.Client
	Ledger    *services.LedgerService
	Invoices  *services.InvoiceService
	Cleanup   CleanupFunc
}

// Close runs the cleanup function, if any.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath   string
	DatabaseURL    string
	MemorySeedFile string

	// CacheSize 0 with no RedisURL disables caching.
	RedisURL  string
	CacheSize int
	CacheTTL  time.Duration

	// AMQP is optional.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}
