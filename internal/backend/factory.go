package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"condofin/internal/amqp"
	"condofin/internal/cache"
	"condofin/internal/core"
	"condofin/internal/ledger"
	"condofin/internal/memory"
	"condofin/internal/services"
	"condofin/internal/storage"

	"github.com/shopspring/decimal"
)

const redisNamespace = "condofin"

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend opens the store, then layers the cache, the event publisher
// and the services on top of it.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, closeStore, err := f.openStore(ctx, config)
	if err != nil {
		return nil, err
	}
	cleanups := []CleanupFunc{closeStore}

	result := &BackendResult{Store: store, Transactions: store}

	cached, closeCache, err := f.createCache(ctx, config, store)
	if err != nil {
		runCleanups(cleanups)
		return nil, err
	}
	if cached != nil {
		result.Cache = cached
		result.Transactions = cached
		cleanups = append(cleanups, closeCache)
	}

	var publisher ledger.EventPublisher
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			result.Publisher = client
			publisher = client
			cleanups = append(cleanups, client.Close)
		}
	}

	result.Ledger = services.NewLedgerService(result.Transactions, publisher)
	result.Invoices = services.NewInvoiceService(store, result.Transactions, result.Ledger)
	result.Cleanup = func() error { return runCleanups(cleanups) }

	f.logger.Info("Initialized backend",
		"type", config.Type,
		"cache_enabled", cached != nil,
		"amqp_enabled", result.Publisher != nil)
	return result, nil
}

func (f *DefaultFactory) openStore(ctx context.Context, config Config) (Store, CleanupFunc, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite store", "db_path", config.SQLiteDBPath)
		return repo, repo.Close, nil
	case PostgresBackend:
		repo, err := storage.NewPostgresRepository(ctx, config.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
		}
		f.logger.Info("Initialized Postgres store")
		return repo, repo.Close, nil
	case MemoryBackend:
		store, err := memory.NewFromFile(config.MemorySeedFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize memory store: %w", err)
		}
		f.logger.Info("Initialized memory store", "seed_file", config.MemorySeedFile)
		return store, nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// createCache returns nil when caching is disabled. Redis wins over the
// in-process LRU when both are configured.
func (f *DefaultFactory) createCache(ctx context.Context, config Config, inner ledger.TransactionStore) (*cache.CachedStore, CleanupFunc, error) {
	if config.RedisURL != "" {
		client, err := cache.NewRedisClient(ctx, config.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize redis cache: %w", err)
		}
		f.logger.Info("Initialized redis cache", "ttl", config.CacheTTL)
		return cache.NewCachedStore(inner,
			cache.NewRedisCache[[]core.FinancialTransaction](client, redisNamespace, config.CacheTTL),
			cache.NewRedisCache[int](client, redisNamespace, config.CacheTTL),
			cache.NewRedisCache[decimal.Decimal](client, redisNamespace, config.CacheTTL),
		), client.Close, nil
	}
	if config.CacheSize <= 0 {
		return nil, nil, nil
	}

	txs := cache.NewLRUCache[[]core.FinancialTransaction](config.CacheSize, config.CacheTTL)
	counts := cache.NewLRUCache[int](config.CacheSize, config.CacheTTL)
	balances := cache.NewLRUCache[decimal.Decimal](config.CacheSize, config.CacheTTL)

	manager := cache.NewManager()
	manager.Register(txs)
	manager.Register(counts)
	manager.Register(balances)
	manager.StartCleanup(config.CacheTTL)

	f.logger.Info("Initialized LRU cache", "size", config.CacheSize, "ttl", config.CacheTTL)
	return cache.NewCachedStore(inner, txs, counts, balances), func() error {
		manager.Stop()
		return nil
	}, nil
}

// runCleanups releases resources in reverse order of acquisition.
func runCleanups(cleanups []CleanupFunc) error {
	var errs []error
	for i := len(cleanups) - 1; i >= 0; i-- {
		if cleanups[i] == nil {
			continue
		}
		if err := cleanups[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
