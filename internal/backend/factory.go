package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"bearbudget/internal/amqp"
	"bearbudget/internal/cache"
	"bearbudget/internal/core"
	"bearbudget/internal/ledger"
	"bearbudget/internal/ledger/client"
	"bearbudget/internal/ledger/memory"
	"bearbudget/internal/services"
	"bearbudget/internal/storage"
)

// ErrNoStore is returned by CreateStore for a remote backend.
var ErrNoStore = errors.New("backend has no local store")

const summaryCacheSize = 24

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

func (f *DefaultFactory) CreateService(ctx context.Context, config Config) (*ServiceResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Type == HTTPBackend {
		cl, err := client.New(client.Config{BaseURL: config.LedgerURL, Timeout: config.LedgerTimeout})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ledger client: %w", err)
		}
		f.logger.Info("Using remote ledger", "url", config.LedgerURL, "timeout", config.LedgerTimeout)
		return &ServiceResult{Service: cl}, nil
	}

	res, err := f.CreateStore(ctx, config)
	if err != nil {
		return nil, err
	}
	return &ServiceResult{Service: ledger.NewLocal(res.Store), Cleanup: res.Cleanup}, nil
}

// CreateStore opens the store and wraps it so every write publishes an
// event (when AMQP is configured) and invalidates the summary cache.
func (f *DefaultFactory) CreateStore(ctx context.Context, config Config) (*StoreResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store   ledger.Store
		closers []func() error
	)
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		store = repo
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		store = memory.NewFromFiles(config.DataDirectory)
		f.logger.Info("Initialized memory backend", "data_directory", config.DataDirectory)
	default:
		return nil, fmt.Errorf("%w: %s", ErrNoStore, config.Type)
	}

	var publisher services.EventPublisher
	if config.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(ctx, config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			publisher = amqpClient
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	var summaries cache.Cache[[]core.SummaryItem]
	if config.SummaryCacheTTL > 0 {
		lru := cache.NewLRU[[]core.SummaryItem](summaryCacheSize, config.SummaryCacheTTL)
		janitor := cache.NewJanitor(lru)
		janitor.Start(context.WithoutCancel(ctx), janitorInterval(config.SummaryCacheTTL))
		summaries = lru
		closers = append(closers, func() error { janitor.Stop(); return nil })
	}

	svc := services.NewLedgerService(store, publisher, summaries)
	closers = append(closers, svc.Close)

	return &StoreResult{
		Store: svc,
		Cleanup: func() error {
			var errs []error
			for _, c := range closers {
				errs = append(errs, c())
			}
			return errors.Join(errs...)
		},
	}, nil
}

func janitorInterval(ttl time.Duration) time.Duration {
	if ttl < time.Minute {
		return ttl
	}
	return time.Minute
}
