package backend

import (
	"context"
	"errors"
	"fmt"

	"dailyledger/internal/amqp"
	"dailyledger/internal/cache"
	"dailyledger/internal/core"
	"dailyledger/internal/ledger"
	"dailyledger/internal/log"
	"dailyledger/internal/storage"
	"dailyledger/internal/storage/memory"
	"dailyledger/internal/storage/sqlstore"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory. A nil logger logs through the
// slog default.
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend opens the configured repository and wires a ledger store
// around it.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	repo, err := f.openRepository(ctx, config)
	if err != nil {
		return nil, err
	}
	closers := []func() error{repo.Close}

	opts := []ledger.Option{
		ledger.WithCalendar(config.Calendar),
		ledger.WithLogger(f.logger.WithComponent(log.ComponentLedger)),
	}

	var daily *cache.LRUCache[core.Money]
	if config.DailyCacheSize > 0 {
		daily = cache.NewLRUCache[core.Money](config.DailyCacheSize, config.DailyCacheTTL)
		opts = append(opts, ledger.WithDailyCache(daily))
	}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err.Error())
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			opts = append(opts, ledger.WithPublisher(client))
			closers = append(closers, client.Close)
		}
	}

	f.logger.Info("Initialized backend",
		"type", config.Type,
		"timezone", config.Calendar.Location().String(),
		"daily_cache", daily != nil)

	return &BackendResult{
		Store:      ledger.New(repo, opts...),
		DailyCache: daily,
		Cleanup:    closeAll(closers),
	}, nil
}

func (f *DefaultFactory) openRepository(ctx context.Context, config Config) (storage.ExpenseRepository, error) {
	switch config.Type {
	case MemoryBackend:
		return memory.New(), nil
	case SQLiteBackend:
		repo, err := sqlstore.OpenSQLite(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Opened SQLite repository", "db_path", config.SQLiteDBPath)
		return repo, nil
	case PostgresBackend:
		repo, err := sqlstore.OpenPostgres(ctx, config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
		}
		f.logger.Info("Opened Postgres repository")
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// closeAll closes in reverse order of acquisition and joins the errors.
func closeAll(closers []func() error) CleanupFunc {
	return func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}
