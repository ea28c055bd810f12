package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"financas/internal/amqp"
	"financas/internal/log"
	"financas/internal/sheets"
	gsheet "financas/internal/sheets/google"
	"financas/internal/sheets/memory"
	"financas/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.For(log.ComponentBackend)
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend opens the store and, when configured, the AMQP client and the
// spreadsheet statement source. An unreachable broker is logged and skipped.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store storage.BlobStore
		err   error
	)
	switch config.Type {
	case SQLiteBackend:
		store, err = f.createSQLiteStore(config)
	case MemoryBackend:
		store = storage.NewMemoryStore()
		f.logger.Info("Initialized memory store")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	statements, err := f.createStatementReader(ctx, config)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	result := &BackendResult{Store: store, Statements: statements}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		} else {
			result.AMQP = client
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	result.Cleanup = func() error {
		var errs []error
		if result.AMQP != nil {
			errs = append(errs, result.AMQP.Close())
		}
		errs = append(errs, store.Close())
		return errors.Join(errs...)
	}
	return result, nil
}

func (f *DefaultFactory) createSQLiteStore(config Config) (storage.BlobStore, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Info("Initialized SQLite store", "db_path", config.SQLiteDBPath)
	return repo, nil
}

// createStatementReader prefers Google Sheets when a spreadsheet ID is set. The
// memory backend otherwise serves *.tsv files from DataDirectory.
func (f *DefaultFactory) createStatementReader(ctx context.Context, config Config) (sheets.StatementReader, error) {
	if config.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(ctx, config.GoogleSpreadsheetID, config.GoogleStatementRange, gsheet.DefaultCacheDuration)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		f.logger.Info("Initialized Google Sheets statement source", "range", config.GoogleStatementRange)
		return client, nil
	}

	if config.Type != MemoryBackend || config.DataDirectory == "" {
		return nil, nil
	}
	sheetName, _, _ := strings.Cut(config.GoogleStatementRange, "!")
	reader, err := memory.NewFromDir(config.DataDirectory, sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to load statement files: %w", err)
	}
	f.logger.Info("Initialized file statement source", "data_directory", config.DataDirectory)
	return reader, nil
}
