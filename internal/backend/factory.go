package backend

import (
	"context"
	"fmt"

	"farmledger/internal/adapters/google"
	"farmledger/internal/adapters/memory"
	"farmledger/internal/log"
	"farmledger/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		res *BackendResult
		err error
	)
	switch config.Type {
	case MemoryBackend:
		res, err = f.createMemoryBackend(config)
	case SQLiteBackend:
		res, err = f.createSQLBackend(storage.DialectSQLite, config.SQLiteDBPath)
	case PostgresBackend:
		res, err = f.createSQLBackend(storage.DialectPostgres, config.PostgresURL)
	case SheetsBackend:
		res, err = f.createSheetsBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}
	res.Type = config.Type
	return res, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	if config.SeedFile == "" {
		f.logger.Info("Initialized memory backend")
		return &BackendResult{Backend: memory.New()}, nil
	}
	store, err := memory.NewFromFile(config.SeedFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memory backend: %w", err)
	}
	f.logger.Info("Initialized memory backend", "seed_file", config.SeedFile, log.FieldCount, store.Len())
	return &BackendResult{Backend: store}, nil
}

func (f *DefaultFactory) createSQLBackend(d storage.Dialect, dsn string) (*BackendResult, error) {
	var (
		repo *storage.Repository
		err  error
	)
	if d == storage.DialectPostgres {
		repo, err = storage.NewPostgresRepository(dsn)
	} else {
		repo, err = storage.NewSQLiteRepository(dsn)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s repository: %w", d, err)
	}
	if d == storage.DialectSQLite {
		f.logger.Info("Initialized SQLite backend", "db_path", dsn)
	} else {
		f.logger.Info("Initialized Postgres backend")
	}
	return &BackendResult{Backend: repo, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := google.New(ctx, SheetsConfig(config))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	if err := cli.EnsureHeader(ctx); err != nil {
		return nil, fmt.Errorf("failed to prepare sheet: %w", err)
	}
	f.logger.Info("Initialized Google Sheets backend", "sheet", config.GoogleSheetName)
	return &BackendResult{Backend: cli}, nil
}

// SheetsConfig extracts the Sheets client settings, shared with the mirror
// worker.
func SheetsConfig(config Config) google.Config {
	return google.Config{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		SheetName:       config.GoogleSheetName,
		CredentialsJSON: config.GoogleServiceAccountJSON,
		CredentialsFile: config.GoogleServiceAccountFile,
	}
}
