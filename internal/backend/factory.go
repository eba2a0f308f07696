package backend

import (
	"context"
	"fmt"

	applog "painel/internal/log"
	gsheet "painel/internal/sheets/google"
	"painel/internal/sheets/memory"
	"painel/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// The SQLite backend reads the mirror the sync worker keeps current.
func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Source:   repo,
		Settings: repo,
		Cleanup:  repo.Close,
	}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	creds := gsheet.Credentials{
		ServiceAccountJSON: config.GoogleServiceAccountJSON,
		ServiceAccountFile: config.GoogleServiceAccountFile,
		APIKey:             config.GoogleAPIKey,
	}
	opts, err := creds.ClientOptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	cli, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID: config.GoogleSpreadsheetID,
		SheetName:     config.GoogleSheetName,
		Range:         config.GoogleSheetRange,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend", "range", cli.ReadRange())

	// Settings are not written back to the sheet; they live in memory for
	// the lifetime of the process.
	return &BackendResult{
		Source:   cli,
		Settings: memory.New(nil),
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	store := memory.NewFromFile(config.SeedFile)

	f.logger.Info("Initialized memory backend", "seed_file", config.SeedFile)

	return &BackendResult{
		Source:   store,
		Settings: store,
	}, nil
}
