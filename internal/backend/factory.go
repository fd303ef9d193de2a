// Package backend builds the ledger store selected by configuration.
package backend

import (
	"context"
	"fmt"

	"klarity/internal/log"
	"klarity/internal/store"
	"klarity/internal/store/memory"
	"klarity/internal/store/sheets"
	"klarity/internal/store/sqlite"
	"klarity/internal/store/supabase"
)

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// Result holds the opened backend. Writer is nil for read-only backends;
// Suggestions is nil for backends without a suggestion history.
type Result struct {
	Type        BackendType
	Fetcher     store.LedgerFetcher
	Writer      store.LedgerWriter
	Suggestions store.SuggestionStore
	Cleanup     CleanupFunc
}

// Close runs Cleanup if set.
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *Factory {
	if logger == nil {
		logger = log.Default(log.ComponentBackend)
	}
	return &Factory{logger: logger.WithComponent(log.ComponentBackend)}
}

// Create opens the backend described by config.
func (f *Factory) Create(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case MemoryBackend:
		return f.createMemory(config), nil
	case SQLiteBackend:
		return f.createSQLite(config)
	case SupabaseBackend:
		return f.createSupabase(config)
	case SheetsBackend:
		return f.createSheets(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *Factory) createMemory(config Config) *Result {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}
	s := memory.NewFromFiles(dataDir)
	f.logger.Info("Initialized memory backend", "data_directory", dataDir)
	return &Result{Type: MemoryBackend, Fetcher: s, Writer: s, Suggestions: s}
}

func (f *Factory) createSQLite(config Config) (*Result, error) {
	s, err := sqlite.Open(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &Result{Type: SQLiteBackend, Fetcher: s, Writer: s, Suggestions: s, Cleanup: s.Close}, nil
}

func (f *Factory) createSupabase(config Config) (*Result, error) {
	s, err := supabase.New(config.SupabaseURL, config.SupabaseKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Supabase store: %w", err)
	}
	f.logger.Info("Initialized Supabase backend", "url", config.SupabaseURL)
	return &Result{Type: SupabaseBackend, Fetcher: s, Writer: s}, nil
}

func (f *Factory) createSheets(ctx context.Context, config Config) (*Result, error) {
	c, err := sheets.New(ctx, sheets.Config{
		SpreadsheetID:     config.GoogleSpreadsheetID,
		TransactionsSheet: config.GoogleTransactionsSheet,
		CategoriesSheet:   config.GoogleCategoriesSheet,
		CredentialsJSON:   config.GoogleServiceAccountJSON,
		CredentialsFile:   config.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.Info("Initialized Google Sheets backend (read-only)", "spreadsheet_id", config.GoogleSpreadsheetID)
	return &Result{Type: SheetsBackend, Fetcher: c}, nil
}
