// Package backend builds the store, publisher and exporter selected by the
// application configuration.
package backend

import (
	"context"
	"fmt"

	"finance/internal/amqp"
	"finance/internal/config"
	"finance/internal/log"
	ports "finance/internal/sheets"
	gsheet "finance/internal/sheets/google"
	sheetsmem "finance/internal/sheets/memory"
	"finance/internal/storage"
	"finance/internal/storage/memory"
)

type Factory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &Factory{logger: logger.WithComponent(log.ComponentStorage)}
}

// CreateStore opens the store named by cfg.DataBackend.
func (f *Factory) CreateStore(cfg *config.Config) (*BackendResult, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app config is nil")
	}
	bt := BackendType(cfg.DataBackend)
	if !bt.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", cfg.DataBackend)
	}

	switch bt {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
		return &BackendResult{Store: repo, Cleanup: repo.Close}, nil
	default:
		store := memory.New()
		f.logger.Info("Initialized memory backend")
		return &BackendResult{Store: store, Cleanup: store.Close}, nil
	}
}

// CreatePublisher connects to AMQP when a URL is configured. A nil client
// with a nil error means publishing is disabled; connection failures are
// returned so the caller can decide whether to continue without sync.
func (f *Factory) CreatePublisher(cfg *config.Config) (*amqp.Client, error) {
	if cfg.AMQPURL == "" {
		f.logger.Info("AMQP not configured, transaction events disabled")
		return nil, nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return nil, fmt.Errorf("connect to AMQP: %w", err)
	}
	f.logger.WithComponent(log.ComponentAMQP).Info("Initialized AMQP client",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue)
	return client, nil
}

// CreateExporter returns the Google Sheets exporter when a spreadsheet is
// configured and an in-memory one otherwise.
func (f *Factory) CreateExporter(ctx context.Context, cfg *config.Config) (ports.Exporter, error) {
	logger := f.logger.WithComponent(log.ComponentSheets)
	if cfg.GoogleSpreadsheetID == "" {
		logger.Warn("GOOGLE_SPREADSHEET_ID not set, exporting to memory only")
		return sheetsmem.New(), nil
	}
	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:     cfg.GoogleSpreadsheetID,
		TransactionsSheet: cfg.GoogleSheetName,
		TotalsSheet:       cfg.GoogleTotalsSheetName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	logger.Info("Initialized Google Sheets exporter",
		"transactions_sheet", cfg.GoogleSheetName,
		"totals_sheet", cfg.GoogleTotalsSheetName)
	return client, nil
}
