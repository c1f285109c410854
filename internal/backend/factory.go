package backend

import (
	"context"
	"fmt"

	"budgetcal/internal/amqp"
	"budgetcal/internal/config"
	"budgetcal/internal/log"
	"budgetcal/internal/sheets"
	gsheet "budgetcal/internal/sheets/google"
	"budgetcal/internal/sheets/memory"
	"budgetcal/internal/storage"
)

// DefaultFactory implements Factory.
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *DefaultFactory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

func (f *DefaultFactory) CreateKV(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		kv, err := storage.NewSQLiteKV(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return &Result{KV: kv, Cleanup: kv.Close}, nil

	case PostgresBackend:
		kv, err := storage.NewPostgresKV(ctx, config.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres store: %w", err)
		}
		f.logger.Info("Initialized Postgres backend")
		return &Result{KV: kv, Cleanup: kv.Close}, nil

	case MemoryBackend:
		kv := storage.NewMemoryKV()
		f.logger.Warn("Using in-memory backend, data is lost on exit")
		return &Result{KV: kv, Cleanup: kv.Close}, nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// NewAMQPClient connects to the broker, or returns nil when AMQP is not
// configured. A failed connection is logged and also yields nil so the
// server keeps working without exports and reminders.
func (f *DefaultFactory) NewAMQPClient(cfg *config.Config) *amqp.Client {
	if cfg.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(amqp.Config{
		URL:           cfg.AMQPURL,
		Exchange:      cfg.AMQPExchange,
		ReminderQueue: cfg.AMQPReminderQueue,
		ExportQueue:   cfg.AMQPExportQueue,
	})
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without messaging", log.FieldError, err)
		return nil
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", cfg.AMQPExchange,
		"reminder_queue", cfg.AMQPReminderQueue,
		"export_queue", cfg.AMQPExportQueue)
	return client
}

// NewTableWriter returns the Google Sheets client when a spreadsheet is
// configured, otherwise an in-memory writer.
func (f *DefaultFactory) NewTableWriter(ctx context.Context, cfg *config.Config) (sheets.TableWriter, error) {
	if !cfg.SheetsEnabled() {
		f.logger.Warn("No spreadsheet configured, exports are kept in memory")
		return memory.New(), nil
	}
	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetPrefix:     cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	return client, nil
}
