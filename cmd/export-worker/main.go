package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"budgetcal/internal/cli"
	"budgetcal/internal/config"
	"budgetcal/internal/log"
	"budgetcal/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentExport)
	logger.Info("Starting export-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if err := run(cfg, logger); err != nil {
		logger.Error("Export worker failed", log.FieldError, err)
		os.Exit(1)
	}
}

// run owns every resource so its deferred cleanups finish before main exits.
func run(cfg *config.Config, logger *log.Logger) error {
	app, err := cli.OpenApp(context.Background(), cfg, logger)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer app.Close()

	writer, err := app.Factory.NewTableWriter(context.Background(), cfg)
	if err != nil {
		return err
	}

	client := app.Factory.NewAMQPClient(cfg)
	if client == nil {
		return errors.New("the export worker needs an AMQP broker, set AMQP_URL")
	}
	defer client.Close()

	exporter := worker.NewExportWorker(app.Ledger, writer, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// Refresh the dashboard once so the sheet is current after a restart.
	if err := exporter.ExportOnStartup(ctx); err != nil {
		logger.Error("Startup export failed", log.FieldOperation, log.OpExport, log.FieldError, err)
	}

	go func() {
		if err := client.ConsumeExportRequests(ctx, exporter.HandleExportRequest); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Export consumption failed", log.FieldError, err)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	return nil
}
