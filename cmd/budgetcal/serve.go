package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"budgetcal/internal/cli"
	apphttp "budgetcal/internal/http"
	"budgetcal/internal/log"
)

var flagPort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the JSON API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagPort, "port", "", "Listen port (overrides PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg := app.Config
	port := cfg.Port
	if flagPort != "" {
		port = flagPort
	}

	// Exports are optional; without a broker POST /api/exports answers 503.
	if client := app.Factory.NewAMQPClient(cfg); client != nil {
		defer client.Close()
		app.Ledger.SetExportPublisher(client)
	}

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + port,
		Ledger:             app.Ledger,
		Pinger:             app.Pinger(),
		ReminderLeadDays:   cfg.ReminderLeadDays,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	})
	if err != nil {
		return err
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Server starting", "addr", srv.Addr, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	cli.WaitForShutdown(ctx, done)
	return nil
}
