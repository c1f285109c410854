package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"budgetcal/internal/cli"
	"budgetcal/internal/config"
	"budgetcal/internal/log"
	"budgetcal/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentReminder)
	logger.Info("Starting reminder-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if err := run(cfg, logger); err != nil {
		logger.Error("Reminder worker failed", log.FieldError, err)
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

	client := app.Factory.NewAMQPClient(cfg)
	if client == nil {
		return errors.New("reminders need an AMQP broker, set AMQP_URL")
	}
	defer client.Close()

	reminders := services.NewReminderService(client, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	remind := func() {
		if _, err := reminders.Run(ctx, app.Ledger, cfg.ReminderLeadDays); err != nil {
			logger.Error("Reminder run failed", log.FieldOperation, log.OpRemind, log.FieldError, err)
		}
	}

	scheduler := cron.New(cron.WithLocation(cfg.Location()))
	if _, err := scheduler.AddFunc(cfg.ReminderSchedule, remind); err != nil {
		return fmt.Errorf("reminder schedule %q: %w", cfg.ReminderSchedule, err)
	}

	// Catch up on anything due since the worker was last down.
	remind()

	scheduler.Start()
	logger.Info("Reminder schedule active",
		"schedule", cfg.ReminderSchedule,
		"lead_days", cfg.ReminderLeadDays,
		"timezone", cfg.Location().String())

	cli.WaitForShutdown(ctx, done)
	<-scheduler.Stop().Done()
	return nil
}
