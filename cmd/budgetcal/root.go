package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"budgetcal/internal/cli"
	"budgetcal/internal/core"
	"budgetcal/internal/ledger"
	"budgetcal/internal/log"
	"budgetcal/internal/services"
)

var (
	flagFrom  string
	flagTo    string
	flagQuiet bool
)

// Set by PersistentPreRunE for every subcommand.
var (
	app    *cli.App
	logger *log.Logger
)

var rootCmd = &cobra.Command{
	Use:           "budgetcal",
	Short:         "Budget calendar and ledger projection",
	Long:          "Project recurring bills and income onto a calendar, with weekly balances, monthly summaries and a budget score.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cli.LoadEnvFile()
		if flagQuiet && os.Getenv("LOG_LEVEL") == "" {
			os.Setenv("LOG_LEVEL", "warn")
		}
		logger = cli.SetupLogger(log.ComponentCLI)
		cfg := cli.LoadAndValidateConfig(logger)

		var err error
		app, err = cli.OpenApp(cmd.Context(), cfg, logger)
		return err
	},
	PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
		if app == nil {
			return nil
		}
		return app.Close()
	},
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "  error: %v\n", err)
		if app != nil {
			_ = app.Close()
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Only log warnings and errors")
}

// addWindowFlags registers --from and --to on commands that take a window.
func addWindowFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagFrom, "from", "", "Window start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&flagTo, "to", "", "Window end, inclusive (YYYY-MM-DD)")
}

// parseWindow reads --from/--to. Both empty means the dashboard window.
func parseWindow() (start, end core.Date, err error) {
	if flagFrom == "" && flagTo == "" {
		return core.Date{}, core.Date{}, nil
	}
	if flagFrom == "" || flagTo == "" {
		return core.Date{}, core.Date{}, errors.New("--from and --to must be given together")
	}
	if start, err = core.ParseDate(flagFrom); err != nil {
		return core.Date{}, core.Date{}, err
	}
	if end, err = core.ParseDate(flagTo); err != nil {
		return core.Date{}, core.Date{}, err
	}
	if end.Before(start) {
		return core.Date{}, core.Date{}, fmt.Errorf("%w: --to %s is before --from %s", core.ErrInvalidDate, end, start)
	}
	if err := ledger.CheckWindow(start, end); err != nil {
		return core.Date{}, core.Date{}, err
	}
	return start, end, nil
}

func loadProjection(cmd *cobra.Command) (*services.Projection, error) {
	start, end, err := parseWindow()
	if err != nil {
		return nil, err
	}
	if start.IsZero() {
		return app.Ledger.Dashboard(cmd.Context())
	}
	return app.Ledger.Project(cmd.Context(), start, end)
}

// parseMonth accepts "2024-03" or any date inside the month.
func parseMonth(s string) (core.Date, error) {
	if t, err := time.Parse("2006-01", s); err == nil {
		return core.NewDate(t.Year(), t.Month(), 1), nil
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, err
	}
	return d.StartOfMonth(), nil
}
