package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"budgetcal/internal/bundle"
	"budgetcal/internal/log"
	"budgetcal/internal/xlsx"
)

var flagSheets bool

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export the ledger bundle or a projection workbook",
	Long: `Export writes the ledger as a JSON or YAML bundle chosen by the file
extension ("-" writes JSON to stdout). A .xlsx file gets the projection of
the --from/--to window instead. With --sheets the export is queued for the
export worker, which pushes it to Google Sheets.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the ledger from a bundle or a spreadsheet",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	addWindowFlags(exportCmd)
	exportCmd.Flags().BoolVar(&flagSheets, "sheets", false, "Queue a Google Sheets export")
	rootCmd.AddCommand(exportCmd, importCmd)
}

func isWorkbook(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xlsx")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if flagSheets {
		return queueSheetsExport(cmd)
	}
	if len(args) == 0 {
		return errors.New("export needs a file, or --sheets")
	}
	path := args[0]

	var out io.Writer = os.Stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	if isWorkbook(path) {
		p, err := loadProjection(cmd)
		if err != nil {
			return err
		}
		if err := xlsx.ExportProjection(out, p.Instances, p.Weeks, p.Months); err != nil {
			return err
		}
		logger.Info("Projection exported",
			log.FieldOperation, log.OpExport,
			log.FieldWindowStart, p.Start.String(),
			log.FieldWindowEnd, p.End.String(),
			"path", path)
		return nil
	}

	b, err := app.Ledger.Bundle(ctx)
	if err != nil {
		return err
	}
	if err := bundle.Encode(out, b, bundle.FormatFromPath(path)); err != nil {
		return err
	}
	logger.Info("Bundle exported", log.FieldOperation, log.OpExport, log.FieldEntries, len(b.Entries), "path", path)
	return nil
}

func queueSheetsExport(cmd *cobra.Command) error {
	start, end, err := parseWindow()
	if err != nil {
		return err
	}
	client := app.Factory.NewAMQPClient(app.Config)
	if client == nil {
		return errors.New("--sheets needs a reachable AMQP broker (AMQP_URL)")
	}
	defer client.Close()
	app.Ledger.SetExportPublisher(client)

	req, err := app.Ledger.RequestExport(cmd.Context(), start, end)
	if err != nil {
		return err
	}
	fmt.Printf("  Export queued (request %s)\n", req.ID)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	path := args[0]
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if isWorkbook(path) {
		entries, err := xlsx.ImportEntries(f)
		if err != nil {
			return err
		}
		saved, err := app.Ledger.ReplaceEntries(ctx, entries)
		if err != nil {
			return err
		}
		fmt.Printf("  Imported %d entries from %s\n", len(saved), path)
		return nil
	}

	b, err := bundle.Decode(f, bundle.FormatFromPath(path))
	if err != nil {
		return err
	}
	if err := app.Ledger.Import(ctx, b); err != nil {
		return err
	}
	fmt.Printf("  Imported %d entries from %s\n", len(b.Entries), path)
	return nil
}
