// Package xlsx exports projections to Excel workbooks and imports master
// entries from a spreadsheet with one entry per row.
package xlsx

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"budgetcal/internal/core"
	"budgetcal/internal/sheets"
)

// ExportProjection writes one worksheet per projection table.
func ExportProjection(w io.Writer, instances []core.EntryInstance, weeks core.WeeklyBalances, months []core.MonthlySummary) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	tabs := []struct {
		name  string
		table sheets.Table
	}{
		{sheets.TabInstances, sheets.InstancesTable(instances)},
		{sheets.TabWeeks, sheets.WeeksTable(weeks)},
		{sheets.TabMonths, sheets.MonthsTable(months)},
	}
	for i, tab := range tabs {
		idx, err := f.NewSheet(tab.name)
		if err != nil {
			return fmt.Errorf("create sheet %s: %w", tab.name, err)
		}
		if i == 0 {
			f.SetActiveSheet(idx)
		}
		if err := writeTable(f, tab.name, tab.table, bold); err != nil {
			return err
		}
	}
	// NewFile starts with a default sheet we do not use.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeTable(f *excelize.File, sheet string, t sheets.Table, headerStyle int) error {
	header := make([]any, len(t.Header))
	for i, h := range t.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	if len(header) > 0 {
		last, err := excelize.CoordinatesToCellName(len(header), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
			return fmt.Errorf("style %s header: %w", sheet, err)
		}
	}
	for i, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}
