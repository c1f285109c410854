package sheets

import (
	"context"
	"fmt"

	"budgetcal/internal/core"
)

// Tab names used by ExportProjection.
const (
	TabInstances = "Instances"
	TabWeeks     = "Weeks"
	TabMonths    = "Months"
)

func InstancesTable(instances []core.EntryInstance) Table {
	t := Table{Header: []string{"Date", "Name", "Type", "Category", "Amount", "Paid", "Recurrence", "Original Date", "ID"}}
	for _, inst := range instances {
		t.Rows = append(t.Rows, []any{
			inst.Date.String(),
			inst.Name,
			string(inst.Type),
			inst.Category,
			inst.Amount.InexactFloat64(),
			inst.IsPaid,
			string(inst.Recurrence),
			inst.OriginalDate.String(),
			inst.ID,
		})
	}
	return t
}

func WeeksTable(weeks core.WeeklyBalances) Table {
	t := Table{Header: []string{"Week Start", "Start Balance", "Income", "Bills", "End Balance"}}
	for _, w := range weeks.Sorted() {
		t.Rows = append(t.Rows, []any{
			w.WeekStart.String(),
			w.Start.InexactFloat64(),
			w.Income.InexactFloat64(),
			w.Bills.InexactFloat64(),
			w.End.InexactFloat64(),
		})
	}
	return t
}

func MonthsTable(months []core.MonthlySummary) Table {
	t := Table{Header: []string{"Month", "Income", "Bills", "Net", "Start Balance", "End Balance"}}
	for _, m := range months {
		t.Rows = append(t.Rows, []any{
			m.Month.Time.Format("2006-01"),
			m.Income.InexactFloat64(),
			m.Bills.InexactFloat64(),
			m.Net.InexactFloat64(),
			m.StartBalance.InexactFloat64(),
			m.EndBalance.InexactFloat64(),
		})
	}
	return t
}

// ExportProjection writes the instances, weeks and months tabs.
func ExportProjection(ctx context.Context, w TableWriter, instances []core.EntryInstance, weeks core.WeeklyBalances, months []core.MonthlySummary) error {
	tabs := []struct {
		name  string
		table Table
	}{
		{TabInstances, InstancesTable(instances)},
		{TabWeeks, WeeksTable(weeks)},
		{TabMonths, MonthsTable(months)},
	}
	for _, tab := range tabs {
		if err := w.WriteTable(ctx, tab.name, tab.table); err != nil {
			return fmt.Errorf("write %s: %w", tab.name, err)
		}
	}
	return nil
}
