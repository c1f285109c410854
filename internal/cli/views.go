package cli

import (
	"fmt"
	"strings"

	"budgetcal/internal/core"
)

func InstancesTable(instances []core.EntryInstance) Table {
	t := Table{Headers: []string{"Date", "Name", "Category", "Amount", "Paid", "Moved"}}
	var week core.Date
	for i, inst := range instances {
		if ws := inst.Date.StartOfWeek(); i > 0 && !ws.Equal(week) {
			t.Rows = append(t.Rows, []string{"---"})
		}
		week = inst.Date.StartOfWeek()

		moved := ""
		if !inst.Date.Equal(inst.OriginalDate) {
			moved = "from " + inst.OriginalDate.String()
		}
		t.Rows = append(t.Rows, []string{
			inst.Date.Format("Mon 2006-01-02"),
			inst.Name,
			inst.Category,
			FormatSigned(inst),
			FormatPaid(inst.IsPaid),
			moved,
		})
	}
	return t
}

func WeeksTable(weeks core.WeeklyBalances) Table {
	t := Table{Headers: []string{"Week", "Start", "Income", "Bills", "End"}}
	for _, w := range weeks.Sorted() {
		t.Rows = append(t.Rows, []string{
			w.WeekStart.String(),
			FormatAmount(w.Start),
			FormatAmount(w.Income),
			FormatAmount(w.Bills),
			FormatAmount(w.End),
		})
	}
	return t
}

func MonthsTable(months []core.MonthlySummary) Table {
	t := Table{Headers: []string{"Month", "Income", "Bills", "Net", "Start", "End"}}
	for _, m := range months {
		t.Rows = append(t.Rows, []string{
			FormatMonth(m.Month),
			FormatAmount(m.Income),
			FormatAmount(m.Bills),
			FormatAmount(m.Net),
			FormatAmount(m.StartBalance),
			FormatAmount(m.EndBalance),
		})
	}
	return t
}

// CategoriesTable lists a month's bills by category, largest first.
func CategoriesTable(m core.MonthlySummary) Table {
	t := Table{Title: "Bills by category", Headers: []string{"Category", "Amount"}}
	for _, c := range m.ByCategory {
		name := c.Name
		if name == "" {
			name = "(none)"
		}
		t.Rows = append(t.Rows, []string{name, FormatAmount(c.Amount)})
	}
	return t
}

// RenderScore renders a score with its rank and commentary.
func RenderScore(s core.BudgetScore) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  %s  %s\n", headerStyle.Render(s.Rank), dimStyle.Render("as of "+s.Date.String()))
	fmt.Fprintf(&b, "  %s\n", RenderScoreGauge(s.Score))
	fmt.Fprintf(&b, "  %s\n", s.Commentary)
	return b.String()
}
