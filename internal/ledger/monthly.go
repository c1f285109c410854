package ledger

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"budgetcal/internal/core"
)

const uncategorized = "Uncategorized"

// SummarizeMonth reduces the instances of the calendar month containing
// month. The opening balance is the Start of the week that contains the
// first day of the month, or zero when that week was never aggregated.
// weekly is only read.
func SummarizeMonth(instances []core.EntryInstance, weekly core.WeeklyBalances, month core.Date) core.MonthlySummary {
	first, last := MonthWindow(month)
	s := core.MonthlySummary{
		Month:        first,
		Income:       decimal.Zero,
		Bills:        decimal.Zero,
		StartBalance: decimal.Zero,
	}

	byCategory := map[string]decimal.Decimal{}
	for _, inst := range instances {
		if !inst.Date.Between(first, last) {
			continue
		}
		if inst.Type == core.Income {
			s.Income = s.Income.Add(inst.Amount)
			continue
		}
		s.Bills = s.Bills.Add(inst.Amount)
		name := inst.Category
		if name == "" {
			name = uncategorized
		}
		byCategory[name] = byCategory[name].Add(inst.Amount)
	}

	s.Net = s.Income.Sub(s.Bills)
	if wb, ok := weekly.Lookup(first); ok {
		s.StartBalance = wb.Start
	}
	s.EndBalance = s.StartBalance.Add(s.Net)
	s.ByCategory = sortedCategories(byCategory)
	return s
}

// SummarizeMonths summarizes every month touching [start, end].
func SummarizeMonths(instances []core.EntryInstance, weekly core.WeeklyBalances, start, end core.Date) []core.MonthlySummary {
	var out []core.MonthlySummary
	for m := start.StartOfMonth(); !m.After(end); m = m.AddMonthsClamped(1) {
		out = append(out, SummarizeMonth(instances, weekly, m))
	}
	return out
}

// sortedCategories orders by amount descending, then name.
func sortedCategories(m map[string]decimal.Decimal) []core.CategoryAmount {
	if len(m) == 0 {
		return nil
	}
	out := make([]core.CategoryAmount, 0, len(m))
	for name, amount := range m {
		out = append(out, core.CategoryAmount{Name: name, Amount: amount})
	}
	slices.SortFunc(out, func(a, b core.CategoryAmount) int {
		if c := b.Amount.Cmp(a.Amount); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}
