package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// WeeklyBalance is the running balance entering and leaving one Sunday-started week.
type WeeklyBalance struct {
	WeekStart Date            `json:"weekStart"`
	Income    decimal.Decimal `json:"income"`
	Bills     decimal.Decimal `json:"bills"`
	Start     decimal.Decimal `json:"start"`
	End       decimal.Decimal `json:"end"`
}

// WeeklyBalances is keyed by the YYYY-MM-DD of each week start.
type WeeklyBalances map[string]WeeklyBalance

// Sorted returns the weeks in ascending date order.
func (w WeeklyBalances) Sorted() []WeeklyBalance {
	out := make([]WeeklyBalance, 0, len(w))
	for _, wb := range w {
		out = append(out, wb)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].WeekStart.Before(out[j].WeekStart)
	})
	return out
}

// Lookup returns the balance of the week containing d.
func (w WeeklyBalances) Lookup(d Date) (WeeklyBalance, bool) {
	wb, ok := w[d.StartOfWeek().String()]
	return wb, ok
}

// MonthlySummary is a compact summary for one calendar month.
type MonthlySummary struct {
	Month        Date             `json:"month"` // first day of the month
	Income       decimal.Decimal  `json:"income"`
	Bills        decimal.Decimal  `json:"bills"`
	Net          decimal.Decimal  `json:"net"`
	StartBalance decimal.Decimal  `json:"startOfMonthBalance"`
	EndBalance   decimal.Decimal  `json:"endOfMonthBalance"`
	ByCategory   []CategoryAmount `json:"byCategory,omitempty"`
}

// BudgetScore is the health score computed for one day.
type BudgetScore struct {
	Score      int    `json:"score"`
	Rank       string `json:"rank"`
	Commentary string `json:"commentary"`
	Date       Date   `json:"date"`
}
