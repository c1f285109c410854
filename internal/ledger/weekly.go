package ledger

import (
	"slices"

	"github.com/shopspring/decimal"

	"budgetcal/internal/core"
)

// AggregateWeekly computes the running balance of every Sunday-started week
// from the week of the earliest instance through the week of the latest one.
//
// Each week's End is Start + Income - Bills. Under core.Carryover a week
// opens with the previous week's End; under core.Reset every week opens at
// zero. rollover must already be parsed with core.ParseRollover; callers
// such as services.Compute reject unknown values before getting here.
// Empty input yields an empty map.
func AggregateWeekly(instances []core.EntryInstance, rollover core.Rollover) core.WeeklyBalances {
	out := core.WeeklyBalances{}
	if len(instances) == 0 {
		return out
	}

	sorted := slices.Clone(instances)
	SortInstances(sorted)

	income := map[string]decimal.Decimal{}
	bills := map[string]decimal.Decimal{}
	for _, inst := range sorted {
		key := inst.Date.StartOfWeek().String()
		if inst.Type == core.Income {
			income[key] = income[key].Add(inst.Amount)
		} else {
			bills[key] = bills[key].Add(inst.Amount)
		}
	}

	first := sorted[0].Date.StartOfWeek()
	last := sorted[len(sorted)-1].Date.StartOfWeek()
	balance := decimal.Zero
	for week := first; !week.After(last); week = week.AddDays(7) {
		key := week.String()
		wb := core.WeeklyBalance{
			WeekStart: week,
			Income:    orZero(income[key]),
			Bills:     orZero(bills[key]),
			Start:     balance,
		}
		wb.End = wb.Start.Add(wb.Income).Sub(wb.Bills)
		out[key] = wb

		if rollover == core.Reset {
			balance = decimal.Zero
		} else {
			balance = wb.End
		}
	}
	return out
}

// orZero normalizes the zero value read from a missing map key.
func orZero(d decimal.Decimal) decimal.Decimal {
	if d.IsZero() {
		return decimal.Zero
	}
	return d
}
