// Package ledger turns master entries into dated instances and folds them
// into weekly running balances and month summaries.
//
// Everything here is a pure function of its arguments: no storage, no
// clock, no shared state. Callers pass the window and "today" explicitly.
package ledger

import "budgetcal/internal/core"

// Resolution is the effective state of one occurrence after its exception
// (if any) has been applied.
type Resolution struct {
	EffectiveDate core.Date
	IsPaid        bool
	Order         float64
}

// Resolve applies the exception stored under occurrence to entry. The
// exception is looked up by the unmodified occurrence date; a MovedTo
// relocates the occurrence without changing that key.
func Resolve(entry core.MasterEntry, occurrence core.Date) Resolution {
	res := Resolution{
		EffectiveDate: occurrence,
		IsPaid:        entry.IsPaid,
		Order:         entry.Order,
	}

	x, ok := entry.Exceptions[occurrence.String()]
	if !ok {
		return res
	}
	if x.MovedTo != nil && !x.MovedTo.IsZero() {
		res.EffectiveDate = *x.MovedTo
	}
	if x.IsPaid != nil {
		res.IsPaid = *x.IsPaid
	}
	if x.Order != nil {
		res.Order = *x.Order
	}
	return res
}
