// Package recurrence expands a master entry's cadence into concrete dates.
//
// Each cadence (weekly, monthly, ...) has its own strategy registered in a
// table keyed by core.Recurrence. The dashboard, the read-only month view,
// the score calculator and the reminder scheduler all go through
// Occurrences so they always agree on when an entry is due.
package recurrence

import (
	"fmt"

	"budgetcal/internal/core"
)

// Cadence is the strategy interface for one recurrence rule.
type Cadence interface {
	// Dates returns the occurrence dates of an entry anchored on anchor that
	// fall inside [start, end]. Callers guarantee anchor <= end and start <= end.
	Dates(anchor, start, end core.Date) []core.Date
}

// Once implements Cadence for non-recurring entries.
type Once struct{}

func (Once) Dates(anchor, start, end core.Date) []core.Date {
	if anchor.Between(start, end) {
		return []core.Date{anchor}
	}
	return nil
}

// EveryNWeeks implements Cadence for weekly and bi-weekly entries.
type EveryNWeeks struct {
	Weeks int
}

// Dates steps from the anchor's week start. The week is taken to begin on
// the anchor's own weekday, so that start is the anchor itself. The cursor
// is advanced by repeated addition to keep the weekday exact.
func (c EveryNWeeks) Dates(anchor, start, end core.Date) []core.Date {
	step := 7 * c.Weeks
	cursor := anchor
	for cursor.Before(start) {
		cursor = cursor.AddDays(step)
	}

	var out []core.Date
	for !cursor.After(end) {
		out = append(out, cursor)
		cursor = cursor.AddDays(step)
	}
	return out
}

// EveryNMonths implements Cadence for month based entries (monthly through annual).
type EveryNMonths struct {
	Months int
}

// Dates fast-forwards by whole intervals, then fine-steps to the window.
// The occurrence day is the anchor's day clamped to the length of the
// candidate month, so an entry anchored on the 31st lands on Feb 28/29.
func (c EveryNMonths) Dates(anchor, start, end core.Date) []core.Date {
	offset := 0
	if diff := anchor.MonthsUntil(start); diff > 0 {
		offset = (diff / c.Months) * c.Months
	}
	for c.candidate(anchor, offset).Before(start) {
		offset += c.Months
	}

	var out []core.Date
	for {
		target := anchor.StartOfMonth().AddMonthsClamped(offset)
		d := c.candidate(anchor, offset)
		if d.After(end) {
			break
		}
		// A clamped date must stay in the month it was computed for.
		if d.SameMonth(target) {
			out = append(out, d)
		}
		offset += c.Months
	}
	return out
}

func (c EveryNMonths) candidate(anchor core.Date, offset int) core.Date {
	return anchor.AddMonthsClamped(offset)
}

// cadences maps each canonical recurrence to its strategy.
var cadences = map[core.Recurrence]Cadence{
	core.None:       Once{},
	core.Weekly:     EveryNWeeks{Weeks: 1},
	core.BiWeekly:   EveryNWeeks{Weeks: 2},
	core.Monthly:    EveryNMonths{Months: 1},
	core.BiMonthly:  EveryNMonths{Months: 2},
	core.Quarterly:  EveryNMonths{Months: 3},
	core.SemiAnnual: EveryNMonths{Months: 6},
	core.Annual:     EveryNMonths{Months: 12},
}

// Lookup returns the cadence for a recurrence tag. Aliases such as
// "every-3-months" resolve to their canonical cadence; unknown tags are an error.
func Lookup(r core.Recurrence) (Cadence, error) {
	if c, ok := cadences[r]; ok {
		return c, nil
	}
	canonical, err := r.Canonical()
	if err != nil {
		return nil, err
	}
	c, ok := cadences[canonical]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownRecurrence, r)
	}
	return c, nil
}

// Register installs a cadence for a new recurrence tag.
func Register(r core.Recurrence, c Cadence) {
	cadences[r] = c
}

// Occurrences returns the sorted dates on which entry occurs in [start, end],
// end inclusive. Exceptions are not applied here.
func Occurrences(entry core.MasterEntry, start, end core.Date) ([]core.Date, error) {
	if err := entry.Date.Validate(); err != nil {
		return nil, fmt.Errorf("entry %s: %w", entry.ID, err)
	}
	cadence, err := Lookup(entry.Recurrence)
	if err != nil {
		return nil, fmt.Errorf("entry %s: %w", entry.ID, err)
	}
	if end.Before(start) || entry.Date.After(end) {
		return nil, nil
	}
	return cadence.Dates(entry.Date, start, end), nil
}

// IsOccurrence reports whether entry has an occurrence originally due on d.
func IsOccurrence(entry core.MasterEntry, d core.Date) (bool, error) {
	dates, err := Occurrences(entry, d, d)
	if err != nil {
		return false, err
	}
	return len(dates) == 1, nil
}

// NextOccurrence returns the first occurrence strictly after after, looking
// at most horizon days ahead.
func NextOccurrence(entry core.MasterEntry, after core.Date, horizon int) (core.Date, bool, error) {
	dates, err := Occurrences(entry, after.AddDays(1), after.AddDays(horizon))
	if err != nil {
		return core.Date{}, false, err
	}
	if len(dates) == 0 {
		return core.Date{}, false, nil
	}
	return dates[0], true, nil
}
