package ledger

import (
	"errors"
	"fmt"

	"budgetcal/internal/core"
)

// Months of history and future shown by the dashboard around today's month.
const (
	MonthsBack    = 6
	MonthsForward = 11
)

// MaxWindowMonths bounds every projection window.
const MaxWindowMonths = 60

var ErrWindowTooLarge = errors.New("window too large")

// CheckWindow rejects windows spanning more than MaxWindowMonths.
func CheckWindow(start, end core.Date) error {
	if end.After(start.AddMonthsClamped(MaxWindowMonths)) {
		return fmt.Errorf("%w: %s to %s exceeds %d months", ErrWindowTooLarge, start, end, MaxWindowMonths)
	}
	return nil
}

// DefaultWindow returns the dashboard window: the first day of the month six
// months before today through the last day of the month eleven months after.
func DefaultWindow(today core.Date) (start, end core.Date) {
	month := today.StartOfMonth()
	return month.AddMonthsClamped(-MonthsBack), month.AddMonthsClamped(MonthsForward).EndOfMonth()
}

// MonthWindow returns the first and last day of the month containing month.
func MonthWindow(month core.Date) (start, end core.Date) {
	return month.StartOfMonth(), month.EndOfMonth()
}

// TrailingWindow returns [asOf - days, asOf].
func TrailingWindow(asOf core.Date, days int) (start, end core.Date) {
	return asOf.AddDays(-days), asOf
}
