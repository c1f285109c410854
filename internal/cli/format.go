package cli

import (
	"strings"

	"github.com/shopspring/decimal"

	"budgetcal/internal/core"
)

// FormatAmount renders a decimal with two places and thousands separators.
// e.g. 1234567.5 -> "1,234,567.50"
func FormatAmount(d decimal.Decimal) string {
	neg := d.IsNegative()
	s := d.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}

// FormatSigned prefixes income with "+" and bills with "-".
func FormatSigned(inst core.EntryInstance) string {
	if inst.Type == core.Income {
		return "+" + FormatAmount(inst.Amount)
	}
	return "-" + FormatAmount(inst.Amount)
}

func FormatPaid(paid bool) string {
	if paid {
		return "paid"
	}
	return ""
}

// FormatMonth renders the first day of a month as "Jan 2024".
func FormatMonth(d core.Date) string {
	return d.Format("Jan 2006")
}
