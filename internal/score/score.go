// Package score rates budget health from the last 30 days of occurrences.
package score

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"budgetcal/internal/core"
	"budgetcal/internal/ledger"
)

// WindowDays is the length of the trailing window ending on asOf.
const WindowDays = 30

// Sub-score weights. They add up to one.
var (
	spendingWeight = dec("0.40")
	savingsWeight  = dec("0.35")
	debtWeight     = dec("0.25")
)

var debtCategories = map[string]bool{
	"debt":         true,
	"loan":         true,
	"loans":        true,
	"credit card":  true,
	"credit-card":  true,
	"mortgage":     true,
	"student loan": true,
}

// IsDebtCategory reports whether a bill category counts towards the debt ratio.
func IsDebtCategory(category string) bool {
	return debtCategories[strings.ToLower(strings.TrimSpace(category))]
}

// step is one threshold of a ratio-to-subscore step function.
type step struct {
	bound decimal.Decimal
	score int64
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var (
	// ratio <= bound
	spendingSteps = []step{{dec("0.5"), 100}, {dec("0.7"), 75}, {dec("0.9"), 50}}
	debtSteps     = []step{{dec("0.15"), 100}, {dec("0.25"), 75}, {dec("0.35"), 50}}
	// ratio >= bound
	savingsSteps = []step{{dec("0.2"), 100}, {dec("0.1"), 75}, {dec("0.05"), 50}, {dec("0"), 25}}
)

func atMost(ratio decimal.Decimal, table []step, fallback int64) int64 {
	for _, s := range table {
		if ratio.LessThanOrEqual(s.bound) {
			return s.score
		}
	}
	return fallback
}

func atLeast(ratio decimal.Decimal, table []step, fallback int64) int64 {
	for _, s := range table {
		if ratio.GreaterThanOrEqual(s.bound) {
			return s.score
		}
	}
	return fallback
}

// Breakdown exposes the intermediate ratios and sub-scores.
type Breakdown struct {
	Income        decimal.Decimal `json:"income"`
	Bills         decimal.Decimal `json:"bills"`
	Debt          decimal.Decimal `json:"debt"`
	SpendingRatio decimal.Decimal `json:"spendingRatio"`
	SavingsRatio  decimal.Decimal `json:"savingsRatio"`
	DebtRatio     decimal.Decimal `json:"debtRatio"`
	SpendingScore int64           `json:"spendingScore"`
	SavingsScore  int64           `json:"savingsScore"`
	DebtScore     int64           `json:"debtScore"`
}

// Calculate scores the instances dated in [asOf-30d, asOf]. Instances outside
// that window are ignored, so callers may pass a wider projection.
func Calculate(instances []core.EntryInstance, asOf core.Date) core.BudgetScore {
	s, _ := CalculateWithBreakdown(instances, asOf)
	return s
}

// CalculateWithBreakdown is Calculate plus the ratios behind the score.
func CalculateWithBreakdown(instances []core.EntryInstance, asOf core.Date) (core.BudgetScore, Breakdown) {
	start, end := ledger.TrailingWindow(asOf, WindowDays)
	b := Breakdown{Income: decimal.Zero, Bills: decimal.Zero, Debt: decimal.Zero}
	for _, inst := range instances {
		if !inst.Date.Between(start, end) {
			continue
		}
		if inst.Type == core.Income {
			b.Income = b.Income.Add(inst.Amount)
			continue
		}
		b.Bills = b.Bills.Add(inst.Amount)
		if IsDebtCategory(inst.Category) {
			b.Debt = b.Debt.Add(inst.Amount)
		}
	}

	if !b.Income.IsPositive() {
		return unrated(asOf), b
	}

	b.SpendingRatio = b.Bills.Div(b.Income)
	b.SavingsRatio = b.Income.Sub(b.Bills).Div(b.Income)
	b.DebtRatio = b.Debt.Div(b.Income)
	b.SpendingScore = atMost(b.SpendingRatio, spendingSteps, 25)
	b.SavingsScore = atLeast(b.SavingsRatio, savingsSteps, 0)
	b.DebtScore = atMost(b.DebtRatio, debtSteps, 25)

	weighted := decimal.NewFromInt(b.SpendingScore).Mul(spendingWeight).
		Add(decimal.NewFromInt(b.SavingsScore).Mul(savingsWeight)).
		Add(decimal.NewFromInt(b.DebtScore).Mul(debtWeight))
	value := int(weighted.Round(0).IntPart())
	value = max(0, min(100, value))

	t := tierFor(value)
	return core.BudgetScore{Score: value, Rank: t.rank, Commentary: t.commentary, Date: asOf}, b
}

// CalculateFromMasters materializes the trailing window first, so recurring
// entries count once per occurrence.
func CalculateFromMasters(entries []core.MasterEntry, asOf core.Date) (core.BudgetScore, error) {
	start, end := ledger.TrailingWindow(asOf, WindowDays)
	instances, err := ledger.Materialize(entries, start, end)
	if err != nil {
		return core.BudgetScore{}, fmt.Errorf("materialize score window: %w", err)
	}
	return Calculate(instances, asOf), nil
}
