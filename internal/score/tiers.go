package score

import "budgetcal/internal/core"

const (
	UnratedRank       = "Unrated"
	UnratedCommentary = "Not enough income recorded in the last 30 days to calculate a score."
)

type tier struct {
	min        int
	rank       string
	commentary string
}

// tiers is ordered from the highest band down.
var tiers = []tier{
	{90, "Excellent", "Outstanding budgeting. Your spending is well under control and you are saving consistently."},
	{75, "Good", "Solid financial footing. A little more saving would push you to the top tier."},
	{50, "Fair", "You are getting by, but bills take a large share of your income."},
	{25, "Needs Work", "Spending is close to or above income. Look for bills you can reduce."},
	{0, "Critical", "Your bills outpace your income. Prioritise essential expenses and debt."},
}

func tierFor(score int) tier {
	for _, t := range tiers {
		if score >= t.min {
			return t
		}
	}
	return tiers[len(tiers)-1]
}

func unrated(asOf core.Date) core.BudgetScore {
	return core.BudgetScore{Score: 0, Rank: UnratedRank, Commentary: UnratedCommentary, Date: asOf}
}

// IsUnrated reports whether s is the insufficient-income sentinel.
func IsUnrated(s core.BudgetScore) bool {
	return s.Rank == UnratedRank
}
