package score

import (
	"testing"

	"github.com/shopspring/decimal"

	"budgetcal/internal/core"
)

func mustDate(t *testing.T, s string) core.Date {
	t.Helper()
	d, err := core.ParseDate(s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

func inst(d core.Date, typ core.EntryType, amount, category string) core.EntryInstance {
	return core.EntryInstance{Date: d, Type: typ, Amount: decimal.RequireFromString(amount), Category: category}
}

func TestCalculate(t *testing.T) {
	asOf := mustDate(t, "2024-03-20")
	day := asOf.AddDays(-3)

	tests := []struct {
		name      string
		bills     string
		debt      string
		wantScore int
		wantRank  string
	}{
		{"low spending", "400", "0", 100, "Excellent"},
		{"moderate spending", "650", "0", 90, "Excellent"},
		{"moderate spending with debt", "650", "200", 84, "Good"},
		{"high spending and debt", "800", "300", 68, "Fair"},
		{"break even", "1000", "0", 44, "Needs Work"},
		{"overspending", "1200", "400", 16, "Critical"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			instances := []core.EntryInstance{inst(day, core.Income, "1000", "")}
			bills := decimal.RequireFromString(tt.bills).Sub(decimal.RequireFromString(tt.debt))
			if bills.IsPositive() {
				instances = append(instances, inst(day, core.Bill, bills.String(), "Groceries"))
			}
			if tt.debt != "0" {
				instances = append(instances, inst(day, core.Bill, tt.debt, "Credit Card"))
			}

			got := Calculate(instances, asOf)
			if got.Score != tt.wantScore || got.Rank != tt.wantRank {
				t.Errorf("Calculate() = %d %q, want %d %q", got.Score, got.Rank, tt.wantScore, tt.wantRank)
			}
			if got.Commentary == "" || !got.Date.Equal(asOf) {
				t.Errorf("Calculate() = %+v, want commentary and date", got)
			}
		})
	}
}

func TestCalculate_ZeroIncome(t *testing.T) {
	asOf := mustDate(t, "2024-03-20")
	instances := []core.EntryInstance{
		inst(asOf, core.Bill, "100", ""),
		// Outside the trailing window.
		inst(asOf.AddDays(-31), core.Income, "5000", ""),
		inst(asOf.AddDays(1), core.Income, "5000", ""),
	}
	got := Calculate(instances, asOf)
	if got.Score != 0 || got.Commentary != UnratedCommentary || !IsUnrated(got) {
		t.Errorf("Calculate() = %+v, want unrated sentinel", got)
	}

	if got := Calculate(nil, asOf); !IsUnrated(got) {
		t.Errorf("Calculate(nil) = %+v, want unrated sentinel", got)
	}
}

func TestCalculate_WindowEdges(t *testing.T) {
	asOf := mustDate(t, "2024-03-20")
	instances := []core.EntryInstance{
		inst(asOf.AddDays(-30), core.Income, "1000", ""),
		inst(asOf, core.Bill, "400", ""),
	}
	_, b := CalculateWithBreakdown(instances, asOf)
	if !b.Income.Equal(decimal.NewFromInt(1000)) || !b.Bills.Equal(decimal.NewFromInt(400)) {
		t.Errorf("breakdown = %+v, want both window edges included", b)
	}
}

func TestCalculate_Bounds(t *testing.T) {
	asOf := mustDate(t, "2024-03-20")
	for income := 0; income <= 3000; income += 250 {
		for bills := 0; bills <= 5000; bills += 333 {
			for debt := 0; debt <= bills; debt += 500 {
				instances := []core.EntryInstance{
					inst(asOf, core.Income, decimal.NewFromInt(int64(income)).String(), ""),
					inst(asOf, core.Bill, decimal.NewFromInt(int64(bills-debt)).String(), "misc"),
					inst(asOf, core.Bill, decimal.NewFromInt(int64(debt)).String(), "mortgage"),
				}
				got := Calculate(instances, asOf)
				if got.Score < 0 || got.Score > 100 {
					t.Fatalf("income %d bills %d debt %d: score %d out of range", income, bills, debt, got.Score)
				}
				if income == 0 && !IsUnrated(got) {
					t.Fatalf("zero income should be unrated, got %+v", got)
				}
			}
		}
	}
}

func TestCalculateFromMasters(t *testing.T) {
	entries := []core.MasterEntry{
		{ID: "salary", Date: mustDate(t, "2024-01-01"), Amount: decimal.NewFromInt(3000), Type: core.Income, Recurrence: core.Monthly},
		{ID: "rent", Date: mustDate(t, "2024-01-05"), Amount: decimal.NewFromInt(1000), Type: core.Bill, Recurrence: core.Monthly},
		{ID: "food", Date: mustDate(t, "2024-01-01"), Amount: decimal.NewFromInt(200), Type: core.Bill, Recurrence: core.Weekly},
	}
	// Feb 19 - Mar 20 holds one salary, one rent and five weekly bills:
	// spending 2000/3000 scores 75, savings 100, debt 100.
	got, err := CalculateFromMasters(entries, mustDate(t, "2024-03-20"))
	if err != nil {
		t.Fatalf("CalculateFromMasters() error = %v", err)
	}
	if got.Score != 90 {
		t.Errorf("CalculateFromMasters() = %d, want 90", got.Score)
	}
}

func TestIsDebtCategory(t *testing.T) {
	for _, c := range []string{"Debt", "loan", " Credit Card ", "credit-card", "MORTGAGE", "student loan"} {
		if !IsDebtCategory(c) {
			t.Errorf("IsDebtCategory(%q) = false", c)
		}
	}
	for _, c := range []string{"", "groceries", "card"} {
		if IsDebtCategory(c) {
			t.Errorf("IsDebtCategory(%q) = true", c)
		}
	}
}
