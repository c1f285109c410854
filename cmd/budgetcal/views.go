package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"budgetcal/internal/cli"
	"budgetcal/internal/core"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "List every occurrence in a window",
	Args:  cobra.NoArgs,
	RunE:  runProject,
}

var weeksCmd = &cobra.Command{
	Use:   "weeks",
	Short: "Weekly running balances",
	Args:  cobra.NoArgs,
	RunE:  runWeeks,
}

var monthCmd = &cobra.Command{
	Use:   "month [YYYY-MM]",
	Short: "Summary of one month, the current one by default",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runMonth,
}

var (
	flagAsOf    string
	flagHistory bool
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Budget health score",
	Args:  cobra.NoArgs,
	RunE:  runScore,
}

func init() {
	addWindowFlags(projectCmd)
	addWindowFlags(weeksCmd)
	scoreCmd.Flags().StringVar(&flagAsOf, "as-of", "", "Score date (YYYY-MM-DD), today by default")
	scoreCmd.Flags().BoolVar(&flagHistory, "history", false, "List recorded scores instead")
	rootCmd.AddCommand(projectCmd, weeksCmd, monthCmd, scoreCmd)
}

func runProject(cmd *cobra.Command, _ []string) error {
	p, err := loadProjection(cmd)
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("CALENDAR  %s to %s  (%s)", p.Start, p.End, p.Rollover)))
	fmt.Println()
	if len(p.Instances) == 0 {
		fmt.Println("  No entries in this window.")
		return nil
	}
	fmt.Print(cli.RenderTable(cli.InstancesTable(p.Instances)))
	return nil
}

func runWeeks(cmd *cobra.Command, _ []string) error {
	p, err := loadProjection(cmd)
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("WEEKS  %s to %s  (%s)", p.Start, p.End, p.Rollover)))
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.WeeksTable(p.Weeks)))
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.MonthsTable(p.Months)))
	return nil
}

func runMonth(cmd *cobra.Command, args []string) error {
	var month core.Date
	if len(args) == 1 {
		m, err := parseMonth(args[0])
		if err != nil {
			return err
		}
		month = m
	} else {
		today, err := app.Ledger.Today(cmd.Context())
		if err != nil {
			return err
		}
		month = today.StartOfMonth()
	}

	m, err := app.Ledger.Month(cmd.Context(), month)
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Println(cli.RenderTitle("MONTH  " + cli.FormatMonth(m.Month)))
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.MonthsTable([]core.MonthlySummary{m})))
	if len(m.ByCategory) > 0 {
		fmt.Println()
		fmt.Print(cli.RenderTable(cli.CategoriesTable(m)))
	}
	return nil
}

func runScore(cmd *cobra.Command, _ []string) error {
	if flagHistory {
		history, err := app.Ledger.ScoreHistory(cmd.Context())
		if err != nil {
			return err
		}
		t := cli.Table{Headers: []string{"Date", "Score", "Rank"}}
		for _, s := range history {
			t.Rows = append(t.Rows, []string{s.Date.String(), fmt.Sprint(s.Score), s.Rank})
		}
		fmt.Println()
		fmt.Print(cli.RenderTable(t))
		return nil
	}

	var asOf core.Date
	if flagAsOf != "" {
		d, err := core.ParseDate(flagAsOf)
		if err != nil {
			return err
		}
		asOf = d
	} else {
		today, err := app.Ledger.Today(cmd.Context())
		if err != nil {
			return err
		}
		asOf = today
	}

	s, err := app.Ledger.Score(cmd.Context(), asOf)
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Print(cli.RenderScore(s))
	return nil
}
