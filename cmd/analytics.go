package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joescharf/adreview/internal/analytics"
	"github.com/joescharf/adreview/internal/models"
	"github.com/joescharf/adreview/internal/output"
)

var (
	analyticsType string
	analyticsJSON bool
)

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Show usage and accuracy statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return analyticsRun(cmd.Context())
	},
}

func init() {
	analyticsCmd.Flags().StringVar(&analyticsType, "type", "all", "users, reports, logins, usage, accuracy, or all")
	analyticsCmd.Flags().BoolVar(&analyticsJSON, "json", false, "Print raw JSON")
	rootCmd.AddCommand(analyticsCmd)
}

func analyticsRun(ctx context.Context) error {
	kind, err := analytics.ParseKind(analyticsType)
	if err != nil {
		return err
	}
	s, err := getStore()
	if err != nil {
		return err
	}
	result, err := analytics.New(s).Get(ctx, kind)
	if err != nil {
		return err
	}

	if analyticsJSON {
		enc := json.NewEncoder(ui.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	switch v := result.(type) {
	case *analytics.Summary:
		printUserStats(v.Users)
		printReportStats(v.Reports)
		printLoginStats(v.Logins)
		printUsageStats(v.Usage)
		printAccuracyStats(v.Accuracy)
	case *analytics.UserStats:
		printUserStats(v)
	case *analytics.ReportStats:
		printReportStats(v)
	case *analytics.LoginStats:
		printLoginStats(v)
	case *analytics.UsageStats:
		printUsageStats(v)
	case *analytics.AccuracyStats:
		printAccuracyStats(v)
	}
	return nil
}

func printUserStats(st *analytics.UserStats) {
	ui.Section("Users (%d)", st.TotalUsers)
	table := ui.Table([]string{"Email", "Name", "Reports", "Last Activity"})
	for _, u := range st.Users {
		_ = table.Append([]string{u.Email, u.Name, fmt.Sprintf("%d", u.Count), u.LastActivity.Local().Format("2006-01-02 15:04")})
	}
	_ = table.Render()
}

func printReportStats(st *analytics.ReportStats) {
	ui.Section("Reports (%d)", st.TotalReports)
	table := ui.Table([]string{"Date", "Count", "Avg Score"})
	for _, d := range st.Daily {
		_ = table.Append([]string{d.Date, fmt.Sprintf("%d", d.Count), output.ScoreColor(d.AvgScore)})
	}
	_ = table.Render()
}

func printLoginStats(st *analytics.LoginStats) {
	ui.Section("Logins (%d)", st.TotalLogins)
	table := ui.Table([]string{"Date", "Logins", "Unique Users"})
	for _, d := range st.Daily {
		_ = table.Append([]string{d.Date, fmt.Sprintf("%d", d.Count), fmt.Sprintf("%d", d.UniqueUsers)})
	}
	_ = table.Render()
}

func printUsageStats(st *analytics.UsageStats) {
	ui.Section("Usage (%d)", st.TotalUsage)
	table := ui.Table([]string{"Email", "Reports", "Avg Score", "Rated"})
	for _, u := range st.Users {
		_ = table.Append([]string{u.Email, fmt.Sprintf("%d", u.TotalUsage), output.ScoreColor(u.AvgScore), fmt.Sprintf("%d", u.RatedCount)})
	}
	_ = table.Render()
}

func printAccuracyStats(st *analytics.AccuracyStats) {
	ui.Section("Accuracy (%d rated)", st.RatedReports)
	for _, r := range models.Ratings {
		fmt.Fprintf(ui.Out, "  %s  %d\n", output.RatingColor(string(r)), st.Distribution[r])
	}
	fmt.Fprintf(ui.Out, "  Mean difference: %.2f  Exact matches: %d\n", st.MeanDifference, st.ExactMatches)
}
