package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/adreview/internal/feedback"
	"github.com/joescharf/adreview/internal/models"
	"github.com/joescharf/adreview/internal/output"
	"github.com/joescharf/adreview/internal/store"
)

var (
	historySearch   string
	historyMinScore float64
	historyMaxScore float64
	historyDays     int
	historyLimit    int
	historyMine     bool
	historyRaw      bool
)

var historyCmd = &cobra.Command{
	Use:     "history",
	Aliases: []string{"hist"},
	Short:   "List and inspect saved reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		return historyListRun(cmd)
	},
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved reports, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return historyListRun(cmd)
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a saved report with its issues and accuracy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return historyShowRun(cmd.Context(), args[0])
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return historyDeleteRun(cmd.Context(), args[0])
	},
}

func init() {
	for _, c := range []*cobra.Command{historyCmd, historyListCmd} {
		c.Flags().StringVarP(&historySearch, "search", "s", "", "Match title, summary or copy")
		c.Flags().Float64Var(&historyMinScore, "min-score", 0, "Minimum score")
		c.Flags().Float64Var(&historyMaxScore, "max-score", 100, "Maximum score")
		c.Flags().IntVar(&historyDays, "days", 0, "Only the last N days (0 = all)")
		c.Flags().IntVarP(&historyLimit, "limit", "l", 20, "Maximum rows")
		c.Flags().BoolVar(&historyMine, "mine", false, "Only reports created by user.email")
	}
	historyShowCmd.Flags().BoolVar(&historyRaw, "raw", false, "Print the full report text")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	rootCmd.AddCommand(historyCmd)
}

// historyFilter builds the store filter from the flags the user actually set.
func historyFilter(cmd *cobra.Command) (store.ReportListFilter, error) {
	filter := store.ReportListFilter{Search: historySearch, Limit: historyLimit}
	if cmd.Flags().Changed("min-score") {
		v := historyMinScore
		filter.MinScore = &v
	}
	if cmd.Flags().Changed("max-score") {
		v := historyMaxScore
		filter.MaxScore = &v
	}
	if historyDays > 0 {
		filter.Since = time.Now().UTC().AddDate(0, 0, -historyDays)
	}
	if historyMine {
		user := cliUser()
		if user.Anonymous() {
			return filter, fmt.Errorf("--mine needs user.email (set ADREVIEW_USER_EMAIL)")
		}
		filter.UserEmail = user.Email
	}
	return filter, nil
}

func historyListRun(cmd *cobra.Command) error {
	filter, err := historyFilter(cmd)
	if err != nil {
		return err
	}
	s, err := getStore()
	if err != nil {
		return err
	}

	reports, err := s.ListReports(cmd.Context(), filter)
	if err != nil {
		return err
	}
	if len(reports) == 0 {
		ui.Info("No reports found")
		return nil
	}

	table := ui.Table([]string{"ID", "Created", "Score", "Issues", "Rating", "User", "Title"})
	for _, r := range reports {
		acc := feedback.AccuracyOf(r)
		_ = table.Append([]string{
			r.ID,
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			output.ScoreColor(r.Score),
			fmt.Sprintf("%d", acc.AIIssueCount),
			output.RatingColor(ratingText(r)),
			r.UserEmail,
			output.Truncate(r.Title, 40),
		})
	}
	_ = table.Render()
	return nil
}

func ratingText(r *models.ReportRecord) string {
	if r.UserRating == nil {
		return ""
	}
	return string(*r.UserRating)
}

func historyShowRun(ctx context.Context, id string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	rec, err := s.GetReport(ctx, id)
	if err != nil {
		return err
	}

	printReport(rec, historyRaw)
	printAccuracy(rec)
	return nil
}

func printAccuracy(rec *models.ReportRecord) {
	acc := feedback.AccuracyOf(rec)
	fmt.Fprintln(ui.Out)
	if acc.HumanIssueCount == nil {
		ui.Info("Not rated yet (AI found %d issues)", acc.AIIssueCount)
		return
	}
	fmt.Fprintf(ui.Out, "Rating: %s  AI issues: %d  Reviewer issues: %d  Difference: %d\n",
		output.RatingColor(ratingText(rec)), acc.AIIssueCount, *acc.HumanIssueCount, *acc.Difference)
}

func historyDeleteRun(ctx context.Context, id string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	rec, err := s.GetReport(ctx, id)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would delete report %s (%s)", rec.ID, rec.Title)
		return nil
	}
	if err := s.DeleteReport(ctx, id); err != nil {
		return err
	}
	ui.Success("Deleted report %s", rec.ID)
	return nil
}
