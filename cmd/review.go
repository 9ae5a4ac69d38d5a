package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/adreview/internal/checklist"
	"github.com/joescharf/adreview/internal/feedback"
	"github.com/joescharf/adreview/internal/output"
	"github.com/joescharf/adreview/internal/sessions"
)

var (
	reviewAck         []string
	reviewAll         bool
	reviewRating      string
	reviewHumanCount  string
	reviewInteractive bool
)

// ErrChecklistIncomplete is returned when rows are still unacknowledged.
var ErrChecklistIncomplete = errors.New("checklist incomplete")

var reviewCmd = &cobra.Command{
	Use:   "review <id>",
	Short: "Acknowledge a report's issues and rate its accuracy",
	Long: `Walk the issue checklist of a saved report.

Acknowledge rows by number with --ack (repeatable or comma separated) or
every row with --all. The checklist is then completed; once every row is
acknowledged --rating (A-E) and --human-count record how accurate the AI
report was.

With --interactive the rows, rating and count are collected in a form.
With no flags the checklist is only displayed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewRun(cmd.Context(), args[0], cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	reviewCmd.Flags().StringSliceVar(&reviewAck, "ack", nil, "Row numbers to acknowledge")
	reviewCmd.Flags().BoolVar(&reviewAll, "all", false, "Acknowledge every row")
	reviewCmd.Flags().StringVarP(&reviewRating, "rating", "r", "", "Accuracy rating A-E")
	reviewCmd.Flags().StringVar(&reviewHumanCount, "human-count", "", "Number of issues you found")
	reviewCmd.Flags().BoolVarP(&reviewInteractive, "interactive", "i", false, "Review in an interactive form")
	rootCmd.AddCommand(reviewCmd)
}

func reviewRun(ctx context.Context, id string, in io.Reader, out io.Writer) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	mgr := sessions.NewManager(s, feedback.NewRecorder(s), viper.GetDuration("sessions.ttl"))

	view, err := mgr.Open(ctx, id, cliUser().Email)
	if err != nil {
		return err
	}
	defer mgr.Close(view.ID)

	rating, humanCount := reviewRating, reviewHumanCount
	if reviewInteractive {
		printReport(view.Record, false)
		ans, err := promptReview(in, out, view)
		if err != nil {
			return err
		}
		for _, key := range ans.Keys {
			if view, err = mgr.Toggle(view.ID, key, true); err != nil {
				return err
			}
		}
		rating, humanCount = ans.Rating, ans.HumanCount
	} else if !reviewAll && len(reviewAck) == 0 && reviewRating == "" {
		printReport(view.Record, false)
		printChecklist(view)
		printAccuracy(view.Record)
		return nil
	}

	if reviewAll {
		if view, err = mgr.AcknowledgeAll(view.ID); err != nil {
			return err
		}
	}
	for _, seq := range reviewAck {
		if view, err = mgr.ToggleSequence(view.ID, seq, true); err != nil {
			return err
		}
	}

	outcome, view, err := mgr.Complete(view.ID)
	if err != nil {
		return err
	}
	printChecklist(view)
	fmt.Fprintln(ui.Out)

	switch outcome.Kind {
	case checklist.OutcomeEmpty:
		ui.Info("No checklist items in this report; nothing to rate")
		return nil
	case checklist.OutcomeIncomplete:
		ui.Error("%s", outcome)
		return fmt.Errorf("%w: %d of %d acknowledged", ErrChecklistIncomplete, outcome.Acknowledged, outcome.Total)
	}
	ui.Success("%s", outcome)

	if rating == "" {
		ui.Info("Rate the report with --rating A-E --human-count N")
		return nil
	}

	if dryRun {
		ui.DryRunMsg("Would rate report %s %s with %q issues", id, rating, humanCount)
		return nil
	}
	res, err := mgr.SubmitRating(ctx, view.ID, rating, humanCount)
	if err != nil {
		return err
	}
	if res.Warning != "" {
		ui.Warning("%s", res.Warning)
	} else {
		ui.Success("Rated %s", output.RatingColor(ratingText(res.Record)))
	}
	printAccuracy(res.Record)
	return nil
}

func printChecklist(view *sessions.View) {
	if view.Total == 0 {
		ui.Info("No issues in the report table")
		return
	}
	table := ui.Table([]string{"", "No.", "Location", "Issue"})
	for _, row := range view.Rows {
		_ = table.Append([]string{output.Checkbox(row.Acknowledged, row.Flagged), row.SequenceNumber, row.Location, row.Description})
	}
	_ = table.Render()
	fmt.Fprintf(ui.Out, "%d/%d acknowledged\n", view.Acknowledged, view.Total)
}
