package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/adreview/internal/analysis"
	"github.com/joescharf/adreview/internal/checklist"
	"github.com/joescharf/adreview/internal/models"
	"github.com/joescharf/adreview/internal/output"
)

const titleLength = 50

var (
	analyzeURLs  []string
	analyzeTitle string
	analyzeRaw   bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Review ad copy and save the report to history",
	Long: `Send ad copy to the configured analysis provider and save the report.

The copy is read from the file argument, or from stdin when the argument
is omitted or "-". Up to five official reference URLs may be given with
--url.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "-"
		if len(args) == 1 {
			path = args[0]
		}
		return analyzeRun(cmd.Context(), path, cmd.InOrStdin())
	},
}

func init() {
	analyzeCmd.Flags().StringArrayVarP(&analyzeURLs, "url", "u", nil, "Official reference URL (repeatable, max 5)")
	analyzeCmd.Flags().StringVarP(&analyzeTitle, "title", "t", "", "History title (default: start of the copy)")
	analyzeCmd.Flags().BoolVar(&analyzeRaw, "raw", false, "Print the full report text")
	rootCmd.AddCommand(analyzeCmd)
}

// cliUser is the identity stamped on records created from the command line.
func cliUser() models.CurrentUser {
	return models.CurrentUser{
		Email: strings.ToLower(strings.TrimSpace(viper.GetString("user.email"))),
		Name:  viper.GetString("user.name"),
	}
}

func readDocument(path string, stdin io.Reader) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

func analyzeRun(ctx context.Context, path string, stdin io.Reader) error {
	doc, err := readDocument(path, stdin)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would analyze %d characters with %d reference URLs", len([]rune(doc)), len(analyzeURLs))
		return nil
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	analyzer, err := newAnalyzer()
	if err != nil {
		return err
	}

	res, err := analyzer.Analyze(ctx, doc, analyzeURLs)
	if err != nil {
		return err
	}

	user := cliUser()
	title := analyzeTitle
	if title == "" {
		title = models.TitleFromDocument(doc, titleLength)
	}
	rec := &models.ReportRecord{
		Title:        title,
		Document:     doc,
		OfficialURLs: analysis.CleanURLs(analyzeURLs),
		Score:        res.Score,
		Summary:      res.Summary,
		RawOutput:    res.RawOutput,
		Fallback:     res.Fallback,
		UserEmail:    user.Email,
		UserName:     user.Name,
	}
	if err := s.SaveReport(ctx, rec); err != nil {
		return fmt.Errorf("save report: %w", err)
	}

	if res.Fallback {
		ui.Warning("%s did not return a review; saved a fallback report", res.Provider)
	}
	ui.Success("Saved report %s", output.Cyan(rec.ID))
	printReport(rec, analyzeRaw)
	return nil
}

// printReport shows the score, summary and issue table of a saved report.
func printReport(rec *models.ReportRecord, raw bool) {
	ui.Section("%s  %s", rec.Title, rec.CreatedAt.Local().Format("2006-01-02 15:04"))
	ui.Field("Score", output.ScoreColor(rec.Score))
	ui.Field("Summary", rec.Summary)
	for _, u := range rec.OfficialURLs {
		ui.Field("URL", u)
	}
	if rec.Fallback {
		ui.Field("Note", output.Yellow("fallback report, the provider did not answer"))
	}
	fmt.Fprintln(ui.Out)

	if raw {
		fmt.Fprintln(ui.Out, rec.RawOutput)
		fmt.Fprintln(ui.Out)
	}

	printIssues(checklist.ExtractIssues(rec.RawOutput))
}

func printIssues(issues []checklist.IssueRecord) {
	if len(issues) == 0 {
		ui.Info("No issues in the report table")
		return
	}
	table := ui.Table([]string{"No.", "Location", "Issue"})
	for _, is := range issues {
		_ = table.Append([]string{is.SequenceNumber, is.Location, is.Description})
	}
	_ = table.Render()
}
