package cmd

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/adreview/internal/feedback"
	"github.com/joescharf/adreview/internal/models"
	"github.com/joescharf/adreview/internal/store"
)

var (
	exportFormat string
	exportDays   int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export analysis history as JSON, CSV, or Markdown",
	RunE: func(cmd *cobra.Command, args []string) error {
		return exportRun(cmd.Context())
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "Output format: json, csv, markdown")
	exportCmd.Flags().IntVar(&exportDays, "days", 0, "Only the last N days (0 = all)")
	rootCmd.AddCommand(exportCmd)
}

// exportRow flattens a report with its accuracy figures.
type exportRow struct {
	*models.ReportRecord
	Accuracy feedback.Accuracy `json:"accuracy"`
}

func exportRun(ctx context.Context) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	filter := store.ReportListFilter{}
	if exportDays > 0 {
		filter.Since = time.Now().UTC().AddDate(0, 0, -exportDays)
	}
	reports, err := s.ListReports(ctx, filter)
	if err != nil {
		return err
	}

	rows := make([]exportRow, 0, len(reports))
	for _, r := range reports {
		rows = append(rows, exportRow{ReportRecord: r, Accuracy: feedback.AccuracyOf(r)})
	}

	switch exportFormat {
	case "json":
		enc := json.NewEncoder(ui.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "csv":
		return exportCSV(rows)
	case "markdown":
		exportMarkdown(rows)
		return nil
	default:
		return fmt.Errorf("unknown export format: %s (use: json, csv, markdown)", exportFormat)
	}
}

func optionalInt(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func exportCSV(rows []exportRow) error {
	w := csv.NewWriter(ui.Out)
	_ = w.Write([]string{"ID", "Created", "User", "Title", "Score", "Fallback", "AI Issues", "Human Issues", "Difference", "Rating"})
	for _, r := range rows {
		_ = w.Write([]string{
			r.ID,
			r.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
			r.UserEmail,
			r.Title,
			strconv.FormatFloat(r.Score, 'f', -1, 64),
			strconv.FormatBool(r.Fallback),
			strconv.Itoa(r.Accuracy.AIIssueCount),
			optionalInt(r.Accuracy.HumanIssueCount),
			optionalInt(r.Accuracy.Difference),
			ratingText(r.ReportRecord),
		})
	}
	w.Flush()
	return w.Error()
}

func exportMarkdown(rows []exportRow) {
	cell := strings.NewReplacer("|", `\|`, "\n", " ")
	fmt.Fprintln(ui.Out, "# Analysis History")
	fmt.Fprintln(ui.Out)
	fmt.Fprintln(ui.Out, "| Created | User | Title | Score | AI Issues | Human Issues | Rating |")
	fmt.Fprintln(ui.Out, "|---------|------|-------|-------|-----------|--------------|--------|")
	for _, r := range rows {
		fmt.Fprintf(ui.Out, "| %s | %s | %s | %.0f | %d | %s | %s |\n",
			r.CreatedAt.UTC().Format("2006-01-02"), r.UserEmail, cell.Replace(r.Title), r.Score,
			r.Accuracy.AIIssueCount, optionalInt(r.Accuracy.HumanIssueCount), ratingText(r.ReportRecord))
	}
}
