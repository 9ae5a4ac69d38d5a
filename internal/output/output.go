package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// UI provides colored output and respects verbose/dry-run modes.
type UI struct {
	Verbose bool
	DryRun  bool
	Out     io.Writer
	ErrOut  io.Writer
}

// New creates a UI with default stdout/stderr writers.
func New() *UI {
	return &UI{
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	}
}

var (
	infoPrefix    = color.New(color.FgHiBlue).Sprint("i")
	successPrefix = color.New(color.FgHiGreen).Sprint("\u2713")
	warningPrefix = color.New(color.FgHiYellow).Sprint("\u26a0")
	errorPrefix   = color.New(color.FgHiRed).Sprint("\u2717")
	verbosePrefix = color.New(color.FgHiBlue).Sprint("  \u2192")
	cyan          = color.New(color.FgHiCyan).SprintFunc()
	green         = color.New(color.FgHiGreen).SprintFunc()
	yellow        = color.New(color.FgHiYellow).SprintFunc()
	red           = color.New(color.FgHiRed).SprintFunc()
)

// Cyan returns a cyan-colored string.
func Cyan(s string) string { return cyan(s) }

// Green returns a green-colored string.
func Green(s string) string { return green(s) }

// Yellow returns a yellow-colored string.
func Yellow(s string) string { return yellow(s) }

// Red returns a red-colored string.
func Red(s string) string { return red(s) }

// RatingColor returns a letter grade colored from best (A) to worst (E).
// An empty grade renders as a dash.
func RatingColor(rating string) string {
	switch strings.ToUpper(rating) {
	case "":
		return "-"
	case "A", "B":
		return green(rating)
	case "C":
		return yellow(rating)
	case "D", "E":
		return red(rating)
	default:
		return rating
	}
}

// ScoreColor returns the compliance score colored by band.
func ScoreColor(score float64) string {
	s := fmt.Sprintf("%.0f", score)
	switch {
	case score >= 80:
		return green(s)
	case score >= 60:
		return yellow(s)
	default:
		return red(s)
	}
}

// Checkbox renders a checklist row marker. Unacknowledged rows flagged by a
// failed completion attempt are shown in red.
func Checkbox(acknowledged, flagged bool) string {
	switch {
	case acknowledged:
		return green("[x]")
	case flagged:
		return red("[!]")
	default:
		return "[ ]"
	}
}

func (u *UI) line(w io.Writer, prefix, format string, a []any) {
	fmt.Fprintf(w, "%s %s\n", prefix, fmt.Sprintf(format, a...))
}

func (u *UI) Info(format string, a ...any)    { u.line(u.Out, infoPrefix, format, a) }
func (u *UI) Success(format string, a ...any) { u.line(u.Out, successPrefix, format, a) }
func (u *UI) Warning(format string, a ...any) { u.line(u.ErrOut, warningPrefix, format, a) }
func (u *UI) Error(format string, a ...any)   { u.line(u.ErrOut, errorPrefix, format, a) }

func (u *UI) VerboseLog(format string, a ...any) {
	if u.Verbose {
		u.line(u.Out, verbosePrefix, format, a)
	}
}

func (u *UI) DryRunMsg(format string, a ...any) {
	if u.DryRun {
		u.Warning("[DRY-RUN] "+format, a...)
	}
}

// Section prints a blank line and a cyan heading.
func (u *UI) Section(format string, a ...any) {
	fmt.Fprintf(u.Out, "\n%s\n", cyan(fmt.Sprintf(format, a...)))
}

// Field prints an aligned "label: value" line.
func (u *UI) Field(label string, value any) {
	fmt.Fprintf(u.Out, "%-9s %v\n", label+":", value)
}

// Truncate shortens s to at most width terminal columns, counting
// full-width characters as two.
func Truncate(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}

// Table creates a new tablewriter configured with consistent styling.
func (u *UI) Table(headers []string) *tablewriter.Table {
	table := tablewriter.NewTable(u.Out,
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Lines:      tw.LinesNone,
				Separators: tw.SeparatorsNone,
			},
		}),
		tablewriter.WithPadding(tw.Padding{Left: "", Right: "  "}),
	)
	table.Header(headers)
	return table
}
