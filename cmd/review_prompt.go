package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/joescharf/adreview/internal/models"
	"github.com/joescharf/adreview/internal/output"
	"github.com/joescharf/adreview/internal/sessions"
)

// reviewAnswers is what the interactive checklist collects.
type reviewAnswers struct {
	Keys       []string
	Rating     string
	HumanCount string
}

// promptReview is a test hook for replacing the interactive form.
var promptReview = defaultPromptReview

func defaultPromptReview(in io.Reader, out io.Writer, view *sessions.View) (*reviewAnswers, error) {
	ans := &reviewAnswers{}
	var groups []*huh.Group

	if len(view.Rows) > 0 {
		opts := make([]huh.Option[string], 0, len(view.Rows))
		for _, row := range view.Rows {
			label := output.Truncate(fmt.Sprintf("%s. [%s] %s", row.SequenceNumber, row.Location, row.Description), 72)
			opts = append(opts, huh.NewOption(label, row.Key).Selected(row.Acknowledged))
		}
		groups = append(groups, huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Acknowledge issues").
				Description("Select every issue you have checked").
				Options(opts...).
				Value(&ans.Keys),
		))
	}

	ratings := []huh.Option[string]{huh.NewOption("skip", "")}
	for _, r := range models.Ratings {
		ratings = append(ratings, huh.NewOption(string(r), string(r)))
	}
	groups = append(groups, huh.NewGroup(
		huh.NewSelect[string]().
			Title("Accuracy rating").
			Description("Recorded only when every issue is acknowledged").
			Options(ratings...).
			Value(&ans.Rating),
		huh.NewInput().
			Title("Issues you found").
			Placeholder("0").
			Value(&ans.HumanCount),
	))

	form := huh.NewForm(groups...).WithInput(in).WithOutput(out)
	if f, ok := in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		form = form.WithAccessible(true)
	}
	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("review form: %w", err)
	}
	return ans, nil
}
