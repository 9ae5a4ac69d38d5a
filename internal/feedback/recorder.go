// Package feedback records a reviewer's accuracy rating for an AI report.
package feedback

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/joescharf/adreview/internal/checklist"
	"github.com/joescharf/adreview/internal/models"
)

// RatingStore is the slice of the history store the recorder writes through.
type RatingStore interface {
	UpdateRating(ctx context.Context, id string, rating models.Rating, humanCount int) (*models.ReportRecord, error)
}

// Result describes a submitted rating.
type Result struct {
	Record    *models.ReportRecord `json:"record"`
	Accuracy  Accuracy             `json:"accuracy"`
	Persisted bool                 `json:"persisted"`
	// Warning is set when the rating is shown locally but was not saved.
	Warning    string `json:"warning,omitempty"`
	PersistErr error  `json:"-"`
}

// Recorder writes ratings onto report records.
//
// Callers must only submit after the report's checklist reconciled as
// complete; the recorder does not check this itself.
type Recorder struct {
	store  RatingStore
	logger *slog.Logger
}

// NewRecorder creates a recorder backed by s.
func NewRecorder(s RatingStore) *Recorder {
	return &Recorder{store: s, logger: slog.Default()}
}

// SubmitRating stores rating and the parsed human count on the displayed
// record. An invalid grade is rejected before anything changes. A storage
// failure is not returned as an error: the displayed record keeps the new
// values and the result carries a warning. The result holds a copy of the
// record, so later submissions do not change it.
func (r *Recorder) SubmitRating(ctx context.Context, displayed *models.ReportRecord, rating string, humanCountInput string) (*Result, error) {
	if displayed == nil {
		return nil, fmt.Errorf("submit rating: no report displayed")
	}
	grade, err := models.ParseRating(rating)
	if err != nil {
		return nil, err
	}
	humanCount := ParseHumanCount(humanCountInput)

	displayed.ApplyRating(grade, humanCount)
	res := &Result{}

	saved, err := r.store.UpdateRating(ctx, displayed.ID, grade, humanCount)
	if err != nil {
		r.logger.Warn("rating not persisted", "report", displayed.ID, "rating", grade, "human_count", humanCount, "error", err)
		res.PersistErr = err
		res.Warning = fmt.Sprintf("rating %s is shown but could not be saved: %v", grade, err)
	} else {
		res.Persisted = true
		if saved != nil {
			*displayed = *saved
		}
	}

	res.Record = displayed.Clone()
	res.Accuracy = AccuracyOf(res.Record)
	return res, nil
}

// ParseHumanCount reads a free-form count the way a browser's parseInt does:
// surrounding space is ignored and the leading integer is used. Anything that
// does not yield a non-negative integer becomes 0.
func ParseHumanCount(input string) int {
	s := strings.TrimSpace(input)
	if s != "" && s[0] == '+' {
		s = s[1:]
	}
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

// Accuracy compares the AI's issue count with the reviewer's.
type Accuracy struct {
	AIIssueCount    int  `json:"ai_issue_count"`
	HumanIssueCount *int `json:"human_issue_count"`
	Difference      *int `json:"difference"`
}

// AccuracyOf recomputes the AI count from the record's raw output.
func AccuracyOf(r *models.ReportRecord) Accuracy {
	a := Accuracy{AIIssueCount: checklist.CountIssues(r.RawOutput)}
	if r.HumanIssueCount != nil {
		human := *r.HumanIssueCount
		diff := Difference(a.AIIssueCount, human)
		a.HumanIssueCount = &human
		a.Difference = &diff
	}
	return a
}

// Difference is |ai - human|.
func Difference(aiCount, humanCount int) int {
	if aiCount > humanCount {
		return aiCount - humanCount
	}
	return humanCount - aiCount
}
