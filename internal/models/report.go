package models

import (
	"errors"
	"strings"
	"time"
)

// Rating is a human letter grade for the accuracy of an AI report.
type Rating string

const (
	RatingA Rating = "A"
	RatingB Rating = "B"
	RatingC Rating = "C"
	RatingD Rating = "D"
	RatingE Rating = "E"
)

// Ratings lists every valid grade, best first.
var Ratings = []Rating{RatingA, RatingB, RatingC, RatingD, RatingE}

// ErrInvalidRating is returned when a grade outside A-E is supplied.
var ErrInvalidRating = errors.New("rating must be one of A, B, C, D, E")

// ParseRating validates a letter grade. Case and surrounding space are ignored.
func ParseRating(s string) (Rating, error) {
	r := Rating(strings.ToUpper(strings.TrimSpace(s)))
	for _, valid := range Ratings {
		if r == valid {
			return r, nil
		}
	}
	return "", ErrInvalidRating
}

// ReportRecord is one saved compliance analysis.
type ReportRecord struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Document        string     `json:"document"`
	OfficialURLs    []string   `json:"official_urls"`
	Score           float64    `json:"score"`
	Summary         string     `json:"summary"`
	RawOutput       string     `json:"raw_output"`
	Fallback        bool       `json:"fallback"`
	UserEmail       string     `json:"user_email"`
	UserName        string     `json:"user_name"`
	HumanIssueCount *int       `json:"human_issue_count"`
	UserRating      *Rating    `json:"user_rating"`
	RatedAt         *time.Time `json:"rated_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Rated reports whether a human rating has been recorded.
func (r *ReportRecord) Rated() bool {
	return r.UserRating != nil && r.HumanIssueCount != nil
}

// ApplyRating sets the rating and human count together.
func (r *ReportRecord) ApplyRating(rating Rating, humanCount int) {
	now := time.Now().UTC()
	r.UserRating = &rating
	r.HumanIssueCount = &humanCount
	r.RatedAt = &now
}

// Clone returns a copy that shares no mutable state with r.
func (r *ReportRecord) Clone() *ReportRecord {
	if r == nil {
		return nil
	}
	cp := *r
	cp.OfficialURLs = append([]string(nil), r.OfficialURLs...)
	if r.HumanIssueCount != nil {
		n := *r.HumanIssueCount
		cp.HumanIssueCount = &n
	}
	if r.UserRating != nil {
		g := *r.UserRating
		cp.UserRating = &g
	}
	if r.RatedAt != nil {
		t := *r.RatedAt
		cp.RatedAt = &t
	}
	return &cp
}

// TitleFromDocument derives a short history title from the submitted copy.
func TitleFromDocument(doc string, limit int) string {
	doc = strings.TrimSpace(doc)
	runes := []rune(doc)
	if len(runes) <= limit {
		return doc
	}
	return string(runes[:limit]) + "..."
}
