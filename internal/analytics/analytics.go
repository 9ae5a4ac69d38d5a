// Package analytics aggregates history and login data for administrators.
package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joescharf/adreview/internal/feedback"
	"github.com/joescharf/adreview/internal/models"
	"github.com/joescharf/adreview/internal/store"
)

const (
	// DailyWindow is how many distinct days the daily series keep.
	DailyWindow = 30
	// LoginSample is how many recent logins feed the login series.
	LoginSample = 1000
)

// Kind selects one aggregation.
type Kind string

const (
	KindAll      Kind = "all"
	KindUsers    Kind = "users"
	KindReports  Kind = "reports"
	KindLogins   Kind = "logins"
	KindUsage    Kind = "usage"
	KindAccuracy Kind = "accuracy"
)

// Kinds lists every selectable aggregation.
var Kinds = []Kind{KindAll, KindUsers, KindReports, KindLogins, KindUsage, KindAccuracy}

// ParseKind maps a query value onto a Kind. Empty means all; "login" is
// accepted for logins.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "":
		return KindAll, nil
	case "login":
		return KindLogins, nil
	}
	for _, k := range Kinds {
		if Kind(s) == k {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown analytics type %q", s)
}

// Source is the data the aggregations read.
type Source interface {
	ListReports(ctx context.Context, filter store.ReportListFilter) ([]*models.ReportRecord, error)
	ListLogins(ctx context.Context, limit int) ([]*models.LoginEvent, error)
}

// Service computes analytics from a Source.
type Service struct {
	src Source
}

// New creates an analytics service.
func New(src Source) *Service {
	return &Service{src: src}
}

// Get runs the aggregation selected by kind.
func (s *Service) Get(ctx context.Context, kind Kind) (any, error) {
	switch kind {
	case KindUsers:
		return s.Users(ctx)
	case KindReports:
		return s.Reports(ctx)
	case KindLogins:
		return s.Logins(ctx)
	case KindUsage:
		return s.Usage(ctx)
	case KindAccuracy:
		return s.Accuracy(ctx)
	default:
		return s.All(ctx)
	}
}

// Summary holds every aggregation.
type Summary struct {
	Users    *UserStats     `json:"users"`
	Reports  *ReportStats   `json:"reports"`
	Logins   *LoginStats    `json:"logins"`
	Usage    *UsageStats    `json:"usage"`
	Accuracy *AccuracyStats `json:"accuracy"`
}

// All runs every aggregation concurrently.
func (s *Service) All(ctx context.Context) (*Summary, error) {
	var sum Summary
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		sum.Users, err = s.Users(gctx)
		return err
	})
	g.Go(func() (err error) {
		sum.Reports, err = s.Reports(gctx)
		return err
	})
	g.Go(func() (err error) {
		sum.Logins, err = s.Logins(gctx)
		return err
	})
	g.Go(func() (err error) {
		sum.Usage, err = s.Usage(gctx)
		return err
	})
	g.Go(func() (err error) {
		sum.Accuracy, err = s.Accuracy(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &sum, nil
}

func (s *Service) reports(ctx context.Context) ([]*models.ReportRecord, error) {
	reports, err := s.src.ListReports(ctx, store.ReportListFilter{})
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

// UserActivity is one user's report count.
type UserActivity struct {
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Count        int       `json:"count"`
	LastActivity time.Time `json:"last_activity"`
}

// UserStats groups reports by user.
type UserStats struct {
	TotalUsers int            `json:"total_users"`
	Users      []UserActivity `json:"users"`
}

// Users counts reports per user.
func (s *Service) Users(ctx context.Context) (*UserStats, error) {
	reports, err := s.reports(ctx)
	if err != nil {
		return nil, err
	}

	byEmail := make(map[string]*UserActivity)
	var order []string
	for _, r := range reports {
		u, ok := byEmail[r.UserEmail]
		if !ok {
			name := r.UserName
			if name == "" {
				name = "Unknown"
			}
			u = &UserActivity{Email: r.UserEmail, Name: name}
			byEmail[r.UserEmail] = u
			order = append(order, r.UserEmail)
		}
		u.Count++
		if r.CreatedAt.After(u.LastActivity) {
			u.LastActivity = r.CreatedAt
		}
	}

	stats := &UserStats{TotalUsers: len(order), Users: make([]UserActivity, 0, len(order))}
	for _, email := range order {
		stats.Users = append(stats.Users, *byEmail[email])
	}
	sort.SliceStable(stats.Users, func(i, j int) bool {
		return stats.Users[i].Count > stats.Users[j].Count
	})
	return stats, nil
}

// DailyReports is one day of report volume.
type DailyReports struct {
	Date     string  `json:"date"`
	Count    int     `json:"count"`
	AvgScore float64 `json:"avg_score"`
}

// ReportStats is report volume over time.
type ReportStats struct {
	TotalReports int            `json:"total_reports"`
	Daily        []DailyReports `json:"daily"`
}

// Reports buckets reports by UTC day, newest first.
func (s *Service) Reports(ctx context.Context) (*ReportStats, error) {
	reports, err := s.reports(ctx)
	if err != nil {
		return nil, err
	}

	type bucket struct {
		count int
		total float64
	}
	days := make(map[string]*bucket)
	for _, r := range reports {
		d := r.CreatedAt.UTC().Format(dateLayout)
		b, ok := days[d]
		if !ok {
			b = &bucket{}
			days[d] = b
		}
		b.count++
		b.total += r.Score
	}

	stats := &ReportStats{TotalReports: len(reports)}
	for _, d := range newestDays(days) {
		b := days[d]
		stats.Daily = append(stats.Daily, DailyReports{
			Date:     d,
			Count:    b.count,
			AvgScore: math.Round(b.total / float64(b.count)),
		})
	}
	return stats, nil
}

// DailyLogins is one day of logins.
type DailyLogins struct {
	Date        string `json:"date"`
	Count       int    `json:"count"`
	UniqueUsers int    `json:"unique_users"`
}

// LoginStats summarises recent logins.
type LoginStats struct {
	TotalLogins int           `json:"total_logins"`
	Daily       []DailyLogins `json:"daily"`
}

// Logins buckets the most recent logins by UTC day.
func (s *Service) Logins(ctx context.Context) (*LoginStats, error) {
	events, err := s.src.ListLogins(ctx, LoginSample)
	if err != nil {
		return nil, fmt.Errorf("list logins: %w", err)
	}

	days := make(map[string]map[string]int)
	for _, e := range events {
		d := e.LoginAt.UTC().Format(dateLayout)
		if days[d] == nil {
			days[d] = make(map[string]int)
		}
		days[d][e.Email]++
	}

	stats := &LoginStats{TotalLogins: len(events)}
	for _, d := range newestDays(days) {
		count := 0
		for _, n := range days[d] {
			count += n
		}
		stats.Daily = append(stats.Daily, DailyLogins{Date: d, Count: count, UniqueUsers: len(days[d])})
	}
	return stats, nil
}

// UserUsage is one user's review activity.
type UserUsage struct {
	Email      string  `json:"email"`
	TotalUsage int     `json:"total_usage"`
	AvgScore   float64 `json:"avg_score"`
	RatedCount int     `json:"rated_count"`
}

// UsageStats is review activity per user.
type UsageStats struct {
	TotalUsage int         `json:"total_usage"`
	Users      []UserUsage `json:"users"`
}

// Usage reports how much each user reviews and rates.
func (s *Service) Usage(ctx context.Context) (*UsageStats, error) {
	reports, err := s.reports(ctx)
	if err != nil {
		return nil, err
	}

	type acc struct {
		UserUsage
		total float64
	}
	byEmail := make(map[string]*acc)
	var order []string
	for _, r := range reports {
		a, ok := byEmail[r.UserEmail]
		if !ok {
			a = &acc{UserUsage: UserUsage{Email: r.UserEmail}}
			byEmail[r.UserEmail] = a
			order = append(order, r.UserEmail)
		}
		a.TotalUsage++
		a.total += r.Score
		if r.UserRating != nil {
			a.RatedCount++
		}
	}

	stats := &UsageStats{TotalUsage: len(reports), Users: make([]UserUsage, 0, len(order))}
	for _, email := range order {
		a := byEmail[email]
		a.AvgScore = math.Round(a.total / float64(a.TotalUsage))
		stats.Users = append(stats.Users, a.UserUsage)
	}
	sort.SliceStable(stats.Users, func(i, j int) bool {
		return stats.Users[i].TotalUsage > stats.Users[j].TotalUsage
	})
	return stats, nil
}

// AccuracyStats compares rated reports with their reviewers' counts.
type AccuracyStats struct {
	RatedReports   int                   `json:"rated_reports"`
	Distribution   map[models.Rating]int `json:"distribution"`
	MeanDifference float64               `json:"mean_difference"`
	ExactMatches   int                   `json:"exact_matches"`
}

// Accuracy summarises human ratings of AI reports.
func (s *Service) Accuracy(ctx context.Context) (*AccuracyStats, error) {
	reports, err := s.reports(ctx)
	if err != nil {
		return nil, err
	}

	stats := &AccuracyStats{Distribution: make(map[models.Rating]int, len(models.Ratings))}
	for _, r := range models.Ratings {
		stats.Distribution[r] = 0
	}

	totalDiff := 0
	for _, r := range reports {
		if !r.Rated() {
			continue
		}
		stats.RatedReports++
		stats.Distribution[*r.UserRating]++
		acc := feedback.AccuracyOf(r)
		totalDiff += *acc.Difference
		if *acc.Difference == 0 {
			stats.ExactMatches++
		}
	}
	if stats.RatedReports > 0 {
		stats.MeanDifference = math.Round(float64(totalDiff)/float64(stats.RatedReports)*100) / 100
	}
	return stats, nil
}

const dateLayout = "2006-01-02"

// newestDays returns the map's date keys newest first, capped at DailyWindow.
func newestDays[V any](days map[string]V) []string {
	keys := make([]string, 0, len(days))
	for d := range days {
		keys = append(keys, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	if len(keys) > DailyWindow {
		keys = keys[:DailyWindow]
	}
	return keys
}
