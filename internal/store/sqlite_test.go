package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/adreview/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	err = s.Migrate(context.Background())
	require.NoError(t, err)

	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "subdir", "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(filepath.Join(dir, "subdir"))
	assert.NoError(t, err, "should create parent directory")
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.Migrate(ctx)
	assert.NoError(t, err)
}

// --- Analysis history ---

func TestReportCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := &models.ReportRecord{
		Title:        "新発売のサプリ...",
		Document:     "新発売のサプリで必ず痩せる",
		OfficialURLs: []string{"https://example.com/a"},
		Score:        72,
		Summary:      "3件の指摘",
		RawOutput:    "| No. | 指摘箇所 | 指摘内容 |\n|---|---|---|\n| 1 | a | b |",
		UserEmail:    "alice@example.com",
		UserName:     "Alice",
	}
	require.NoError(t, s.SaveReport(ctx, r))
	assert.NotEmpty(t, r.ID)
	assert.False(t, r.CreatedAt.IsZero())

	got, err := s.GetReport(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.Title, got.Title)
	assert.Equal(t, r.RawOutput, got.RawOutput)
	assert.Equal(t, []string{"https://example.com/a"}, got.OfficialURLs)
	assert.Equal(t, 72.0, got.Score)
	assert.Nil(t, got.UserRating)
	assert.Nil(t, got.HumanIssueCount)
	assert.False(t, got.Rated())

	reports, err := s.ListReports(ctx, ReportListFilter{})
	require.NoError(t, err)
	assert.Len(t, reports, 1)

	require.NoError(t, s.DeleteReport(ctx, r.ID))
	_, err = s.GetReport(ctx, r.ID)
	assert.True(t, IsNotFound(err))

	assert.True(t, IsNotFound(s.DeleteReport(ctx, r.ID)))
}

func TestUpdateRating(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := &models.ReportRecord{Title: "t", RawOutput: "x"}
	require.NoError(t, s.SaveReport(ctx, r))

	updated, err := s.UpdateRating(ctx, r.ID, models.RatingA, 5)
	require.NoError(t, err)
	require.True(t, updated.Rated())
	assert.Equal(t, models.RatingA, *updated.UserRating)
	assert.Equal(t, 5, *updated.HumanIssueCount)
	assert.NotNil(t, updated.RatedAt)

	// Lower-case grades are normalized.
	updated, err = s.UpdateRating(ctx, r.ID, "c", 0)
	require.NoError(t, err)
	assert.Equal(t, models.RatingC, *updated.UserRating)
	assert.Equal(t, 0, *updated.HumanIssueCount)
}

func TestUpdateRating_Errors(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.UpdateRating(ctx, "missing", models.RatingA, 1)
	assert.True(t, IsNotFound(err))

	r := &models.ReportRecord{Title: "t"}
	require.NoError(t, s.SaveReport(ctx, r))

	_, err = s.UpdateRating(ctx, r.ID, "F", 1)
	assert.ErrorIs(t, err, models.ErrInvalidRating)

	_, err = s.UpdateRating(ctx, r.ID, models.RatingB, -1)
	assert.Error(t, err)
}

func TestListReports_Filters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seed := []*models.ReportRecord{
		{Title: "化粧品の広告", Score: 90, UserEmail: "a@example.com"},
		{Title: "サプリの広告", Score: 55, UserEmail: "b@example.com"},
		{Title: "健康食品", Summary: "サプリ成分の表示", Score: 70, UserEmail: "a@example.com"},
	}
	for _, r := range seed {
		require.NoError(t, s.SaveReport(ctx, r))
	}

	reports, err := s.ListReports(ctx, ReportListFilter{Search: "サプリ"})
	require.NoError(t, err)
	assert.Len(t, reports, 2)

	reports, err = s.ListReports(ctx, ReportListFilter{UserEmail: "a@example.com"})
	require.NoError(t, err)
	assert.Len(t, reports, 2)

	lo, hi := 60.0, 80.0
	reports, err = s.ListReports(ctx, ReportListFilter{MinScore: &lo, MaxScore: &hi})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "健康食品", reports[0].Title)

	reports, err = s.ListReports(ctx, ReportListFilter{Since: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	assert.Len(t, reports, 0)

	reports, err = s.ListReports(ctx, ReportListFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, reports, 1)
}

// --- Admin users ---

func TestAdminCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n, err := s.CountAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	a := &models.AdminUser{Email: "root@example.com", Name: "Root", IsAdmin: true}
	require.NoError(t, s.UpsertAdmin(ctx, a))

	got, err := s.GetAdmin(ctx, "root@example.com")
	require.NoError(t, err)
	assert.True(t, got.IsAdmin)
	assert.Equal(t, "Root", got.Name)

	a.Name = "Root User"
	require.NoError(t, s.UpsertAdmin(ctx, a))
	got, err = s.GetAdmin(ctx, "root@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Root User", got.Name)

	admins, err := s.ListAdmins(ctx)
	require.NoError(t, err)
	assert.Len(t, admins, 1)

	n, err = s.CountAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, s.DeleteAdmin(ctx, "root@example.com"))
	_, err = s.GetAdmin(ctx, "root@example.com")
	assert.True(t, IsNotFound(err))
}

func TestBootstrapAdmin(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ok, err := s.BootstrapAdmin(ctx, &models.AdminUser{Email: "first@example.com", Name: "First"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.BootstrapAdmin(ctx, &models.AdminUser{Email: "second@example.com"})
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = s.GetAdmin(ctx, "second@example.com")
	assert.True(t, IsNotFound(err))

	// A revoked row can be promoted again once no admin is left.
	require.NoError(t, s.UpsertAdmin(ctx, &models.AdminUser{Email: "first@example.com", Name: "First", IsAdmin: false}))
	ok, err = s.BootstrapAdmin(ctx, &models.AdminUser{Email: "first@example.com", Name: "First Again"})
	require.NoError(t, err)
	assert.True(t, ok)
	got, err := s.GetAdmin(ctx, "first@example.com")
	require.NoError(t, err)
	assert.True(t, got.IsAdmin)
	assert.Equal(t, "First Again", got.Name)
}

// --- Login history ---

func TestLoginHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, email := range []string{"a@example.com", "b@example.com", "a@example.com"} {
		e := &models.LoginEvent{
			Email:   email,
			LoginAt: time.Now().UTC().Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, s.RecordLogin(ctx, e))
		assert.NotEmpty(t, e.ID)
	}

	events, err := s.ListLogins(ctx, 0)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.True(t, !events[0].LoginAt.Before(events[2].LoginAt), "newest first")

	events, err = s.ListLogins(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}
