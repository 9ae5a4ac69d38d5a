package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/joescharf/adreview/internal/checklist"
	"github.com/joescharf/adreview/internal/feedback"
	"github.com/joescharf/adreview/internal/models"
)

const report = "| No. | 指摘箇所 | 指摘内容 |\n|---|---|---|\n| 1 | 見出し | a |\n| 2 | 本文 | b |\n| 3 | 注釈 | c |\n"

// mockStore serves reports and records ratings for testing.
type mockStore struct {
	mu      sync.Mutex
	reports map[string]*models.ReportRecord
	failUpd bool
}

func (m *mockStore) GetReport(_ context.Context, id string) (*models.ReportRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return nil, fmt.Errorf("report not found: %s", id)
	}
	cp := *r
	return &cp, nil
}

func (m *mockStore) UpdateRating(_ context.Context, id string, rating models.Rating, humanCount int) (*models.ReportRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpd {
		return nil, errors.New("disk full")
	}
	r := m.reports[id]
	r.ApplyRating(rating, humanCount)
	cp := *r
	return &cp, nil
}

func newManager(t *testing.T) (*Manager, *mockStore) {
	t.Helper()
	ms := &mockStore{reports: map[string]*models.ReportRecord{
		"r1":    {ID: "r1", RawOutput: report},
		"empty": {ID: "empty", RawOutput: "問題はありません。"},
	}}
	return NewManager(ms, feedback.NewRecorder(ms), time.Hour), ms
}

func TestOpen(t *testing.T) {
	m, _ := newManager(t)

	v, err := m.Open(context.Background(), "r1", "a@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, v.ID)
	assert.Equal(t, checklist.StatePopulated, v.State)
	assert.Len(t, v.Rows, 3)
	assert.Equal(t, 3, v.Total)
	assert.False(t, v.RatingUnlocked)
	assert.Equal(t, 3, v.Accuracy.AIIssueCount)
	assert.Equal(t, 1, m.Len())

	_, err = m.Open(context.Background(), "missing", "a@example.com")
	assert.Error(t, err)
}

func TestSessionsAreIsolated(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	a, err := m.Open(ctx, "r1", "a@example.com")
	require.NoError(t, err)
	b, err := m.Open(ctx, "r1", "b@example.com")
	require.NoError(t, err)

	_, err = m.AcknowledgeAll(a.ID)
	require.NoError(t, err)

	vb, err := m.View(b.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, vb.Acknowledged)
}

func TestCompleteAndRate(t *testing.T) {
	m, ms := newManager(t)
	ctx := context.Background()

	v, err := m.Open(ctx, "r1", "a@example.com")
	require.NoError(t, err)

	_, err = m.SubmitRating(ctx, v.ID, "A", "5")
	assert.ErrorIs(t, err, ErrNotComplete)

	_, err = m.ToggleSequence(v.ID, "1", true)
	require.NoError(t, err)
	_, err = m.Toggle(v.ID, v.Rows[1].Key, true)
	require.NoError(t, err)

	outcome, view, err := m.Complete(v.ID)
	require.NoError(t, err)
	assert.Equal(t, checklist.OutcomeIncomplete, outcome.Kind)
	assert.Equal(t, 2, outcome.Acknowledged)
	assert.True(t, view.Rows[2].Flagged)
	assert.Equal(t, checklist.StateValidationFailed, view.State)

	_, err = m.ToggleSequence(v.ID, "3", true)
	require.NoError(t, err)
	outcome, view, err = m.Complete(v.ID)
	require.NoError(t, err)
	assert.Equal(t, checklist.OutcomeComplete, outcome.Kind)
	assert.True(t, view.RatingUnlocked)
	assert.NotNil(t, view.CompletedAt)

	res, err := m.SubmitRating(ctx, v.ID, "A", "5")
	require.NoError(t, err)
	assert.True(t, res.Persisted)
	assert.Equal(t, 2, *res.Accuracy.Difference)
	assert.True(t, ms.reports["r1"].Rated())

	_, err = m.Toggle(v.ID, v.Rows[0].Key, false)
	assert.ErrorIs(t, err, checklist.ErrChecklistComplete)
}

func TestRatingPersistFailureIsWarning(t *testing.T) {
	m, ms := newManager(t)
	ms.failUpd = true
	ctx := context.Background()

	v, err := m.Open(ctx, "r1", "")
	require.NoError(t, err)
	_, err = m.AcknowledgeAll(v.ID)
	require.NoError(t, err)
	_, _, err = m.Complete(v.ID)
	require.NoError(t, err)

	res, err := m.SubmitRating(ctx, v.ID, "b", "abc")
	require.NoError(t, err)
	assert.False(t, res.Persisted)
	assert.NotEmpty(t, res.Warning)

	view, err := m.View(v.ID)
	require.NoError(t, err)
	require.NotNil(t, view.Record.UserRating)
	assert.Equal(t, models.RatingB, *view.Record.UserRating)
	assert.Equal(t, 0, *view.Record.HumanIssueCount)
}

func TestViewIsSnapshotDuringRating(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	v, err := m.Open(ctx, "r1", "a@example.com")
	require.NoError(t, err)
	_, err = m.AcknowledgeAll(v.ID)
	require.NoError(t, err)
	_, _, err = m.Complete(v.ID)
	require.NoError(t, err)

	before, err := m.View(v.ID)
	require.NoError(t, err)
	assert.Nil(t, before.Record.UserRating)

	const rounds = 500
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			res, err := m.SubmitRating(ctx, v.ID, "A", "5")
			if !assert.NoError(t, err) {
				return
			}
			_, err = json.Marshal(res)
			assert.NoError(t, err)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			view, err := m.View(v.ID)
			if !assert.NoError(t, err) {
				return
			}
			_, err = json.Marshal(view)
			assert.NoError(t, err)
		}
	}()
	wg.Wait()

	assert.Nil(t, before.Record.UserRating, "earlier views keep their values")
	after, err := m.View(v.ID)
	require.NoError(t, err)
	require.NotNil(t, after.Record.UserRating)
	assert.Equal(t, models.RatingA, *after.Record.UserRating)
}

func TestAuthorize(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	owned, err := m.Open(ctx, "r1", "a@example.com")
	require.NoError(t, err)
	anon, err := m.Open(ctx, "r1", "")
	require.NoError(t, err)

	assert.NoError(t, m.Authorize(owned.ID, "a@example.com"))
	assert.NoError(t, m.Authorize(owned.ID, ""))
	assert.ErrorIs(t, m.Authorize(owned.ID, "b@example.com"), ErrWrongViewer)
	assert.NoError(t, m.Authorize(anon.ID, "b@example.com"))
	assert.ErrorIs(t, m.Authorize("missing", "a@example.com"), ErrSessionNotFound)
}

func TestEmptyReportStaysPopulated(t *testing.T) {
	m, _ := newManager(t)
	v, err := m.Open(context.Background(), "empty", "")
	require.NoError(t, err)

	outcome, view, err := m.Complete(v.ID)
	require.NoError(t, err)
	assert.Equal(t, checklist.OutcomeEmpty, outcome.Kind)
	assert.Equal(t, checklist.StatePopulated, view.State)
	assert.False(t, view.RatingUnlocked)
}

func TestExpiry(t *testing.T) {
	m, _ := newManager(t)
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	v, err := m.Open(context.Background(), "r1", "")
	require.NoError(t, err)
	other, err := m.Open(context.Background(), "r1", "")
	require.NoError(t, err)

	now = now.Add(30 * time.Minute)
	_, err = m.View(v.ID)
	require.NoError(t, err, "access refreshes the idle timer")

	now = now.Add(45 * time.Minute)
	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, 1, m.Len())

	now = now.Add(2 * time.Hour)
	_, err = m.View(v.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.View(other.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestClose(t *testing.T) {
	m, _ := newManager(t)
	v, err := m.Open(context.Background(), "r1", "")
	require.NoError(t, err)

	m.Close(v.ID)
	_, err = m.View(v.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRunSweepsUntilCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	m, _ := newManager(t)
	m.ttl = time.Millisecond
	_, err := m.Open(context.Background(), "r1", "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
