// Package sessions keeps one checklist per viewer per opened report.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joescharf/adreview/internal/checklist"
	"github.com/joescharf/adreview/internal/feedback"
	"github.com/joescharf/adreview/internal/models"
)

// DefaultTTL is how long an idle session is kept.
const DefaultTTL = 2 * time.Hour

var (
	// ErrSessionNotFound is returned for unknown or expired session ids.
	ErrSessionNotFound = errors.New("checklist session not found")
	// ErrNotComplete is returned when rating before the checklist reconciled
	// as complete.
	ErrNotComplete = errors.New("checklist must be complete before rating")
	// ErrWrongViewer is returned when a signed-in user acts on another
	// viewer's session.
	ErrWrongViewer = errors.New("checklist session belongs to another viewer")
)

// ReportSource loads saved reports.
type ReportSource interface {
	GetReport(ctx context.Context, id string) (*models.ReportRecord, error)
}

// Rater records accuracy ratings.
type Rater interface {
	SubmitRating(ctx context.Context, displayed *models.ReportRecord, rating string, humanCountInput string) (*feedback.Result, error)
}

// Session is one viewer's checklist over one report.
type Session struct {
	ID        string
	ReportID  string
	Viewer    string
	CreatedAt time.Time

	mu          sync.Mutex
	lastSeen    time.Time
	record      *models.ReportRecord
	list        *checklist.Checklist
	completedAt *time.Time
}

// View is a snapshot of a session for display.
type View struct {
	ID             string               `json:"id"`
	ReportID       string               `json:"report_id"`
	Viewer         string               `json:"viewer"`
	State          checklist.State      `json:"state"`
	Rows           []checklist.Row      `json:"rows"`
	Total          int                  `json:"total"`
	Acknowledged   int                  `json:"acknowledged"`
	Highlighted    bool                 `json:"highlighted"`
	RatingUnlocked bool                 `json:"rating_unlocked"`
	CompletedAt    *time.Time           `json:"completed_at,omitempty"`
	Record         *models.ReportRecord `json:"record"`
	Accuracy       feedback.Accuracy    `json:"accuracy"`
	LastOutcome    *checklist.Outcome   `json:"last_outcome,omitempty"`
}

// Manager is the session registry. It is safe for concurrent use; each
// session's checklist is only touched under that session's lock.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	reports  ReportSource
	rater    Rater
	ttl      time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// NewManager creates a session registry.
func NewManager(reports ReportSource, rater Rater, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		sessions: make(map[string]*Session),
		reports:  reports,
		rater:    rater,
		ttl:      ttl,
		now:      time.Now,
		logger:   slog.Default(),
	}
}

// Open loads a report and starts a new checklist session for viewer.
func (m *Manager) Open(ctx context.Context, reportID, viewer string) (*View, error) {
	record, err := m.reports.GetReport(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("open checklist: %w", err)
	}

	now := m.now()
	s := &Session{
		ID:        uuid.NewString(),
		ReportID:  record.ID,
		Viewer:    viewer,
		CreatedAt: now,
		lastSeen:  now,
		record:    record,
		list:      checklist.New(),
	}
	s.list.OnComplete(func(o checklist.Outcome) {
		at := m.now()
		s.completedAt = &at
		m.logger.Info("checklist complete", "session", s.ID, "report", s.ReportID, "items", o.Total)
	})
	s.list.Load(record.RawOutput)

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	return s.view(), nil
}

func (m *Manager) get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	now := m.now()
	s.mu.Lock()
	expired := now.Sub(s.lastSeen) > m.ttl
	if !expired {
		s.lastSeen = now
	}
	s.mu.Unlock()
	if expired {
		delete(m.sessions, id)
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Authorize checks that viewer may act on session id. Sessions opened
// anonymously, and anonymous callers, are not restricted.
func (m *Manager) Authorize(id, viewer string) error {
	s, err := m.get(id)
	if err != nil {
		return err
	}
	if s.Viewer != "" && viewer != "" && s.Viewer != viewer {
		return ErrWrongViewer
	}
	return nil
}

// View returns the current state of a session.
func (m *Manager) View(id string) (*View, error) {
	s, err := m.get(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view(), nil
}

// Toggle sets a row's acknowledgement by key.
func (m *Manager) Toggle(id, key string, acknowledged bool) (*View, error) {
	return m.mutate(id, func(c *checklist.Checklist) error {
		return c.Toggle(key, acknowledged)
	})
}

// ToggleSequence sets a row's acknowledgement by its "No." value.
func (m *Manager) ToggleSequence(id, seq string, acknowledged bool) (*View, error) {
	return m.mutate(id, func(c *checklist.Checklist) error {
		return c.ToggleSequence(seq, acknowledged)
	})
}

// AcknowledgeAll acknowledges every row.
func (m *Manager) AcknowledgeAll(id string) (*View, error) {
	return m.mutate(id, func(c *checklist.Checklist) error {
		return c.AcknowledgeAll()
	})
}

func (m *Manager) mutate(id string, fn func(*checklist.Checklist) error) (*View, error) {
	s, err := m.get(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := fn(s.list); err != nil {
		return nil, err
	}
	return s.view(), nil
}

// Complete reconciles the session's checklist.
func (m *Manager) Complete(id string) (checklist.Outcome, *View, error) {
	s, err := m.get(id)
	if err != nil {
		return checklist.Outcome{}, nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	outcome, err := s.list.Complete()
	if err != nil {
		return checklist.Outcome{}, nil, err
	}
	return outcome, s.view(), nil
}

// SubmitRating records the viewer's rating. It is rejected until the
// checklist is complete.
func (m *Manager) SubmitRating(ctx context.Context, id, rating, humanCountInput string) (*feedback.Result, error) {
	s, err := m.get(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.list.State() != checklist.StateComplete {
		return nil, ErrNotComplete
	}
	return m.rater.SubmitRating(ctx, s.record, rating, humanCountInput)
}

// Close discards a session.
func (m *Manager) Close(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Sweep drops idle sessions and returns how many were removed.
func (m *Manager) Sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		s.mu.Lock()
		idle := now.Sub(s.lastSeen)
		s.mu.Unlock()
		if idle > m.ttl {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps expired sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.logger.Debug("expired checklist sessions", "count", n)
			}
		}
	}
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// view must be called with s.mu held. The returned snapshot shares no
// mutable state with the session.
func (s *Session) view() *View {
	var completedAt *time.Time
	if s.completedAt != nil {
		at := *s.completedAt
		completedAt = &at
	}
	record := s.record.Clone()
	v := &View{
		ID:             s.ID,
		ReportID:       s.ReportID,
		Viewer:         s.Viewer,
		State:          s.list.State(),
		Rows:           s.list.Rows(),
		Total:          s.list.Total(),
		Acknowledged:   s.list.AcknowledgedCount(),
		Highlighted:    s.list.Highlighted(),
		RatingUnlocked: s.list.State() == checklist.StateComplete,
		CompletedAt:    completedAt,
		Record:         record,
		Accuracy:       feedback.AccuracyOf(record),
	}
	if s.list.State() != checklist.StatePopulated || s.list.Highlighted() {
		last := s.list.LastOutcome()
		v.LastOutcome = &last
	}
	return v
}
