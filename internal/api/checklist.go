package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/joescharf/adreview/internal/checklist"
	"github.com/joescharf/adreview/internal/models"
	"github.com/joescharf/adreview/internal/sessions"
	"github.com/joescharf/adreview/internal/store"
)

// ToggleRequest is the body of POST /api/v1/checklist/{sid}/toggle. Either
// key or sequence_number selects the row.
type ToggleRequest struct {
	Key            string `json:"key"`
	SequenceNumber string `json:"sequence_number"`
	Acknowledged   bool   `json:"acknowledged"`
}

// CompleteResponse reports the result of a completion attempt.
type CompleteResponse struct {
	Outcome        checklist.OutcomeKind `json:"outcome"`
	Acknowledged   int                   `json:"acknowledged"`
	Total          int                   `json:"total"`
	Unacknowledged int                   `json:"unacknowledged"`
	Message        string                `json:"message"`
	RatingUnlocked bool                  `json:"rating_unlocked"`
	Checklist      *sessions.View        `json:"checklist"`
}

// RatingRequest is the body of POST /api/v1/checklist/{sid}/rating.
// human_issue_count may be a number or free text.
type RatingRequest struct {
	Rating          string          `json:"rating"`
	HumanIssueCount json.RawMessage `json:"human_issue_count"`
}

// humanCountText turns the raw JSON value back into the text a user typed.
func (r RatingRequest) humanCountText() string {
	raw := bytes.TrimSpace(r.HumanIssueCount)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// writeChecklistError maps session and checklist errors to status codes.
func writeChecklistError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sessions.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, sessions.ErrWrongViewer):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, checklist.ErrUnknownKey):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrInvalidRating):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, checklist.ErrChecklistComplete),
		errors.Is(err, checklist.ErrNoReport),
		errors.Is(err, sessions.ErrNotComplete):
		writeError(w, http.StatusConflict, err.Error())
	case store.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// authorizeSession writes an error and returns false unless the caller may
// use the session named in the path.
func (s *Server) authorizeSession(w http.ResponseWriter, r *http.Request) (string, bool) {
	sid := r.PathValue("sid")
	if err := s.sessions.Authorize(sid, CurrentUser(r).Email); err != nil {
		writeChecklistError(w, err)
		return "", false
	}
	return sid, true
}

func (s *Server) openChecklist(w http.ResponseWriter, r *http.Request) {
	view, err := s.sessions.Open(r.Context(), r.PathValue("id"), CurrentUser(r).Email)
	if err != nil {
		writeChecklistError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) getChecklist(w http.ResponseWriter, r *http.Request) {
	sid, ok := s.authorizeSession(w, r)
	if !ok {
		return
	}
	view, err := s.sessions.View(sid)
	if err != nil {
		writeChecklistError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) closeChecklist(w http.ResponseWriter, r *http.Request) {
	sid := r.PathValue("sid")
	err := s.sessions.Authorize(sid, CurrentUser(r).Email)
	if err != nil && !errors.Is(err, sessions.ErrSessionNotFound) {
		writeChecklistError(w, err)
		return
	}
	s.sessions.Close(sid)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) toggleChecklist(w http.ResponseWriter, r *http.Request) {
	sid, ok := s.authorizeSession(w, r)
	if !ok {
		return
	}
	var req ToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	var (
		view *sessions.View
		err  error
	)
	switch {
	case req.Key != "":
		view, err = s.sessions.Toggle(sid, req.Key, req.Acknowledged)
	case strings.TrimSpace(req.SequenceNumber) != "":
		view, err = s.sessions.ToggleSequence(sid, strings.TrimSpace(req.SequenceNumber), req.Acknowledged)
	default:
		writeError(w, http.StatusBadRequest, "key or sequence_number is required")
		return
	}
	if err != nil {
		writeChecklistError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) completeChecklist(w http.ResponseWriter, r *http.Request) {
	sid, ok := s.authorizeSession(w, r)
	if !ok {
		return
	}
	outcome, view, err := s.sessions.Complete(sid)
	if err != nil {
		writeChecklistError(w, err)
		return
	}

	resp := CompleteResponse{
		Outcome:        outcome.Kind,
		Acknowledged:   outcome.Acknowledged,
		Total:          outcome.Total,
		Unacknowledged: outcome.Unacknowledged(),
		Message:        outcome.String(),
		RatingUnlocked: outcome.Kind == checklist.OutcomeComplete,
		Checklist:      view,
	}
	status := http.StatusOK
	if outcome.Kind == checklist.OutcomeIncomplete {
		status = http.StatusConflict
	}
	writeJSON(w, status, resp)
}

func (s *Server) submitRating(w http.ResponseWriter, r *http.Request) {
	sid, ok := s.authorizeSession(w, r)
	if !ok {
		return
	}
	var req RatingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	res, err := s.sessions.SubmitRating(r.Context(), sid, req.Rating, req.humanCountText())
	if err != nil {
		writeChecklistError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
