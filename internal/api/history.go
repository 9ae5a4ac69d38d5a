package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/joescharf/adreview/internal/analysis"
	"github.com/joescharf/adreview/internal/checklist"
	"github.com/joescharf/adreview/internal/feedback"
	"github.com/joescharf/adreview/internal/models"
	"github.com/joescharf/adreview/internal/render"
	"github.com/joescharf/adreview/internal/store"
)

const titleLength = 50

// AnalyzeRequest is the body of POST /api/v1/analyze.
type AnalyzeRequest struct {
	Document     string   `json:"document"`
	OfficialURLs []string `json:"official_urls"`
	Title        string   `json:"title"`
}

// ReportResponse is a report with its derived checklist data.
type ReportResponse struct {
	Record   *models.ReportRecord    `json:"record"`
	Issues   []checklist.IssueRecord `json:"issues"`
	Accuracy feedback.Accuracy       `json:"accuracy"`
}

func newReportResponse(rec *models.ReportRecord) ReportResponse {
	return ReportResponse{
		Record:   rec,
		Issues:   checklist.ExtractIssues(rec.RawOutput),
		Accuracy: feedback.AccuracyOf(rec),
	}
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	res, err := s.analyzer.Analyze(r.Context(), req.Document, req.OfficialURLs)
	if err != nil {
		if errors.Is(err, analysis.ErrEmptyDocument) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	user := CurrentUser(r)
	title := req.Title
	if title == "" {
		title = models.TitleFromDocument(req.Document, titleLength)
	}
	rec := &models.ReportRecord{
		Title:        title,
		Document:     req.Document,
		OfficialURLs: analysis.CleanURLs(req.OfficialURLs),
		Score:        res.Score,
		Summary:      res.Summary,
		RawOutput:    res.RawOutput,
		Fallback:     res.Fallback,
		UserEmail:    user.Email,
		UserName:     user.Name,
	}
	if err := s.store.SaveReport(r.Context(), rec); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if res.Fallback {
		slog.Warn("saved fallback report", "report", rec.ID, "provider", res.Provider)
	}

	writeJSON(w, http.StatusCreated, newReportResponse(rec))
}

func (s *Server) listHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ReportListFilter{Search: q.Get("q")}

	for _, p := range []struct {
		key    string
		target **float64
	}{{"min_score", &filter.MinScore}, {"max_score", &filter.MaxScore}} {
		v := q.Get(p.key)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid "+p.key)
			return
		}
		*p.target = &f
	}

	if v := q.Get("days"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days < 0 {
			writeError(w, http.StatusBadRequest, "invalid days")
			return
		}
		if days > 0 {
			filter.Since = time.Now().UTC().AddDate(0, 0, -days)
		}
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = limit
	}
	if q.Get("mine") == "true" {
		user := CurrentUser(r)
		if user.Anonymous() {
			writeError(w, http.StatusUnauthorized, "sign-in required")
			return
		}
		filter.UserEmail = user.Email
	}

	reports, err := s.store.ListReports(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if reports == nil {
		reports = []*models.ReportRecord{}
	}
	writeJSON(w, http.StatusOK, reports)
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.GetReport(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newReportResponse(rec))
}

func (s *Server) deleteHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	rec, err := s.store.GetReport(ctx, id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	user := CurrentUser(r)
	if rec.UserEmail != "" && rec.UserEmail != user.Email && !s.isAdmin(r) {
		writeError(w, http.StatusForbidden, "only the owner or an admin can delete this report")
		return
	}

	if err := s.store.DeleteReport(ctx, id); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) renderHistory(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.GetReport(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	doc, err := render.Render(rec.RawOutput, nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, doc)
}
