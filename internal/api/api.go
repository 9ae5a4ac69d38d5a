package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/joescharf/adreview/internal/analysis"
	"github.com/joescharf/adreview/internal/analytics"
	"github.com/joescharf/adreview/internal/feedback"
	"github.com/joescharf/adreview/internal/models"
	"github.com/joescharf/adreview/internal/sessions"
	"github.com/joescharf/adreview/internal/store"
)

// Headers set by the auth proxy in front of the dashboard.
const (
	HeaderUserEmail  = "X-User-Email"
	HeaderUserName   = "X-User-Name"
	HeaderUserAvatar = "X-User-Avatar"
)

// Server provides the REST API handlers.
type Server struct {
	store     store.Store
	analyzer  *analysis.Analyzer
	sessions  *sessions.Manager
	analytics *analytics.Service
}

// NewServer creates a new API server.
// The analyzer may be nil, in which case analyses return test-mode reports.
func NewServer(s store.Store, analyzer *analysis.Analyzer, sessionTTL time.Duration) *Server {
	if analyzer == nil {
		analyzer = analysis.NewAnalyzer(nil, 0)
	}
	return &Server{
		store:     s,
		analyzer:  analyzer,
		sessions:  sessions.NewManager(s, feedback.NewRecorder(s), sessionTTL),
		analytics: analytics.New(s),
	}
}

// Sessions exposes the checklist session registry.
func (s *Server) Sessions() *sessions.Manager {
	return s.sessions
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/analyze", s.analyze)

	mux.HandleFunc("GET /api/v1/history", s.listHistory)
	mux.HandleFunc("GET /api/v1/history/{id}", s.getHistory)
	mux.HandleFunc("DELETE /api/v1/history/{id}", s.deleteHistory)
	mux.HandleFunc("GET /api/v1/history/{id}/render", s.renderHistory)
	mux.HandleFunc("POST /api/v1/history/{id}/checklist", s.openChecklist)

	mux.HandleFunc("GET /api/v1/checklist/{sid}", s.getChecklist)
	mux.HandleFunc("DELETE /api/v1/checklist/{sid}", s.closeChecklist)
	mux.HandleFunc("POST /api/v1/checklist/{sid}/toggle", s.toggleChecklist)
	mux.HandleFunc("POST /api/v1/checklist/{sid}/complete", s.completeChecklist)
	mux.HandleFunc("POST /api/v1/checklist/{sid}/rating", s.submitRating)

	mux.HandleFunc("GET /api/v1/admin/check", s.adminCheck)
	mux.HandleFunc("POST /api/v1/admin/setup", s.adminSetup)
	mux.HandleFunc("GET /api/v1/admin/users", s.listUsers)
	mux.HandleFunc("POST /api/v1/admin/users", s.updateUser)
	mux.HandleFunc("DELETE /api/v1/admin/users/{email}", s.deleteUser)

	mux.HandleFunc("GET /api/v1/analytics", s.getAnalytics)

	mux.HandleFunc("POST /api/v1/login-history", s.recordLogin)

	mux.HandleFunc("GET /api/v1/me", s.me)

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", strings.Join([]string{"Content-Type", HeaderUserEmail, HeaderUserName, HeaderUserAvatar}, ", "))
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps store lookup misses to 404.
func writeStoreError(w http.ResponseWriter, err error) {
	if store.IsNotFound(err) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

// CurrentUser reads the viewer identity forwarded by the auth proxy.
func CurrentUser(r *http.Request) models.CurrentUser {
	return models.CurrentUser{
		Email:     strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderUserEmail))),
		Name:      strings.TrimSpace(r.Header.Get(HeaderUserName)),
		AvatarURL: strings.TrimSpace(r.Header.Get(HeaderUserAvatar)),
	}
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, CurrentUser(r))
}
