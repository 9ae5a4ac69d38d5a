package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"strings"

	"github.com/joescharf/adreview/internal/analytics"
	"github.com/joescharf/adreview/internal/models"
	"github.com/joescharf/adreview/internal/store"
)

// isAdmin reports whether the request comes from a granted admin.
func (s *Server) isAdmin(r *http.Request) bool {
	user := CurrentUser(r)
	if user.Anonymous() {
		return false
	}
	admin, err := s.store.GetAdmin(r.Context(), user.Email)
	if err != nil {
		if !store.IsNotFound(err) {
			slog.Warn("admin lookup failed", "email", user.Email, "error", err)
		}
		return false
	}
	return admin.IsAdmin
}

// requireAdmin writes 401/403 and returns false unless the caller is an admin.
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) (models.CurrentUser, bool) {
	user := CurrentUser(r)
	if user.Anonymous() {
		writeError(w, http.StatusUnauthorized, "sign-in required")
		return user, false
	}
	if !s.isAdmin(r) {
		writeError(w, http.StatusForbidden, "admin permission required")
		return user, false
	}
	return user, true
}

func (s *Server) adminCheck(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r)
	count, err := s.store.CountAdmins(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"email":             user.Email,
		"is_admin":          s.isAdmin(r),
		"admins_configured": count > 0,
	})
}

// adminSetup grants admin to the caller (or a named email). The first admin
// can be created by any signed-in user; afterwards only admins may grant.
func (s *Server) adminSetup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := CurrentUser(r)
	if user.Anonymous() {
		writeError(w, http.StatusUnauthorized, "sign-in required")
		return
	}

	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	target := strings.ToLower(strings.TrimSpace(req.Email))
	name := ""
	if target == "" || target == user.Email {
		target = user.Email
		name = user.Name
	}
	admin := &models.AdminUser{Email: target, Name: name, IsAdmin: true}

	if s.isAdmin(r) {
		if err := s.store.UpsertAdmin(ctx, admin); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, admin)
		return
	}

	granted, err := s.store.BootstrapAdmin(ctx, admin)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !granted {
		writeError(w, http.StatusForbidden, "admin permission required")
		return
	}
	writeJSON(w, http.StatusOK, admin)
}

// UserSummary merges history authors with admin grants.
type UserSummary struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	IsAdmin     bool   `json:"is_admin"`
	ReportCount int    `json:"report_count"`
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}
	ctx := r.Context()

	stats, err := s.analytics.Users(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	admins, err := s.store.ListAdmins(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	byEmail := make(map[string]*UserSummary)
	for _, u := range stats.Users {
		if u.Email == "" {
			continue
		}
		byEmail[u.Email] = &UserSummary{Email: u.Email, Name: u.Name, ReportCount: u.Count}
	}
	for _, a := range admins {
		u, ok := byEmail[a.Email]
		if !ok {
			u = &UserSummary{Email: a.Email, Name: a.Name}
			byEmail[a.Email] = u
		}
		u.IsAdmin = a.IsAdmin
	}

	users := make([]UserSummary, 0, len(byEmail))
	for _, u := range byEmail {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.requireAdmin(w, r)
	if !ok {
		return
	}

	var req struct {
		Email   string `json:"email"`
		Name    string `json:"name"`
		IsAdmin bool   `json:"is_admin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}
	if email == caller.Email && !req.IsAdmin {
		writeError(w, http.StatusBadRequest, "cannot revoke your own admin permission")
		return
	}

	admin := &models.AdminUser{Email: email, Name: req.Name, IsAdmin: req.IsAdmin}
	if err := s.store.UpsertAdmin(r.Context(), admin); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, admin)
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.requireAdmin(w, r)
	if !ok {
		return
	}
	email := strings.ToLower(strings.TrimSpace(r.PathValue("email")))
	if email == caller.Email {
		writeError(w, http.StatusBadRequest, "cannot remove yourself")
		return
	}
	if err := s.store.DeleteAdmin(r.Context(), email); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getAnalytics(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}
	kind, err := analytics.ParseKind(r.URL.Query().Get("type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := s.analytics.Get(r.Context(), kind)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// recordLogin is best-effort: a storage failure is logged, not returned.
func (s *Server) recordLogin(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r)
	if user.Anonymous() {
		writeError(w, http.StatusUnauthorized, "sign-in required")
		return
	}
	event := &models.LoginEvent{
		Email:     user.Email,
		Name:      user.Name,
		UserAgent: r.UserAgent(),
		IPAddress: clientIP(r),
	}
	if err := s.store.RecordLogin(r.Context(), event); err != nil {
		slog.Warn("failed to record login", "email", user.Email, "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// clientIP prefers proxy headers over the socket address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
