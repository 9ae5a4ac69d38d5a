package ui

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler(t *testing.T) {
	h, err := Handler()
	require.NoError(t, err)

	tests := []struct {
		path     string
		code     int
		contains string
	}{
		{"/", http.StatusOK, "広告審査ダッシュボード"},
		{"/app.js", http.StatusOK, "/api/v1"},
		{"/history/01ABC", http.StatusOK, "広告審査ダッシュボード"},
		{"/missing.css", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest("GET", tt.path, nil))
			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
			if tt.contains != "" {
				assert.Contains(t, w.Body.String(), tt.contains)
			}
		})
	}
}
