package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"signage-cms/internal/config"
	database "signage-cms/internal/db"
	"signage-cms/internal/scheduler"
)

const secret = "test-secret"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	d, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := d.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	client := database.Wrap(d, zap.NewNop())
	require.NoError(t, client.AutoMigrate())
	require.NoError(t, client.SeedTimeTags(""))

	cfg := &config.Config{}
	cfg.Server.JWTSecret = secret
	cfg.Server.Timezone = "UTC"
	cfg.Server.RateLimitRPS = 1
	cfg.Server.RateLimitBurst = 2
	cfg.Server.Port = ":0"

	clock := scheduler.MockClock{MockTime: time.Date(2025, 11, 22, 12, 0, 0, 0, time.UTC)}
	s, err := newServer(cfg, client, nil, zap.NewNop(), clock)
	require.NoError(t, err)
	return s
}

func token(t *testing.T, role string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "1", "role": role}).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func call(s *Server, method, path, tok, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestNew_BadTimezone(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.Timezone = "Mars/Olympus"
	_, err := New(cfg, database.Wrap(nil, zap.NewNop()), nil, zap.NewNop())
	assert.Error(t, err)
}

func TestRoutes(t *testing.T) {
	s := newTestServer(t)
	viewer, editor := token(t, "viewer"), token(t, "editor")

	tests := []struct {
		name   string
		method string
		path   string
		tok    string
		body   string
		want   int
	}{
		{"health is public", http.MethodGet, "/health", "", "", http.StatusOK},
		{"stats is public", http.MethodGet, "/api/v1/stats", "", "", http.StatusOK},
		{"timetags need a token", http.MethodGet, "/api/v1/timetags", "", "", http.StatusUnauthorized},
		{"viewer lists timetags", http.MethodGet, "/api/v1/timetags", viewer, "", http.StatusOK},
		{"viewer cannot create", http.MethodPost, "/api/v1/timetags", viewer, `{"name":"X"}`, http.StatusForbidden},
		{"editor creates", http.MethodPost, "/api/v1/timetags", editor, `{"name":"X"}`, http.StatusCreated},
		{"editor creates playlist", http.MethodPost, "/api/v1/playlists", editor, `{"name":"Lobby"}`, http.StatusCreated},
		{"schedule by library name", http.MethodPut, "/api/v1/playlists/1/schedule", editor, `{"time_tags":["Weekend"]}`, http.StatusOK},
		{"calendar", http.MethodGet, "/api/v1/playlists/1/calendar?from=2025-11-22&to=2025-11-24", viewer, "", http.StatusOK},
		{"publish without publisher", http.MethodPost, "/api/v1/playlists/1/publish", editor, "", http.StatusServiceUnavailable},
		{"organisations", http.MethodGet, "/api/v1/organisations", viewer, "", http.StatusOK},
		{"devices", http.MethodGet, "/api/v1/devices", viewer, "", http.StatusOK},
		{"media", http.MethodGet, "/api/v1/media", viewer, "", http.StatusOK},
		{"unknown route", http.MethodGet, "/api/v1/nope", viewer, "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := call(s, tt.method, tt.path, tt.tok, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestStatus_SeededWeekendTag(t *testing.T) {
	s := newTestServer(t)
	editor := token(t, "editor")

	require.Equal(t, http.StatusCreated, call(s, http.MethodPost, "/api/v1/playlists", editor, `{"name":"Lobby"}`).Code)
	require.Equal(t, http.StatusOK, call(s, http.MethodPut, "/api/v1/playlists/1/schedule", editor, `{"time_tags":["Weekday"]}`).Code)

	// Saturday: the seeded Weekday tag only includes Mon-Fri.
	w := call(s, http.MethodGet, "/api/v1/playlists/1/status", editor, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"state":"none"`)
	assert.Contains(t, w.Body.String(), `"color":"#3182ce"`)
}

func TestEvaluate_RateLimited(t *testing.T) {
	s := newTestServer(t)
	viewer := token(t, "viewer")
	body := `{"date":"2025-11-22"}`

	assert.Equal(t, http.StatusOK, call(s, http.MethodPost, "/api/v1/evaluate", viewer, body).Code)
	assert.Equal(t, http.StatusOK, call(s, http.MethodPost, "/api/v1/evaluate", viewer, body).Code)
	assert.Equal(t, http.StatusTooManyRequests, call(s, http.MethodPost, "/api/v1/evaluate", viewer, body).Code)
}
