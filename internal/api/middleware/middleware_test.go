package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testSecret = []byte("test-secret")

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return s
}

func newRouter(min string) *gin.Engine {
	r := gin.New()
	r.GET("/x", RequireAuth(testSecret, zap.NewNop()), RequireRole(min), func(c *gin.Context) {
		org, _ := c.Get(ContextOrgID)
		c.JSON(http.StatusOK, gin.H{"org": org})
	})
	return r
}

func TestRequireAuth(t *testing.T) {
	r := newRouter(RoleViewer)
	valid := signToken(t, testSecret, jwt.MapClaims{"sub": "1", "role": "viewer", "org": 7})

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"header", "Bearer " + valid, "", http.StatusOK},
		{"query param", "", valid, http.StatusOK},
		{"wrong secret", "Bearer " + signToken(t, []byte("other"), jwt.MapClaims{"role": "admin"}), "", http.StatusUnauthorized},
		{"garbage", "Bearer nope", "", http.StatusUnauthorized},
		{
			"expired",
			"Bearer " + signToken(t, testSecret, jwt.MapClaims{"role": "admin", "exp": time.Now().Add(-time.Hour).Unix()}),
			"",
			http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url := "/x"
			if tt.query != "" {
				url += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, url, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRequireAuth_SetsOrganisation(t *testing.T) {
	r := newRouter(RoleViewer)
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, jwt.MapClaims{"role": "viewer", "org": 7}))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"org":7}`, w.Body.String())
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		role string
		min  string
		want int
	}{
		{"viewer", RoleViewer, http.StatusOK},
		{"viewer", RoleEditor, http.StatusForbidden},
		{"editor", RoleViewer, http.StatusOK},
		{"editor", RoleEditor, http.StatusOK},
		{"editor", RoleAdmin, http.StatusForbidden},
		{"admin", RoleAdmin, http.StatusOK},
		{"admin", RoleEditor, http.StatusOK},
		{"", RoleViewer, http.StatusForbidden},
		{"dj", RoleViewer, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.role+"->"+tt.min, func(t *testing.T) {
			r := newRouter(tt.min)
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, jwt.MapClaims{"role": tt.role}))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	now := time.Date(2025, 11, 17, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	// Buckets are per IP.
	assert.True(t, rl.Allow("10.0.0.2"))

	now = now.Add(time.Second)
	assert.True(t, rl.Allow("10.0.0.1"))

	// Idle buckets are swept.
	now = now.Add(10 * time.Minute)
	rl.Allow("10.0.0.3")
	rl.mu.Lock()
	assert.Len(t, rl.limiters, 1)
	rl.mu.Unlock()
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	r := gin.New()
	r.POST("/evaluate", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func() int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/evaluate", nil))
		return w.Code
	}
	assert.Equal(t, http.StatusOK, do())
	assert.Equal(t, http.StatusTooManyRequests, do())
}
