package cli

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"ok": "true"})
}

func TestRequestLogger_RequestID(t *testing.T) {
	h := requestLogger(http.HandlerFunc(okHandler))

	w := serve(t, h, "/api/creators/x")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, w.Header().Get(requestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
}

func TestRecoverer(t *testing.T) {
	h := recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := serve(t, h, "/api/creators/x")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
}

func TestSanitizePath(t *testing.T) {
	assert.Equal(t, "/api/creators/:id/recap", sanitizePath("/api/creators/"+testCreatorID+"/recap"))
	assert.Equal(t, "/api/proxy/v1/users/:id/stats", sanitizePath("/api/proxy/v1/users/abc/stats"))
	assert.Equal(t, "/health", sanitizePath("/health"))
}

func TestIPRateLimiter(t *testing.T) {
	l := newIPRateLimiter(2, time.Minute)
	h := l.middleware(http.HandlerFunc(okHandler))

	for i := 0; i < 2; i++ {
		w := serve(t, h, "/api/resolve")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}

	w := serve(t, h, "/api/resolve")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "30", w.Header().Get("Retry-After"))

	w = serve(t, h, "/health")
	assert.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/resolve", nil)
	req.RemoteAddr = "10.0.0.2:5555"
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIPRateLimiter_Disabled(t *testing.T) {
	l := newIPRateLimiter(0, time.Minute)
	for i := 0; i < 100; i++ {
		assert.True(t, l.allow("1.2.3.4"))
	}
	assert.Empty(t, l.visitors)
}

func TestIPRateLimiter_Prune(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	l := newIPRateLimiter(10, time.Minute)
	l.now = func() time.Time { return now }

	assert.True(t, l.allow("1.1.1.1"))
	now = now.Add(30 * time.Second)
	assert.True(t, l.allow("2.2.2.2"))

	now = now.Add(45 * time.Second)
	assert.Equal(t, 1, l.prune())
	assert.Len(t, l.visitors, 1)
	assert.Contains(t, l.visitors, "2.2.2.2")
}

func TestIPRateLimiter_StartCleanup(t *testing.T) {
	l := newIPRateLimiter(10, time.Minute)
	stop := l.startCleanup(context.Background(), time.Millisecond)
	stop()
}

func TestWithMiddleware_CORS(t *testing.T) {
	h := withMiddleware(http.HandlerFunc(okHandler), []string{"https://dash.example.com"}, newIPRateLimiter(0, time.Minute))

	req := httptest.NewRequest(http.MethodOptions, "/api/resolve", nil)
	req.Header.Set("Origin", "https://dash.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, "https://dash.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/api/resolve", nil)
	req.Header.Set("Origin", "https://other.example.com")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
