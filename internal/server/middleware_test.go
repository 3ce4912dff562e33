package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/kruemmel-python/WebCrawler-Pro/internal/app"
	"github.com/kruemmel-python/WebCrawler-Pro/internal/common"
	"github.com/kruemmel-python/WebCrawler-Pro/internal/services/ratelimit"
)

func newTestServer(cfg *common.Config) *Server {
	logger := arbor.NewLogger()
	return &Server{
		app: &app.App{
			Config:           cfg,
			Logger:           logger,
			RateLimitService: ratelimit.NewService(cfg, logger),
		},
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitMiddlewareHeaders(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.RateLimit.RequestsPerMinute = 2
	srv := newTestServer(cfg)
	handler := srv.rateLimitMiddleware(okHandler())

	get := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/scheduled-tasks", nil)
		req.Header.Set(apiKeyHeader, "key-1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	rec := get()
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))

	rec = get()
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = get()
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "Rate limit exceeded")
}

func TestRateLimitMiddlewareExemptsHealth(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.RateLimit.RequestsPerMinute = 1
	srv := newTestServer(cfg)
	handler := srv.rateLimitMiddleware(okHandler())

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.API.Keys = []string{"secret-key"}
	srv := newTestServer(cfg)
	handler := srv.authMiddleware(okHandler())

	tests := []struct {
		name   string
		path   string
		key    string
		status int
	}{
		{"valid key", "/api/v1/scheduled-tasks", "secret-key", http.StatusOK},
		{"missing key", "/api/v1/scheduled-tasks", "", http.StatusUnauthorized},
		{"wrong key", "/api/v1/scheduled-tasks", "guess", http.StatusUnauthorized},
		{"health is open", "/api/v1/health", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.key != "" {
				req.Header.Set(apiKeyHeader, tt.key)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestAuthMiddlewareOpenWithoutKeys(t *testing.T) {
	srv := newTestServer(common.NewDefaultConfig())
	handler := srv.authMiddleware(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/scheduled-tasks", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
