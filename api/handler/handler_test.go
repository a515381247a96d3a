package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/ytsearch/models"
)

type searcherFunc func(ctx context.Context, term string) (string, error)

func (f searcherFunc) Search(ctx context.Context, term string) (string, error) { return f(ctx, term) }

func serve(t *testing.T, h gin.HandlerFunc, path string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.UseRawPath = true
	r.UnescapePathValues = false
	r.GET("/search/*term", h)
	r.GET("/_ah/health", Health())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestSearch_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"session", models.NewSearchError(models.ErrCodeSessionUnavailable, "lost", nil), http.StatusInternalServerError},
		{"timeout", models.NewSearchError(models.ErrCodeNavigationTimeout, "slow", context.DeadlineExceeded), http.StatusInternalServerError},
		{"element", models.NewSearchError(models.ErrCodeElementNotFound, "none", nil), http.StatusInternalServerError},
		{"extraction", models.NewSearchError(models.ErrCodeExtraction, "malformed link", nil), http.StatusInternalServerError},
		{"untyped", errors.New("boom"), http.StatusInternalServerError},
		{"overloaded", models.NewSearchError(models.ErrCodeOverloaded, "busy", nil), http.StatusServiceUnavailable},
		{"invalid", models.NewSearchError(models.ErrCodeInvalidInput, "too long", nil), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Search(searcherFunc(func(context.Context, string) (string, error) { return "", tt.err }))
			w := serve(t, h, "/search/x")
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, http.StatusText(tt.status), w.Body.String())
		})
	}
}

func TestSearch_PassesDecodedTerm(t *testing.T) {
	tests := map[string]string{
		"/search/lofi%20hip%20hop":   "lofi hip hop",
		"/search/":                   "",
		"/search/a%2Fb":              "a/b",
		"/search/a/b":                "a/b",
		"/search/c++":                "c++",
		"/search/%E9%9F%B3%E6%A5%BD": "音楽",
	}
	for path, want := range tests {
		t.Run(path, func(t *testing.T) {
			var got string
			h := Search(searcherFunc(func(_ context.Context, term string) (string, error) {
				got = term
				return "ID", nil
			}))
			w := serve(t, h, path)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "ID", w.Body.String())
			assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
			assert.Equal(t, want, got)
		})
	}
}

func TestHealth(t *testing.T) {
	w := serve(t, Search(nil), "/_ah/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestStatus(t *testing.T) {
	tests := []struct {
		stats models.PoolStats
		want  string
	}{
		{models.PoolStats{BrowserAlive: true}, "healthy"},
		{models.PoolStats{BrowserAlive: true, MaxConcurrent: 10, ActivePages: 9}, "degraded"},
		{models.PoolStats{BrowserAlive: true, MaxConcurrent: 10, ActivePages: 8}, "healthy"},
		{models.PoolStats{BrowserAlive: false, ActivePages: 3}, "browser_lost"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			r := gin.New()
			stats := tt.stats
			r.GET("/_ah/status", Status(func() models.PoolStats { return stats }, time.Now().Add(-time.Minute)))

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/_ah/status", nil))
			require.Equal(t, http.StatusOK, w.Code)

			var resp models.HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.want, resp.Status)
			assert.Equal(t, stats, resp.PoolStats)
			assert.Equal(t, Version, resp.Version)
			assert.Equal(t, "1m0s", resp.Uptime)
		})
	}
}
