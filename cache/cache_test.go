package cache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/ytsearch/config"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestKey(t *testing.T) {
	assert.Equal(t, Key("lofi"), Key("lofi"))
	assert.NotEqual(t, Key("lofi"), Key("lofi "))
	assert.Len(t, Key(""), 64)
}

func TestMemory_GetSet(t *testing.T) {
	c := NewMemory(10, time.Hour)
	t.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", "ABC123"))
	v, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ABC123", v)
}

func TestMemory_TTL(t *testing.T) {
	clk := &clock{t: time.Unix(1_700_000_000, 0)}
	c := NewMemory(10, time.Hour)
	t.Cleanup(func() { _ = c.Close() })
	c.now = clk.now
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v"))
	clk.advance(59 * time.Minute)
	_, ok, _ := c.Get(ctx, "k")
	assert.True(t, ok)

	clk.advance(2 * time.Minute)
	_, ok, _ = c.Get(ctx, "k")
	assert.False(t, ok)

	c.evictExpired()
	assert.Equal(t, 0, c.Len())
}

func TestMemory_MaxEntries(t *testing.T) {
	c := NewMemory(2, time.Hour)
	t.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", "1"))
	require.NoError(t, c.Set(ctx, "b", "2"))
	require.NoError(t, c.Set(ctx, "b", "3"))
	assert.Equal(t, 2, c.Len())

	require.NoError(t, c.Set(ctx, "c", "4"))
	assert.Equal(t, 2, c.Len())
	v, ok, _ := c.Get(ctx, "c")
	assert.True(t, ok)
	assert.Equal(t, "4", v)
}

func TestSQLite_GetSetPrune(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.db")
	s, err := NewSQLite(path, time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	clk := &clock{t: time.Unix(1_700_000_000, 0)}
	s.now = clk.now
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "k", "ABC123"))
	require.NoError(t, s.Set(ctx, "k", "DEF456"))
	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "DEF456", v)

	clk.advance(2 * time.Hour)
	_, ok, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := s.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSQLite_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	s, err := NewSQLite(path, time.Hour)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, Key("lofi"), "ABC123"))
	require.NoError(t, s.Close())

	s, err = NewSQLite(path, time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	v, ok, err := s.Get(ctx, Key("lofi"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ABC123", v)
}

func TestOpen(t *testing.T) {
	cfg := config.Default().Cache

	s, err := Open(cfg)
	require.NoError(t, err)
	assert.Nil(t, s)

	cfg.Enabled = true
	s, err = Open(cfg)
	require.NoError(t, err)
	require.IsType(t, &Memory{}, s)
	require.NoError(t, s.Close())

	cfg.Backend = "sqlite"
	cfg.Path = filepath.Join(t.TempDir(), "cache.db")
	s, err = Open(cfg)
	require.NoError(t, err)
	require.IsType(t, &SQLite{}, s)
	require.NoError(t, s.Close())

	cfg.Backend = "redis"
	_, err = Open(cfg)
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := NewMemory(10, time.Hour)
	t.Cleanup(func() { _ = store.Close() })

	calls := 0
	r := gin.New()
	r.GET("/search/:term", Middleware(store, func(c *gin.Context) string {
		return Key(c.Param("term"))
	}), func(c *gin.Context) {
		calls++
		if c.Param("term") == "broken" {
			c.String(http.StatusInternalServerError, "Internal Server Error")
			return
		}
		c.String(http.StatusOK, "ID-%s", c.Param("term"))
	})

	do := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	w := do("/search/lofi")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ID-lofi", w.Body.String())
	assert.Equal(t, "miss", w.Header().Get(HeaderCache))

	w = do("/search/lofi")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ID-lofi", w.Body.String())
	assert.Equal(t, "hit", w.Header().Get(HeaderCache))
	assert.Equal(t, 1, calls)

	do("/search/broken")
	w = do("/search/broken")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "miss", w.Header().Get(HeaderCache))
	assert.Equal(t, 3, calls)
}

func TestMiddleware_EmptyKeyBypasses(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := NewMemory(10, time.Hour)
	t.Cleanup(func() { _ = store.Close() })

	r := gin.New()
	r.GET("/x", Middleware(store, func(*gin.Context) string { return "" }), func(c *gin.Context) {
		c.String(http.StatusOK, "fresh")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, "fresh", w.Body.String())
	assert.Empty(t, w.Header().Get(HeaderCache))
	assert.Equal(t, 0, store.Len())
}
