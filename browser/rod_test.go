package browser_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/ytsearch/browser"
	"github.com/use-agent/ytsearch/config"
	"github.com/use-agent/ytsearch/models"
	"github.com/use-agent/ytsearch/search"
)

// startChromium launches a real browser or skips when none is installed.
func startChromium(t *testing.T) *browser.Manager {
	t.Helper()
	if testing.Short() {
		t.Skip("launches Chromium")
	}
	bin, ok := launcher.LookPath()
	if !ok {
		t.Skip("no Chromium binary found")
	}

	cfg := config.Default().Browser
	cfg.BrowserBin = bin
	cfg.HealthInterval = 0

	m, err := browser.Start(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, m.Close()) })
	return m
}

// resultsSite serves a results page at /results, an empty page at /empty and
// a page that never finishes loading at /slow.
func resultsSite(t *testing.T) *httptest.Server {
	t.Helper()
	release := make(chan struct{})

	mux := http.NewServeMux()
	mux.HandleFunc("/results", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("search_query")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, `<html><body><div id="contents">`+
			`<a id="video-title" href="/watch?v=ID-%d&amp;list=XYZ">%s</a>`+
			`</div></body></html>`, len(q), q)
	})
	mux.HandleFunc("/empty", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><body><p>No results</p></body></html>`)
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })
	return srv
}

func rodSearchConfig(url string) config.SearchConfig {
	cfg := config.Default().Search
	cfg.URLTemplate = url
	cfg.NavigationTimeout = 10 * time.Second
	cfg.SelectorTimeout = 2 * time.Second
	cfg.EvalTimeout = 2 * time.Second
	return cfg
}

func TestRodPipeline(t *testing.T) {
	m := startChromium(t)
	srv := resultsSite(t)

	t.Run("first result", func(t *testing.T) {
		p := search.New(rodSearchConfig(srv.URL+"/results?search_query={query}"), m)

		got, err := p.Search(context.Background(), "lofi hip hop")
		require.NoError(t, err)
		assert.Equal(t, "ID-12", got)
		assert.Equal(t, 0, m.Stats().ActivePages)
	})

	t.Run("selector never appears", func(t *testing.T) {
		cfg := rodSearchConfig(srv.URL + "/empty?q={query}")
		cfg.SelectorTimeout = 300 * time.Millisecond

		_, err := search.New(cfg, m).Search(context.Background(), "nothing")
		assert.Equal(t, models.ErrCodeElementNotFound, models.CodeOf(err))
		assert.Equal(t, 0, m.Stats().ActivePages)
	})

	t.Run("navigation deadline", func(t *testing.T) {
		cfg := rodSearchConfig(srv.URL + "/slow?q={query}")
		cfg.NavigationTimeout = 300 * time.Millisecond

		start := time.Now()
		_, err := search.New(cfg, m).Search(context.Background(), "slow")
		assert.Equal(t, models.ErrCodeNavigationTimeout, models.CodeOf(err))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), 5*time.Second)
		assert.Equal(t, 0, m.Stats().ActivePages)
	})

	assert.True(t, m.Alive())
}
