package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveExtraction(t *testing.T) {
	okBefore := testutil.ToFloat64(extractions.WithLabelValues("ok"))
	timeoutBefore := testutil.ToFloat64(extractions.WithLabelValues("NAVIGATION_TIMEOUT"))

	ObserveExtraction("", time.Second)
	ObserveExtraction("NAVIGATION_TIMEOUT", 60*time.Second)

	assert.Equal(t, okBefore+1, testutil.ToFloat64(extractions.WithLabelValues("ok")))
	assert.Equal(t, timeoutBefore+1, testutil.ToFloat64(extractions.WithLabelValues("NAVIGATION_TIMEOUT")))
}

func TestGauges(t *testing.T) {
	before := testutil.ToFloat64(openPages)
	PageOpened()
	PageOpened()
	PageClosed()
	assert.Equal(t, before+1, testutil.ToFloat64(openPages))
	PageClosed()

	SetBrowserAlive(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(browserAlive))
	SetBrowserAlive(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(browserAlive))
}

func TestHandler(t *testing.T) {
	CacheLookup("hit")

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ytsearch_cache_lookups_total")
	assert.Contains(t, w.Body.String(), "ytsearch_browser_alive")
}
