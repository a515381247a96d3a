// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ytsearch"

var (
	extractions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "extractions_total",
		Help:      "Extraction pipeline runs by outcome (ok or error code).",
	}, []string{"outcome"})

	extractionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "extraction_duration_seconds",
		Help:      "Wall time of one extraction pipeline run.",
		Buckets:   []float64{0.5, 1, 2, 4, 8, 15, 30, 60, 120},
	})

	openPages = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pages_open",
		Help:      "Page sessions currently open in the shared browser.",
	})

	browserAlive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "browser_alive",
		Help:      "1 while the shared browser session is usable, 0 once it is lost.",
	})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Search cache lookups by result (hit, miss, error).",
	}, []string{"result"})
)

// ObserveExtraction records one pipeline run. An empty code means success.
func ObserveExtraction(code string, d time.Duration) {
	outcome := code
	if outcome == "" {
		outcome = "ok"
	}
	extractions.WithLabelValues(outcome).Inc()
	extractionDuration.Observe(d.Seconds())
}

// PageOpened and PageClosed track the open page gauge.
func PageOpened() { openPages.Inc() }
func PageClosed() { openPages.Dec() }

// SetBrowserAlive flips the browser liveness gauge.
func SetBrowserAlive(alive bool) {
	if alive {
		browserAlive.Set(1)
		return
	}
	browserAlive.Set(0)
}

// CacheLookup counts one cache lookup.
func CacheLookup(result string) {
	cacheLookups.WithLabelValues(result).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
