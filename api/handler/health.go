package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/ytsearch/models"
)

// Version is reported by the status endpoint. Overridden at build time with
// -ldflags "-X github.com/use-agent/ytsearch/api/handler.Version=...".
var Version = "0.1.0"

// StatsFunc reports the current browser state.
type StatsFunc func() models.PoolStats

// Health returns a handler for GET /_ah/health. It never consults the
// browser, so it stays 200 while the browser is lost.
func Health() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	}
}

// Status returns a handler for GET /_ah/status.
//
// Reports browser liveness and page usage, and degrades status when more than
// 80% of the admission slots are taken.
func Status(stats StatsFunc, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := stats()

		status := "healthy"
		switch {
		case !s.BrowserAlive:
			status = "browser_lost"
		case s.MaxConcurrent > 0 && s.ActivePages > int(float64(s.MaxConcurrent)*0.8):
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:    status,
			Uptime:    time.Since(startTime).Round(time.Second).String(),
			PoolStats: s,
			Version:   Version,
		})
	}
}
