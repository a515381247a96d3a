package cache

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/ytsearch/metrics"
)

// HeaderCache reports whether a response came from the cache.
const HeaderCache = "X-Cache"

// KeyFunc extracts the cache key from a request. An empty key bypasses the
// cache.
type KeyFunc func(c *gin.Context) string

// Middleware answers requests from store when possible and stores every
// 200 response produced further down the chain.
func Middleware(store Store, keyFunc KeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFunc(c)
		if key == "" {
			c.Next()
			return
		}

		value, ok, err := store.Get(c.Request.Context(), key)
		switch {
		case err != nil:
			metrics.CacheLookup("error")
			slog.Warn("cache lookup failed", "error", err)
		case ok:
			metrics.CacheLookup("hit")
			c.Header(HeaderCache, "hit")
			c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(value))
			c.Abort()
			return
		default:
			metrics.CacheLookup("miss")
		}

		c.Header(HeaderCache, "miss")
		w := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		if w.Status() != http.StatusOK || w.body.Len() == 0 {
			return
		}
		ctx := context.WithoutCancel(c.Request.Context())
		if err := store.Set(ctx, key, w.body.String()); err != nil {
			slog.Warn("cache store failed", "error", err)
		}
	}
}

// captureWriter tees the response body so it can be cached.
type captureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
