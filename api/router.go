package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/ytsearch/api/handler"
	"github.com/use-agent/ytsearch/api/middleware"
	"github.com/use-agent/ytsearch/cache"
	"github.com/use-agent/ytsearch/config"
	"github.com/use-agent/ytsearch/metrics"
)

// Deps are the collaborators the routes need.
type Deps struct {
	Searcher handler.Searcher
	Stats    handler.StatsFunc
	// Cache is nil when the cache is disabled.
	Cache     cache.Store
	StartTime time.Time
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger → Compress
//	Search:  Auth (if enabled) → RateLimit (if enabled) → Cache (if enabled)
//
// Health and status endpoints sit outside auth so probes always work.
func NewRouter(cfg *config.Config, deps Deps) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	// Match on the escaped path so %2F stays inside the term; handler.Term
	// does the decoding.
	r.UseRawPath = true
	r.UnescapePathValues = false

	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Compress(cfg.Server.CompressMinBytes))

	r.GET("/", handler.Landing(cfg.Server.StaticDir))
	r.GET("/_ah/health", handler.Health())
	r.GET("/_ah/status", handler.Status(deps.Stats, deps.StartTime))

	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(metrics.Handler()))
	}

	var chain []gin.HandlerFunc
	if cfg.Auth.Enabled {
		chain = append(chain, middleware.Auth(cfg.Auth.APIKeys))
	}
	if cfg.RateLimit.Enabled {
		chain = append(chain, middleware.RateLimit(cfg.RateLimit))
	}
	if deps.Cache != nil {
		chain = append(chain, cache.Middleware(deps.Cache, func(c *gin.Context) string {
			return cache.Key(handler.Term(c))
		}))
	}
	chain = append(chain, handler.Search(deps.Searcher))
	r.GET("/search/*term", chain...)

	return r
}
