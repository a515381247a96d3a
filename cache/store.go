// Package cache short-circuits repeated searches for the same term.
//
// The pipeline never sees the cache: Middleware sits in front of the search
// route, answers hits from a Store and records successful responses on a
// miss.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/use-agent/ytsearch/config"
)

// Store holds search results keyed by Key. Implementations are safe for
// concurrent use.
type Store interface {
	// Get returns the stored value and whether a live entry was found.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// Key derives the cache key for a search term.
func Key(term string) string {
	h := sha256.New()
	h.Write([]byte("search|"))
	h.Write([]byte(term))
	return hex.EncodeToString(h.Sum(nil))
}

// Open builds the configured backend. It returns nil, nil when the cache is
// disabled.
func Open(cfg config.CacheConfig) (Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch cfg.Backend {
	case "memory":
		return NewMemory(cfg.MaxEntries, cfg.TTL), nil
	case "sqlite":
		s, err := NewSQLite(cfg.Path, cfg.TTL)
		if err != nil {
			return nil, err
		}
		if n, err := s.Prune(context.Background()); err != nil {
			slog.Warn("cache: prune failed", "error", err)
		} else if n > 0 {
			slog.Info("cache: pruned expired entries", "count", n)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("cache: unknown backend %q", cfg.Backend)
	}
}
