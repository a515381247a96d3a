package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/use-agent/ytsearch/api"
	"github.com/use-agent/ytsearch/browser"
	"github.com/use-agent/ytsearch/cache"
	"github.com/use-agent/ytsearch/config"
	"github.com/use-agent/ytsearch/models"
	"github.com/use-agent/ytsearch/search"
)

var errBrowserLost = errors.New("browser session lost")

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), a.cfg)
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 1. Launch the shared browser ────────────────────────────────
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var opts []browser.Option
	if cfg.Browser.ExitOnLoss {
		opts = append(opts, browser.WithOnLost(cancel))
	}
	mgr, err := browser.Start(cfg.Browser, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := mgr.Close(); err != nil {
			slog.Warn("browser close failed", "error", err)
		}
	}()

	// ── 2. Cache ────────────────────────────────────────────────────
	store, err := cache.Open(cfg.Cache)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
		slog.Info("search cache enabled", "backend", cfg.Cache.Backend, "ttl", cfg.Cache.TTL)
	}

	// ── 3. Pipeline and router ──────────────────────────────────────
	pipeline := search.New(cfg.Search, mgr)
	router := api.NewRouter(cfg, api.Deps{
		Searcher: pipeline,
		Stats: func() models.PoolStats {
			s := mgr.Stats()
			s.MaxConcurrent = pipeline.MaxConcurrent()
			return s
		},
		Cache:     store,
		StartTime: time.Now(),
	})

	// ── 4. Serve ────────────────────────────────────────────────────
	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		slog.Info("shutdown requested")
	}

	// ── 5. Graceful shutdown ────────────────────────────────────────
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	if !mgr.Alive() {
		return errBrowserLost
	}
	slog.Info("ytsearch stopped")
	return nil
}
