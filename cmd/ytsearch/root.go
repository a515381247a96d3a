package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/use-agent/ytsearch/api/handler"
	"github.com/use-agent/ytsearch/config"
	"github.com/use-agent/ytsearch/logging"
	"github.com/use-agent/ytsearch/tracing"
)

// app carries what PersistentPreRunE sets up for the subcommands.
type app struct {
	cfgFile string
	cfg     *config.Config

	closeLog      io.Closer
	stopTracing   tracing.ShutdownFunc
	shutdownGrace time.Duration
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{shutdownGrace: 5 * time.Second}

	root := &cobra.Command{
		Use:   "ytsearch",
		Short: "Return the video ID of the first YouTube result for a query",
		Long: `ytsearch drives a shared headless Chromium to the YouTube results page
for a query and returns the video ID of the first result.

Without a subcommand it runs the HTTP service.`,
		Version:           handler.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), a.cfg)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.cfgFile, "config", "c", "", "config file (yaml, toml or json)")
	pf.String("log-level", "info", "log level: debug, info, warn or error")
	pf.Int("port", 8080, "HTTP listen port")
	pf.String("host", "0.0.0.0", "HTTP listen host")
	pf.Bool("headless", true, "run Chromium headless")
	pf.Bool("cache", false, "enable the search result cache")

	root.AddCommand(newServeCmd(a), newSearchCmd(a))
	return root, a
}

// setup loads configuration and initialises logging and tracing.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.shutdownGrace = cfg.Server.ShutdownTimeout

	a.closeLog = logging.Init(cfg.Log)

	stop, err := tracing.Init(cfg.Tracing)
	if err != nil {
		return err
	}
	a.stopTracing = stop

	slog.Info("ytsearch starting",
		"version", handler.Version,
		"command", cmd.Name(),
		"headless", cfg.Browser.Headless,
		"cache", cfg.Cache.Enabled,
	)
	return nil
}

// close flushes tracing and the log file. Safe to call when setup failed.
func (a *app) close() {
	if a.stopTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.shutdownGrace)
		if err := a.stopTracing(ctx); err != nil {
			slog.Warn("tracing shutdown failed", "error", err)
		}
		cancel()
	}
	if a.closeLog != nil {
		_ = a.closeLog.Close()
	}
}
