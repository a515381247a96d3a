// Package browser owns the process-wide Chromium instance and hands out
// per-request pages.
//
// There is exactly one browser per process. It is launched by Start, probed
// periodically by a liveness watcher, and never relaunched in place: once the
// browser is lost every NewPage call fails until the process restarts.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/use-agent/ytsearch/config"
	"github.com/use-agent/ytsearch/metrics"
	"github.com/use-agent/ytsearch/models"
)

const probeTimeout = 5 * time.Second

// Option customises a Manager.
type Option func(*Manager)

// WithOnLost registers fn to run once when the browser is detected lost.
func WithOnLost(fn func()) Option {
	return func(m *Manager) { m.onLost = fn }
}

// Manager manages the shared browser. It is safe for concurrent use.
type Manager struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	cfg      config.BrowserConfig

	lost     atomic.Bool
	lostOnce sync.Once
	onLost   func()

	active    atomic.Int32
	startTime time.Time

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Start launches Chromium, connects to it and starts the liveness watcher.
func Start(cfg config.BrowserConfig, opts ...Option) (*Manager, error) {
	l := newLauncher(cfg)

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewSearchError(models.ErrCodeSessionUnavailable, "failed to launch browser", err)
	}
	slog.Info("browser launched", "controlURL", controlURL, "pid", l.PID())

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, models.NewSearchError(models.ErrCodeSessionUnavailable, "failed to connect to browser", err)
	}

	m := newManager(b, l, cfg, opts...)
	metrics.SetBrowserAlive(true)

	if cfg.HealthInterval > 0 {
		m.wg.Add(1)
		go m.watch(cfg.HealthInterval)
	}
	return m, nil
}

func newManager(b *rod.Browser, l *launcher.Launcher, cfg config.BrowserConfig, opts ...Option) *Manager {
	m := &Manager{
		browser:   b,
		launcher:  l,
		cfg:       cfg,
		startTime: time.Now(),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewPage opens a fresh page for one search. The caller must Close the
// returned session.
func (m *Manager) NewPage(ctx context.Context, term string) (*PageSession, error) {
	if m.lost.Load() || m.browser == nil {
		return nil, models.NewSearchError(models.ErrCodeSessionUnavailable, "browser session lost", nil)
	}

	target := m.browser.Context(ctx)
	var incognito *rod.Browser
	if m.cfg.Incognito {
		ib, err := target.Incognito()
		if err != nil {
			return nil, m.pageFailed(err)
		}
		incognito = ib
		target = ib
	}

	var (
		page *rod.Page
		err  error
	)
	if m.cfg.Stealth {
		page, err = stealth.Page(target)
	} else {
		page, err = target.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		if incognito != nil {
			_ = incognito.Close()
		}
		return nil, m.pageFailed(err)
	}

	// Detach from the creation context so later calls carry their own and
	// Close still works after the request is gone.
	rp := &rodPage{page: page.Context(context.Background())}
	if incognito != nil {
		rp.incognito = incognito.Context(context.Background())
	}

	m.active.Add(1)
	metrics.PageOpened()
	return NewPageSession(rp, term, func() {
		m.active.Add(-1)
		metrics.PageClosed()
	}), nil
}

// pageFailed probes the browser after a failed page creation, marking it
// lost if it no longer answers.
func (m *Manager) pageFailed(err error) error {
	if perr := m.probe(); perr != nil {
		m.markLost(perr)
	}
	return models.NewSearchError(models.ErrCodeSessionUnavailable, "failed to create page", err)
}

func (m *Manager) probe() error {
	_, err := proto.BrowserGetVersion{}.Call(m.browser.Timeout(probeTimeout))
	return err
}

func (m *Manager) markLost(cause error) {
	m.lostOnce.Do(func() {
		m.lost.Store(true)
		metrics.SetBrowserAlive(false)
		slog.Error("browser session lost", "error", cause)
		if m.onLost != nil {
			m.onLost()
		}
	})
}

func (m *Manager) watch(interval time.Duration) {
	defer m.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			if err := m.probe(); err != nil {
				m.markLost(err)
				return
			}
		}
	}
}

// Alive reports whether the browser is still usable.
func (m *Manager) Alive() bool {
	return m.browser != nil && !m.lost.Load()
}

// Stats returns a snapshot of the browser state.
func (m *Manager) Stats() models.PoolStats {
	stats := models.PoolStats{
		ActivePages:  int(m.active.Load()),
		BrowserAlive: m.Alive(),
	}
	if m.launcher != nil {
		stats.BrowserPID = m.launcher.PID()
	}
	return stats
}

// Uptime is the time since the manager was created.
func (m *Manager) Uptime() time.Duration {
	return time.Since(m.startTime)
}

// Close stops the watcher, closes the browser and removes its user data
// directory. It is safe to call more than once.
func (m *Manager) Close() error {
	var err error
	m.closeOnce.Do(func() {
		close(m.done)
		m.wg.Wait()

		if m.browser == nil {
			return
		}
		slog.Info("closing browser", "activePages", m.active.Load())
		err = m.browser.Close()
		if m.launcher != nil {
			if err != nil {
				m.launcher.Kill()
			}
			m.launcher.Cleanup()
		}
		metrics.SetBrowserAlive(false)
		if err != nil {
			err = fmt.Errorf("browser: close: %w", err)
		}
	})
	return err
}
