// Package search runs one search term through a browser page and returns the
// identifier of the first result.
package search

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/use-agent/ytsearch/browser"
	"github.com/use-agent/ytsearch/config"
	"github.com/use-agent/ytsearch/extract"
	"github.com/use-agent/ytsearch/metrics"
	"github.com/use-agent/ytsearch/models"
	"github.com/use-agent/ytsearch/tracing"
)

// Sessions is the only capability the pipeline needs from the browser.
type Sessions interface {
	NewPage(ctx context.Context, term string) (*browser.PageSession, error)
}

// Pipeline is safe for concurrent use. Each Search owns its own page.
type Pipeline struct {
	cfg      config.SearchConfig
	sessions Sessions
	rule     extract.Rule
	admit    *admission
	tracer   trace.Tracer
}

// New builds a pipeline from the search configuration.
func New(cfg config.SearchConfig, sessions Sessions) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		sessions: sessions,
		rule:     extract.FromConfig(cfg),
		admit:    newAdmission(cfg.MaxConcurrent, cfg.QueueTimeout),
		tracer:   tracing.Tracer("github.com/use-agent/ytsearch/search"),
	}
}

// MaxConcurrent is the admission limit, 0 when unbounded.
func (p *Pipeline) MaxConcurrent() int {
	return p.admit.limit()
}

// EncodeTerm percent-encodes term for use as a query value. Spaces become
// %20 so that both query and path unescaping restore the term.
func EncodeTerm(term string) string {
	return strings.ReplaceAll(url.QueryEscape(term), "+", "%20")
}

// TargetURL interpolates the encoded term into the configured template.
func (p *Pipeline) TargetURL(term string) string {
	return strings.ReplaceAll(p.cfg.URLTemplate, config.QueryPlaceholder, EncodeTerm(term))
}

// Search returns the identifier of the first result for term. Every failure
// is a *models.SearchError. No step is retried.
func (p *Pipeline) Search(ctx context.Context, term string) (string, error) {
	start := time.Now()
	ctx, span := p.tracer.Start(ctx, "search",
		trace.WithAttributes(attribute.String("search.term", term)))
	defer span.End()

	id, err := p.run(ctx, term)

	code := models.CodeOf(err)
	elapsed := time.Since(start)
	metrics.ObserveExtraction(code, elapsed)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, code)
		slog.Warn("search failed",
			"term", term,
			"code", code,
			"error", err,
			"duration_ms", elapsed.Milliseconds(),
		)
		return "", err
	}

	span.SetAttributes(attribute.String("search.result", id))
	slog.Info("search completed",
		"term", term,
		"result", id,
		"duration_ms", elapsed.Milliseconds(),
	)
	return id, nil
}

// run is the pipeline proper.
//
//  1. Validate   – reject oversized terms before touching the browser
//  2. Admission  – optional slot, bounded by the queue timeout
//  3. Acquire    – a fresh page session
//  4. DEFER      – close the session on every exit path
//  5. Navigate   – bounded by the navigation timeout
//  6. Wait       – for the selector, bounded by the selector timeout
//  7. Evaluate   – probe the DOM with the extraction rule
//  8. Normalize  – cut the identifier at the first separator
func (p *Pipeline) run(ctx context.Context, term string) (string, error) {
	// ── 1. Validate ───────────────────────────────────────────────────
	if p.cfg.MaxTermLength > 0 && len(term) > p.cfg.MaxTermLength {
		return "", models.NewSearchError(models.ErrCodeInvalidInput, "search term too long", nil)
	}
	target := p.TargetURL(term)

	// ── 2. Admission ──────────────────────────────────────────────────
	release, err := p.admit.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	// ── 3. Acquire page ───────────────────────────────────────────────
	session, err := p.sessions.NewPage(ctx, term)
	if err != nil {
		if models.HasCode(err, models.ErrCodeSessionUnavailable) {
			return "", err
		}
		return "", models.NewSearchError(models.ErrCodeSessionUnavailable, "failed to open page", err)
	}

	// ── 4. DEFER: release the page ────────────────────────────────────
	defer func() {
		if cerr := session.Close(); cerr != nil {
			slog.Warn("cleanup: failed to close page",
				"session", session.ID,
				"error", cerr,
			)
		}
	}()

	// ── 5. Navigate ───────────────────────────────────────────────────
	err = p.step(ctx, "navigate", p.cfg.NavigationTimeout, func(ctx context.Context) error {
		return session.Navigate(ctx, target)
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", models.NewSearchError(models.ErrCodeNavigationTimeout, "navigation timed out", err)
		}
		return "", models.NewSearchError(models.ErrCodeNavigation, "navigation failed", err)
	}

	// ── 6. Wait for the first result ──────────────────────────────────
	err = p.step(ctx, "wait_selector", p.cfg.SelectorTimeout, func(ctx context.Context) error {
		return session.WaitSelector(ctx, p.rule.Selector)
	})
	if err != nil {
		return "", models.NewSearchError(models.ErrCodeElementNotFound,
			"selector "+p.rule.Selector+" did not appear", err)
	}

	// ── 7. Evaluate ───────────────────────────────────────────────────
	var match extract.Match
	err = p.step(ctx, "evaluate", p.cfg.EvalTimeout, func(ctx context.Context) error {
		var everr error
		match, everr = session.Evaluate(ctx, p.rule)
		return everr
	})
	if err != nil {
		return "", models.NewSearchError(models.ErrCodeExtraction, "evaluate extraction script", err)
	}

	// ── 8. Normalize ──────────────────────────────────────────────────
	return p.rule.Derive(match)
}

// step runs fn in a child span under its own timeout.
func (p *Pipeline) step(ctx context.Context, name string, timeout time.Duration, fn func(context.Context) error) error {
	ctx, span := p.tracer.Start(ctx, name)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}
