package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/ysmood/gson"

	"github.com/use-agent/ytsearch/extract"
)

// rodPage is a Chromium tab, optionally inside its own incognito context.
type rodPage struct {
	page *rod.Page

	// incognito is the browser context owning page, nil when pages share
	// the default context.
	incognito *rod.Browser
}

func (r *rodPage) Navigate(ctx context.Context, url string) error {
	p := r.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return withContextErr(ctx, err)
	}
	return withContextErr(ctx, p.WaitLoad())
}

// WaitSelector returns once an element matches selector. rod retries the
// query until the context is done.
func (r *rodPage) WaitSelector(ctx context.Context, selector string) error {
	_, err := r.page.Context(ctx).Element(selector)
	return withContextErr(ctx, err)
}

func (r *rodPage) Evaluate(ctx context.Context, rule extract.Rule) (extract.Match, error) {
	res, err := r.page.Context(ctx).Eval(rule.Script(), rule.Selector, rule.Attribute)
	if err != nil {
		return extract.Match{}, withContextErr(ctx, err)
	}
	return matchFromJSON(res.Value), nil
}

// withContextErr makes an expired or cancelled ctx visible to errors.Is
// whatever error rod reported for it.
func withContextErr(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	cerr := ctx.Err()
	if cerr == nil || errors.Is(err, cerr) {
		return err
	}
	return fmt.Errorf("%w: %w", cerr, err)
}

// Close uses the original page reference, without a request context, so
// cleanup still succeeds after the request deadline has passed.
func (r *rodPage) Close() error {
	errPage := r.page.Close()
	var errCtx error
	if r.incognito != nil {
		// Closing an incognito Browser disposes its context, not the process.
		errCtx = r.incognito.Close()
	}
	if errCtx != nil {
		slog.Debug("dispose browser context failed", "error", errCtx)
	}
	return errors.Join(errPage, errCtx)
}

// matchFromJSON decodes the object returned by extract.Rule.Script.
func matchFromJSON(v gson.JSON) extract.Match {
	m := extract.Match{Found: v.Get("found").Bool()}
	if value := v.Get("value"); !value.Nil() {
		m.HasAttribute = true
		m.Value = value.Str()
	}
	return m
}
