// Package browsertest provides DOM-backed fake pages so the search pipeline
// can be exercised without a running Chromium.
package browsertest

import (
	"context"
	"sync"

	"github.com/use-agent/ytsearch/browser"
	"github.com/use-agent/ytsearch/extract"
)

// Page is an in-memory browser.Page whose document is a static HTML string
// evaluated with goquery.
type Page struct {
	mu          sync.Mutex
	html        string
	navigatedTo []string
	closed      int

	// Hang makes Navigate block until its context is done.
	Hang bool
	// NavigateErr is returned by Navigate when set.
	NavigateErr error
	// AfterWait runs after WaitSelector succeeds, before Evaluate.
	AfterWait func(p *Page)
}

// NewPage returns a page serving html.
func NewPage(html string) *Page {
	return &Page{html: html}
}

// ResultsHTML renders a minimal results page whose first title link has href.
func ResultsHTML(href string) string {
	return `<html><body><div id="contents">` +
		`<a id="video-title" href="` + href + `">result</a>` +
		`</div></body></html>`
}

// SetHTML replaces the document.
func (p *Page) SetHTML(html string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.html = html
}

func (p *Page) document() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.html
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	p.navigatedTo = append(p.navigatedTo, url)
	p.mu.Unlock()

	if p.Hang {
		<-ctx.Done()
		return ctx.Err()
	}
	return p.NavigateErr
}

// WaitSelector succeeds immediately when the selector matches and otherwise
// blocks until ctx is done, like a page whose element never renders.
func (p *Page) WaitSelector(ctx context.Context, selector string) error {
	present, err := extract.Rule{Selector: selector}.Present(p.document())
	if err != nil {
		return err
	}
	if !present {
		<-ctx.Done()
		return ctx.Err()
	}
	if p.AfterWait != nil {
		p.AfterWait(p)
	}
	return nil
}

func (p *Page) Evaluate(ctx context.Context, rule extract.Rule) (extract.Match, error) {
	if err := ctx.Err(); err != nil {
		return extract.Match{}, err
	}
	return rule.MatchHTML(p.document())
}

func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	return nil
}

// Closed is the number of times Close was called.
func (p *Page) Closed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// NavigatedTo returns the URLs passed to Navigate.
func (p *Page) NavigatedTo() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.navigatedTo...)
}

// Opener hands out fake page sessions. It satisfies the pipeline's view of
// browser.Manager.
type Opener struct {
	// Factory builds the page for a term. Required unless Err is set.
	Factory func(term string) *Page
	// Err, when set, fails every NewPage call.
	Err error

	mu       sync.Mutex
	pages    []*Page
	sessions []*browser.PageSession
}

// Static returns an Opener that serves html for every term.
func Static(html string) *Opener {
	return &Opener{Factory: func(string) *Page { return NewPage(html) }}
}

func (o *Opener) NewPage(_ context.Context, term string) (*browser.PageSession, error) {
	if o.Err != nil {
		return nil, o.Err
	}
	p := o.Factory(term)
	s := browser.NewPageSession(p, term, nil)

	o.mu.Lock()
	o.pages = append(o.pages, p)
	o.sessions = append(o.sessions, s)
	o.mu.Unlock()
	return s, nil
}

// Pages returns every page opened so far.
func (o *Opener) Pages() []*Page {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*Page(nil), o.pages...)
}

// Sessions returns every session opened so far.
func (o *Opener) Sessions() []*browser.PageSession {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*browser.PageSession(nil), o.sessions...)
}

// OpenCount is the number of sessions not yet closed.
func (o *Opener) OpenCount() int {
	n := 0
	for _, s := range o.Sessions() {
		if !s.Closed() {
			n++
		}
	}
	return n
}
