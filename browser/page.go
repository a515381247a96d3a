package browser

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/use-agent/ytsearch/extract"
)

// Page is one browsing context able to run a single extraction.
// The production implementation drives a Chromium tab through rod; tests
// substitute DOM-backed fakes.
type Page interface {
	Navigate(ctx context.Context, url string) error
	WaitSelector(ctx context.Context, selector string) error
	Evaluate(ctx context.Context, rule extract.Rule) (extract.Match, error)
	Close() error
}

// PageSession is a Page owned by exactly one pipeline invocation.
// Close is safe to call more than once; only the first call reaches the page.
type PageSession struct {
	ID        string
	Term      string
	CreatedAt time.Time

	page    Page
	onClose func()

	once     sync.Once
	closed   chan struct{}
	closeErr error
}

// NewPageSession wraps p. onClose, if non-nil, runs once after the page is
// closed.
func NewPageSession(p Page, term string, onClose func()) *PageSession {
	return &PageSession{
		ID:        uuid.NewString(),
		Term:      term,
		CreatedAt: time.Now(),
		page:      p,
		onClose:   onClose,
		closed:    make(chan struct{}),
	}
}

func (s *PageSession) Navigate(ctx context.Context, url string) error {
	return s.page.Navigate(ctx, url)
}

func (s *PageSession) WaitSelector(ctx context.Context, selector string) error {
	return s.page.WaitSelector(ctx, selector)
}

func (s *PageSession) Evaluate(ctx context.Context, rule extract.Rule) (extract.Match, error) {
	return s.page.Evaluate(ctx, rule)
}

// Close releases the page.
func (s *PageSession) Close() error {
	s.once.Do(func() {
		s.closeErr = s.page.Close()
		if s.onClose != nil {
			s.onClose()
		}
		close(s.closed)
	})
	return s.closeErr
}

// Closed reports whether Close has completed.
func (s *PageSession) Closed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}
