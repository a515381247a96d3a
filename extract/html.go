package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// matchDocument evaluates the rule against a parsed document the same way
// Script does in a live page: first element in document order.
func (r Rule) matchDocument(doc *goquery.Document) (Match, error) {
	sel, err := cascadia.Compile(r.Selector)
	if err != nil {
		return Match{}, fmt.Errorf("extract: compile selector %q: %w", r.Selector, err)
	}

	el := doc.FindMatcher(sel).First()
	if el.Length() == 0 {
		return Match{}, nil
	}
	value, ok := el.Attr(r.Attribute)
	return Match{Found: true, HasAttribute: ok, Value: value}, nil
}

// MatchHTML parses html and evaluates the rule against it.
func (r Rule) MatchHTML(html string) (Match, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Match{}, fmt.Errorf("extract: parse html: %w", err)
	}
	return r.matchDocument(doc)
}

// Present reports whether html contains an element for the rule's selector.
func (r Rule) Present(html string) (bool, error) {
	m, err := r.MatchHTML(html)
	if err != nil {
		return false, err
	}
	return m.Found, nil
}
