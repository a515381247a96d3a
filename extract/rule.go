// Package extract implements the rule that turns a rendered results page into
// a video identifier.
//
// A Rule is declarative: a CSS selector, the attribute to read from the first
// matching element, the delimiter that precedes the identifier in that
// attribute, and the separators that end it. The browser evaluates Script in
// the page to produce a Match; everything after that is plain Go.
package extract

import (
	"strings"

	"github.com/use-agent/ytsearch/config"
	"github.com/use-agent/ytsearch/models"
)

// Rule describes where the identifier lives in the DOM.
type Rule struct {
	Selector   string
	Attribute  string
	Delimiter  string
	Separators string
}

// FromConfig builds a Rule from the search configuration.
func FromConfig(cfg config.SearchConfig) Rule {
	return Rule{
		Selector:   cfg.Selector,
		Attribute:  cfg.Attribute,
		Delimiter:  cfg.Delimiter,
		Separators: cfg.Separators,
	}
}

// Match is what the page reports about the rule's element.
type Match struct {
	// Found is false when no element matches the selector.
	Found bool
	// HasAttribute is false when the element lacks the attribute.
	HasAttribute bool
	Value        string
}

// script runs in the page with (selector, attribute) as arguments and never
// throws, so a missing element is data rather than an evaluation error.
const script = `(selector, attribute) => {
	const el = document.querySelector(selector);
	if (!el) {
		return { found: false, value: null };
	}
	return { found: true, value: el.getAttribute(attribute) };
}`

// Script returns the in-page probe. Callers pass Selector and Attribute as
// its two arguments.
func (r Rule) Script() string {
	return script
}

// Raw returns the substring following the delimiter in the matched attribute.
func (r Rule) Raw(m Match) (string, error) {
	if !m.Found {
		return "", models.NewSearchError(models.ErrCodeExtraction, "element missing", nil)
	}
	if !m.HasAttribute {
		return "", models.NewSearchError(models.ErrCodeExtraction, "malformed link: no "+r.Attribute+" attribute", nil)
	}
	_, after, ok := strings.Cut(m.Value, r.Delimiter)
	if !ok {
		return "", models.NewSearchError(models.ErrCodeExtraction, "malformed link: "+m.Value, nil)
	}
	return after, nil
}

// Normalize truncates raw at the first separator.
func (r Rule) Normalize(raw string) string {
	if r.Separators == "" {
		return raw
	}
	if i := strings.IndexAny(raw, r.Separators); i >= 0 {
		return raw[:i]
	}
	return raw
}

// Derive runs Raw and Normalize and enforces a non-empty result.
func (r Rule) Derive(m Match) (string, error) {
	raw, err := r.Raw(m)
	if err != nil {
		return "", err
	}
	id := r.Normalize(raw)
	if id == "" {
		return "", models.NewSearchError(models.ErrCodeExtraction, "empty identifier in "+m.Value, nil)
	}
	return id, nil
}
