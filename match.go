package inlinestyles

import (
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Matcher finds the elements a selector applies to.
type Matcher interface {
	// Match returns the elements below root matching selector, in document
	// order. An error means the selector could not be compiled.
	Match(selector string, root *html.Node) ([]*html.Node, error)
}

type compiledSelector struct {
	sel cascadia.Sel
	err error
}

// SelectorMatcher is the cascadia based Matcher. Compiled selectors are
// cached.
type SelectorMatcher struct {
	cache map[string]compiledSelector
}

// NewMatcher returns a Matcher backed by cascadia.
func NewMatcher() *SelectorMatcher {
	return &SelectorMatcher{cache: make(map[string]compiledSelector)}
}

// Match implements Matcher.
func (m *SelectorMatcher) Match(selector string, root *html.Node) ([]*html.Node, error) {
	c, ok := m.cache[selector]
	if !ok {
		c.sel, c.err = cascadia.Parse(selector)
		m.cache[selector] = c
	}
	if c.err != nil {
		return nil, c.err
	}
	return cascadia.QueryAll(root, c.sel), nil
}
