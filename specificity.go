package inlinestyles

import (
	"github.com/andybalholm/cascadia"
)

// Comparator orders selectors by their CSS specificity. Compare returns a
// negative number if a is less specific than b, zero if both are equal and a
// positive number otherwise.
type Comparator interface {
	Compare(a, b string) int
}

// SpecificityComparator computes the specificity with cascadia. Selectors
// cascadia does not understand count as the lowest specificity.
type SpecificityComparator struct {
	cache map[string]cascadia.Specificity
}

// NewComparator returns a comparator backed by cascadia.
func NewComparator() *SpecificityComparator {
	return &SpecificityComparator{cache: make(map[string]cascadia.Specificity)}
}

// Specificity returns the [id, class, type] counts of sel.
func (c *SpecificityComparator) Specificity(sel string) cascadia.Specificity {
	if sp, ok := c.cache[sel]; ok {
		return sp
	}
	var sp cascadia.Specificity
	if compiled, err := cascadia.Parse(sel); err == nil {
		sp = compiled.Specificity()
	}
	c.cache[sel] = sp
	return sp
}

// Compare implements Comparator.
func (c *SpecificityComparator) Compare(a, b string) int {
	sa, sb := c.Specificity(a), c.Specificity(b)
	switch {
	case sa.Less(sb):
		return -1
	case sb.Less(sa):
		return 1
	}
	return 0
}
