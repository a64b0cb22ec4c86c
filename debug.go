package inlinestyles

import (
	"fmt"
	"strings"
)

// String returns a readable dump of the ruleset. Removed selectors are shown
// as comments.
func (r *Ruleset) String() string {
	sels := []string{}
	for _, s := range r.Selectors {
		if s.removed {
			sels = append(sels, "/* "+s.Text+" */")
		} else {
			sels = append(sels, s.Text)
		}
	}
	ret := []string{strings.Join(sels, ", ") + " {"}
	for _, d := range r.Declarations {
		ret = append(ret, "    "+d.Property+": "+d.Value+";")
	}
	ret = append(ret, "}")
	return strings.Join(ret, "\n")
}

// String returns a readable dump of the stylesheet, one top level item after
// the other.
func (s *Stylesheet) String() string {
	ret := []string{}
	for _, it := range s.items {
		if it.atRule != "" {
			ret = append(ret, it.atRule)
			continue
		}
		ret = append(ret, fmt.Sprintf("[%d] %s", it.rule, s.rules[it.rule].String()))
	}
	return strings.Join(ret, "\n")
}

func (rec selectorRecord) String() string {
	return fmt.Sprintf("#%d %s (block %d, rule %d, selector %d)", rec.seq, rec.text, rec.block, rec.ref.Rule, rec.ref.Index)
}

// String returns a multi-line summary of the report.
func (r Report) String() string {
	counters := []struct {
		name string
		n    int
	}{
		{"style elements", r.Blocks},
		{"selectors", r.Selectors},
		{"inlined", r.Inlined},
		{"shared", r.Shared},
		{"unmatched", r.Unmatched},
		{"unsupported", r.Unsupported},
		{"elements", r.Elements},
		{"removed", r.Removed},
	}
	lines := make([]string, 0, len(counters))
	for _, c := range counters {
		lines = append(lines, fmt.Sprintf("%-15s %d", c.name+":", c.n))
	}
	return strings.Join(lines, "\n")
}
