package inlinestyles

import (
	"errors"
	"fmt"
	"io"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// RuleID addresses a ruleset inside the stylesheet it was decoded into. IDs
// stay valid for the lifetime of the stylesheet, even after selectors or
// rulesets have been removed.
type RuleID int

// SelectorRef addresses a single selector of a ruleset's selector group.
type SelectorRef struct {
	Rule  RuleID
	Index int
}

// Declaration is a property/value pair. A trailing !important stays part of
// the value.
type Declaration struct {
	Property string
	Value    string
}

// Important reports whether the declaration carries !important.
func (d Declaration) Important() bool {
	v := strings.ToLower(strings.ReplaceAll(d.Value, " ", ""))
	return strings.HasSuffix(v, "!important")
}

// Selector is one member of a comma separated selector group.
type Selector struct {
	Text    string
	removed bool
}

// Ruleset is a selector group plus its declaration block.
type Ruleset struct {
	Selectors    []Selector
	Declarations []Declaration
	dropped      bool
}

// Live returns the number of selectors that have not been removed.
func (r *Ruleset) Live() int {
	n := 0
	for _, s := range r.Selectors {
		if !s.removed {
			n++
		}
	}
	return n
}

// item is a top level entry of a stylesheet. Rulesets live in the arena of the
// stylesheet, at-rules are kept as encoded text.
type item struct {
	rule   RuleID
	atRule string
}

// Stylesheet is the decoded form of a style element's text. Rulesets are
// kept in an arena and addressed by RuleID, the top level order is kept
// separately.
type Stylesheet struct {
	rules []Ruleset
	items []item
}

// Len returns the number of top level items (rulesets and at-rules).
func (s *Stylesheet) Len() int {
	return len(s.items)
}

// Empty reports whether the stylesheet has no top level items left.
func (s *Stylesheet) Empty() bool {
	return len(s.items) == 0
}

// Rules returns the top level rulesets in source order. At-rules and the
// rulesets nested in them are not part of the result.
func (s *Stylesheet) Rules() []RuleID {
	ids := make([]RuleID, 0, len(s.items))
	for _, it := range s.items {
		if it.atRule == "" {
			ids = append(ids, it.rule)
		}
	}
	return ids
}

// Ruleset returns the ruleset with the given id.
func (s *Stylesheet) Ruleset(id RuleID) *Ruleset {
	return &s.rules[id]
}

// SelectorRefs returns handles to the selectors of ruleset id which are still
// present, in source order.
func (s *Stylesheet) SelectorRefs(id RuleID) []SelectorRef {
	rs := &s.rules[id]
	refs := make([]SelectorRef, 0, len(rs.Selectors))
	for i, sel := range rs.Selectors {
		if !sel.removed {
			refs = append(refs, SelectorRef{Rule: id, Index: i})
		}
	}
	return refs
}

// SelectorText returns the normalized text of the referenced selector.
func (s *Stylesheet) SelectorText(ref SelectorRef) string {
	return s.rules[ref.Rule].Selectors[ref.Index].Text
}

// RemoveSelector removes a single selector from its group. The other
// selectors and all handles stay untouched. A ruleset left without selectors
// is kept until DropRules removes it.
func (s *Stylesheet) RemoveSelector(ref SelectorRef) {
	s.rules[ref.Rule].Selectors[ref.Index].removed = true
}

// EmptyRules returns the top level rulesets that have no selectors left.
func (s *Stylesheet) EmptyRules() []RuleID {
	var ids []RuleID
	for _, id := range s.Rules() {
		if s.rules[id].Live() == 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

// DropRules removes the given rulesets from the top level of the stylesheet.
func (s *Stylesheet) DropRules(ids []RuleID) {
	if len(ids) == 0 {
		return
	}
	for _, id := range ids {
		s.rules[id].dropped = true
	}
	kept := s.items[:0]
	for _, it := range s.items {
		if it.atRule == "" && s.rules[it.rule].dropped {
			continue
		}
		kept = append(kept, it)
	}
	s.items = kept
}

// Encode serializes the stylesheet. The result is minified: no comments, no
// whitespace between rules.
func (s *Stylesheet) Encode() (string, error) {
	var sb strings.Builder
	for _, it := range s.items {
		if it.atRule != "" {
			sb.WriteString(it.atRule)
			continue
		}
		if it.rule < 0 || int(it.rule) >= len(s.rules) {
			return "", &SerializationError{Rule: it.rule, Reason: "unknown ruleset"}
		}
		rs := &s.rules[it.rule]
		if rs.dropped {
			return "", &SerializationError{Rule: it.rule, Reason: "ruleset was dropped"}
		}
		if rs.Live() == 0 {
			return "", &SerializationError{Rule: it.rule, Reason: "ruleset has no selectors"}
		}
		writeRuleset(&sb, rs.Selectors, rs.Declarations)
	}
	return sb.String(), nil
}

func writeRuleset(sb *strings.Builder, sels []Selector, decls []Declaration) {
	first := true
	for _, sel := range sels {
		if sel.removed {
			continue
		}
		if !first {
			sb.WriteByte(',')
		}
		sb.WriteString(sel.Text)
		first = false
	}
	sb.WriteByte('{')
	writeDeclarations(sb, decls)
	sb.WriteByte('}')
}

func writeDeclarations(sb *strings.Builder, decls []Declaration) {
	for i, d := range decls {
		if i > 0 {
			sb.WriteByte(';')
		}
		sb.WriteString(d.Property)
		sb.WriteByte(':')
		sb.WriteString(d.Value)
	}
}

// EncodeDeclarations serializes a declaration list for a style attribute.
func EncodeDeclarations(decls []Declaration) string {
	var sb strings.Builder
	writeDeclarations(&sb, decls)
	return sb.String()
}

// MergeDeclarations combines the declarations of a ruleset with the ones an
// element already carries. For a property set by both, the element's
// declarations win unless only the ruleset marks it !important; the
// declarations of the losing side are dropped. Repeated properties within
// one side (fallbacks such as display:-webkit-box;display:flex) are kept.
// The ruleset's declarations come first.
func MergeDeclarations(sheet, own []Declaration) []Declaration {
	ownHas := make(map[string]bool, len(own))
	ownImp := make(map[string]bool)
	for _, d := range own {
		ownHas[d.Property] = true
		if d.Important() {
			ownImp[d.Property] = true
		}
	}
	sheetImp := make(map[string]bool)
	for _, d := range sheet {
		if d.Important() {
			sheetImp[d.Property] = true
		}
	}
	ownWins := func(prop string) bool {
		return ownImp[prop] || !sheetImp[prop]
	}

	merged := make([]Declaration, 0, len(sheet)+len(own))
	for _, d := range sheet {
		if ownHas[d.Property] && ownWins(d.Property) {
			continue
		}
		merged = append(merged, d)
	}
	for _, d := range own {
		if !ownWins(d.Property) {
			continue
		}
		merged = append(merged, d)
	}
	return merged
}

// tokensText concatenates the raw token data.
func tokensText(toks []css.Token) string {
	var sb strings.Builder
	for _, t := range toks {
		sb.Write(t.Data)
	}
	return sb.String()
}

// splitSelectors splits the prelude of a qualified rule at the top level
// commas. Commas inside functions, parentheses and attribute selectors do
// not split.
func splitSelectors(toks []css.Token) []Selector {
	var (
		sels  []Selector
		sb    strings.Builder
		level int
	)
	flush := func() {
		if txt := strings.TrimSpace(sb.String()); txt != "" {
			sels = append(sels, Selector{Text: txt})
		}
		sb.Reset()
	}
	for _, t := range toks {
		switch t.TokenType {
		case css.FunctionToken, css.LeftParenthesisToken, css.LeftBracketToken:
			level++
		case css.RightParenthesisToken, css.RightBracketToken:
			level--
		case css.CommaToken:
			if level == 0 {
				flush()
				continue
			}
		}
		sb.Write(t.Data)
	}
	flush()
	return sels
}

// endOfInput turns the error state of the parser at an ErrorGrammar into nil
// for a regular end of input.
func endOfInput(p *css.Parser) error {
	if p.HasParseError() {
		return p.Err()
	}
	err := p.Err()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("unexpected character at offset %d", p.Offset())
	}
	return err
}

// declaration converts the current declaration grammar of p. ok is false for
// declarations without a value.
func declaration(p *css.Parser, gt css.GrammarType, name []byte) (Declaration, bool) {
	value := tokensText(p.Values())
	if gt == css.CustomPropertyGrammar {
		value = strings.TrimSpace(value)
	}
	if value == "" {
		return Declaration{}, false
	}
	return Declaration{Property: string(name), Value: value}, true
}

// decodeBlock reads the declarations of a ruleset up to and including its
// closing brace.
func decodeBlock(p *css.Parser) ([]Declaration, error) {
	var decls []Declaration
	for {
		gt, _, data := p.Next()
		switch gt {
		case css.EndRulesetGrammar:
			return decls, nil
		case css.DeclarationGrammar, css.CustomPropertyGrammar:
			if d, ok := declaration(p, gt, data); ok {
				decls = append(decls, d)
			}
		case css.BeginAtRuleGrammar, css.AtRuleGrammar:
			return nil, fmt.Errorf("at-rule %s inside a ruleset is not supported", data)
		case css.ErrorGrammar:
			if err := endOfInput(p); err != nil {
				return nil, err
			}
			return decls, nil
		}
	}
}

// decodeAtRule encodes the at-rule that starts with the current grammar of p
// back to text. Rules nested in the at-rule are kept as they are.
func decodeAtRule(p *css.Parser, gt css.GrammarType, name []byte) (string, error) {
	var sb strings.Builder
	sb.Write(name)
	sb.WriteString(strings.TrimRight(tokensText(p.Values()), " "))
	if gt == css.AtRuleGrammar {
		sb.WriteByte(';')
		return sb.String(), nil
	}
	sb.WriteByte('{')

	var pending []Declaration
	flush := func() {
		writeDeclarations(&sb, pending)
		pending = pending[:0]
	}
	for {
		gt, _, data := p.Next()
		switch gt {
		case css.EndAtRuleGrammar:
			flush()
			sb.WriteByte('}')
			return sb.String(), nil
		case css.DeclarationGrammar, css.CustomPropertyGrammar:
			if d, ok := declaration(p, gt, data); ok {
				pending = append(pending, d)
			}
		case css.BeginAtRuleGrammar, css.AtRuleGrammar:
			flush()
			nested, err := decodeAtRule(p, gt, data)
			if err != nil {
				return "", err
			}
			sb.WriteString(nested)
		case css.BeginRulesetGrammar:
			flush()
			sels := splitSelectors(p.Values())
			decls, err := decodeBlock(p)
			if err != nil {
				return "", err
			}
			writeRuleset(&sb, sels, decls)
		case css.TokenGrammar:
			flush()
			sb.Write(data)
		case css.ErrorGrammar:
			if err := endOfInput(p); err != nil {
				return "", err
			}
			flush()
			sb.WriteByte('}')
			return sb.String(), nil
		}
	}
}

// Decode parses the text of a style element. Malformed CSS is an error, the
// parser does not try to recover. Comments are dropped.
func Decode(text string) (*Stylesheet, error) {
	p := css.NewParser(parse.NewInputString(text), false)
	sheet := &Stylesheet{}
	for {
		gt, _, data := p.Next()
		switch gt {
		case css.ErrorGrammar:
			if err := endOfInput(p); err != nil {
				return nil, err
			}
			return sheet, nil
		case css.BeginRulesetGrammar:
			sels := splitSelectors(p.Values())
			decls, err := decodeBlock(p)
			if err != nil {
				return nil, err
			}
			sheet.items = append(sheet.items, item{rule: RuleID(len(sheet.rules))})
			sheet.rules = append(sheet.rules, Ruleset{Selectors: sels, Declarations: decls})
		case css.BeginAtRuleGrammar, css.AtRuleGrammar:
			txt, err := decodeAtRule(p, gt, data)
			if err != nil {
				return nil, err
			}
			sheet.items = append(sheet.items, item{atRule: txt})
		case css.CommentGrammar, css.TokenGrammar:
			// comments and <!-- --> markers
		}
	}
}

// DecodeDeclarations parses the value of a style attribute.
func DecodeDeclarations(text string) ([]Declaration, error) {
	p := css.NewParser(parse.NewInputString(text), true)
	var decls []Declaration
	for {
		gt, _, data := p.Next()
		switch gt {
		case css.ErrorGrammar:
			if err := endOfInput(p); err != nil {
				return nil, err
			}
			return decls, nil
		case css.DeclarationGrammar, css.CustomPropertyGrammar:
			if d, ok := declaration(p, gt, data); ok {
				decls = append(decls, d)
			}
		case css.BeginAtRuleGrammar, css.AtRuleGrammar:
			return nil, fmt.Errorf("at-rule %s in a style attribute", data)
		}
	}
}
