package inlinestyles

import (
	"cmp"
	"slices"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Inliner moves the rules of a document's style elements into the style
// attributes of the elements they match.
type Inliner struct {
	Options    Options
	Matcher    Matcher
	Comparator Comparator
	Log        *zap.Logger
}

// New returns an Inliner with the cascadia based matcher and comparator and
// a logger that discards everything.
func New(opts Options) *Inliner {
	return &Inliner{
		Options:    opts,
		Matcher:    NewMatcher(),
		Comparator: NewComparator(),
		Log:        zap.NewNop(),
	}
}

// Report summarizes a run of Apply.
type Report struct {
	Blocks      int // non-empty style elements
	Selectors   int // selectors extracted from them
	Inlined     int // selectors merged into at least one element
	Shared      int // selectors skipped because they matched more than once
	Unmatched   int // selectors without any match
	Unsupported int // selectors the matcher could not compile
	Elements    int // distinct elements whose style attribute was written
	Removed     int // style elements removed from the document
}

// styleBlock is a style element together with its decoded text.
type styleBlock struct {
	owner *goquery.Selection
	sheet *Stylesheet
}

// selectorRecord is one selector of one ruleset. seq is the position in
// extraction order and breaks ties between equally specific selectors.
type selectorRecord struct {
	seq   int
	text  string
	block int
	ref   SelectorRef
}

func (in *Inliner) logger() *zap.Logger {
	if in.Log == nil {
		return zap.NewNop()
	}
	return in.Log.Named("inline")
}

// Apply merges the style elements of doc into the style attributes of the
// matched elements and removes what has been merged. The document is changed
// in place. Errors leave the document in an undefined state.
func (in *Inliner) Apply(doc *goquery.Document) (Report, error) {
	var rpt Report
	log := in.logger()

	blocks, err := collectStyleBlocks(doc)
	if err != nil {
		return rpt, err
	}
	rpt.Blocks = len(blocks)

	records := extractSelectors(blocks)
	rpt.Selectors = len(records)
	log.Debug("Collected style elements", zap.Int("blocks", rpt.Blocks), zap.Int("selectors", rpt.Selectors))

	in.sortBySpecificity(records)

	if err = in.merge(doc, blocks, records, &rpt); err != nil {
		return rpt, err
	}

	if rpt.Removed, err = cleanup(blocks, log); err != nil {
		return rpt, err
	}
	log.Debug("Inlining done",
		zap.Int("inlined", rpt.Inlined),
		zap.Int("shared", rpt.Shared),
		zap.Int("unmatched", rpt.Unmatched),
		zap.Int("unsupported", rpt.Unsupported),
		zap.Int("elements", rpt.Elements),
		zap.Int("removed", rpt.Removed))
	return rpt, nil
}

// collectStyleBlocks decodes all style elements with text content in
// document order.
func collectStyleBlocks(doc *goquery.Document) ([]styleBlock, error) {
	var (
		blocks  []styleBlock
		errcond error
	)
	doc.Find("style").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		text := sel.Text()
		if text == "" {
			return true
		}
		sheet, err := Decode(text)
		if err != nil {
			errcond = &ParseError{Block: i, Err: err}
			return false
		}
		blocks = append(blocks, styleBlock{owner: sel, sheet: sheet})
		return true
	})
	if errcond != nil {
		return nil, errcond
	}
	return blocks, nil
}

// extractSelectors lists every selector of every top level ruleset: blocks in
// document order, rulesets in source order, selectors in group order.
func extractSelectors(blocks []styleBlock) []selectorRecord {
	var records []selectorRecord
	for b, block := range blocks {
		for _, id := range block.sheet.Rules() {
			for _, ref := range block.sheet.SelectorRefs(id) {
				records = append(records, selectorRecord{
					seq:   len(records),
					text:  block.sheet.SelectorText(ref),
					block: b,
					ref:   ref,
				})
			}
		}
	}
	return records
}

// sortBySpecificity orders the records from the least to the most specific
// selector.
func (in *Inliner) sortBySpecificity(records []selectorRecord) {
	slices.SortStableFunc(records, func(a, b selectorRecord) int {
		if c := in.Comparator.Compare(a.text, b.text); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})
}

// merge applies the records in order.
func (in *Inliner) merge(doc *goquery.Document, blocks []styleBlock, records []selectorRecord, rpt *Report) error {
	log := in.logger()
	root := doc.Get(0)
	styled := make(map[*html.Node]struct{})
	defer func() { rpt.Elements = len(styled) }()
	for _, rec := range records {
		sheet := blocks[rec.block].sheet
		matched, err := in.Matcher.Match(rec.text, root)
		if err != nil {
			log.Debug("Selector not supported, kept", zap.Stringer("selector", rec), zap.Error(err))
			rpt.Unsupported++
			continue
		}
		if len(matched) == 0 {
			rpt.Unmatched++
			continue
		}
		if in.Options.OnlyMatchedOnce && len(matched) > 1 {
			log.Debug("Selector matches more than once, kept", zap.Stringer("selector", rec), zap.Int("matches", len(matched)))
			rpt.Shared++
			continue
		}

		decls := sheet.Ruleset(rec.ref.Rule).Declarations
		var errcond error
		doc.FindNodes(matched...).EachWithBreak(func(_ int, el *goquery.Selection) bool {
			if errcond = mergeStyleAttr(el, decls); errcond != nil {
				return false
			}
			styled[el.Get(0)] = struct{}{}
			return true
		})
		if errcond != nil {
			return errcond
		}
		rpt.Inlined++

		if in.Options.RemoveMatchedSelectors {
			sheet.RemoveSelector(rec.ref)
		}
	}
	return nil
}

// mergeStyleAttr writes decls followed by the element's own declarations
// into its style attribute, see MergeDeclarations.
func mergeStyleAttr(el *goquery.Selection, decls []Declaration) error {
	var own []Declaration
	if style, ok := el.Attr("style"); ok {
		var err error
		if own, err = DecodeDeclarations(style); err != nil {
			return &ParseError{Block: -1, Err: err}
		}
	}
	el.SetAttr("style", EncodeDeclarations(MergeDeclarations(decls, own)))
	return nil
}

// cleanupStep is the planned change for a single style block.
type cleanupStep struct {
	block  int
	drop   []RuleID
	detach bool
}

// cleanup removes rulesets without selectors and style elements without
// rules and rewrites the text of the remaining style elements. The changes
// are planned for all blocks first and applied afterwards.
func cleanup(blocks []styleBlock, log *zap.Logger) (int, error) {
	plan := make([]cleanupStep, 0, len(blocks))
	for i, b := range blocks {
		drop := b.sheet.EmptyRules()
		plan = append(plan, cleanupStep{
			block:  i,
			drop:   drop,
			detach: len(drop) == b.sheet.Len(),
		})
	}

	removed := 0
	for _, step := range plan {
		b := blocks[step.block]
		b.sheet.DropRules(step.drop)
		if step.detach {
			log.Debug("Removing exhausted style element", zap.Int("block", step.block))
			b.owner.Remove()
			removed++
			continue
		}
		text, err := b.sheet.Encode()
		if err != nil {
			return removed, err
		}
		log.Debug("Rewriting style element", zap.Int("block", step.block), zap.Stringer("stylesheet", b.sheet))
		setText(b.owner, text)
	}
	return removed, nil
}
