package inlinestyles

import "fmt"

// ParseError is returned when the text of a style element or a style
// attribute is not valid CSS.
type ParseError struct {
	// Block is the document order index of the style element, -1 for a style
	// attribute.
	Block int
	Err   error
}

func (e *ParseError) Error() string {
	if e.Block < 0 {
		return fmt.Sprintf("inline style: %v", e.Err)
	}
	return fmt.Sprintf("style element %d: %v", e.Block, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// SerializationError signals a stylesheet that cannot be encoded because its
// rulesets are in an inconsistent state.
type SerializationError struct {
	Rule   RuleID
	Reason string
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("cannot encode ruleset %d: %s", e.Rule, e.Reason)
}
