// Package inlinestyles moves the rules of embedded style elements into the
// style attributes of the elements they match.
//
// Selectors are applied from the least to the most specific one, selectors of
// equal specificity in source order. Declarations already present in a style
// attribute are kept after the merged ones and take precedence. Merged
// selectors are removed from their stylesheet; rulesets and style elements
// left empty are removed from the document.
package inlinestyles
