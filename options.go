package inlinestyles

// Options controls which selectors get inlined.
type Options struct {
	// OnlyMatchedOnce skips selectors that match more than one element. Those
	// stay in the stylesheet and nothing is merged for them.
	OnlyMatchedOnce bool `yaml:"only_matched_once"`
	// RemoveMatchedSelectors deletes a selector from its stylesheet once it
	// has been merged into at least one element.
	RemoveMatchedSelectors bool `yaml:"remove_matched_selectors"`
}

// DefaultOptions returns the options with both switches enabled.
func DefaultOptions() Options {
	return Options{
		OnlyMatchedOnce:        true,
		RemoveMatchedSelectors: true,
	}
}
