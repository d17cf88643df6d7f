package filters

import "aiproxy/internal/model"

// PromptFilter defines a textual transform applied to composed system
// prompts when its toggle is enabled in the prompt configuration.
type PromptFilter interface {
	// Name returns the filter name for logging
	Name() string
	// Enabled checks whether this filter is switched on
	Enabled(cfg *model.PromptConfig) bool
	// Apply transforms the prompt text, returns new text and whether it was changed
	Apply(text string) (string, bool)
}

var registry []PromptFilter

// Register adds a filter to the chain. Filters run in registration order.
func Register(filter PromptFilter) {
	registry = append(registry, filter)
}

// ApplyFilters runs every enabled filter over the prompt text.
func ApplyFilters(cfg *model.PromptConfig, text string) string {
	result := text
	for _, f := range registry {
		if !f.Enabled(cfg) {
			continue
		}
		newText, changed := f.Apply(result)
		if changed {
			result = newText
		}
	}
	return result
}
