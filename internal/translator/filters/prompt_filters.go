package filters

import (
	"regexp"
	"strings"

	"aiproxy/internal/model"
)

// VendorReferenceFilter strips sentences that name the AI vendor or model
// family, so a rebranded deployment does not leak the underlying vendor.
type VendorReferenceFilter struct{}

var vendorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)[^.!?\n]*\b(?:Anthropic|OpenAI|Claude|GPT-[0-9][\w.-]*|ChatGPT)\b[^.!?\n]*[.!?]?`),
	regexp.MustCompile(`(?i)\b(?:as an AI(?: language model| assistant)?|I am an AI(?: language model| assistant)?)\b[,.]?\s*`),
}

func (f *VendorReferenceFilter) Name() string {
	return "remove_vendor_references"
}

func (f *VendorReferenceFilter) Enabled(cfg *model.PromptConfig) bool {
	return cfg.RemoveAIReferences
}

func (f *VendorReferenceFilter) Apply(text string) (string, bool) {
	result := text
	for _, p := range vendorPatterns {
		result = p.ReplaceAllString(result, "")
	}
	if result == text {
		return text, false
	}
	return collapseBlankLines(result), true
}

// DefensiveRestrictionFilter strips boilerplate refusal and hedging
// sentences from the prompt text.
type DefensiveRestrictionFilter struct{}

var defensivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)[^.!?\n]*\b(?:I (?:cannot|can't|won't|will not|am (?:not able|unable) to) (?:assist|help|provide|comply|do that)|I must (?:decline|refuse))\b[^.!?\n]*[.!?]?`),
	regexp.MustCompile(`(?i)[^.!?\n]*\bfor (?:safety|ethical|legal) reasons\b[^.!?\n]*[.!?]?`),
	regexp.MustCompile(`(?i)[^.!?\n]*\b(?:it would (?:not )?be (?:in)?appropriate|I'm not (?:comfortable|able) to)\b[^.!?\n]*[.!?]?`),
}

func (f *DefensiveRestrictionFilter) Name() string {
	return "remove_defensive_restrictions"
}

func (f *DefensiveRestrictionFilter) Enabled(cfg *model.PromptConfig) bool {
	return cfg.RemoveDefensiveRestrictions
}

func (f *DefensiveRestrictionFilter) Apply(text string) (string, bool) {
	result := text
	for _, p := range defensivePatterns {
		result = p.ReplaceAllString(result, "")
	}
	if result == text {
		return text, false
	}
	return collapseBlankLines(result), true
}

var blankRuns = regexp.MustCompile(`\n{3,}`)

func collapseBlankLines(text string) string {
	text = blankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func init() {
	Register(&VendorReferenceFilter{})
	Register(&DefensiveRestrictionFilter{})
}
