package gateway

import (
	"strings"

	"aiproxy/internal/model"
	"aiproxy/internal/translator/filters"
)

// Placeholder tokens recognized in custom prompt templates. Unresolved
// tokens render as empty strings, never as errors.
const (
	PlaceholderSystemName   = "{{SYSTEM_NAME}}"
	PlaceholderModelName    = "{{MODEL_NAME}}"
	PlaceholderEnvironment  = "{{ENVIRONMENT_INFO}}"
	PlaceholderModelInfo    = "{{MODEL_INFO}}"
	PlaceholderTooling      = "{{TOOLING_INSTRUCTIONS}}"
	PlaceholderCallerPrompt = "{{CALLER_PROMPT}}"
)

// PromptContext carries per-request values for placeholder substitution.
// Fields are extracted from the caller's request on a best-effort basis.
type PromptContext struct {
	ModelName       string
	EnvironmentInfo string
	ModelInfo       string
	ToolingInfo     string
}

// ComposeSystemPrompt builds the effective system prompt for one request.
// With the custom prompt disabled, or when the caller's alias selects the
// standard variant, the caller's prompt passes through untouched.
func ComposeSystemPrompt(cfg *model.PromptConfig, variant model.PromptVariant, callerPrompt string, pctx PromptContext) string {
	if variant != model.PromptVariantCustom || !cfg.UseCustomPrompt || cfg.PromptTemplate == "" {
		return callerPrompt
	}

	modelName := pctx.ModelName
	if cfg.ModelNameOverride != "" {
		modelName = cfg.ModelNameOverride
	}

	r := strings.NewReplacer(
		PlaceholderSystemName, cfg.SystemName,
		PlaceholderModelName, modelName,
		PlaceholderEnvironment, pctx.EnvironmentInfo,
		PlaceholderModelInfo, pctx.ModelInfo,
		PlaceholderTooling, pctx.ToolingInfo,
		PlaceholderCallerPrompt, callerPrompt,
	)
	composed := r.Replace(cfg.PromptTemplate)

	return filters.ApplyFilters(cfg, composed)
}
