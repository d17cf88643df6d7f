package gateway

import (
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"aiproxy/internal/model"
)

// Model tiers. Requested model names are classified by marker substrings
// and looked up in the provider's per-tier mapping.
const (
	TierHaiku  = "haiku"
	TierSonnet = "sonnet"
	TierOpus   = "opus"
)

var tierMarkers = []struct {
	marker string
	tier   string
}{
	{"haiku", TierHaiku},
	{"mini", TierHaiku},
	{"flash", TierHaiku},
	{"lite", TierHaiku},
	{"sonnet", TierSonnet},
	{"opus", TierOpus},
}

// ClassifyTier maps a requested model name to a tier, or "" when no marker
// matches.
func ClassifyTier(requestedModel string) string {
	lower := strings.ToLower(requestedModel)
	for _, m := range tierMarkers {
		if strings.Contains(lower, m.marker) {
			return m.tier
		}
	}
	return ""
}

// MapModel resolves the upstream model for a requested model name.
// Resolution order: exact override, tier mapping, provider default.
// The lookup is deterministic and never mutates the provider.
func MapModel(p *model.Provider, requestedModel string) (string, *GatewayError) {
	if requestedModel != "" && p.ModelOverrideJSON != "" {
		if v := gjson.Get(p.ModelOverrideJSON, escapeGjsonKey(requestedModel)); v.Exists() && v.String() != "" {
			log.Debugf("model mapper: override %s -> %s", requestedModel, v.String())
			return v.String(), nil
		}
	}

	if tier := ClassifyTier(requestedModel); tier != "" && p.TierMappingJSON != "" {
		if v := gjson.Get(p.TierMappingJSON, tier); v.Exists() && v.String() != "" {
			log.Debugf("model mapper: tier %s (%s) -> %s", requestedModel, tier, v.String())
			return v.String(), nil
		}
	}

	if p.DefaultModel != "" {
		return p.DefaultModel, nil
	}

	return "", NewGatewayError(ErrKindUnresolvedModel,
		"no model mapping or default model for \""+requestedModel+"\" on provider "+p.Name)
}

// escapeGjsonKey escapes dots so model ids like claude-3.5 match literal
// JSON keys instead of being treated as a path.
func escapeGjsonKey(key string) string {
	return strings.ReplaceAll(key, ".", `\.`)
}
