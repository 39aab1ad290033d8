package registry

import "strings"

// allowedParamsByFamily caps which sampling keys a provider family
// accepts. Families not listed pass parameters through unchanged.
var allowedParamsByFamily = map[string]map[string]bool{
	"gemini": {
		"temperature":      true,
		"top_p":            true,
		"max_tokens":       true,
		"reasoning_budget": true,
	},
	"deepseek": {
		"temperature":      true,
		"top_p":            true,
		"max_tokens":       true,
		"reasoning_effort": true,
	},
}

// normalizeProviderName collapses vendor naming variants onto the
// family keys used by the param table.
func normalizeProviderName(name string) string {
	lowered := strings.ToLower(strings.TrimSpace(name))
	switch {
	case strings.Contains(lowered, "gemini"), strings.Contains(lowered, "google"):
		return "gemini"
	case strings.Contains(lowered, "deepseek"):
		return "deepseek"
	default:
		return lowered
	}
}

// ClipParams drops parameters the provider's family does not accept.
// Unknown families keep their params untouched.
func ClipParams(providerName string, params map[string]float64) map[string]float64 {
	allowed, ok := allowedParamsByFamily[normalizeProviderName(providerName)]
	if !ok {
		return params
	}

	clipped := make(map[string]float64, len(params))
	for k, v := range params {
		if allowed[k] {
			clipped[k] = v
		}
	}
	return clipped
}
