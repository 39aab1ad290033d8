// Package provider defines the adapter interface between the unified
// prompt shape and the two provider wire-format families, plus the
// classifier that picks a family for a configured provider.
package provider

import (
	"github.com/papercomputeco/answerline/pkg/llm"
	"github.com/papercomputeco/answerline/pkg/llm/provider/chatcompat"
	"github.com/papercomputeco/answerline/pkg/llm/provider/genai"
)

// Provider translates unified prompts to one wire-format family and
// parses that family's responses back into the unified shape.
type Provider interface {
	// Name returns the canonical family name ("chatcompat" or "genai").
	Name() string

	// BuildRequest marshals the prompt into the family's request payload
	// and returns it with the endpoint path relative to the provider's
	// base URL (e.g. "/chat/completions").
	BuildRequest(p *llm.Prompt, stream bool) (payload []byte, path string, err error)

	// ParseResponse parses a non-stream response body. Reasoning content
	// is collected only when showReasoning is set. Returns
	// llm.ErrEmptyAnswer when the expected answer field is absent or blank.
	ParseResponse(body []byte, showReasoning bool) (*llm.Result, error)

	// ParseStreamData parses the data payload of one SSE frame into zero
	// or more incremental events. Control frames and frames without
	// usable deltas yield (nil, nil) and are skipped by the caller.
	ParseStreamData(data []byte, showReasoning bool) ([]llm.StreamEvent, error)
}

// ForModel returns the adapter serving the given provider/model pair.
func ForModel(providerName, modelName string) Provider {
	switch Classify(providerName, modelName) {
	case FamilyGenAI:
		return genai.New()
	default:
		return chatcompat.New(chatcompat.DetectDialect(providerName, modelName))
	}
}
