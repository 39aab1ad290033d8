// Package llm defines the provider-agnostic request and response shapes
// shared by the provider adapters and the orchestrator. Values of these
// types are ephemeral: they are assembled per request and never persisted.
package llm

// Message is a single turn in the ordered message list sent to a provider.
type Message struct {
	Role string `json:"role"` // "user" or "assistant"
	Text string `json:"text"`
}

// Prompt is the unified request handed to a provider adapter. The adapter
// translates it into its wire format; fields the target family cannot
// express are dropped there, not here.
type Prompt struct {
	// Model is the target model name as listed in the catalog.
	Model string

	// System is the resolved system prompt. Empty means none.
	System string

	// Messages is the trimmed conversation history, oldest first,
	// ending with the current user turn.
	Messages []Message

	// Params holds capped sampling parameters keyed by their canonical
	// names (temperature, top_p, max_tokens, ...). Values the provider
	// family does not accept have already been clipped by the registry.
	Params map[string]float64

	// ReasoningEnabled asks the provider to produce thinking content.
	ReasoningEnabled bool

	// ReasoningBudget caps reasoning tokens. Zero means provider default.
	ReasoningBudget int

	// ShowReasoning controls whether reasoning text is surfaced to the
	// caller. Adapters collect reasoning content only when this is set.
	ShowReasoning bool
}

// Param returns the named sampling parameter and whether it was set.
func (p *Prompt) Param(name string) (float64, bool) {
	v, ok := p.Params[name]
	return v, ok
}
