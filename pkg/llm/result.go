package llm

// Result is the unified non-stream outcome of a provider call.
type Result struct {
	// AnswerText is the assistant's reply. Non-empty on success; an
	// empty answer is treated as an upstream failure by the caller.
	AnswerText string

	// ReasoningText is provider-supplied thinking content. Empty unless
	// the conversation has reasoning display enabled.
	ReasoningText string
}
