package llm

// Stream event types emitted by provider adapters during streaming.
const (
	EventMessage   = "message"
	EventReasoning = "reasoning"
)

// StreamEvent is one incremental fragment parsed from a provider stream.
type StreamEvent struct {
	// Type is EventMessage or EventReasoning.
	Type string `json:"type"`

	// Text is the incremental fragment, forwarded verbatim.
	Text string `json:"text"`
}
