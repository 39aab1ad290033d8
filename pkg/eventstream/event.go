package eventstream

import "time"

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeTurnPersisted is emitted after an assistant turn is persisted.
	EventTypeTurnPersisted = "answerline.turn.persisted"
)

// TurnPersistedEvent is a transport-neutral event payload for a persisted
// assistant turn.
type TurnPersistedEvent struct {
	SchemaVersion int             `json:"schema_version"`
	EventType     string          `json:"event_type"`
	EventID       string          `json:"event_id"`
	EmittedAt     time.Time       `json:"emitted_at"`
	Source        EventSource     `json:"source"`
	RequestMeta   TurnRequestMeta `json:"request_meta"`
	Turn          TurnMeta        `json:"turn"`
}

// EventSource identifies which agent and upstream produced the turn.
type EventSource struct {
	AgentName string `json:"agent_name,omitempty"`
	Provider  string `json:"provider,omitempty"`
	Model     string `json:"model,omitempty"`
}

// TurnRequestMeta captures request lifecycle metadata for the event.
type TurnRequestMeta struct {
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`
	Streaming   bool      `json:"streaming"`
	Fallback    bool      `json:"fallback"`
}

// TurnMeta identifies the persisted turn without carrying its content.
type TurnMeta struct {
	ConversationID string `json:"conversation_id"`
	TurnID         string `json:"turn_id"`
	Role           string `json:"role"`
	Seq            int    `json:"seq"`
}
