package config

const (
	defaultAPIListen = ":8080"

	defaultContextLimit     = 12
	defaultMaxParallelTools = 3
	defaultToolTimeoutMs    = 8000

	defaultKafkaTopic = "answerline.turns"

	defaultAPITarget = "http://localhost:8080"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Agent: AgentConfig{
			ContextLimit:     defaultContextLimit,
			MaxParallelTools: defaultMaxParallelTools,
			ToolTimeoutMs:    defaultToolTimeoutMs,
		},
		EventStream: EventStreamConfig{
			KafkaTopic: defaultKafkaTopic,
		},
		Client: ClientConfig{
			APITarget: defaultAPITarget,
		},
	}
}
