package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent answerline configuration stored as
// config.toml in the .answerline/ directory. The TOML layout uses sections
// for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	API         APIConfig         `toml:"api"`
	Agent       AgentConfig       `toml:"agent"`
	EventStream EventStreamConfig `toml:"eventstream"`
	Client      ClientConfig      `toml:"client"`
}

// StorageConfig holds conversation store settings.
type StorageConfig struct {
	SQLitePath string `toml:"sqlite_path,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// AgentConfig holds context assembly and tool routing settings.
type AgentConfig struct {
	ContextLimit     int `toml:"context_limit,omitempty"`
	MaxParallelTools int `toml:"max_parallel_tools,omitempty"`
	ToolTimeoutMs    int `toml:"tool_timeout_ms,omitempty"`
}

// EventStreamConfig holds turn event publishing settings. Brokers is a
// comma-separated list; an empty list disables publishing.
type EventStreamConfig struct {
	KafkaBrokers string `toml:"kafka_brokers,omitempty"`
	KafkaTopic   string `toml:"kafka_topic,omitempty"`
}

// ClientConfig holds settings for CLI commands that talk to a running
// answerline server.
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
	"agent.context_limit": {
		get: func(c *Config) string { return strconv.Itoa(c.Agent.ContextLimit) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for agent.context_limit: %w", err)
			}
			c.Agent.ContextLimit = n
			return nil
		},
	},
	"agent.max_parallel_tools": {
		get: func(c *Config) string { return strconv.Itoa(c.Agent.MaxParallelTools) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for agent.max_parallel_tools: %w", err)
			}
			c.Agent.MaxParallelTools = n
			return nil
		},
	},
	"agent.tool_timeout_ms": {
		get: func(c *Config) string { return strconv.Itoa(c.Agent.ToolTimeoutMs) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for agent.tool_timeout_ms: %w", err)
			}
			c.Agent.ToolTimeoutMs = n
			return nil
		},
	},
	"eventstream.kafka_brokers": {
		get: func(c *Config) string { return c.EventStream.KafkaBrokers },
		set: func(c *Config, v string) error { c.EventStream.KafkaBrokers = v; return nil },
	},
	"eventstream.kafka_topic": {
		get: func(c *Config) string { return c.EventStream.KafkaTopic },
		set: func(c *Config, v string) error { c.EventStream.KafkaTopic = v; return nil },
	},
	"client.api_target": {
		get: func(c *Config) string { return c.Client.APITarget },
		set: func(c *Config, v string) error { c.Client.APITarget = v; return nil },
	},
}
