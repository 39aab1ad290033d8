// Package api provides the HTTP surface: the agent answer endpoints and
// the management endpoints for conversations, tool endpoints, providers,
// models, and runtime profiles.
package api

import "time"

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	// DefaultToolTimeout is applied to tool endpoints created without an
	// explicit timeout_ms.
	DefaultToolTimeout time.Duration
}
