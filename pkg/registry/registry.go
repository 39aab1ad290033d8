// Package registry holds the mutable model/provider/profile catalog and
// the tool-endpoint and agent-binding tables. It is runtime configuration
// state: seeded at boot, mutated through the management API, and read on
// every agent request.
package registry

import (
	"context"

	"github.com/papercomputeco/answerline/pkg/tools"
)

// ModelProvider is an upstream LLM vendor account.
type ModelProvider struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	BaseURL string `json:"base_url"`
	APIKey  string `json:"-"`
	Enabled bool   `json:"enabled"`
}

// Model capability markers.
const (
	CapReasoningBudget = "reasoning_budget"
	CapReasoningEffort = "reasoning_effort"
	CapImageInput      = "image_input"
)

// Model is one catalog entry under a provider.
type Model struct {
	ID           string   `json:"id"`
	ProviderID   string   `json:"provider_id"`
	Name         string   `json:"name"`
	Type         string   `json:"type"` // "llm" or "embedding"
	Capabilities []string `json:"capabilities,omitempty"`
}

// HasCapability reports whether the model carries the named capability.
func (m *Model) HasCapability(name string) bool {
	for _, c := range m.Capabilities {
		if c == name {
			return true
		}
	}
	return false
}

// RuntimeProfile binds a target model to capped sampling and reasoning
// parameters. At most one profile is marked default.
type RuntimeProfile struct {
	ID              string             `json:"id"`
	Name            string             `json:"name"`
	ModelID         string             `json:"model_id"`
	Params          map[string]float64 `json:"params,omitempty"`
	ReasoningBudget int                `json:"reasoning_budget,omitempty"`
	IsDefault       bool               `json:"is_default"`
}

// AgentBinding maps an agent name to a tool endpoint, in priority order.
type AgentBinding struct {
	AgentName  string `json:"agent_name"`
	EndpointID string `json:"endpoint_id"`
	Priority   int    `json:"priority"`
	Enabled    bool   `json:"enabled"`
}

// Registry is the model/provider/profile and tool-endpoint catalog.
// It doubles as the router's endpoint resolver.
type Registry interface {
	tools.EndpointResolver

	CreateProvider(ctx context.Context, p *ModelProvider) error
	UpdateProvider(ctx context.Context, p *ModelProvider) error
	GetProvider(ctx context.Context, id string) (*ModelProvider, error)
	ListProviders(ctx context.Context) ([]*ModelProvider, error)

	// RefreshModels replaces a provider's catalog with the static
	// discovery set for its family plus any manually supplied names.
	RefreshModels(ctx context.Context, providerID string, manual []string) ([]*Model, error)
	ListModels(ctx context.Context, providerID string) ([]*Model, error)
	GetModel(ctx context.Context, id string) (*Model, error)

	CreateProfile(ctx context.Context, p *RuntimeProfile) error
	UpdateProfile(ctx context.Context, p *RuntimeProfile) error
	ListProfiles(ctx context.Context) ([]*RuntimeProfile, error)
	GetProfile(ctx context.Context, id string) (*RuntimeProfile, error)

	// ResolveProfile picks the effective profile: explicit id, else the
	// conversation's bound id, else the single default profile.
	ResolveProfile(ctx context.Context, explicitID, conversationProfileID string) (*RuntimeProfile, error)

	// ResolveModelAndProvider resolves the profile's model and its
	// provider. Returns NotFoundError when either is absent and
	// ErrProviderDisabled when the provider is switched off.
	ResolveModelAndProvider(ctx context.Context, profile *RuntimeProfile) (*Model, *ModelProvider, error)

	CreateToolEndpoint(ctx context.Context, ep *tools.Endpoint) error
	UpdateToolEndpoint(ctx context.Context, ep *tools.Endpoint) error
	DeleteToolEndpoint(ctx context.Context, id string) error
	GetToolEndpoint(ctx context.Context, id string) (*tools.Endpoint, error)
	ListToolEndpoints(ctx context.Context) ([]*tools.Endpoint, error)

	// ReplaceAgentBindings swaps the full priority-ordered binding list
	// for an agent. Every id must name a known endpoint.
	ReplaceAgentBindings(ctx context.Context, agentName string, endpointIDs []string) error
	AgentBindingToolIDs(ctx context.Context, agentName string) ([]string, error)
}
