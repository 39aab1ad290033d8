package registry

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/papercomputeco/answerline/pkg/tools"
)

// discoveryByFamily is the static model-discovery table applied by
// RefreshModels, keyed by normalized provider family.
var discoveryByFamily = map[string][]Model{
	"gemini": {
		{Name: "gemini-2.0-flash", Type: "llm", Capabilities: []string{CapReasoningBudget, CapImageInput}},
		{Name: "gemini-2.0-pro", Type: "llm", Capabilities: []string{CapReasoningBudget, CapImageInput}},
		{Name: "text-embedding-004", Type: "embedding"},
	},
	"deepseek": {
		{Name: "deepseek-chat", Type: "llm", Capabilities: []string{CapReasoningEffort}},
		{Name: "deepseek-reasoner", Type: "llm", Capabilities: []string{CapReasoningEffort}},
	},
}

// MemoryRegistry implements Registry with mutex-guarded maps.
type MemoryRegistry struct {
	mu        sync.RWMutex
	providers map[string]*ModelProvider
	models    map[string]*Model
	profiles  map[string]*RuntimeProfile
	endpoints map[string]*tools.Endpoint
	bindings  map[string][]AgentBinding // keyed by agent name, priority order
}

// NewMemoryRegistry creates an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		providers: make(map[string]*ModelProvider),
		models:    make(map[string]*Model),
		profiles:  make(map[string]*RuntimeProfile),
		endpoints: make(map[string]*tools.Endpoint),
		bindings:  make(map[string][]AgentBinding),
	}
}

func (r *MemoryRegistry) CreateProvider(_ context.Context, p *ModelProvider) error {
	if p == nil {
		return errors.New("cannot store nil provider")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.providers {
		if existing.Name == p.Name {
			return ErrDuplicateName
		}
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	stored := *p
	r.providers[p.ID] = &stored
	return nil
}

func (r *MemoryRegistry) UpdateProvider(_ context.Context, p *ModelProvider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.providers[p.ID]; !ok {
		return NotFoundError{Kind: "provider", ID: p.ID}
	}
	stored := *p
	r.providers[p.ID] = &stored
	return nil
}

func (r *MemoryRegistry) GetProvider(_ context.Context, id string) (*ModelProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[id]
	if !ok {
		return nil, NotFoundError{Kind: "provider", ID: id}
	}
	copied := *p
	return &copied, nil
}

func (r *MemoryRegistry) ListProviders(_ context.Context) ([]*ModelProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*ModelProvider, 0, len(r.providers))
	for _, p := range r.providers {
		copied := *p
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r *MemoryRegistry) RefreshModels(_ context.Context, providerID string, manual []string) ([]*Model, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	provider, ok := r.providers[providerID]
	if !ok {
		return nil, NotFoundError{Kind: "provider", ID: providerID}
	}

	// Replace the provider's whole catalog.
	for id, m := range r.models {
		if m.ProviderID == providerID {
			delete(r.models, id)
		}
	}

	discovered := make([]Model, 0)
	discovered = append(discovered, discoveryByFamily[normalizeProviderName(provider.Name)]...)
	for _, name := range manual {
		discovered = append(discovered, Model{Name: name, Type: "llm"})
	}
	if len(discovered) == 0 {
		discovered = append(discovered, Model{Name: "custom-model", Type: "llm"})
	}

	result := make([]*Model, 0, len(discovered))
	for _, m := range discovered {
		m.ID = uuid.NewString()
		m.ProviderID = providerID
		stored := m
		r.models[m.ID] = &stored
		copied := m
		result = append(result, &copied)
	}
	return result, nil
}

func (r *MemoryRegistry) ListModels(_ context.Context, providerID string) ([]*Model, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Model, 0)
	for _, m := range r.models {
		if providerID != "" && m.ProviderID != providerID {
			continue
		}
		copied := *m
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r *MemoryRegistry) GetModel(_ context.Context, id string) (*Model, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.models[id]
	if !ok {
		return nil, NotFoundError{Kind: "model", ID: id}
	}
	copied := *m
	return &copied, nil
}

func (r *MemoryRegistry) CreateProfile(_ context.Context, p *RuntimeProfile) error {
	if p == nil {
		return errors.New("cannot store nil profile")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.profiles {
		if existing.Name == p.Name {
			return ErrDuplicateName
		}
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.Params = r.clipForModelLocked(p.ModelID, p.Params)
	if p.IsDefault {
		r.clearDefaultLocked(p.ID)
	}
	stored := *p
	r.profiles[p.ID] = &stored
	return nil
}

func (r *MemoryRegistry) UpdateProfile(_ context.Context, p *RuntimeProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.profiles[p.ID]; !ok {
		return NotFoundError{Kind: "profile", ID: p.ID}
	}
	for _, existing := range r.profiles {
		if existing.Name == p.Name && existing.ID != p.ID {
			return ErrDuplicateName
		}
	}
	p.Params = r.clipForModelLocked(p.ModelID, p.Params)
	if p.IsDefault {
		r.clearDefaultLocked(p.ID)
	}
	stored := *p
	r.profiles[p.ID] = &stored
	return nil
}

func (r *MemoryRegistry) ListProfiles(_ context.Context) ([]*RuntimeProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*RuntimeProfile, 0, len(r.profiles))
	for _, p := range r.profiles {
		copied := *p
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r *MemoryRegistry) GetProfile(_ context.Context, id string) (*RuntimeProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[id]
	if !ok {
		return nil, NotFoundError{Kind: "profile", ID: id}
	}
	copied := *p
	return &copied, nil
}

func (r *MemoryRegistry) ResolveProfile(ctx context.Context, explicitID, conversationProfileID string) (*RuntimeProfile, error) {
	if explicitID != "" {
		return r.GetProfile(ctx, explicitID)
	}
	if conversationProfileID != "" {
		return r.GetProfile(ctx, conversationProfileID)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.profiles {
		if p.IsDefault {
			copied := *p
			return &copied, nil
		}
	}
	return nil, NotFoundError{Kind: "profile"}
}

func (r *MemoryRegistry) ResolveModelAndProvider(ctx context.Context, profile *RuntimeProfile) (*Model, *ModelProvider, error) {
	model, err := r.GetModel(ctx, profile.ModelID)
	if err != nil {
		return nil, nil, err
	}
	provider, err := r.GetProvider(ctx, model.ProviderID)
	if err != nil {
		return nil, nil, err
	}
	if !provider.Enabled {
		return nil, nil, ErrProviderDisabled
	}
	return model, provider, nil
}

func (r *MemoryRegistry) CreateToolEndpoint(_ context.Context, ep *tools.Endpoint) error {
	if ep == nil {
		return errors.New("cannot store nil endpoint")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.endpoints {
		if existing.Name == ep.Name {
			return ErrDuplicateName
		}
	}
	if ep.ID == "" {
		ep.ID = uuid.NewString()
	}
	stored := *ep
	r.endpoints[ep.ID] = &stored
	return nil
}

func (r *MemoryRegistry) UpdateToolEndpoint(_ context.Context, ep *tools.Endpoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.endpoints[ep.ID]; !ok {
		return NotFoundError{Kind: "endpoint", ID: ep.ID}
	}
	stored := *ep
	r.endpoints[ep.ID] = &stored
	return nil
}

func (r *MemoryRegistry) DeleteToolEndpoint(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.endpoints[id]; !ok {
		return NotFoundError{Kind: "endpoint", ID: id}
	}
	delete(r.endpoints, id)

	// Bindings referencing the endpoint go with it.
	for agent, bindings := range r.bindings {
		kept := bindings[:0]
		for _, b := range bindings {
			if b.EndpointID != id {
				kept = append(kept, b)
			}
		}
		r.bindings[agent] = kept
	}
	return nil
}

func (r *MemoryRegistry) GetToolEndpoint(_ context.Context, id string) (*tools.Endpoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ep, ok := r.endpoints[id]
	if !ok {
		return nil, NotFoundError{Kind: "endpoint", ID: id}
	}
	copied := *ep
	return &copied, nil
}

func (r *MemoryRegistry) ListToolEndpoints(_ context.Context) ([]*tools.Endpoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*tools.Endpoint, 0, len(r.endpoints))
	for _, ep := range r.endpoints {
		copied := *ep
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// EnabledEndpoint implements tools.EndpointResolver.
func (r *MemoryRegistry) EnabledEndpoint(_ context.Context, id string) (tools.Endpoint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ep, ok := r.endpoints[id]
	if !ok || !ep.Enabled {
		return tools.Endpoint{}, false
	}
	return *ep, true
}

func (r *MemoryRegistry) ReplaceAgentBindings(_ context.Context, agentName string, endpointIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range endpointIDs {
		if _, ok := r.endpoints[id]; !ok {
			return NotFoundError{Kind: "endpoint", ID: id}
		}
	}

	bindings := make([]AgentBinding, 0, len(endpointIDs))
	for i, id := range endpointIDs {
		bindings = append(bindings, AgentBinding{
			AgentName:  agentName,
			EndpointID: id,
			Priority:   i,
			Enabled:    true,
		})
	}
	r.bindings[agentName] = bindings
	return nil
}

func (r *MemoryRegistry) AgentBindingToolIDs(_ context.Context, agentName string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bindings := r.bindings[agentName]
	ids := make([]string, 0, len(bindings))
	for _, b := range bindings {
		if b.Enabled {
			ids = append(ids, b.EndpointID)
		}
	}
	return ids, nil
}

// clearDefaultLocked unsets IsDefault on every profile except keepID.
// Caller holds the write lock.
func (r *MemoryRegistry) clearDefaultLocked(keepID string) {
	for _, p := range r.profiles {
		if p.ID != keepID {
			p.IsDefault = false
		}
	}
}

// clipForModelLocked clips params against the provider family owning the
// profile's model. Caller holds the write lock.
func (r *MemoryRegistry) clipForModelLocked(modelID string, params map[string]float64) map[string]float64 {
	model, ok := r.models[modelID]
	if !ok {
		return params
	}
	provider, ok := r.providers[model.ProviderID]
	if !ok {
		return params
	}
	return ClipParams(provider.Name, params)
}
