// Package answer is the orchestrator: it composes context assembly,
// profile resolution, the provider adapters, and the conversation store
// into the two public operations, Answer and AnswerStream, and owns the
// fallback policy that keeps the system answering when no usable LLM
// configuration exists.
package answer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/answerline/pkg/assemble"
	"github.com/papercomputeco/answerline/pkg/chatstore"
	"github.com/papercomputeco/answerline/pkg/eventstream"
	"github.com/papercomputeco/answerline/pkg/llm"
	"github.com/papercomputeco/answerline/pkg/llm/provider"
	"github.com/papercomputeco/answerline/pkg/registry"
	"github.com/papercomputeco/answerline/pkg/tools"
)

const (
	// DefaultAgentName is used when a request names no agent.
	DefaultAgentName = "qa"

	// providerTimeout bounds one provider call, stream or not.
	providerTimeout = 5 * time.Minute

	// emptyAnswerPlaceholder is persisted instead of a blank assistant turn.
	emptyAnswerPlaceholder = "(no content)"

	fallbackTemplate = "Received your question: %s\n" +
		"Context messages: %d, attachment excerpts: %d, tool results: %d.\n" +
		"Answered by the local fallback chain; no runtime profile is configured."
)

// Request is one agent invocation.
type Request struct {
	ConversationID   string    `json:"conversation_id"`
	OwnerID          string    `json:"owner_id"`
	AgentName        string    `json:"agent_name"`
	Query            string    `json:"query"`
	BackgroundPrompt string    `json:"background_prompt"`
	AttachmentIDs    []string  `json:"attachment_ids"`
	ToolIDs          *[]string `json:"tool_ids"`
	RuntimeProfileID string    `json:"runtime_profile_id"`
}

// Response is the non-stream answer envelope.
type Response struct {
	Answer             string                   `json:"answer"`
	Reasoning          string                   `json:"reasoning,omitempty"`
	AssistantTurnID    string                   `json:"assistant_turn_id"`
	ToolResults        []tools.InvocationResult `json:"tool_results"`
	ToolWarnings       []string                 `json:"tool_warnings"`
	ContextMessages    int                      `json:"context_messages"`
	AttachmentExcerpts int                      `json:"attachment_excerpts"`
	Fallback           bool                     `json:"fallback"`
}

// Orchestrator drives one request through assembly, provider selection,
// the provider call, and persistence.
type Orchestrator struct {
	assembler *assemble.Assembler
	registry  registry.Registry
	store     chatstore.Store
	events    eventstream.Publisher
	client    *http.Client
	logger    *zap.Logger
}

// New creates an Orchestrator.
func New(asm *assemble.Assembler, reg registry.Registry, store chatstore.Store, events eventstream.Publisher, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		assembler: asm,
		registry:  reg,
		store:     store,
		events:    events,
		client:    &http.Client{Timeout: providerTimeout},
		logger:    logger,
	}
}

// upstream bundles everything needed for one provider call.
type upstream struct {
	profile  *registry.RuntimeProfile
	model    *registry.Model
	provider *registry.ModelProvider
	adapter  provider.Provider
	prompt   *llm.Prompt
}

// Answer runs the non-stream path. The assistant turn is persisted only
// after a definite outcome; fatal provider errors leave the turn log at
// the already-appended user turn.
func (o *Orchestrator) Answer(ctx context.Context, req Request) (*Response, error) {
	started := time.Now()
	req = normalize(req)

	actx, err := o.assembler.Prepare(ctx, prepareInput(req))
	if err != nil {
		return nil, err
	}

	up, err := o.resolveUpstream(ctx, req, actx)
	if err != nil {
		if isRecoverable(err) {
			return o.fallback(ctx, req, actx, started, false, nil)
		}
		return nil, err
	}

	result, err := o.callProvider(ctx, up)
	if err != nil {
		return nil, err
	}

	turn, err := o.store.AppendTurn(ctx, actx.Conversation.ID, chatstore.RoleAssistant, result.AnswerText, result.ReasoningText)
	if err != nil {
		return nil, fmt.Errorf("appending assistant turn: %w", err)
	}
	o.publishTurn(ctx, req, up, turn, started, false, false)

	return &Response{
		Answer:             result.AnswerText,
		Reasoning:          result.ReasoningText,
		AssistantTurnID:    turn.ID,
		ToolResults:        actx.ToolResults,
		ToolWarnings:       actx.ToolWarnings,
		ContextMessages:    actx.HistoryCount,
		AttachmentExcerpts: actx.AttachmentCount,
	}, nil
}

// resolveUpstream resolves profile, model, and provider, applies the
// vision gate, and builds the unified prompt. Profile and catalog
// failures are recoverable; the vision gate is not.
func (o *Orchestrator) resolveUpstream(ctx context.Context, req Request, actx *assemble.Context) (*upstream, error) {
	profile, err := o.registry.ResolveProfile(ctx, req.RuntimeProfileID, actx.Conversation.RuntimeProfileID)
	if err != nil {
		return nil, err
	}
	model, prov, err := o.registry.ResolveModelAndProvider(ctx, profile)
	if err != nil {
		return nil, err
	}

	if actx.HasImage && !model.HasCapability(registry.CapImageInput) {
		return nil, assemble.ValidationError{Reason: "model does not support image input"}
	}

	conv := actx.Conversation
	budget := conv.ReasoningBudget
	if budget == 0 {
		budget = profile.ReasoningBudget
	}

	return &upstream{
		profile:  profile,
		model:    model,
		provider: prov,
		adapter:  provider.ForModel(prov.Name, model.Name),
		prompt: &llm.Prompt{
			Model:            model.Name,
			System:           actx.SystemPrompt,
			Messages:         actx.Messages,
			Params:           profile.Params,
			ReasoningEnabled: conv.ReasoningEnabled,
			ReasoningBudget:  budget,
			ShowReasoning:    conv.ShowReasoning,
		},
	}, nil
}

// callProvider performs one non-stream provider round trip.
func (o *Orchestrator) callProvider(ctx context.Context, up *upstream) (*llm.Result, error) {
	resp, err := o.send(ctx, up, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Message: "reading response: " + err.Error()}
	}

	// The body here came with a 2xx status, so a parse failure reports
	// no status.
	result, err := up.adapter.ParseResponse(body, up.prompt.ShowReasoning)
	if err != nil {
		return nil, &UpstreamError{Message: "parsing response: " + err.Error()}
	}
	return result, nil
}

// send builds and posts the provider request, returning the raw
// response once the status has been checked.
func (o *Orchestrator) send(ctx context.Context, up *upstream, stream bool) (*http.Response, error) {
	payload, path, err := up.adapter.BuildRequest(up.prompt, stream)
	if err != nil {
		return nil, &UpstreamError{Message: "building request: " + err.Error()}
	}

	url := strings.TrimRight(up.provider.BaseURL, "/") + path
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, &UpstreamError{Message: "creating request: " + err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}
	if up.provider.APIKey != "" {
		if provider.Classify(up.provider.Name, up.model.Name) == provider.FamilyGenAI {
			httpReq.Header.Set("x-goog-api-key", up.provider.APIKey)
		} else {
			httpReq.Header.Set("Authorization", "Bearer "+up.provider.APIKey)
		}
	}

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, &UpstreamError{Message: err.Error()}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		resp.Body.Close()
		return nil, &UpstreamError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	return resp, nil
}

// fallback synthesizes the deterministic local answer, persists it, and
// responds without calling any provider. When emit is non-nil the
// answer is additionally delivered as stream events.
func (o *Orchestrator) fallback(ctx context.Context, req Request, actx *assemble.Context, started time.Time, streaming bool, emit func(Event) error) (*Response, error) {
	answer := fmt.Sprintf(fallbackTemplate, req.Query, actx.HistoryCount, actx.AttachmentCount, len(actx.ToolResults))

	turn, err := o.store.AppendTurn(ctx, actx.Conversation.ID, chatstore.RoleAssistant, answer, "")
	if err != nil {
		return nil, fmt.Errorf("appending fallback turn: %w", err)
	}
	o.publishTurn(ctx, req, nil, turn, started, streaming, true)

	if emit != nil {
		if err := emit(Event{Type: llm.EventMessage, Text: answer}); err != nil {
			return nil, err
		}
		if err := emit(Event{Type: EventDone, TurnID: turn.ID, Answer: answer}); err != nil {
			return nil, err
		}
	}

	return &Response{
		Answer:             answer,
		AssistantTurnID:    turn.ID,
		ToolResults:        actx.ToolResults,
		ToolWarnings:       actx.ToolWarnings,
		ContextMessages:    actx.HistoryCount,
		AttachmentExcerpts: actx.AttachmentCount,
		Fallback:           true,
	}, nil
}

// publishTurn emits a TurnPersistedEvent. Best effort: failures are
// logged and never fail the request.
func (o *Orchestrator) publishTurn(ctx context.Context, req Request, up *upstream, turn *chatstore.Turn, started time.Time, streaming, fallback bool) {
	if o.events == nil {
		return
	}

	now := time.Now()
	event := &eventstream.TurnPersistedEvent{
		SchemaVersion: eventstream.SchemaVersionV1,
		EventType:     eventstream.EventTypeTurnPersisted,
		EventID:       uuid.NewString(),
		EmittedAt:     now,
		Source: eventstream.EventSource{
			AgentName: req.AgentName,
		},
		RequestMeta: eventstream.TurnRequestMeta{
			StartedAt:   started,
			CompletedAt: now,
			DurationMs:  now.Sub(started).Milliseconds(),
			Streaming:   streaming,
			Fallback:    fallback,
		},
		Turn: eventstream.TurnMeta{
			ConversationID: turn.ConversationID,
			TurnID:         turn.ID,
			Role:           turn.Role,
			Seq:            turn.Seq,
		},
	}
	if up != nil {
		event.Source.Provider = up.provider.Name
		event.Source.Model = up.model.Name
	}

	if err := o.events.PublishTurn(ctx, event); err != nil {
		o.logger.Warn("publishing turn event failed", zap.Error(err))
	}
}

// isRecoverable reports whether a resolution failure triggers the
// fallback policy instead of surfacing.
func isRecoverable(err error) bool {
	if errors.Is(err, registry.ErrProviderDisabled) {
		return true
	}
	var nf registry.NotFoundError
	if errors.As(err, &nf) {
		return nf.Kind == "profile" || nf.Kind == "provider" || nf.Kind == "model"
	}
	return false
}

func normalize(req Request) Request {
	if req.AgentName == "" {
		req.AgentName = DefaultAgentName
	}
	return req
}

func prepareInput(req Request) assemble.PrepareInput {
	return assemble.PrepareInput{
		ConversationID:   req.ConversationID,
		OwnerID:          req.OwnerID,
		AgentName:        req.AgentName,
		Query:            req.Query,
		BackgroundPrompt: req.BackgroundPrompt,
		AttachmentIDs:    req.AttachmentIDs,
		ToolIDs:          req.ToolIDs,
		RuntimeProfileID: req.RuntimeProfileID,
	}
}
