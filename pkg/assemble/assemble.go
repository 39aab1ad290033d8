// Package assemble builds the bounded model context for one agent
// request: it resolves the conversation, appends the user turn, trims
// history, folds attachment excerpts and tool output into a context
// block, and resolves the effective system prompt and tool set.
package assemble

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/answerline/pkg/chatstore"
	"github.com/papercomputeco/answerline/pkg/llm"
	"github.com/papercomputeco/answerline/pkg/tools"
)

const (
	// DefaultContextLimit bounds history when the conversation has no
	// limit of its own.
	DefaultContextLimit = 12

	// attachmentOnlyPlaceholder is stored instead of a blank user turn.
	attachmentOnlyPlaceholder = "(attachment only)"

	// excerptRuneLimit caps each attachment excerpt in the context block.
	excerptRuneLimit = 2000

	truncationMarker = "…[truncated]"

	summarizeInstruction = "Use the reference material above as grounding. " +
		"Summarize the relevant points in your own words instead of quoting them verbatim."
)

// rolePrompts maps a conversation's role name to its system prompt.
// Unknown roles resolve to an empty prompt.
var rolePrompts = map[string]string{
	"qa":         "You are a careful assistant. Answer the user's question directly and accurately, and say so when you do not know.",
	"researcher": "You are a research assistant. Cite the supplied reference material where it supports your answer.",
	"writer":     "You are a writing assistant. Keep the user's tone and improve clarity without changing meaning.",
}

// ValidationError reports rejected input. The API layer maps it to a
// 400 response.
type ValidationError struct {
	Reason string
}

func (e ValidationError) Error() string {
	return e.Reason
}

// BindingResolver supplies the priority-ordered tool ids bound to an
// agent name. Satisfied by the registry.
type BindingResolver interface {
	AgentBindingToolIDs(ctx context.Context, agentName string) ([]string, error)
}

// ToolRouter fans the query out to the enabled tool endpoints.
type ToolRouter interface {
	Route(ctx context.Context, enabledIDs []string, query string) ([]tools.InvocationResult, []string)
}

// PrepareInput carries one agent request into the assembler.
type PrepareInput struct {
	ConversationID   string
	OwnerID          string
	AgentName        string
	Query            string
	BackgroundPrompt string
	AttachmentIDs    []string
	// ToolIDs distinguishes absent (nil) from explicitly empty: nil
	// falls through to conversation defaults and agent bindings, an
	// empty slice suppresses tools entirely.
	ToolIDs          *[]string
	RuntimeProfileID string
}

// Context is the assembled request context consumed by the orchestrator.
type Context struct {
	Conversation *chatstore.Conversation
	Messages     []llm.Message
	SystemPrompt string

	ToolResults  []tools.InvocationResult
	ToolWarnings []string

	HistoryCount    int
	AttachmentCount int
	HasImage        bool
}

// Assembler prepares model context from the conversation store, the
// tool router, and the agent binding table.
type Assembler struct {
	store        chatstore.Store
	bindings     BindingResolver
	router       ToolRouter
	contextLimit int
	logger       *zap.Logger
}

// New creates an Assembler. contextLimit <= 0 selects the default.
func New(store chatstore.Store, bindings BindingResolver, router ToolRouter, contextLimit int, logger *zap.Logger) *Assembler {
	if contextLimit <= 0 {
		contextLimit = DefaultContextLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{
		store:        store,
		bindings:     bindings,
		router:       router,
		contextLimit: contextLimit,
		logger:       logger,
	}
}

// Prepare runs the assembly pipeline. The user turn is persisted before
// any tool invocation, so the turn log records intent even when a
// downstream call fails.
func (a *Assembler) Prepare(ctx context.Context, in PrepareInput) (*Context, error) {
	conv, err := a.store.GetConversation(ctx, in.ConversationID, in.OwnerID)
	if err != nil {
		return nil, err
	}

	query := strings.TrimSpace(in.Query)
	if query == "" && len(in.AttachmentIDs) == 0 {
		return nil, ValidationError{Reason: "empty query"}
	}

	stored := query
	if stored == "" {
		stored = attachmentOnlyPlaceholder
	}
	if _, err := a.store.AppendTurn(ctx, conv.ID, chatstore.RoleUser, stored, ""); err != nil {
		return nil, fmt.Errorf("appending user turn: %w", err)
	}

	turns, err := a.store.ListTurns(ctx, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("listing turns: %w", err)
	}
	limit := conv.ContextLimit
	if limit <= 0 {
		limit = a.contextLimit
	}
	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}

	excerpts, hasImage, err := a.loadAttachments(ctx, conv.ID, in.AttachmentIDs)
	if err != nil {
		return nil, err
	}

	toolIDs, err := a.resolveToolIDs(ctx, conv, in)
	if err != nil {
		return nil, err
	}
	results, warnings := a.router.Route(ctx, toolIDs, in.Query)

	messages := make([]llm.Message, 0, len(turns))
	for _, t := range turns {
		messages = append(messages, llm.Message{Role: t.Role, Text: t.Content})
	}
	if block := buildContextBlock(excerpts, results); block != "" {
		last := len(messages) - 1
		if last >= 0 && messages[last].Role == chatstore.RoleUser {
			messages[last].Text += block
		}
	}

	if in.RuntimeProfileID != "" && in.RuntimeProfileID != conv.RuntimeProfileID {
		conv.RuntimeProfileID = in.RuntimeProfileID
		if err := a.store.UpdateConversation(ctx, conv); err != nil {
			return nil, fmt.Errorf("persisting profile binding: %w", err)
		}
	}

	a.logger.Debug("assembled context",
		zap.String("conversationID", conv.ID),
		zap.Int("history", len(messages)),
		zap.Int("attachments", len(excerpts)),
		zap.Int("toolResults", len(results)),
		zap.Int("toolWarnings", len(warnings)),
	)

	return &Context{
		Conversation:    conv,
		Messages:        messages,
		SystemPrompt:    a.resolveSystemPrompt(conv, in.BackgroundPrompt),
		ToolResults:     results,
		ToolWarnings:    warnings,
		HistoryCount:    len(messages),
		AttachmentCount: len(excerpts),
		HasImage:        hasImage,
	}, nil
}

type attachmentExcerpt struct {
	fileName string
	text     string
}

// loadAttachments fetches sanitized text for every requested id. Any
// missing or unready attachment fails the whole request.
func (a *Assembler) loadAttachments(ctx context.Context, conversationID string, ids []string) ([]attachmentExcerpt, bool, error) {
	excerpts := make([]attachmentExcerpt, 0, len(ids))
	hasImage := false
	for _, id := range ids {
		att, err := a.store.GetAttachment(ctx, conversationID, id)
		if err != nil {
			return nil, false, err
		}
		if att.IsImage() {
			hasImage = true
		}
		text, err := a.store.AttachmentText(ctx, conversationID, id)
		if err != nil {
			return nil, false, err
		}
		excerpts = append(excerpts, attachmentExcerpt{fileName: att.FileName, text: clipExcerpt(text)})
	}
	return excerpts, hasImage, nil
}

// resolveToolIDs applies the three-way override: an explicit request
// list wins even when empty, else the conversation's defaults, else the
// agent's priority-ordered bindings.
func (a *Assembler) resolveToolIDs(ctx context.Context, conv *chatstore.Conversation, in PrepareInput) ([]string, error) {
	if in.ToolIDs != nil {
		return *in.ToolIDs, nil
	}
	if len(conv.DefaultToolIDs) > 0 {
		return conv.DefaultToolIDs, nil
	}
	ids, err := a.bindings.AgentBindingToolIDs(ctx, in.AgentName)
	if err != nil {
		return nil, fmt.Errorf("resolving agent bindings: %w", err)
	}
	return ids, nil
}

func (a *Assembler) resolveSystemPrompt(conv *chatstore.Conversation, override string) string {
	if override != "" {
		return override
	}
	if conv.BackgroundPrompt != "" {
		return conv.BackgroundPrompt
	}
	return rolePrompts[conv.RoleName]
}

func clipExcerpt(text string) string {
	runes := []rune(text)
	if len(runes) <= excerptRuneLimit {
		return text
	}
	return string(runes[:excerptRuneLimit]) + truncationMarker
}

// buildContextBlock folds attachment excerpts and tool output into the
// suffix appended to the final user message. Empty inputs produce an
// empty block.
func buildContextBlock(excerpts []attachmentExcerpt, results []tools.InvocationResult) string {
	if len(excerpts) == 0 && len(results) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n\n--- Reference material ---\n")
	for _, e := range excerpts {
		fmt.Fprintf(&b, "Attachment excerpt (%s):\n%s\n", e.fileName, e.text)
	}
	for _, r := range results {
		fmt.Fprintf(&b, "Tool result (%s):\n%s\n", r.EndpointName, r.Output)
	}
	b.WriteString(summarizeInstruction)
	return b.String()
}
