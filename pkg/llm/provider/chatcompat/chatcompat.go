// Package chatcompat implements the OpenAI-compatible chat-completions
// wire format (Family A), including the DeepSeek dialect's thinking
// control and reasoning-budget handling.
package chatcompat

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/papercomputeco/answerline/pkg/llm"
)

const completionsPath = "/chat/completions"

// Dialect selects chat-completions quirks that differ between vendors.
type Dialect string

const (
	// DialectGeneric sends the baseline chat-completions shape.
	DialectGeneric Dialect = "generic"

	// DialectDeepSeek additionally sends the thinking control and treats
	// max_tokens as a reasoning-budget proxy when no explicit cap is set.
	DialectDeepSeek Dialect = "deepseek"
)

// DetectDialect picks the dialect for a provider/model pair by
// case-insensitive substring match.
func DetectDialect(providerName, modelName string) Dialect {
	subject := strings.ToLower(providerName) + " " + strings.ToLower(modelName)
	if strings.Contains(subject, "deepseek") {
		return DialectDeepSeek
	}
	return DialectGeneric
}

// adapter translates unified prompts to the chat-completions wire format.
type adapter struct {
	dialect Dialect
}

// New returns a chat-completions adapter for the given dialect.
func New(dialect Dialect) *adapter {
	return &adapter{dialect: dialect}
}

func (a *adapter) Name() string {
	return "chatcompat"
}

func (a *adapter) BuildRequest(p *llm.Prompt, stream bool) ([]byte, string, error) {
	messages := make([]chatMessage, 0, len(p.Messages)+1)
	if p.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: p.System})
	}
	for _, m := range p.Messages {
		messages = append(messages, chatMessage{Role: m.Role, Content: m.Text})
	}

	req := chatRequest{
		Model:    p.Model,
		Messages: messages,
		Stream:   stream,
	}
	if v, ok := p.Param("temperature"); ok {
		req.Temperature = &v
	}
	if v, ok := p.Param("top_p"); ok {
		req.TopP = &v
	}
	if v, ok := p.Param("max_tokens"); ok {
		n := int(v)
		req.MaxTokens = &n
	}

	if a.dialect == DialectDeepSeek {
		control := "disabled"
		if p.ReasoningEnabled {
			control = "enabled"
		}
		req.Thinking = &thinkingControl{Type: control}

		// Without an explicit token cap the reasoning budget doubles as
		// max_tokens, which is how this dialect bounds thinking output.
		if req.MaxTokens == nil && p.ReasoningBudget > 0 {
			budget := p.ReasoningBudget
			req.MaxTokens = &budget
		}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, "", fmt.Errorf("marshaling chat-completions request: %w", err)
	}
	return payload, completionsPath, nil
}

func (a *adapter) ParseResponse(body []byte, showReasoning bool) (*llm.Result, error) {
	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing chat-completions response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, llm.ErrEmptyAnswer
	}

	msg := resp.Choices[0].Message
	if strings.TrimSpace(msg.Content) == "" {
		return nil, llm.ErrEmptyAnswer
	}

	result := &llm.Result{AnswerText: msg.Content}
	if showReasoning {
		result.ReasoningText = msg.ReasoningContent
	}
	return result, nil
}

func (a *adapter) ParseStreamData(data []byte, showReasoning bool) ([]llm.StreamEvent, error) {
	var frame chatStreamFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		// Malformed frames are skipped, not fatal: providers interleave
		// control payloads that are not delta frames.
		return nil, nil
	}
	if len(frame.Choices) == 0 {
		return nil, nil
	}

	delta := frame.Choices[0].Delta
	var events []llm.StreamEvent
	if showReasoning && delta.ReasoningContent != "" {
		events = append(events, llm.StreamEvent{Type: llm.EventReasoning, Text: delta.ReasoningContent})
	}
	if delta.Content != "" {
		events = append(events, llm.StreamEvent{Type: llm.EventMessage, Text: delta.Content})
	}
	return events, nil
}
