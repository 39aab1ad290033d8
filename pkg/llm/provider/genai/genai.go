// Package genai implements the multi-part generateContent wire format
// (Family B, Gemini-style).
package genai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/papercomputeco/answerline/pkg/llm"
)

// adapter translates unified prompts to the generateContent wire format.
type adapter struct{}

// New returns a generateContent adapter.
func New() *adapter {
	return &adapter{}
}

func (a *adapter) Name() string {
	return "genai"
}

func (a *adapter) BuildRequest(p *llm.Prompt, stream bool) ([]byte, string, error) {
	contents := make([]content, 0, len(p.Messages))
	for _, m := range p.Messages {
		role := "user"
		if m.Role == "assistant" {
			role = "model"
		}
		contents = append(contents, content{Role: role, Parts: []part{{Text: m.Text}}})
	}

	req := generateRequest{Contents: contents}
	if p.System != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: p.System}}}
	}

	cfg := &generationConfig{}
	if v, ok := p.Param("temperature"); ok {
		cfg.Temperature = &v
	}
	if v, ok := p.Param("top_p"); ok {
		cfg.TopP = &v
	}
	if v, ok := p.Param("max_tokens"); ok {
		n := int(v)
		cfg.MaxOutputTokens = &n
	}

	// Reasoning disabled maps to a zero budget; a positive budget maps
	// directly. Thoughts are included only when the caller displays them.
	thinking := &thinkingConfig{IncludeThoughts: p.ShowReasoning}
	if p.ReasoningEnabled {
		thinking.ThinkingBudget = p.ReasoningBudget
	}
	cfg.ThinkingConfig = thinking
	req.GenerationConfig = cfg

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, "", fmt.Errorf("marshaling generateContent request: %w", err)
	}

	path := "/models/" + p.Model + ":generateContent"
	if stream {
		path = "/models/" + p.Model + ":streamGenerateContent?alt=sse"
	}
	return payload, path, nil
}

func (a *adapter) ParseResponse(body []byte, showReasoning bool) (*llm.Result, error) {
	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing generateContent response: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return nil, llm.ErrEmptyAnswer
	}

	var answer, reasoning strings.Builder
	for _, pt := range resp.Candidates[0].Content.Parts {
		if pt.Thought {
			if showReasoning {
				reasoning.WriteString(pt.Text)
			}
			continue
		}
		answer.WriteString(pt.Text)
	}

	if strings.TrimSpace(answer.String()) == "" {
		return nil, llm.ErrEmptyAnswer
	}
	return &llm.Result{AnswerText: answer.String(), ReasoningText: reasoning.String()}, nil
}

func (a *adapter) ParseStreamData(data []byte, showReasoning bool) ([]llm.StreamEvent, error) {
	var frame generateResponse
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, nil
	}
	if len(frame.Candidates) == 0 {
		return nil, nil
	}

	var events []llm.StreamEvent
	for _, pt := range frame.Candidates[0].Content.Parts {
		if pt.Text == "" {
			continue
		}
		if pt.Thought {
			if showReasoning {
				events = append(events, llm.StreamEvent{Type: llm.EventReasoning, Text: pt.Text})
			}
			continue
		}
		events = append(events, llm.StreamEvent{Type: llm.EventMessage, Text: pt.Text})
	}
	return events, nil
}
