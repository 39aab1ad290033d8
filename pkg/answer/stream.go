package answer

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/answerline/pkg/chatstore"
	"github.com/papercomputeco/answerline/pkg/llm"
	"github.com/papercomputeco/answerline/pkg/sse"
)

// Terminal stream event types. Delta events reuse the llm event types
// ("message" and "reasoning").
const (
	EventDone  = "done"
	EventError = "error"
)

// Event is one element of the outbound stream. Delta events carry Text;
// the done event carries the persisted turn id plus the full
// concatenated answer and reasoning; the error event carries a stable
// code and a message.
type Event struct {
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	TurnID    string `json:"turn_id,omitempty"`
	Answer    string `json:"answer,omitempty"`
	Reasoning string `json:"reasoning,omitempty"`
	Code      int    `json:"code,omitempty"`
	Error     string `json:"error,omitempty"`
}

// AnswerStream runs the streaming path, forwarding each provider delta
// through emit before the next network read. The sequence always ends
// with exactly one done or error event, unless emit itself fails, which
// means the caller is gone. The returned error reports the underlying
// failure for logging; it is nil whenever a terminal event was emitted.
func (o *Orchestrator) AnswerStream(ctx context.Context, req Request, emit func(Event) error) error {
	started := time.Now()
	req = normalize(req)

	actx, err := o.assembler.Prepare(ctx, prepareInput(req))
	if err != nil {
		return o.emitError(emit, err)
	}

	up, err := o.resolveUpstream(ctx, req, actx)
	if err != nil {
		if isRecoverable(err) {
			_, err := o.fallback(ctx, req, actx, started, true, emit)
			return err
		}
		return o.emitError(emit, err)
	}

	resp, err := o.send(ctx, up, true)
	if err != nil {
		return o.emitError(emit, err)
	}
	defer resp.Body.Close()

	var answerText, reasoningText strings.Builder
	reader := sse.NewReader(resp.Body)
	for {
		frame, err := reader.Next()
		if err != nil {
			// Abandoned stream: the caller disconnected or the upstream
			// broke mid-read. No assistant turn is persisted.
			return o.emitError(emit, &UpstreamError{Message: "reading stream: " + err.Error()})
		}
		if frame == nil {
			break
		}

		events, err := up.adapter.ParseStreamData([]byte(frame.Data), up.prompt.ShowReasoning)
		if err != nil {
			return o.emitError(emit, &UpstreamError{Message: "parsing stream frame: " + err.Error()})
		}
		for _, ev := range events {
			switch ev.Type {
			case llm.EventMessage:
				answerText.WriteString(ev.Text)
			case llm.EventReasoning:
				reasoningText.WriteString(ev.Text)
			}
			if err := emit(Event{Type: ev.Type, Text: ev.Text}); err != nil {
				return err
			}
		}
	}

	finalAnswer := answerText.String()
	if finalAnswer == "" {
		finalAnswer = emptyAnswerPlaceholder
	}

	turn, err := o.store.AppendTurn(ctx, actx.Conversation.ID, chatstore.RoleAssistant, finalAnswer, reasoningText.String())
	if err != nil {
		return o.emitError(emit, err)
	}
	o.publishTurn(ctx, req, up, turn, started, true, false)

	return emit(Event{
		Type:      EventDone,
		TurnID:    turn.ID,
		Answer:    finalAnswer,
		Reasoning: reasoningText.String(),
	})
}

// emitError delivers the terminal error event. A nil return means the
// event reached the caller; emit failures propagate instead.
func (o *Orchestrator) emitError(emit func(Event) error, cause error) error {
	o.logger.Warn("stream ended with error", zap.Error(cause))
	if emitErr := emit(Event{
		Type:  EventError,
		Code:  ErrorCode(cause),
		Error: cause.Error(),
	}); emitErr != nil {
		return emitErr
	}
	return nil
}
