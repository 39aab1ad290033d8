package api

import (
	"context"
	"io"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/answerline/pkg/answer"
	"github.com/papercomputeco/answerline/pkg/sse"
)

// handleAgentQA runs the non-stream answer path.
func (s *Server) handleAgentQA(c *fiber.Ctx) error {
	var req answer.Request
	if err := c.BodyParser(&req); err != nil {
		return respondBadRequest(c, "malformed request body")
	}
	if req.ConversationID == "" {
		return respondBadRequest(c, "conversation_id is required")
	}

	resp, err := s.orchestrator.Answer(c.Context(), req)
	if err != nil {
		s.logger.Warn("answer request failed",
			zap.String("conversationID", req.ConversationID),
			zap.Error(err),
		)
		return respondError(c, err)
	}

	return c.JSON(resp)
}

// handleAgentQAStream runs the streaming answer path over SSE.
func (s *Server) handleAgentQAStream(c *fiber.Ctx) error {
	var req answer.Request
	if err := c.BodyParser(&req); err != nil {
		return respondBadRequest(c, "malformed request body")
	}
	if req.ConversationID == "" {
		return respondBadRequest(c, "conversation_id is required")
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	// Use io.Pipe + SetBodyStream instead of SetBodyStreamWriter.
	// SetBodyStreamWriter buffers chunks internally before they reach the
	// TCP socket; with io.Pipe each write blocks until fasthttp's chunked
	// writer consumes it, giving direct backpressure and true per-event
	// streaming.
	pr, pw := io.Pipe()

	// Use context.Background() instead of c.Context() because fasthttp recycles
	// its RequestCtx after the handler returns, but the orchestrator runs
	// asynchronously in a separate goroutine. A client disconnect closes the
	// pipe, so the emit error is the cancellation signal here.
	go func() {
		defer pw.Close()

		err := s.orchestrator.AnswerStream(context.Background(), req, func(ev answer.Event) error {
			return sse.WriteData(pw, ev)
		})
		if err != nil {
			s.logger.Warn("answer stream aborted",
				zap.String("conversationID", req.ConversationID),
				zap.Error(err),
			)
		}
	}()

	// Unknown size (-1) triggers chunked transfer encoding in fasthttp.
	c.Context().Response.SetBodyStream(pr, -1)
	return nil
}
