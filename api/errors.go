package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/answerline/pkg/answer"
)

// ErrorResponse is the error envelope returned by every endpoint.
type ErrorResponse struct {
	Code  int    `json:"code"`
	Error string `json:"error"`
}

// statusForCode maps a stable error code onto an HTTP status.
func statusForCode(code int) int {
	switch code {
	case answer.CodeValidation:
		return fiber.StatusBadRequest
	case answer.CodeConversationNotFound,
		answer.CodeAttachmentNotFound,
		answer.CodeProviderNotFound,
		answer.CodeProfileNotFound,
		answer.CodeEndpointNotFound:
		return fiber.StatusNotFound
	case answer.CodeAttachmentNotReady:
		return fiber.StatusConflict
	case answer.CodeUpstream:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError writes the error envelope for a pipeline error.
func respondError(c *fiber.Ctx, err error) error {
	code := answer.ErrorCode(err)
	return c.Status(statusForCode(code)).JSON(ErrorResponse{Code: code, Error: err.Error()})
}

// respondBadRequest writes a validation envelope for malformed input.
func respondBadRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: answer.CodeValidation, Error: msg})
}
