package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/answerline/pkg/chatstore"
)

type createConversationRequest struct {
	OwnerID          string   `json:"owner_id"`
	Title            string   `json:"title"`
	BackgroundPrompt string   `json:"background_prompt"`
	RoleName         string   `json:"role_name"`
	RuntimeProfileID string   `json:"runtime_profile_id"`
	ReasoningEnabled bool     `json:"reasoning_enabled"`
	ReasoningBudget  int      `json:"reasoning_budget"`
	ShowReasoning    bool     `json:"show_reasoning"`
	ContextLimit     int      `json:"context_limit"`
	DefaultToolIDs   []string `json:"default_tool_ids"`
}

func (s *Server) handleCreateConversation(c *fiber.Ctx) error {
	var req createConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return respondBadRequest(c, "malformed request body")
	}
	if req.OwnerID == "" {
		return respondBadRequest(c, "owner_id is required")
	}

	conv := &chatstore.Conversation{
		OwnerID:          req.OwnerID,
		Title:            req.Title,
		BackgroundPrompt: req.BackgroundPrompt,
		RoleName:         req.RoleName,
		RuntimeProfileID: req.RuntimeProfileID,
		ReasoningEnabled: req.ReasoningEnabled,
		ReasoningBudget:  req.ReasoningBudget,
		ShowReasoning:    req.ShowReasoning,
		ContextLimit:     req.ContextLimit,
		DefaultToolIDs:   req.DefaultToolIDs,
	}
	if err := s.store.CreateConversation(c.Context(), conv); err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(conv)
}

func (s *Server) handleListConversations(c *fiber.Ctx) error {
	ownerID := c.Query("owner_id")
	if ownerID == "" {
		return respondBadRequest(c, "owner_id is required")
	}

	convs, err := s.store.ListConversations(c.Context(), ownerID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"count":         len(convs),
		"conversations": convs,
	})
}

func (s *Server) handleGetConversation(c *fiber.Ctx) error {
	conv, err := s.store.GetConversation(c.Context(), c.Params("id"), c.Query("owner_id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(conv)
}

type updateConversationRequest struct {
	Title            *string   `json:"title"`
	BackgroundPrompt *string   `json:"background_prompt"`
	RoleName         *string   `json:"role_name"`
	RuntimeProfileID *string   `json:"runtime_profile_id"`
	ReasoningEnabled *bool     `json:"reasoning_enabled"`
	ReasoningBudget  *int      `json:"reasoning_budget"`
	ShowReasoning    *bool     `json:"show_reasoning"`
	ContextLimit     *int      `json:"context_limit"`
	DefaultToolIDs   *[]string `json:"default_tool_ids"`
	Archived         *bool     `json:"archived"`
}

func (s *Server) handleUpdateConversation(c *fiber.Ctx) error {
	var req updateConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return respondBadRequest(c, "malformed request body")
	}

	conv, err := s.store.GetConversation(c.Context(), c.Params("id"), c.Query("owner_id"))
	if err != nil {
		return respondError(c, err)
	}

	if req.Title != nil {
		conv.Title = *req.Title
	}
	if req.BackgroundPrompt != nil {
		conv.BackgroundPrompt = *req.BackgroundPrompt
	}
	if req.RoleName != nil {
		conv.RoleName = *req.RoleName
	}
	if req.RuntimeProfileID != nil {
		conv.RuntimeProfileID = *req.RuntimeProfileID
	}
	if req.ReasoningEnabled != nil {
		conv.ReasoningEnabled = *req.ReasoningEnabled
	}
	if req.ReasoningBudget != nil {
		conv.ReasoningBudget = *req.ReasoningBudget
	}
	if req.ShowReasoning != nil {
		conv.ShowReasoning = *req.ShowReasoning
	}
	if req.ContextLimit != nil {
		conv.ContextLimit = *req.ContextLimit
	}
	if req.DefaultToolIDs != nil {
		conv.DefaultToolIDs = *req.DefaultToolIDs
	}
	if req.Archived != nil {
		conv.Archived = *req.Archived
	}

	if err := s.store.UpdateConversation(c.Context(), conv); err != nil {
		return respondError(c, err)
	}
	return c.JSON(conv)
}

func (s *Server) handleDeleteConversation(c *fiber.Ctx) error {
	if err := s.store.DeleteConversation(c.Context(), c.Params("id"), c.Query("owner_id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleListTurns(c *fiber.Ctx) error {
	// Ownership check before exposing the turn log.
	if _, err := s.store.GetConversation(c.Context(), c.Params("id"), c.Query("owner_id")); err != nil {
		return respondError(c, err)
	}

	turns, err := s.store.ListTurns(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"count": len(turns),
		"turns": turns,
	})
}

type appendTurnRequest struct {
	OwnerID   string `json:"owner_id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Reasoning string `json:"reasoning"`
}

func (s *Server) handleAppendTurn(c *fiber.Ctx) error {
	var req appendTurnRequest
	if err := c.BodyParser(&req); err != nil {
		return respondBadRequest(c, "malformed request body")
	}
	if req.Role != chatstore.RoleUser && req.Role != chatstore.RoleAssistant {
		return respondBadRequest(c, "role must be user or assistant")
	}
	if req.Content == "" {
		return respondBadRequest(c, "content is required")
	}

	if _, err := s.store.GetConversation(c.Context(), c.Params("id"), req.OwnerID); err != nil {
		return respondError(c, err)
	}

	turn, err := s.store.AppendTurn(c.Context(), c.Params("id"), req.Role, req.Content, req.Reasoning)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(turn)
}
