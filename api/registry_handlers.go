package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/answerline/pkg/registry"
)

type providerRequest struct {
	Name    string `json:"name"`
	BaseURL string `json:"base_url"`
	APIKey  string `json:"api_key"`
	Enabled bool   `json:"enabled"`
}

func (s *Server) handleCreateProvider(c *fiber.Ctx) error {
	var req providerRequest
	if err := c.BodyParser(&req); err != nil {
		return respondBadRequest(c, "malformed request body")
	}
	if req.Name == "" {
		return respondBadRequest(c, "name is required")
	}

	prov := &registry.ModelProvider{
		Name:    req.Name,
		BaseURL: req.BaseURL,
		APIKey:  req.APIKey,
		Enabled: req.Enabled,
	}
	if err := s.registry.CreateProvider(c.Context(), prov); err != nil {
		if errors.Is(err, registry.ErrDuplicateName) {
			return respondBadRequest(c, "provider name already exists")
		}
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(prov)
}

func (s *Server) handleListProviders(c *fiber.Ctx) error {
	providers, err := s.registry.ListProviders(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"count":     len(providers),
		"providers": providers,
	})
}

func (s *Server) handleUpdateProvider(c *fiber.Ctx) error {
	var req providerRequest
	if err := c.BodyParser(&req); err != nil {
		return respondBadRequest(c, "malformed request body")
	}

	prov, err := s.registry.GetProvider(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	if req.Name != "" {
		prov.Name = req.Name
	}
	if req.BaseURL != "" {
		prov.BaseURL = req.BaseURL
	}
	if req.APIKey != "" {
		prov.APIKey = req.APIKey
	}
	prov.Enabled = req.Enabled

	if err := s.registry.UpdateProvider(c.Context(), prov); err != nil {
		return respondError(c, err)
	}
	return c.JSON(prov)
}

type refreshModelsRequest struct {
	Manual []string `json:"manual"`
}

func (s *Server) handleRefreshModels(c *fiber.Ctx) error {
	var req refreshModelsRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return respondBadRequest(c, "malformed request body")
		}
	}

	models, err := s.registry.RefreshModels(c.Context(), c.Params("id"), req.Manual)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"count":  len(models),
		"models": models,
	})
}

func (s *Server) handleListModels(c *fiber.Ctx) error {
	models, err := s.registry.ListModels(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"count":  len(models),
		"models": models,
	})
}

type profileRequest struct {
	Name            string             `json:"name"`
	ModelID         string             `json:"model_id"`
	Params          map[string]float64 `json:"params"`
	ReasoningBudget int                `json:"reasoning_budget"`
	IsDefault       bool               `json:"is_default"`
}

func (s *Server) handleCreateProfile(c *fiber.Ctx) error {
	var req profileRequest
	if err := c.BodyParser(&req); err != nil {
		return respondBadRequest(c, "malformed request body")
	}
	if req.Name == "" {
		return respondBadRequest(c, "name is required")
	}
	if req.ModelID == "" {
		return respondBadRequest(c, "model_id is required")
	}

	profile := &registry.RuntimeProfile{
		Name:            req.Name,
		ModelID:         req.ModelID,
		Params:          req.Params,
		ReasoningBudget: req.ReasoningBudget,
		IsDefault:       req.IsDefault,
	}
	if err := s.registry.CreateProfile(c.Context(), profile); err != nil {
		if errors.Is(err, registry.ErrDuplicateName) {
			return respondBadRequest(c, "profile name already exists")
		}
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(profile)
}

func (s *Server) handleListProfiles(c *fiber.Ctx) error {
	profiles, err := s.registry.ListProfiles(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"count":    len(profiles),
		"profiles": profiles,
	})
}

func (s *Server) handleUpdateProfile(c *fiber.Ctx) error {
	var req profileRequest
	if err := c.BodyParser(&req); err != nil {
		return respondBadRequest(c, "malformed request body")
	}

	profile, err := s.registry.GetProfile(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	if req.Name != "" {
		profile.Name = req.Name
	}
	if req.ModelID != "" {
		profile.ModelID = req.ModelID
	}
	if req.Params != nil {
		profile.Params = req.Params
	}
	if req.ReasoningBudget != 0 {
		profile.ReasoningBudget = req.ReasoningBudget
	}
	profile.IsDefault = req.IsDefault

	if err := s.registry.UpdateProfile(c.Context(), profile); err != nil {
		if errors.Is(err, registry.ErrDuplicateName) {
			return respondBadRequest(c, "profile name already exists")
		}
		return respondError(c, err)
	}
	return c.JSON(profile)
}
