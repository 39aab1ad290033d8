package api

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/answerline/pkg/registry"
	"github.com/papercomputeco/answerline/pkg/tools"
)

const pingTimeout = 5 * time.Second

type toolEndpointRequest struct {
	Name       string `json:"name"`
	Target     string `json:"target"`
	AuthType   string `json:"auth_type"`
	AuthSecret string `json:"auth_secret"`
	Enabled    bool   `json:"enabled"`
	TimeoutMs  int    `json:"timeout_ms"`
}

func (r *toolEndpointRequest) timeout() time.Duration {
	return time.Duration(r.TimeoutMs) * time.Millisecond
}

// toolEndpointResponse is the outward view of an endpoint. The auth
// secret never leaves the server.
type toolEndpointResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Target    string `json:"target"`
	AuthType  string `json:"auth_type"`
	Enabled   bool   `json:"enabled"`
	TimeoutMs int    `json:"timeout_ms"`
}

func toolEndpointView(ep *tools.Endpoint) toolEndpointResponse {
	return toolEndpointResponse{
		ID:        ep.ID,
		Name:      ep.Name,
		Target:    ep.Target,
		AuthType:  ep.AuthType,
		Enabled:   ep.Enabled,
		TimeoutMs: int(ep.Timeout / time.Millisecond),
	}
}

func (s *Server) handleCreateToolEndpoint(c *fiber.Ctx) error {
	var req toolEndpointRequest
	if err := c.BodyParser(&req); err != nil {
		return respondBadRequest(c, "malformed request body")
	}
	if req.Name == "" {
		return respondBadRequest(c, "name is required")
	}
	if req.Target == "" {
		return respondBadRequest(c, "target is required")
	}

	ep := &tools.Endpoint{
		Name:       req.Name,
		Target:     req.Target,
		AuthType:   req.AuthType,
		AuthSecret: req.AuthSecret,
		Enabled:    req.Enabled,
		Timeout:    req.timeout(),
	}
	if ep.Timeout <= 0 {
		ep.Timeout = s.config.DefaultToolTimeout
	}
	if err := s.registry.CreateToolEndpoint(c.Context(), ep); err != nil {
		if errors.Is(err, registry.ErrDuplicateName) {
			return respondBadRequest(c, "endpoint name already exists")
		}
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toolEndpointView(ep))
}

func (s *Server) handleListToolEndpoints(c *fiber.Ctx) error {
	endpoints, err := s.registry.ListToolEndpoints(c.Context())
	if err != nil {
		return respondError(c, err)
	}

	views := make([]toolEndpointResponse, 0, len(endpoints))
	for _, ep := range endpoints {
		views = append(views, toolEndpointView(ep))
	}
	return c.JSON(fiber.Map{
		"count":     len(views),
		"endpoints": views,
	})
}

func (s *Server) handleUpdateToolEndpoint(c *fiber.Ctx) error {
	var req toolEndpointRequest
	if err := c.BodyParser(&req); err != nil {
		return respondBadRequest(c, "malformed request body")
	}

	ep, err := s.registry.GetToolEndpoint(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	if req.Name != "" {
		ep.Name = req.Name
	}
	if req.Target != "" {
		ep.Target = req.Target
	}
	if req.AuthType != "" {
		ep.AuthType = req.AuthType
	}
	if req.AuthSecret != "" {
		ep.AuthSecret = req.AuthSecret
	}
	if req.TimeoutMs != 0 {
		ep.Timeout = req.timeout()
	}
	ep.Enabled = req.Enabled

	if err := s.registry.UpdateToolEndpoint(c.Context(), ep); err != nil {
		return respondError(c, err)
	}
	return c.JSON(toolEndpointView(ep))
}

func (s *Server) handleDeleteToolEndpoint(c *fiber.Ctx) error {
	if err := s.registry.DeleteToolEndpoint(c.Context(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type pingResponse struct {
	Reachable bool   `json:"reachable"`
	Reason    string `json:"reason,omitempty"`
}

// handlePingToolEndpoint invokes the endpoint once with a probe query to
// report reachability. Simulated-failure targets report unreachable.
func (s *Server) handlePingToolEndpoint(c *fiber.Ctx) error {
	ep, err := s.registry.GetToolEndpoint(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	timeout := ep.Timeout
	if timeout <= 0 {
		timeout = pingTimeout
	}
	probeCtx, cancel := context.WithTimeout(c.Context(), timeout)
	defer cancel()

	if _, err := s.toolClient.Invoke(probeCtx, *ep, "ping"); err != nil {
		return c.JSON(pingResponse{Reachable: false, Reason: err.Error()})
	}
	return c.JSON(pingResponse{Reachable: true})
}

func (s *Server) handleGetAgentBindings(c *fiber.Ctx) error {
	ids, err := s.registry.AgentBindingToolIDs(c.Context(), c.Params("name"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"agent_name":   c.Params("name"),
		"endpoint_ids": ids,
	})
}

type putBindingsRequest struct {
	EndpointIDs []string `json:"endpoint_ids"`
}

func (s *Server) handlePutAgentBindings(c *fiber.Ctx) error {
	var req putBindingsRequest
	if err := c.BodyParser(&req); err != nil {
		return respondBadRequest(c, "malformed request body")
	}

	if err := s.registry.ReplaceAgentBindings(c.Context(), c.Params("name"), req.EndpointIDs); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"agent_name":   c.Params("name"),
		"endpoint_ids": req.EndpointIDs,
	})
}
