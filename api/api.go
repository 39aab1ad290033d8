package api

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/answerline/pkg/answer"
	"github.com/papercomputeco/answerline/pkg/chatstore"
	"github.com/papercomputeco/answerline/pkg/registry"
	"github.com/papercomputeco/answerline/pkg/tools"
)

// Answerer runs agent answer requests. *answer.Orchestrator is the
// production implementation.
type Answerer interface {
	Answer(ctx context.Context, req answer.Request) (*answer.Response, error)
	AnswerStream(ctx context.Context, req answer.Request, emit func(answer.Event) error) error
}

// Server is the HTTP server for the answerline system.
type Server struct {
	config       Config
	orchestrator Answerer
	store        chatstore.Store
	registry     registry.Registry
	toolClient   tools.Invoker
	logger       *zap.Logger
	app          *fiber.App
}

// NewServer creates the HTTP server. The store and registry are injected
// so they can be shared with the orchestrator.
func NewServer(config Config, orch Answerer, store chatstore.Store, reg registry.Registry, toolClient tools.Invoker, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:       config,
		orchestrator: orch,
		store:        store,
		registry:     reg,
		toolClient:   toolClient,
		logger:       logger,
		app:          app,
	}

	app.Get("/ping", s.handlePing)

	v1 := app.Group("/v1")

	v1.Post("/agent/qa", s.handleAgentQA)
	v1.Post("/agent/qa/stream", s.handleAgentQAStream)

	v1.Post("/conversations", s.handleCreateConversation)
	v1.Get("/conversations", s.handleListConversations)
	v1.Get("/conversations/:id", s.handleGetConversation)
	v1.Patch("/conversations/:id", s.handleUpdateConversation)
	v1.Delete("/conversations/:id", s.handleDeleteConversation)
	v1.Get("/conversations/:id/turns", s.handleListTurns)
	v1.Post("/conversations/:id/turns", s.handleAppendTurn)

	v1.Post("/tools/endpoints", s.handleCreateToolEndpoint)
	v1.Get("/tools/endpoints", s.handleListToolEndpoints)
	v1.Put("/tools/endpoints/:id", s.handleUpdateToolEndpoint)
	v1.Delete("/tools/endpoints/:id", s.handleDeleteToolEndpoint)
	v1.Post("/tools/endpoints/:id/ping", s.handlePingToolEndpoint)

	v1.Get("/agents/:name/bindings", s.handleGetAgentBindings)
	v1.Put("/agents/:name/bindings", s.handlePutAgentBindings)

	v1.Post("/providers", s.handleCreateProvider)
	v1.Get("/providers", s.handleListProviders)
	v1.Put("/providers/:id", s.handleUpdateProvider)
	v1.Post("/providers/:id/models/refresh", s.handleRefreshModels)
	v1.Get("/providers/:id/models", s.handleListModels)

	v1.Post("/profiles", s.handleCreateProfile)
	v1.Get("/profiles", s.handleListProfiles)
	v1.Put("/profiles/:id", s.handleUpdateProfile)

	return s
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run starts the HTTP server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}
