package api

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/crosswirelabs/loom/pkg/agent"
	"github.com/crosswirelabs/loom/pkg/chat"
	"github.com/crosswirelabs/loom/pkg/eventstream"
	"github.com/crosswirelabs/loom/pkg/memory"
	"github.com/crosswirelabs/loom/pkg/msglog"
)

// Server is the API server for the loom system.
type Server struct {
	config   Config
	pipeline *chat.Pipeline
	mem      memory.Store
	log      msglog.Log
	registry *agent.Registry
	journal  *eventstream.Journal
	logger   *zap.Logger
	app      *fiber.App
}

// NewServer creates a new API server. The stores are injected so they can be
// shared with the chat pipeline and the background sweeper.
func NewServer(
	config Config,
	pipeline *chat.Pipeline,
	mem memory.Store,
	log msglog.Log,
	registry *agent.Registry,
	journal *eventstream.Journal,
	logger *zap.Logger,
) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:   config,
		pipeline: pipeline,
		mem:      mem,
		log:      log,
		registry: registry,
		journal:  journal,
		logger:   logger,
		app:      app,
	}

	app.Get("/ping", s.handlePing)
	app.Post("/chat", s.handleChat)
	app.Get("/conversations/:id/messages", s.handleRecentMessages)
	app.Get("/conversations/:id/summary", s.handleGetSummary)
	app.Put("/conversations/:id/memory/:key", s.handleSetMemory)
	app.Get("/conversations/:id/memory/:key", s.handleGetMemory)
	app.Delete("/conversations/:id/memory/:key", s.handleDeleteMemory)
	app.Get("/agents", s.handleListAgents)
	app.Put("/agents/:id/status", s.handleSetAgentStatus)
	app.Get("/events", s.handleRecentEvents)

	return s
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
