package api

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"go.uber.org/zap"

	"github.com/SaintNick1214/cortex/pkg/cascade"
	"github.com/SaintNick1214/cortex/pkg/conversations"
	"github.com/SaintNick1214/cortex/pkg/eventstream/worker"
	"github.com/SaintNick1214/cortex/pkg/hierarchy"
	"github.com/SaintNick1214/cortex/pkg/immutable"
	"github.com/SaintNick1214/cortex/pkg/mutable"
	"github.com/SaintNick1214/cortex/pkg/records"
	"github.com/SaintNick1214/cortex/pkg/revision"
	"github.com/SaintNick1214/cortex/pkg/storage"
)

// Server is the API server for managing and querying the cortex memory store
type Server struct {
	config Config
	logger *zap.Logger
	app    *fiber.App

	driver    storage.Driver
	facts     *revision.Engine
	contexts  *hierarchy.Manager
	records   *records.Service
	convs     *conversations.Service
	cascade   *cascade.Coordinator
	immutable *immutable.Store
	mutable   *mutable.Store

	// events is the async publish pool. Nil when event publishing is
	// disabled; handlers must check before enqueueing.
	events *worker.Pool
}

// Services bundles the domain services the server fronts. The driver is
// injected separately to allow sharing with other components.
type Services struct {
	Facts         *revision.Engine
	Contexts      *hierarchy.Manager
	Records       *records.Service
	Conversations *conversations.Service
	Cascade       *cascade.Coordinator
	Immutable     *immutable.Store
	Mutable       *mutable.Store

	// Events is optional; nil disables event publishing.
	Events *worker.Pool

	// MCP is optional; when set it is mounted at /mcp.
	MCP http.Handler
}

// NewServer creates a new API server.
func NewServer(config Config, driver storage.Driver, svcs Services, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:    config,
		logger:    logger,
		app:       app,
		driver:    driver,
		facts:     svcs.Facts,
		contexts:  svcs.Contexts,
		records:   svcs.Records,
		convs:     svcs.Conversations,
		cascade:   svcs.Cascade,
		immutable: svcs.Immutable,
		mutable:   svcs.Mutable,
		events:    svcs.Events,
	}

	app.Get("/ping", s.handlePing)

	v1 := app.Group("/v1")

	v1.Post("/facts", s.handleAssertFact)
	v1.Get("/facts", s.handleListFacts)
	v1.Get("/facts/count", s.handleCountFacts)
	v1.Post("/facts/consolidate", s.handleConsolidateFacts)
	v1.Get("/facts/:id", s.handleGetFact)
	v1.Patch("/facts/:id", s.handleUpdateFact)
	v1.Delete("/facts/:id", s.handleDeleteFact)
	v1.Get("/facts/:id/history", s.handleFactHistory)
	v1.Get("/facts/:id/versions/:version", s.handleFactVersion)
	v1.Get("/facts/:id/at", s.handleFactAtTimestamp)
	v1.Patch("/facts/:id/enrichment", s.handleUpdateEnrichment)

	v1.Post("/memories", s.handleStoreMemory)
	v1.Get("/memories", s.handleListMemories)
	v1.Get("/memories/count", s.handleCountMemories)
	v1.Patch("/memories", s.handleUpdateManyMemories)
	v1.Get("/memories/:id", s.handleGetMemory)
	v1.Patch("/memories/:id", s.handleUpdateMemory)
	v1.Delete("/memories/:id", s.handleDeleteMemory)
	v1.Get("/memories/:id/history", s.handleMemoryHistory)
	v1.Get("/memories/:id/versions/:version", s.handleMemoryVersion)
	v1.Get("/memories/:id/at", s.handleMemoryAtTimestamp)

	v1.Post("/contexts", s.handleCreateContext)
	v1.Get("/contexts", s.handleListContexts)
	v1.Get("/contexts/:id", s.handleGetContext)
	v1.Patch("/contexts/:id", s.handleUpdateContext)
	v1.Delete("/contexts/:id", s.handleDeleteContext)
	v1.Get("/contexts/:id/chain", s.handleContextChain)
	v1.Post("/contexts/:id/reparent", s.handleReparentContext)
	v1.Post("/contexts/:id/participants", s.handleAddParticipant)
	v1.Post("/contexts/:id/access", s.handleGrantAccess)

	v1.Post("/conversations", s.handleCreateConversation)
	v1.Get("/conversations", s.handleListConversations)
	v1.Get("/conversations/:id", s.handleGetConversation)
	v1.Delete("/conversations/:id", s.handleDeleteConversation)
	v1.Post("/conversations/:id/messages", s.handleAddMessage)

	v1.Get("/spaces", s.handleListSpaces)
	v1.Delete("/spaces/:id", s.handleDeleteSpace)
	v1.Delete("/users/:id", s.handleDeleteUserData)

	v1.Post("/immutable/:type/:id", s.handlePutImmutable)
	v1.Get("/immutable/:type/:id", s.handleGetImmutable)
	v1.Get("/immutable/:type/:id/history", s.handleImmutableHistory)

	v1.Put("/mutable/:namespace/:key", s.handleSetMutable)
	v1.Get("/mutable/:namespace/:key", s.handleGetMutable)
	v1.Delete("/mutable/:namespace/:key", s.handleDeleteMutable)

	v1.Get("/export/:entity", s.handleExport)

	if svcs.MCP != nil {
		app.All("/mcp", adaptor.HTTPHandler(svcs.MCP))
	}

	return s
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server and drains pending events.
func (s *Server) Shutdown() error {
	if s.events != nil {
		s.events.Close()
	}
	return s.app.Shutdown()
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}
