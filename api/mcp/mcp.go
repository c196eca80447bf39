// Package mcp provides an MCP (Model Context Protocol) server for the cortex memory store.
package mcp

import (
	"errors"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/SaintNick1214/cortex/pkg/hierarchy"
	"github.com/SaintNick1214/cortex/pkg/records"
	"github.com/SaintNick1214/cortex/pkg/revision"
	"github.com/SaintNick1214/cortex/pkg/utils"
)

type Config struct {
	// Facts handles fact assertion and recall
	Facts *revision.Engine

	// Records handles content record storage and search
	Records *records.Service

	// Contexts resolves context chains
	Contexts *hierarchy.Manager

	// Noop for empty MCP server
	Noop bool

	// Logger is the configured zap logger
	Logger *zap.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the memory tools.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "cortex",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if c.Noop {
		// return the empty MCP server with no tools configured
		// if the noop flag is set (i.e., MCP capabilities are disabled)
		s.mcpServer = mcpServer
		return s, nil
	}

	if c.Facts == nil {
		return nil, errors.New("fact engine is required")
	}
	if c.Records == nil {
		return nil, errors.New("records service is required")
	}
	if c.Contexts == nil {
		return nil, errors.New("context manager is required")
	}
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}

	// Add tools
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        factAssertToolName,
		Description: factAssertDescription,
	}, s.handleFactAssert)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        memoryStoreToolName,
		Description: memoryStoreDescription,
	}, s.handleMemoryStore)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        memorySearchToolName,
		Description: memorySearchDescription,
	}, s.handleMemorySearch)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        contextChainToolName,
		Description: contextChainDescription,
	}, s.handleContextChain)

	s.mcpServer = mcpServer

	// Create a streamable HTTP net/http handler for stateless operations
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}
