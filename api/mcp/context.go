package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/SaintNick1214/cortex/pkg/hierarchy"
)

var (
	contextChainToolName    = "context_chain"
	contextChainDescription = "Resolve the ancestry chain for a context node: the node itself, its parent, every ancestor up to the root, and its immediate children. Use this to reconstruct where a task sits in its hierarchy."
)

// ContextChainInput represents the input arguments for the context_chain tool.
type ContextChainInput struct {
	MemorySpaceID string `json:"memorySpaceId" jsonschema:"the memory space owning the context"`
	ContextID     string `json:"contextId" jsonschema:"the context node to resolve the chain for"`
}

// ContextChainOutput represents the structured output of a chain resolution.
type ContextChainOutput struct {
	Chain *hierarchy.Chain `json:"chain"`
}

// handleContextChain resolves a context ancestry chain via MCP.
func (s *Server) handleContextChain(ctx context.Context, _ *mcp.CallToolRequest, input ContextChainInput) (*mcp.CallToolResult, ContextChainOutput, error) {
	if input.ContextID == "" {
		return errorResult("contextId is required"), ContextChainOutput{}, nil
	}

	chain, err := s.config.Contexts.GetChain(ctx, input.MemorySpaceID, input.ContextID)
	if err != nil {
		return errorResult(fmt.Sprintf("Chain resolution failed: %v", err)), ContextChainOutput{}, nil
	}

	output := ContextChainOutput{Chain: chain}

	jsonBytes, err := json.Marshal(output)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to serialize chain: %v", err)), ContextChainOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}
