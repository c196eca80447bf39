package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/SaintNick1214/cortex/pkg/memory"
	"github.com/SaintNick1214/cortex/pkg/records"
	"github.com/SaintNick1214/cortex/pkg/storage"
)

var (
	memoryStoreToolName    = "memory_store"
	memoryStoreDescription = "Store a piece of unstructured content in a memory space. Use this to persist notes, observations, or conversation summaries that should survive across sessions."

	memorySearchToolName    = "memory_search"
	memorySearchDescription = "Search stored memories and facts in a memory space by substring match over their text. Returns matching content records and live facts ordered by recency."
)

// MemoryStoreInput represents the input arguments for the memory_store tool.
type MemoryStoreInput struct {
	MemorySpaceID string   `json:"memorySpaceId" jsonschema:"the memory space to store the content into"`
	Content       string   `json:"content" jsonschema:"the text content to store"`
	ContentType   string   `json:"contentType" jsonschema:"a caller-defined content type, e.g. note or summary"`
	Importance    int      `json:"importance,omitempty" jsonschema:"importance of the memory, 0-100"`
	Tags          []string `json:"tags,omitempty" jsonschema:"optional tags for filtering"`
	UserID        string   `json:"userId,omitempty" jsonschema:"optional owning user id"`
	ParticipantID string   `json:"participantId,omitempty" jsonschema:"optional participant attribution"`
}

// MemoryStoreOutput represents the structured output of a memory store.
type MemoryStoreOutput struct {
	Memory *memory.ContentRecord `json:"memory"`
}

// handleMemoryStore processes a memory store request via MCP.
func (s *Server) handleMemoryStore(ctx context.Context, _ *mcp.CallToolRequest, input MemoryStoreInput) (*mcp.CallToolResult, MemoryStoreOutput, error) {
	logger := s.config.Logger

	record, err := s.config.Records.Store(ctx, records.StoreRequest{
		MemorySpaceID: input.MemorySpaceID,
		Content:       input.Content,
		ContentType:   input.ContentType,
		Importance:    input.Importance,
		Tags:          input.Tags,
		UserID:        input.UserID,
		ParticipantID: input.ParticipantID,
	})
	if err != nil {
		logger.Error("memory store failed", zap.Error(err))
		return errorResult(fmt.Sprintf("Memory store failed: %v", err)), MemoryStoreOutput{}, nil
	}

	output := MemoryStoreOutput{Memory: record}

	jsonBytes, err := json.Marshal(output)
	if err != nil {
		logger.Error("failed to marshal store output", zap.Error(err))
		return errorResult(fmt.Sprintf("Failed to serialize result: %v", err)), MemoryStoreOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}

// MemorySearchInput represents the input arguments for the memory_search tool.
type MemorySearchInput struct {
	MemorySpaceID string `json:"memorySpaceId" jsonschema:"the memory space to search"`
	Query         string `json:"query" jsonschema:"the text to match against stored memories and facts"`
	Limit         int    `json:"limit,omitempty" jsonschema:"maximum results per kind (default: 10)"`
}

// MemorySearchOutput represents the structured output of a memory search.
type MemorySearchOutput struct {
	Query    string                  `json:"query"`
	Memories []*memory.ContentRecord `json:"memories"`
	Facts    []*memory.Fact          `json:"facts"`
	Count    int                     `json:"count"`
}

// handleMemorySearch processes a search request across records and facts.
func (s *Server) handleMemorySearch(ctx context.Context, _ *mcp.CallToolRequest, input MemorySearchInput) (*mcp.CallToolResult, MemorySearchOutput, error) {
	logger := s.config.Logger

	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}

	logger.Debug("MCP memory search",
		zap.String("memorySpaceId", input.MemorySpaceID),
		zap.String("query", input.Query),
		zap.Int("limit", limit),
	)

	memories, err := s.config.Records.Search(ctx, input.MemorySpaceID, input.Query, storage.RecordFilter{Limit: limit})
	if err != nil {
		logger.Error("memory search failed", zap.Error(err))
		return errorResult(fmt.Sprintf("Memory search failed: %v", err)), MemorySearchOutput{}, nil
	}

	facts, err := s.config.Facts.Search(ctx, input.MemorySpaceID, input.Query, storage.FactFilter{Limit: limit})
	if err != nil {
		logger.Error("fact search failed", zap.Error(err))
		return errorResult(fmt.Sprintf("Fact search failed: %v", err)), MemorySearchOutput{}, nil
	}

	if memories == nil {
		memories = []*memory.ContentRecord{}
	}
	if facts == nil {
		facts = []*memory.Fact{}
	}

	output := MemorySearchOutput{
		Query:    input.Query,
		Memories: memories,
		Facts:    facts,
		Count:    len(memories) + len(facts),
	}

	jsonBytes, err := json.Marshal(output)
	if err != nil {
		logger.Error("failed to marshal search output", zap.Error(err))
		return errorResult(fmt.Sprintf("Failed to serialize results: %v", err)), MemorySearchOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}
