package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/SaintNick1214/cortex/pkg/memory"
)

var (
	factAssertToolName    = "fact_assert"
	factAssertDescription = "Assert a structured fact into a memory space. The store compares the candidate against existing facts about the same subject and either adds it, updates a prior version, supersedes a contradiction, or discards it as a duplicate. Returns the resulting fact and the action taken."
)

// FactAssertInput represents the input arguments for the fact_assert tool.
type FactAssertInput struct {
	MemorySpaceID string   `json:"memorySpaceId" jsonschema:"the memory space to assert the fact into"`
	Subject       string   `json:"subject" jsonschema:"the entity the fact is about"`
	Predicate     string   `json:"predicate,omitempty" jsonschema:"the relation between subject and object"`
	Object        string   `json:"object,omitempty" jsonschema:"the value or target of the relation"`
	FactText      string   `json:"factText" jsonschema:"the full natural-language statement of the fact"`
	FactType      string   `json:"factType" jsonschema:"one of: identity, preference, relationship, knowledge, event, observation"`
	Confidence    int      `json:"confidence" jsonschema:"confidence in the fact, 0-100"`
	Tags          []string `json:"tags,omitempty" jsonschema:"optional tags for filtering"`
	ParticipantID string   `json:"participantId,omitempty" jsonschema:"optional participant attribution"`
}

// FactAssertOutput represents the structured output of a fact assertion.
type FactAssertOutput struct {
	Action   string       `json:"action"`
	Fact     *memory.Fact `json:"fact,omitempty"`
	Previous *memory.Fact `json:"previous,omitempty"`
}

// handleFactAssert processes a fact assertion via MCP.
func (s *Server) handleFactAssert(ctx context.Context, _ *mcp.CallToolRequest, input FactAssertInput) (*mcp.CallToolResult, FactAssertOutput, error) {
	logger := s.config.Logger

	logger.Debug("MCP fact assert",
		zap.String("memorySpaceId", input.MemorySpaceID),
		zap.String("subject", input.Subject),
	)

	result, err := s.config.Facts.Assert(ctx, &memory.Candidate{
		MemorySpaceID: input.MemorySpaceID,
		Subject:       input.Subject,
		Predicate:     input.Predicate,
		Object:        input.Object,
		FactText:      input.FactText,
		FactType:      memory.FactType(input.FactType),
		Confidence:    input.Confidence,
		Tags:          input.Tags,
		ParticipantID: input.ParticipantID,
	})
	if err != nil {
		logger.Error("fact assertion failed", zap.Error(err))
		return errorResult(fmt.Sprintf("Fact assertion failed: %v", err)), FactAssertOutput{}, nil
	}

	output := FactAssertOutput{
		Action:   string(result.Action),
		Fact:     result.Fact,
		Previous: result.Previous,
	}

	// Serialize the structured output as JSON for the text field
	// Per MCP spec: tools returning structured content should also return
	// serialized JSON in a TextContent block for backwards compatibility
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		logger.Error("failed to marshal assert output", zap.Error(err))
		return errorResult(fmt.Sprintf("Failed to serialize result: %v", err)), FactAssertOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}
