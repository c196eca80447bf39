package api

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/SaintNick1214/cortex/pkg/eventstream"
	"github.com/SaintNick1214/cortex/pkg/eventstream/worker"
	"github.com/SaintNick1214/cortex/pkg/storage"
)

// SpaceSummary aggregates per-space entity counts.
type SpaceSummary struct {
	MemorySpaceID string `json:"memorySpaceId"`
	Facts         int    `json:"facts"`
	Memories      int    `json:"memories"`
	Contexts      int    `json:"contexts"`
	Conversations int    `json:"conversations"`
}

// handleListSpaces handles GET /v1/spaces. Spaces exist implicitly: any
// space that holds at least one entity is listed.
func (s *Server) handleListSpaces(c *fiber.Ctx) error {
	ctx := c.Context()

	spaces, err := s.driver.Spaces(ctx)
	if err != nil {
		return respondError(c, err)
	}

	summaries := make([]SpaceSummary, 0, len(spaces))
	for _, space := range spaces {
		facts, err := s.facts.Count(ctx, space, storage.FactFilter{})
		if err != nil {
			return respondError(c, err)
		}
		memories, err := s.records.Count(ctx, space, storage.RecordFilter{})
		if err != nil {
			return respondError(c, err)
		}
		contexts, err := s.contexts.Count(ctx, space, storage.ContextFilter{})
		if err != nil {
			return respondError(c, err)
		}
		convs, err := s.convs.Count(ctx, space, storage.ConversationFilter{})
		if err != nil {
			return respondError(c, err)
		}

		summaries = append(summaries, SpaceSummary{
			MemorySpaceID: space,
			Facts:         facts,
			Memories:      memories,
			Contexts:      contexts,
			Conversations: convs,
		})
	}

	return c.JSON(map[string]any{
		"count":  len(summaries),
		"spaces": summaries,
	})
}

// handleDeleteSpace handles DELETE /v1/spaces/:id. Requires ?cascade=true
// when the space still holds data; contexts are preserved for audit either
// way.
func (s *Server) handleDeleteSpace(c *fiber.Ctx) error {
	cascadeAll := c.Query("cascade") == "true"

	result, err := s.cascade.DeleteSpace(c.Context(), c.Params("id"), cascadeAll)
	if err != nil {
		return respondError(c, err)
	}

	if s.events != nil {
		event := eventstream.NewSpacePurgedEvent(
			result.MemorySpaceID,
			result.ConversationsDeleted,
			result.MemoriesDeleted,
			result.FactsSoftDeleted,
			result.ContextsPreserved,
		)
		if !s.events.Enqueue(worker.Job{SpacePurged: event}) {
			s.logger.Warn("event queue full, dropping space purge event",
				zap.String("memorySpaceId", result.MemorySpaceID),
			)
		}
	}

	return c.JSON(result)
}

// handleDeleteUserData handles DELETE /v1/users/:id. Removes the user's
// content records across every space.
func (s *Server) handleDeleteUserData(c *fiber.Ctx) error {
	result, err := s.cascade.DeleteUserData(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(result)
}
