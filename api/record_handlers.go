package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/SaintNick1214/cortex/pkg/records"
	"github.com/SaintNick1214/cortex/pkg/storage"
)

func (s *Server) recordFilterFromQuery(c *fiber.Ctx) (storage.RecordFilter, bool) {
	filter := storage.RecordFilter{
		UserID:        c.Query("userId"),
		ContentType:   c.Query("contentType"),
		ParticipantID: c.Query("participantId"),
		Query:         c.Query("query"),
	}

	if minStr := c.Query("minImportance"); minStr != "" {
		n, err := strconv.Atoi(minStr)
		if err != nil || n < 0 || n > 100 {
			_ = c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: "minImportance must be an integer in [0,100]",
			})
			return filter, false
		}
		filter.MinImportance = n
	}

	after, ok := parseTimeParam(c, "createdAfter")
	if !ok {
		return filter, false
	}
	filter.CreatedAfter = after

	before, ok := parseTimeParam(c, "createdBefore")
	if !ok {
		return filter, false
	}
	filter.CreatedBefore = before

	limit, offset, ok := parsePaging(c)
	if !ok {
		return filter, false
	}
	filter.Limit = limit
	filter.Offset = offset

	return filter, true
}

// handleStoreMemory handles POST /v1/memories.
func (s *Server) handleStoreMemory(c *fiber.Ctx) error {
	var req records.StoreRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "invalid request body",
		})
	}

	record, err := s.records.Store(c.Context(), req)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(record)
}

// handleListMemories handles GET /v1/memories.
func (s *Server) handleListMemories(c *fiber.Ctx) error {
	space, ok := requireSpace(c)
	if !ok {
		return nil
	}

	filter, ok := s.recordFilterFromQuery(c)
	if !ok {
		return nil
	}

	list, err := s.records.List(c.Context(), space, filter)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(map[string]any{
		"count":    len(list),
		"memories": list,
	})
}

// handleCountMemories handles GET /v1/memories/count.
func (s *Server) handleCountMemories(c *fiber.Ctx) error {
	space, ok := requireSpace(c)
	if !ok {
		return nil
	}

	filter, ok := s.recordFilterFromQuery(c)
	if !ok {
		return nil
	}

	count, err := s.records.Count(c.Context(), space, filter)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(map[string]int{"count": count})
}

// handleGetMemory handles GET /v1/memories/:id.
func (s *Server) handleGetMemory(c *fiber.Ctx) error {
	space, ok := requireSpace(c)
	if !ok {
		return nil
	}

	record, err := s.records.Get(c.Context(), space, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(record)
}

// handleUpdateMemory handles PATCH /v1/memories/:id.
func (s *Server) handleUpdateMemory(c *fiber.Ctx) error {
	space, ok := requireSpace(c)
	if !ok {
		return nil
	}

	var req records.UpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "invalid request body",
		})
	}

	record, err := s.records.Update(c.Context(), space, c.Params("id"), req)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(record)
}

// handleDeleteMemory handles DELETE /v1/memories/:id.
func (s *Server) handleDeleteMemory(c *fiber.Ctx) error {
	space, ok := requireSpace(c)
	if !ok {
		return nil
	}

	deleted, err := s.records.Delete(c.Context(), space, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(map[string]bool{"deleted": deleted})
}

// handleMemoryHistory handles GET /v1/memories/:id/history.
func (s *Server) handleMemoryHistory(c *fiber.Ctx) error {
	space, ok := requireSpace(c)
	if !ok {
		return nil
	}

	history, err := s.records.History(c.Context(), space, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(map[string]any{
		"count":    len(history),
		"versions": history,
	})
}

// handleMemoryVersion handles GET /v1/memories/:id/versions/:version.
func (s *Server) handleMemoryVersion(c *fiber.Ctx) error {
	space, ok := requireSpace(c)
	if !ok {
		return nil
	}

	version, err := strconv.Atoi(c.Params("version"))
	if err != nil || version < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "version must be a positive integer",
		})
	}

	record, err := s.records.GetVersion(c.Context(), space, c.Params("id"), version)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(record)
}

// handleMemoryAtTimestamp handles GET /v1/memories/:id/at?timestamp=.
func (s *Server) handleMemoryAtTimestamp(c *fiber.Ctx) error {
	space, ok := requireSpace(c)
	if !ok {
		return nil
	}

	if c.Query("timestamp") == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "timestamp parameter is required",
		})
	}

	t, ok := parseTimeParam(c, "timestamp")
	if !ok {
		return nil
	}

	record, err := s.records.AtTimestamp(c.Context(), space, c.Params("id"), *t)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(record)
}

// UpdateManyRequest is the body for PATCH /v1/memories.
type UpdateManyRequest struct {
	Filter records.UpdateManyFilter `json:"filter"`
	Patch  records.UpdateRequest    `json:"patch"`
}

// handleUpdateManyMemories handles PATCH /v1/memories.
func (s *Server) handleUpdateManyMemories(c *fiber.Ctx) error {
	var req UpdateManyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "invalid request body",
		})
	}

	updated, err := s.records.UpdateMany(c.Context(), req.Filter, req.Patch)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(map[string]int{"updated": updated})
}
