package api

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/SaintNick1214/cortex/pkg/eventstream"
	"github.com/SaintNick1214/cortex/pkg/eventstream/worker"
	"github.com/SaintNick1214/cortex/pkg/memory"
	"github.com/SaintNick1214/cortex/pkg/revision"
	"github.com/SaintNick1214/cortex/pkg/storage"
)

// requireSpace reads the memorySpaceId query parameter, writing a 400 when absent.
func requireSpace(c *fiber.Ctx) (string, bool) {
	space := c.Query("memorySpaceId")
	if space == "" {
		_ = c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "memorySpaceId parameter is required",
		})
		return "", false
	}
	return space, true
}

// parsePaging reads limit/offset query parameters, writing a 400 on bad input.
func parsePaging(c *fiber.Ctx) (limit, offset int, ok bool) {
	if limitStr := c.Query("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n < 0 {
			_ = c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: "limit must be a non-negative integer",
			})
			return 0, 0, false
		}
		limit = n
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		n, err := strconv.Atoi(offsetStr)
		if err != nil || n < 0 {
			_ = c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: "offset must be a non-negative integer",
			})
			return 0, 0, false
		}
		offset = n
	}

	return limit, offset, true
}

func parseTimeParam(c *fiber.Ctx, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}

	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		_ = c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: name + " must be an RFC 3339 timestamp",
		})
		return nil, false
	}
	return &t, true
}

// factFilterFromQuery builds a FactFilter from query parameters. The space
// is set by the caller; the engine forces it regardless.
func (s *Server) factFilterFromQuery(c *fiber.Ctx) (storage.FactFilter, bool) {
	filter := storage.FactFilter{
		Subject:       c.Query("subject"),
		Predicate:     c.Query("predicate"),
		FactType:      memory.FactType(c.Query("factType")),
		ParticipantID: c.Query("participantId"),
		Query:         c.Query("query"),
	}

	if minStr := c.Query("minConfidence"); minStr != "" {
		n, err := strconv.Atoi(minStr)
		if err != nil || n < 0 || n > 100 {
			_ = c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: "minConfidence must be an integer in [0,100]",
			})
			return filter, false
		}
		filter.MinConfidence = n
	}

	if c.Query("includeSuperseded") == "true" {
		filter.IncludeSuperseded = true
	}

	validAt, ok := parseTimeParam(c, "validAt")
	if !ok {
		return filter, false
	}
	filter.ValidAt = validAt

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

// emitFactRevised enqueues a fact revision event when publishing is enabled.
// NONE outcomes produce no event.
func (s *Server) emitFactRevised(result *revision.Result) {
	if s.events == nil || result.Action == revision.ActionNone {
		return
	}

	event := eventstream.NewFactRevisedEvent(string(result.Action), result.Fact, result.Previous)
	if !s.events.Enqueue(worker.Job{FactRevised: event}) {
		s.logger.Warn("event queue full, dropping fact revision event",
			zap.String("factId", result.Fact.FactID),
		)
	}
}

// handleAssertFact handles POST /v1/facts.
func (s *Server) handleAssertFact(c *fiber.Ctx) error {
	var candidate memory.Candidate
	if err := c.BodyParser(&candidate); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "invalid request body",
		})
	}

	result, err := s.facts.Assert(c.Context(), &candidate)
	if err != nil {
		return respondError(c, err)
	}

	s.emitFactRevised(result)

	return c.Status(fiber.StatusCreated).JSON(result)
}

// handleListFacts handles GET /v1/facts.
func (s *Server) handleListFacts(c *fiber.Ctx) error {
	space, ok := requireSpace(c)
	if !ok {
		return nil
	}

	filter, ok := s.factFilterFromQuery(c)
	if !ok {
		return nil
	}

	facts, err := s.facts.List(c.Context(), space, filter)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(map[string]any{
		"count": len(facts),
		"facts": facts,
	})
}

// handleCountFacts handles GET /v1/facts/count.
func (s *Server) handleCountFacts(c *fiber.Ctx) error {
	space, ok := requireSpace(c)
	if !ok {
		return nil
	}

	filter, ok := s.factFilterFromQuery(c)
	if !ok {
		return nil
	}

	count, err := s.facts.Count(c.Context(), space, filter)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(map[string]int{"count": count})
}

// handleGetFact handles GET /v1/facts/:id.
func (s *Server) handleGetFact(c *fiber.Ctx) error {
	space, ok := requireSpace(c)
	if !ok {
		return nil
	}

	fact, err := s.facts.Get(c.Context(), space, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fact)
}

// handleUpdateFact handles PATCH /v1/facts/:id. A successful update forks a
// new version; the response carries the revision result.
func (s *Server) handleUpdateFact(c *fiber.Ctx) error {
	space, ok := requireSpace(c)
	if !ok {
		return nil
	}

	var req revision.UpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "invalid request body",
		})
	}

	result, err := s.facts.Update(c.Context(), space, c.Params("id"), req)
	if err != nil {
		return respondError(c, err)
	}

	s.emitFactRevised(result)

	return c.JSON(result)
}

// handleDeleteFact handles DELETE /v1/facts/:id (soft delete).
func (s *Server) handleDeleteFact(c *fiber.Ctx) error {
	space, ok := requireSpace(c)
	if !ok {
		return nil
	}

	deleted, err := s.facts.Delete(c.Context(), space, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(map[string]bool{"deleted": deleted})
}

// handleFactHistory handles GET /v1/facts/:id/history.
func (s *Server) handleFactHistory(c *fiber.Ctx) error {
	space, ok := requireSpace(c)
	if !ok {
		return nil
	}

	history, err := s.facts.History(c.Context(), space, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(map[string]any{
		"count":    len(history),
		"versions": history,
	})
}

// handleFactVersion handles GET /v1/facts/:id/versions/:version.
func (s *Server) handleFactVersion(c *fiber.Ctx) error {
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

	fact, err := s.facts.GetVersion(c.Context(), space, c.Params("id"), version)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fact)
}

// handleFactAtTimestamp handles GET /v1/facts/:id/at?timestamp=.
func (s *Server) handleFactAtTimestamp(c *fiber.Ctx) error {
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

	fact, err := s.facts.AtTimestamp(c.Context(), space, c.Params("id"), *t)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fact)
}

// handleUpdateEnrichment handles PATCH /v1/facts/:id/enrichment. Enrichment
// edits mutate in place without forking a version.
func (s *Server) handleUpdateEnrichment(c *fiber.Ctx) error {
	space, ok := requireSpace(c)
	if !ok {
		return nil
	}

	var enrichment memory.Enrichment
	if err := c.BodyParser(&enrichment); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "invalid request body",
		})
	}

	fact, err := s.facts.UpdateEnrichment(c.Context(), space, c.Params("id"), enrichment)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fact)
}

// ConsolidateRequest is the body for POST /v1/facts/consolidate.
type ConsolidateRequest struct {
	MemorySpaceID string   `json:"memorySpaceId"`
	FactIDs       []string `json:"factIds"`
	KeepFactID    string   `json:"keepFactId"`
}

// handleConsolidateFacts handles POST /v1/facts/consolidate.
func (s *Server) handleConsolidateFacts(c *fiber.Ctx) error {
	var req ConsolidateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "invalid request body",
		})
	}

	result, err := s.facts.Consolidate(c.Context(), req.MemorySpaceID, req.FactIDs, req.KeepFactID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(result)
}
