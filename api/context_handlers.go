package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/SaintNick1214/cortex/pkg/hierarchy"
	"github.com/SaintNick1214/cortex/pkg/memory"
	"github.com/SaintNick1214/cortex/pkg/storage"
)

// handleCreateContext handles POST /v1/contexts.
func (s *Server) handleCreateContext(c *fiber.Ctx) error {
	var req hierarchy.CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "invalid request body",
		})
	}

	node, err := s.contexts.Create(c.Context(), req)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(node)
}

// handleListContexts handles GET /v1/contexts.
func (s *Server) handleListContexts(c *fiber.Ctx) error {
	space, ok := requireSpace(c)
	if !ok {
		return nil
	}

	filter := storage.ContextFilter{
		Status: memory.ContextStatus(c.Query("status")),
		RootID: c.Query("rootId"),
		Query:  c.Query("query"),
	}

	if parentID := c.Query("parentId"); parentID != "" {
		filter.ParentID = &parentID
	}

	limit, offset, ok := parsePaging(c)
	if !ok {
		return nil
	}
	filter.Limit = limit
	filter.Offset = offset

	list, err := s.contexts.List(c.Context(), space, filter)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(map[string]any{
		"count":    len(list),
		"contexts": list,
	})
}

// handleGetContext handles GET /v1/contexts/:id.
func (s *Server) handleGetContext(c *fiber.Ctx) error {
	space, ok := requireSpace(c)
	if !ok {
		return nil
	}

	node, err := s.contexts.Get(c.Context(), space, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(node)
}

// handleUpdateContext handles PATCH /v1/contexts/:id.
func (s *Server) handleUpdateContext(c *fiber.Ctx) error {
	space, ok := requireSpace(c)
	if !ok {
		return nil
	}

	var req hierarchy.UpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "invalid request body",
		})
	}

	node, err := s.contexts.Update(c.Context(), space, c.Params("id"), req)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(node)
}

// handleDeleteContext handles DELETE /v1/contexts/:id. With ?cascade=true
// the whole subtree is removed; otherwise a non-empty subtree is an error.
func (s *Server) handleDeleteContext(c *fiber.Ctx) error {
	space, ok := requireSpace(c)
	if !ok {
		return nil
	}

	cascadeChildren := c.Query("cascade") == "true"

	result, err := s.contexts.Delete(c.Context(), space, c.Params("id"), cascadeChildren)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(result)
}

// handleContextChain handles GET /v1/contexts/:id/chain.
func (s *Server) handleContextChain(c *fiber.Ctx) error {
	space, ok := requireSpace(c)
	if !ok {
		return nil
	}

	chain, err := s.contexts.GetChain(c.Context(), space, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(chain)
}

// ReparentRequest is the body for POST /v1/contexts/:id/reparent.
// A nil newParentId promotes the context to a root.
type ReparentRequest struct {
	NewParentID *string `json:"newParentId"`
}

// handleReparentContext handles POST /v1/contexts/:id/reparent.
func (s *Server) handleReparentContext(c *fiber.Ctx) error {
	space, ok := requireSpace(c)
	if !ok {
		return nil
	}

	var req ReparentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "invalid request body",
		})
	}

	node, err := s.contexts.Reparent(c.Context(), space, c.Params("id"), req.NewParentID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(node)
}

// AddParticipantRequest is the body for POST /v1/contexts/:id/participants.
type AddParticipantRequest struct {
	ParticipantID string `json:"participantId"`
}

// handleAddParticipant handles POST /v1/contexts/:id/participants.
func (s *Server) handleAddParticipant(c *fiber.Ctx) error {
	space, ok := requireSpace(c)
	if !ok {
		return nil
	}

	var req AddParticipantRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "invalid request body",
		})
	}

	node, err := s.contexts.AddParticipant(c.Context(), space, c.Params("id"), req.ParticipantID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(node)
}

// GrantAccessRequest is the body for POST /v1/contexts/:id/access.
type GrantAccessRequest struct {
	TargetSpaceID string `json:"targetSpaceId"`
	Scope         string `json:"scope"`
}

// handleGrantAccess handles POST /v1/contexts/:id/access.
func (s *Server) handleGrantAccess(c *fiber.Ctx) error {
	space, ok := requireSpace(c)
	if !ok {
		return nil
	}

	var req GrantAccessRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "invalid request body",
		})
	}

	node, err := s.contexts.GrantAccess(c.Context(), space, c.Params("id"), req.TargetSpaceID, req.Scope)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(node)
}
