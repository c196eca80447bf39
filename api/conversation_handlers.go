package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/SaintNick1214/cortex/pkg/conversations"
	"github.com/SaintNick1214/cortex/pkg/storage"
)

// handleCreateConversation handles POST /v1/conversations.
func (s *Server) handleCreateConversation(c *fiber.Ctx) error {
	var req conversations.CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "invalid request body",
		})
	}

	conv, err := s.convs.Create(c.Context(), req)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(conv)
}

// handleListConversations handles GET /v1/conversations.
func (s *Server) handleListConversations(c *fiber.Ctx) error {
	space, ok := requireSpace(c)
	if !ok {
		return nil
	}

	filter := storage.ConversationFilter{
		Type:        c.Query("type"),
		Participant: c.Query("participant"),
		Query:       c.Query("query"),
	}

	limit, offset, ok := parsePaging(c)
	if !ok {
		return nil
	}
	filter.Limit = limit
	filter.Offset = offset

	list, err := s.convs.List(c.Context(), space, filter)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(map[string]any{
		"count":         len(list),
		"conversations": list,
	})
}

// handleGetConversation handles GET /v1/conversations/:id.
func (s *Server) handleGetConversation(c *fiber.Ctx) error {
	space, ok := requireSpace(c)
	if !ok {
		return nil
	}

	conv, err := s.convs.Get(c.Context(), space, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(conv)
}

// handleDeleteConversation handles DELETE /v1/conversations/:id. References
// held by other entities are left dangling on purpose.
func (s *Server) handleDeleteConversation(c *fiber.Ctx) error {
	space, ok := requireSpace(c)
	if !ok {
		return nil
	}

	deleted, err := s.convs.Delete(c.Context(), space, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(map[string]bool{"deleted": deleted})
}

// AddMessageRequest is the body for POST /v1/conversations/:id/messages.
type AddMessageRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// handleAddMessage handles POST /v1/conversations/:id/messages.
func (s *Server) handleAddMessage(c *fiber.Ctx) error {
	space, ok := requireSpace(c)
	if !ok {
		return nil
	}

	var req AddMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "invalid request body",
		})
	}

	msg, err := s.convs.AddMessage(c.Context(), space, c.Params("id"), req.Role, req.Content)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(msg)
}
