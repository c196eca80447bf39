package api

import (
	"encoding/json/v2"

	"github.com/gofiber/fiber/v2"
)

// handlePutImmutable handles POST /v1/immutable/:type/:id. The raw body is
// the entry content; identical content is deduplicated to the latest version.
func (s *Server) handlePutImmutable(c *fiber.Ctx) error {
	body := c.Body()
	if len(body) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "request body is required",
		})
	}

	var probe any
	if err := json.Unmarshal(body, &probe); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "request body must be valid JSON",
		})
	}

	entry, err := s.immutable.Put(c.Context(), c.Params("type"), c.Params("id"), append([]byte(nil), body...))
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(entry)
}

// handleGetImmutable handles GET /v1/immutable/:type/:id. An optional
// ?version= selects a specific version instead of the latest.
func (s *Server) handleGetImmutable(c *fiber.Ctx) error {
	entryType := c.Params("type")
	id := c.Params("id")

	if versionStr := c.Query("version"); versionStr != "" {
		version := c.QueryInt("version")
		if version < 1 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: "version must be a positive integer",
			})
		}

		entry, err := s.immutable.GetVersion(c.Context(), entryType, id, version)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(entry)
	}

	entry, err := s.immutable.Get(c.Context(), entryType, id)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(entry)
}

// handleImmutableHistory handles GET /v1/immutable/:type/:id/history.
func (s *Server) handleImmutableHistory(c *fiber.Ctx) error {
	history, err := s.immutable.History(c.Context(), c.Params("type"), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(map[string]any{
		"count":    len(history),
		"versions": history,
	})
}

// SetMutableRequest is the body for PUT /v1/mutable/:namespace/:key.
type SetMutableRequest struct {
	Value string `json:"value"`
}

// handleSetMutable handles PUT /v1/mutable/:namespace/:key (last write wins).
func (s *Server) handleSetMutable(c *fiber.Ctx) error {
	var req SetMutableRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "invalid request body",
		})
	}

	cell, err := s.mutable.Set(c.Context(), c.Params("namespace"), c.Params("key"), req.Value)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(cell)
}

// handleGetMutable handles GET /v1/mutable/:namespace/:key.
func (s *Server) handleGetMutable(c *fiber.Ctx) error {
	cell, err := s.mutable.Get(c.Context(), c.Params("namespace"), c.Params("key"))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(cell)
}

// handleDeleteMutable handles DELETE /v1/mutable/:namespace/:key.
func (s *Server) handleDeleteMutable(c *fiber.Ctx) error {
	deleted, err := s.mutable.Delete(c.Context(), c.Params("namespace"), c.Params("key"))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(map[string]bool{"deleted": deleted})
}
