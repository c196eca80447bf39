package api

import (
	"bytes"

	"github.com/gofiber/fiber/v2"

	"github.com/SaintNick1214/cortex/pkg/export"
	"github.com/SaintNick1214/cortex/pkg/storage"
)

func contentTypeFor(format export.Format) string {
	switch format {
	case export.FormatJSONLD:
		return "application/ld+json"
	case export.FormatCSV:
		return "text/csv"
	default:
		return fiber.MIMEApplicationJSON
	}
}

// handleExport handles GET /v1/export/:entity?memorySpaceId=&format=.
// Entities: facts, memories, contexts, conversations. Export operates on
// the space-scoped view; superseded facts are included when
// ?includeSuperseded=true.
func (s *Server) handleExport(c *fiber.Ctx) error {
	space, ok := requireSpace(c)
	if !ok {
		return nil
	}

	format, err := export.ParseFormat(c.Query("format", "json"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: err.Error(),
		})
	}

	var buf bytes.Buffer
	ctx := c.Context()

	switch c.Params("entity") {
	case "facts":
		filter := storage.FactFilter{
			IncludeSuperseded: c.Query("includeSuperseded") == "true",
		}
		facts, err := s.facts.List(ctx, space, filter)
		if err != nil {
			return respondError(c, err)
		}
		if err := export.Facts(&buf, format, facts); err != nil {
			return respondError(c, err)
		}

	case "memories":
		list, err := s.records.List(ctx, space, storage.RecordFilter{})
		if err != nil {
			return respondError(c, err)
		}
		if err := export.Records(&buf, format, list); err != nil {
			return respondError(c, err)
		}

	case "contexts":
		list, err := s.contexts.List(ctx, space, storage.ContextFilter{})
		if err != nil {
			return respondError(c, err)
		}
		if err := export.Contexts(&buf, format, list); err != nil {
			return respondError(c, err)
		}

	case "conversations":
		list, err := s.convs.List(ctx, space, storage.ConversationFilter{})
		if err != nil {
			return respondError(c, err)
		}
		if err := export.Conversations(&buf, format, list); err != nil {
			return respondError(c, err)
		}

	default:
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "entity must be one of facts, memories, contexts, conversations",
		})
	}

	c.Set(fiber.HeaderContentType, contentTypeFor(format))
	return c.Send(buf.Bytes())
}
