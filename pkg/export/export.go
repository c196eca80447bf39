// Package export serializes read-filtered entity views.
//
// Export never queries the store itself; callers list through the service
// layer (which enforces space scoping and read filters) and hand the
// resulting slice here. Three formats: plain JSON, JSON-LD with an @context
// and @graph, and CSV with fixed per-entity columns.
package export

import (
	"encoding/csv"
	"encoding/json/jsontext"
	"encoding/json/v2"
	"io"
	"strconv"
	"time"

	"github.com/SaintNick1214/cortex/pkg/memory"
)

// Format selects the export serialization.
type Format string

const (
	FormatJSON   Format = "json"
	FormatJSONLD Format = "jsonld"
	FormatCSV    Format = "csv"
)

// ParseFormat validates a format string.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatJSONLD, FormatCSV:
		return Format(s), nil
	}
	return "", memory.Validationf("unknown export format %q", s)
}

// jsonLDContext is the @context emitted for JSON-LD exports. Terms map onto
// schema.org where a sensible equivalent exists; the rest stay in the cortex
// vocabulary.
var jsonLDContext = map[string]any{
	"@vocab":    "https://schema.org/",
	"cortex":    "https://cortex.dev/ns#",
	"factId":    "cortex:factId",
	"subject":   "cortex:subject",
	"predicate": "cortex:predicate",
	"object":    "cortex:object",
	"factText":  "text",
	"createdAt": "dateCreated",
	"updatedAt": "dateModified",
}

type jsonLDDocument struct {
	Context map[string]any `json:"@context"`
	Type    string         `json:"@type"`
	Graph   any            `json:"@graph"`
}

func writeJSON(w io.Writer, v any) error {
	return json.MarshalWrite(w, v, jsontext.WithIndent("  "))
}

// Facts exports a fact slice in the given format.
func Facts(w io.Writer, format Format, facts []*memory.Fact) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, facts)
	case FormatJSONLD:
		return writeJSON(w, jsonLDDocument{
			Context: jsonLDContext,
			Type:    "cortex:FactExport",
			Graph:   facts,
		})
	case FormatCSV:
		return factsCSV(w, facts)
	}
	return memory.Validationf("unknown export format %q", format)
}

func factsCSV(w io.Writer, facts []*memory.Fact) error {
	cw := csv.NewWriter(w)
	header := []string{
		"factId", "memorySpaceId", "subject", "predicate", "object",
		"factText", "factType", "confidence", "version",
		"supersedes", "supersededBy", "validFrom", "validUntil", "createdAt",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, f := range facts {
		row := []string{
			f.FactID, f.MemorySpaceID, f.Subject, f.Predicate, f.Object,
			f.FactText, string(f.FactType),
			strconv.Itoa(f.Confidence), strconv.Itoa(f.Version),
			derefString(f.Supersedes), derefString(f.SupersededBy),
			formatTime(f.ValidFrom), formatTimePtr(f.ValidUntil),
			formatTime(f.CreatedAt),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// Records exports a content record slice in the given format.
func Records(w io.Writer, format Format, records []*memory.ContentRecord) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, records)
	case FormatJSONLD:
		return writeJSON(w, jsonLDDocument{
			Context: jsonLDContext,
			Type:    "cortex:MemoryExport",
			Graph:   records,
		})
	case FormatCSV:
		return recordsCSV(w, records)
	}
	return memory.Validationf("unknown export format %q", format)
}

func recordsCSV(w io.Writer, records []*memory.ContentRecord) error {
	cw := csv.NewWriter(w)
	header := []string{
		"id", "memorySpaceId", "contentType", "content",
		"importance", "version", "userId", "participantId",
		"createdAt", "updatedAt",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range records {
		row := []string{
			r.ID, r.MemorySpaceID, r.ContentType, r.Content,
			strconv.Itoa(r.Importance), strconv.Itoa(r.Version),
			r.UserID, r.ParticipantID,
			formatTime(r.CreatedAt), formatTime(r.UpdatedAt),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// Contexts exports a context node slice in the given format.
func Contexts(w io.Writer, format Format, nodes []*memory.Context) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, nodes)
	case FormatJSONLD:
		return writeJSON(w, jsonLDDocument{
			Context: jsonLDContext,
			Type:    "cortex:ContextExport",
			Graph:   nodes,
		})
	case FormatCSV:
		return contextsCSV(w, nodes)
	}
	return memory.Validationf("unknown export format %q", format)
}

func contextsCSV(w io.Writer, nodes []*memory.Context) error {
	cw := csv.NewWriter(w)
	header := []string{
		"contextId", "memorySpaceId", "purpose", "status",
		"parentId", "rootId", "depth", "childCount", "createdAt",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, n := range nodes {
		row := []string{
			n.ContextID, n.MemorySpaceID, n.Purpose, string(n.Status),
			derefString(n.ParentID), n.RootID,
			strconv.Itoa(n.Depth), strconv.Itoa(len(n.ChildIDs)),
			formatTime(n.CreatedAt),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// Conversations exports a conversation slice in the given format. CSV
// flattens one row per message.
func Conversations(w io.Writer, format Format, convs []*memory.Conversation) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, convs)
	case FormatJSONLD:
		return writeJSON(w, jsonLDDocument{
			Context: jsonLDContext,
			Type:    "cortex:ConversationExport",
			Graph:   convs,
		})
	case FormatCSV:
		return conversationsCSV(w, convs)
	}
	return memory.Validationf("unknown export format %q", format)
}

func conversationsCSV(w io.Writer, convs []*memory.Conversation) error {
	cw := csv.NewWriter(w)
	header := []string{
		"conversationId", "memorySpaceId", "type",
		"messageId", "role", "content", "timestamp",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, c := range convs {
		if len(c.Messages) == 0 {
			row := []string{c.ConversationID, c.MemorySpaceID, c.Type, "", "", "", ""}
			if err := cw.Write(row); err != nil {
				return err
			}
			continue
		}
		for _, m := range c.Messages {
			row := []string{
				c.ConversationID, c.MemorySpaceID, c.Type,
				m.MessageID, m.Role, m.Content, formatTime(m.Timestamp),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}
