package memory

import "time"

// ContextStatus is the lifecycle state of a task context.
type ContextStatus string

const (
	ContextActive    ContextStatus = "active"
	ContextCompleted ContextStatus = "completed"
	ContextFailed    ContextStatus = "failed"
)

// Context is a node in the hierarchical task tree.
//
// Tree invariants, maintained by pkg/hierarchy:
//   - RootID equals the node's own id when ParentID is nil, else the
//     parent's RootID
//   - Depth = parent.Depth + 1, root depth 0
//   - parent.ChildIDs always contains every child's id (bidirectional link)
//   - the parent graph is acyclic
type Context struct {
	ContextID     string `json:"contextId"`
	MemorySpaceID string `json:"memorySpaceId"`
	Purpose       string `json:"purpose"`

	ParentID *string  `json:"parentId,omitempty"`
	RootID   string   `json:"rootId"`
	Depth    int      `json:"depth"`
	ChildIDs []string `json:"childIds,omitempty"`

	Status ContextStatus `json:"status"`

	ConversationRef *ConversationRef `json:"conversationRef,omitempty"`
	Data            map[string]any   `json:"data,omitempty"`

	// GrantedAccess lists cross-space read grants on this node. A grant is a
	// capability on the context node only, never transitive to entities the
	// context's data references.
	GrantedAccess []AccessGrant `json:"grantedAccess,omitempty"`

	Participants []string `json:"participants,omitempty"`

	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// AccessGrant is a read capability granted from a context to another memory
// space.
type AccessGrant struct {
	MemorySpaceID string `json:"memorySpaceId"`
	Scope         string `json:"scope"`
}

// HasChild reports whether id is among the node's children.
func (c *Context) HasChild(id string) bool {
	for _, child := range c.ChildIDs {
		if child == id {
			return true
		}
	}
	return false
}

// GrantsAccessTo reports whether the node carries a grant for the given
// memory space.
func (c *Context) GrantsAccessTo(memorySpaceID string) bool {
	for _, g := range c.GrantedAccess {
		if g.MemorySpaceID == memorySpaceID {
			return true
		}
	}
	return false
}
