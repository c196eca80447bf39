package hierarchy

import (
	"context"

	"go.uber.org/zap"

	"github.com/SaintNick1214/cortex/pkg/memory"
)

// Chain is the view of a context node's position in its tree.
type Chain struct {
	Current *memory.Context `json:"current"`
	Root    *memory.Context `json:"root"`
	Parent  *memory.Context `json:"parent,omitempty"`

	Children []*memory.Context `json:"children"`
	Siblings []*memory.Context `json:"siblings"`

	// Ancestors is ordered nearest first: parent, grandparent, ..., root.
	Ancestors []*memory.Context `json:"ancestors"`

	Depth int `json:"depth"`
}

// GetChain computes the chain view for a node by walking parent pointers.
// The walk is bounded by tree depth; cycles cannot occur by invariant.
//
// Access grants are a capability on the granted node only: a caller reading
// through a grant sees only the relatives it owns or holds its own grant on.
func (m *Manager) GetChain(ctx context.Context, memorySpaceID, contextID string) (*Chain, error) {
	current, err := m.Get(ctx, memorySpaceID, contextID)
	if err != nil {
		return nil, err
	}

	readable := func(node *memory.Context) bool {
		return node.MemorySpaceID == memorySpaceID || node.GrantsAccessTo(memorySpaceID)
	}

	chain := &Chain{
		Current:   current,
		Root:      current,
		Children:  []*memory.Context{},
		Siblings:  []*memory.Context{},
		Ancestors: []*memory.Context{},
		Depth:     current.Depth,
	}

	// Walk up to the root, exposing only readable ancestors.
	node := current
	for node.ParentID != nil {
		ancestor, err := m.driver.GetContext(ctx, *node.ParentID)
		if err != nil {
			return nil, err
		}
		if readable(ancestor) {
			if node == current {
				chain.Parent = ancestor
			}
			chain.Ancestors = append(chain.Ancestors, ancestor)
		}
		node = ancestor
	}
	if node != current && readable(node) {
		chain.Root = node
	}

	for _, childID := range current.ChildIDs {
		child, err := m.driver.GetContext(ctx, childID)
		if err != nil {
			return nil, err
		}
		if readable(child) {
			chain.Children = append(chain.Children, child)
		}
	}

	if chain.Parent != nil {
		for _, siblingID := range chain.Parent.ChildIDs {
			if siblingID == current.ContextID {
				continue
			}
			sibling, err := m.driver.GetContext(ctx, siblingID)
			if err != nil {
				return nil, err
			}
			if readable(sibling) {
				chain.Siblings = append(chain.Siblings, sibling)
			}
		}
	}

	return chain, nil
}

// Reparent moves a node under a new parent. Moves that would make an
// ancestor into a descendant are rejected, preserving acyclicity; depth and
// rootId are recomputed for the node and its whole subtree. The subtree
// rewrite iterates per node, each step atomic.
func (m *Manager) Reparent(ctx context.Context, memorySpaceID, contextID string, newParentID *string) (*memory.Context, error) {
	node, err := m.getOwned(ctx, memorySpaceID, contextID)
	if err != nil {
		return nil, err
	}

	var newParent *memory.Context
	if newParentID != nil {
		if *newParentID == contextID {
			return nil, memory.Validation("context cannot be its own parent")
		}

		newParent, err = m.driver.GetContext(ctx, *newParentID)
		if err != nil || newParent.MemorySpaceID != memorySpaceID {
			return nil, memory.NewError(memory.CodeParentNotFound,
				"parent context "+*newParentID+" not found")
		}

		// Reject a move onto the node's own descendant: walk the candidate
		// parent's ancestors looking for the node.
		ancestor := newParent
		for ancestor.ParentID != nil {
			if *ancestor.ParentID == contextID {
				return nil, memory.Validation(
					"reparenting " + contextID + " under " + *newParentID + " would create a cycle")
			}
			ancestor, err = m.driver.GetContext(ctx, *ancestor.ParentID)
			if err != nil {
				return nil, err
			}
		}
	}

	now := m.now()

	// Detach from the old parent.
	if node.ParentID != nil {
		oldParent, err := m.driver.GetContext(ctx, *node.ParentID)
		if err == nil {
			oldParent.ChildIDs = withoutString(oldParent.ChildIDs, contextID)
			oldParent.UpdatedAt = now
			if err := m.driver.UpdateContext(ctx, oldParent); err != nil {
				return nil, err
			}
		}
	}

	if newParent == nil {
		node.ParentID = nil
		node.RootID = node.ContextID
		node.Depth = 0
	} else {
		parentID := newParent.ContextID
		node.ParentID = &parentID
		node.RootID = newParent.RootID
		node.Depth = newParent.Depth + 1

		if !newParent.HasChild(contextID) {
			newParent.ChildIDs = append(newParent.ChildIDs, contextID)
			newParent.UpdatedAt = now
			if err := m.driver.UpdateContext(ctx, newParent); err != nil {
				return nil, err
			}
		}
	}
	node.UpdatedAt = now

	if err := m.driver.UpdateContext(ctx, node); err != nil {
		return nil, err
	}

	if err := m.rebaseSubtree(ctx, node); err != nil {
		return nil, err
	}

	m.logger.Debug("context reparented",
		zap.String("space", memorySpaceID),
		zap.String("context", contextID),
		zap.Int("depth", node.Depth),
	)

	return node, nil
}

// rebaseSubtree recomputes depth and rootId for every descendant of node.
func (m *Manager) rebaseSubtree(ctx context.Context, node *memory.Context) error {
	for _, childID := range node.ChildIDs {
		child, err := m.driver.GetContext(ctx, childID)
		if err != nil {
			return err
		}

		child.Depth = node.Depth + 1
		child.RootID = node.RootID
		child.UpdatedAt = m.now()

		if err := m.driver.UpdateContext(ctx, child); err != nil {
			return err
		}
		if err := m.rebaseSubtree(ctx, child); err != nil {
			return err
		}
	}
	return nil
}

// DeleteResult reports a context deletion.
type DeleteResult struct {
	Deleted            bool `json:"deleted"`
	DescendantsDeleted int  `json:"descendantsDeleted"`
}

// Delete removes a context node. A node with children fails with
// HAS_CHILDREN unless cascadeChildren is set, in which case the entire
// subtree is removed depth-first, children before parents. The subtree walk
// iterates per node; an aborted cascade leaves a partially deleted subtree
// that a retry completes.
func (m *Manager) Delete(ctx context.Context, memorySpaceID, contextID string, cascadeChildren bool) (*DeleteResult, error) {
	node, err := m.getOwned(ctx, memorySpaceID, contextID)
	if err != nil {
		return nil, err
	}

	if len(node.ChildIDs) > 0 && !cascadeChildren {
		return nil, memory.NewError(memory.CodeHasChildren,
			"context "+contextID+" has children; set cascadeChildren to delete the subtree")
	}

	descendants := 0
	for _, childID := range node.ChildIDs {
		n, err := m.deleteSubtree(ctx, childID)
		if err != nil {
			return nil, err
		}
		descendants += n
	}

	deleted, err := m.driver.DeleteContext(ctx, contextID)
	if err != nil {
		return nil, err
	}

	m.logger.Info("context deleted",
		zap.String("space", memorySpaceID),
		zap.String("context", contextID),
		zap.Int("descendants_deleted", descendants),
	)

	return &DeleteResult{Deleted: deleted, DescendantsDeleted: descendants}, nil
}

// deleteSubtree removes the node and all its descendants depth-first,
// returning the number of nodes removed.
func (m *Manager) deleteSubtree(ctx context.Context, contextID string) (int, error) {
	node, err := m.driver.GetContext(ctx, contextID)
	if err != nil {
		// Already gone; a retried cascade tolerates partial completion.
		return 0, nil
	}

	count := 0
	for _, childID := range node.ChildIDs {
		n, err := m.deleteSubtree(ctx, childID)
		if err != nil {
			return count, err
		}
		count += n
	}

	deleted, err := m.driver.DeleteContext(ctx, contextID)
	if err != nil {
		return count, err
	}
	if deleted {
		count++
	}

	return count, nil
}

func withoutString(list []string, s string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
