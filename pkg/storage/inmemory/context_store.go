package inmemory

import (
	"context"
	"time"

	"github.com/SaintNick1214/cortex/pkg/memory"
	"github.com/SaintNick1214/cortex/pkg/storage"
)

// PutContext inserts a context node and links it to its parent atomically.
func (d *Driver) PutContext(_ context.Context, node *memory.Context) error {
	if node == nil {
		return errNil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.contexts[node.ContextID]; ok {
		return memory.Validationf("context %s already exists", node.ContextID)
	}

	var parent *memory.Context
	if node.ParentID != nil {
		var ok bool
		parent, ok = d.contexts[*node.ParentID]
		if !ok {
			return memory.NewError(memory.CodeParentNotFound,
				"parent context "+*node.ParentID+" not found")
		}
	}

	d.contexts[node.ContextID] = cloneContext(node)

	// Both sides of the bidirectional link land under the same lock.
	if parent != nil && !parent.HasChild(node.ContextID) {
		parent.ChildIDs = append(parent.ChildIDs, node.ContextID)
		parent.UpdatedAt = node.CreatedAt
	}

	return nil
}

// GetContext retrieves a context node by id.
func (d *Driver) GetContext(_ context.Context, id string) (*memory.Context, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	node, ok := d.contexts[id]
	if !ok {
		return nil, memory.NotFound(memory.KindContext, id)
	}

	return cloneContext(node), nil
}

// UpdateContext replaces the node in place.
func (d *Driver) UpdateContext(_ context.Context, node *memory.Context) error {
	if node == nil {
		return errNil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.contexts[node.ContextID]; !ok {
		return memory.NotFound(memory.KindContext, node.ContextID)
	}

	d.contexts[node.ContextID] = cloneContext(node)
	return nil
}

// DeleteContext removes the node and detaches it from its parent.
func (d *Driver) DeleteContext(_ context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	node, ok := d.contexts[id]
	if !ok {
		return false, nil
	}

	if node.ParentID != nil {
		if parent, ok := d.contexts[*node.ParentID]; ok {
			parent.ChildIDs = removeString(parent.ChildIDs, id)
		}
	}

	delete(d.contexts, id)
	return true, nil
}

// ListContexts returns context nodes matching the filter, oldest first.
func (d *Driver) ListContexts(_ context.Context, filter storage.ContextFilter) ([]*memory.Context, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var matched []*memory.Context
	for _, node := range d.contexts {
		if filter.Matches(node) {
			matched = append(matched, cloneContext(node))
		}
	}

	sortByCreated(matched,
		func(c *memory.Context) time.Time { return c.CreatedAt },
		func(c *memory.Context) string { return c.ContextID })

	return storage.Page(matched, filter.Limit, filter.Offset), nil
}

// CountContexts returns the number of context nodes matching the filter.
func (d *Driver) CountContexts(_ context.Context, filter storage.ContextFilter) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	count := 0
	for _, node := range d.contexts {
		if filter.Matches(node) {
			count++
		}
	}

	return count, nil
}

func cloneContext(c *memory.Context) *memory.Context {
	n := *c
	if c.ParentID != nil {
		v := *c.ParentID
		n.ParentID = &v
	}
	if c.CompletedAt != nil {
		v := *c.CompletedAt
		n.CompletedAt = &v
	}
	n.ChildIDs = append([]string(nil), c.ChildIDs...)
	n.Participants = append([]string(nil), c.Participants...)
	n.GrantedAccess = append([]memory.AccessGrant(nil), c.GrantedAccess...)
	if c.ConversationRef != nil {
		v := *c.ConversationRef
		v.MessageIDs = append([]string(nil), c.ConversationRef.MessageIDs...)
		n.ConversationRef = &v
	}
	if c.Data != nil {
		n.Data = make(map[string]any, len(c.Data))
		for k, v := range c.Data {
			n.Data[k] = v
		}
	}
	return &n
}

func removeString(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
