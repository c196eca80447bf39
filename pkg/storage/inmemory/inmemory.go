// Package inmemory implements storage.Driver using in-process maps.
//
// A single RWMutex guards all entity sets, which makes the multi-record
// primitives (lineage fork, child link) trivially atomic. Entities are copied
// on the way in and out so callers can never mutate stored state through a
// returned pointer.
package inmemory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/SaintNick1214/cortex/pkg/memory"
	"github.com/SaintNick1214/cortex/pkg/storage"
)

// Driver implements storage.Driver using in-memory maps.
type Driver struct {
	mu sync.RWMutex

	facts         map[string]*memory.Fact
	records       map[string]*memory.ContentRecord
	contexts      map[string]*memory.Context
	conversations map[string]*memory.Conversation
}

// NewDriver creates an empty in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		facts:         make(map[string]*memory.Fact),
		records:       make(map[string]*memory.ContentRecord),
		contexts:      make(map[string]*memory.Context),
		conversations: make(map[string]*memory.Conversation),
	}
}

// Close is a no-op for the in-memory driver.
func (d *Driver) Close() error {
	return nil
}

// Spaces returns the distinct memory space ids across all entity sets.
func (d *Driver) Spaces(_ context.Context) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	seen := make(map[string]bool)
	for _, f := range d.facts {
		seen[f.MemorySpaceID] = true
	}
	for _, r := range d.records {
		seen[r.MemorySpaceID] = true
	}
	for _, c := range d.contexts {
		seen[c.MemorySpaceID] = true
	}
	for _, c := range d.conversations {
		seen[c.MemorySpaceID] = true
	}

	spaces := make([]string, 0, len(seen))
	for s := range seen {
		spaces = append(spaces, s)
	}
	sort.Strings(spaces)

	return spaces, nil
}

// Ensure Driver implements storage.Driver.
var _ storage.Driver = (*Driver)(nil)

// errNil guards the nil-entity programmer error shared by all Put methods.
var errNil = errors.New("cannot store nil entity")

// sortByCreated orders entities oldest first, id as tiebreaker for stability.
func sortByCreated[T any](items []T, createdAt func(T) time.Time, id func(T) string) {
	sort.Slice(items, func(i, j int) bool {
		ti, tj := createdAt(items[i]), createdAt(items[j])
		if ti.Equal(tj) {
			return id(items[i]) < id(items[j])
		}
		return ti.Before(tj)
	})
}
