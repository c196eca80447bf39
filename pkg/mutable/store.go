// Package mutable is the tenant-unscoped last-write-wins key/value store.
//
// Cells are addressed by (namespace, key). A write replaces the current value
// unconditionally; there is no version history. Readers who need a stable
// view capture a MutableRef, which freezes the value observed at snapshot
// time inside the referencing entity.
package mutable

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/SaintNick1214/cortex/pkg/memory"
)

// Cell is the current value of one (namespace, key) pair.
type Cell struct {
	Namespace string    `json:"namespace"`
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store holds mutable cells in memory.
type Store struct {
	mu    sync.RWMutex
	cells map[string]*Cell // keyed by namespace+"\x00"+key
	now   func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates an empty mutable store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		cells: make(map[string]*Cell),
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func cellKey(namespace, key string) string {
	return namespace + "\x00" + key
}

// Set writes the cell, replacing any current value. Last write wins.
func (s *Store) Set(ctx context.Context, namespace, key, value string) (*Cell, error) {
	if namespace == "" {
		return nil, memory.Validation("namespace is required")
	}
	if key == "" {
		return nil, memory.Validation("key is required")
	}

	cell := &Cell{
		Namespace: namespace,
		Key:       key,
		Value:     value,
		UpdatedAt: s.now(),
	}

	s.mu.Lock()
	s.cells[cellKey(namespace, key)] = cell
	s.mu.Unlock()

	return cell, nil
}

// Get returns the current value of the cell.
func (s *Store) Get(ctx context.Context, namespace, key string) (*Cell, error) {
	s.mu.RLock()
	cell, ok := s.cells[cellKey(namespace, key)]
	s.mu.RUnlock()

	if !ok {
		return nil, memory.NewError(memory.CodeMemoryNotFound,
			"mutable cell "+namespace+"/"+key+" not found")
	}

	return cell, nil
}

// Snapshot reads the cell and freezes it into a MutableRef for embedding in
// a referencing entity. The ref keeps the observed value even after later
// writes to the cell.
func (s *Store) Snapshot(ctx context.Context, namespace, key string) (*memory.MutableRef, error) {
	cell, err := s.Get(ctx, namespace, key)
	if err != nil {
		return nil, err
	}

	return &memory.MutableRef{
		Namespace:     namespace,
		Key:           key,
		SnapshotValue: cell.Value,
		SnapshotAt:    cell.UpdatedAt,
	}, nil
}

// Delete removes the cell. Returns false without error when it does not
// exist. MutableRefs snapshotted from the cell are unaffected.
func (s *Store) Delete(ctx context.Context, namespace, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := cellKey(namespace, key)
	if _, ok := s.cells[k]; !ok {
		return false, nil
	}
	delete(s.cells, k)
	return true, nil
}

// List returns every cell in the namespace ordered by key. An empty
// namespace lists all cells ordered by namespace then key.
func (s *Store) List(ctx context.Context, namespace string) ([]*Cell, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var cells []*Cell
	for _, cell := range s.cells {
		if namespace != "" && cell.Namespace != namespace {
			continue
		}
		cells = append(cells, cell)
	}

	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Namespace != cells[j].Namespace {
			return cells[i].Namespace < cells[j].Namespace
		}
		return cells[i].Key < cells[j].Key
	})

	return cells, nil
}
