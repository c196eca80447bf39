// Package immutable is the tenant-unscoped append-only store.
//
// Entries are addressed by (type, id) and version monotonically: storing
// appends the next version, never rewrites one. Each version carries a
// content hash over canonicalized JSON, so storing content identical to the
// latest version is a no-op that returns the existing version instead of
// minting a redundant one. ImmutableRef{type,id,version} resolves here.
package immutable

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json/jsontext"
	"sort"
	"sync"
	"time"

	"github.com/SaintNick1214/cortex/pkg/memory"
)

// Entry is one stored version of an immutable record.
type Entry struct {
	Type    string `json:"type"`
	ID      string `json:"id"`
	Version int    `json:"version"`

	// Hash is the SHA-256 of the canonicalized data JSON, hex-encoded.
	Hash string `json:"hash"`

	Data jsontext.Value `json:"data"`

	CreatedAt time.Time `json:"createdAt"`
}

// Ref returns the ImmutableRef addressing this entry.
func (e *Entry) Ref() memory.ImmutableRef {
	return memory.ImmutableRef{Type: e.Type, ID: e.ID, Version: e.Version}
}

// Store holds immutable entries in memory.
type Store struct {
	mu      sync.RWMutex
	entries map[string][]*Entry // keyed by type+"\x00"+id, versions ascending
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates an empty immutable store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		entries: make(map[string][]*Entry),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func entryKey(entryType, id string) string {
	return entryType + "\x00" + id
}

// HashContent computes the content hash: the data canonicalized per RFC 8785
// and digested with SHA-256. Two semantically equal JSON payloads hash the
// same regardless of key order or whitespace.
func HashContent(data jsontext.Value) (string, error) {
	j := append(jsontext.Value(nil), data...)
	if err := j.Canonicalize(); err != nil {
		return "", memory.Validationf("content is not valid JSON: %v", err)
	}

	h := sha256.Sum256(j)
	return hex.EncodeToString(h[:]), nil
}

// Put appends the next version for (type, id). If the content hashes equal
// to the current latest version, the latest entry is returned unchanged and
// no version is minted.
func (s *Store) Put(ctx context.Context, entryType, id string, data jsontext.Value) (*Entry, error) {
	if entryType == "" {
		return nil, memory.Validation("type is required")
	}
	if id == "" {
		return nil, memory.Validation("id is required")
	}
	if len(data) == 0 {
		return nil, memory.Validation("data is required")
	}

	hash, err := HashContent(data)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := entryKey(entryType, id)
	versions := s.entries[key]

	if n := len(versions); n > 0 && versions[n-1].Hash == hash {
		return versions[n-1], nil
	}

	entry := &Entry{
		Type:      entryType,
		ID:        id,
		Version:   len(versions) + 1,
		Hash:      hash,
		Data:      append(jsontext.Value(nil), data...),
		CreatedAt: s.now(),
	}
	s.entries[key] = append(versions, entry)

	return entry, nil
}

// Get returns the latest version for (type, id).
func (s *Store) Get(ctx context.Context, entryType, id string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions := s.entries[entryKey(entryType, id)]
	if len(versions) == 0 {
		return nil, memory.NewError(memory.CodeMemoryNotFound,
			"immutable entry "+entryType+"/"+id+" not found")
	}

	return versions[len(versions)-1], nil
}

// GetVersion returns a specific version for (type, id).
func (s *Store) GetVersion(ctx context.Context, entryType, id string, version int) (*Entry, error) {
	if version < 1 {
		return nil, memory.Validationf("version %d must be >= 1", version)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	versions := s.entries[entryKey(entryType, id)]
	if version > len(versions) {
		return nil, memory.NewError(memory.CodeMemoryNotFound,
			"immutable entry "+entryType+"/"+id+" not found at requested version")
	}

	return versions[version-1], nil
}

// History returns all versions for (type, id), newest first.
func (s *Store) History(ctx context.Context, entryType, id string) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions := s.entries[entryKey(entryType, id)]
	if len(versions) == 0 {
		return nil, memory.NewError(memory.CodeMemoryNotFound,
			"immutable entry "+entryType+"/"+id+" not found")
	}

	history := make([]*Entry, len(versions))
	for i, entry := range versions {
		history[len(versions)-1-i] = entry
	}
	return history, nil
}

// Resolve follows an ImmutableRef to its entry. A missing target yields a
// not-found error; callers treating refs as orphan-tolerant check the code.
func (s *Store) Resolve(ctx context.Context, ref memory.ImmutableRef) (*Entry, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	return s.GetVersion(ctx, ref.Type, ref.ID, ref.Version)
}

// List returns the latest entry of every (type, id) pair with the given
// type, ordered by id. An empty type lists everything.
func (s *Store) List(ctx context.Context, entryType string) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest []*Entry
	for _, versions := range s.entries {
		head := versions[len(versions)-1]
		if entryType != "" && head.Type != entryType {
			continue
		}
		latest = append(latest, head)
	}

	sort.Slice(latest, func(i, j int) bool {
		if latest[i].Type != latest[j].Type {
			return latest[i].Type < latest[j].Type
		}
		return latest[i].ID < latest[j].ID
	})

	return latest, nil
}

// Count returns the number of (type, id) pairs with the given type.
func (s *Store) Count(ctx context.Context, entryType string) (int, error) {
	entries, err := s.List(ctx, entryType)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}
