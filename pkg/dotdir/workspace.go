package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	workspaceFile = "workspace.json"
)

// WorkspaceState represents the persisted CLI workspace: the memory space the
// user is currently operating in, and the default attribution identifiers
// applied to writes that don't specify their own.
type WorkspaceState struct {
	// MemorySpaceID is the active memory space.
	MemorySpaceID string `json:"memorySpaceId"`

	// UserID is the default user attribution for stored memories.
	UserID string `json:"userId,omitempty"`

	// ParticipantID is the default participant attribution in shared spaces.
	ParticipantID string `json:"participantId,omitempty"`
}

// LoadWorkspaceState loads the workspace state from a target .cortex/workspace.json.
// Returns nil, nil if no workspace state exists.
// If overrideDir is non-empty, it is used instead of the default ~/.cortex/ location.
func (m *Manager) LoadWorkspaceState(overrideDir string) (*WorkspaceState, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, workspaceFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading workspace state: %w", err)
	}

	state := &WorkspaceState{}
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parsing workspace state: %w", err)
	}

	return state, nil
}

// SaveWorkspace persists the workspace state to a target .cortex/workspace.json.
func (m *Manager) SaveWorkspace(state *WorkspaceState, overrideDir string) error {
	if state == nil {
		return errors.New("cannot save nil workspace state")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling workspace state: %w", err)
	}

	path := filepath.Join(dir, workspaceFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing workspace state: %w", err)
	}

	return nil
}

// ClearWorkspace removes the workspace state file.
// If overrideDir is non-empty, it is used instead of the default ~/.cortex/ location.
// Returns nil if the file doesn't exist (already cleared).
func (m *Manager) ClearWorkspace(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	path := filepath.Join(dir, workspaceFile)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing workspace state: %w", err)
	}

	return nil
}
