// Package records manages content records ("memories").
//
// Unlike facts, a content record versions in place: an update increments the
// version and retains the prior snapshot in previousVersions under the same
// id. The in-place write is guarded by the version the caller read, so
// concurrent updates surface as CONFLICT instead of losing a snapshot.
package records

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/SaintNick1214/cortex/pkg/memory"
	"github.com/SaintNick1214/cortex/pkg/storage"
)

// Config holds construction options for the Service.
type Config struct {
	// Driver is the storage backend. Required.
	Driver storage.Driver

	// Logger is the configured zap logger. Defaults to zap.NewNop().
	Logger *zap.Logger

	// Now overrides the clock for tests.
	Now func() time.Time
}

// Service owns content record operations.
type Service struct {
	driver storage.Driver
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a content record service.
func NewService(c Config) *Service {
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Now == nil {
		c.Now = func() time.Time { return time.Now().UTC() }
	}

	return &Service{
		driver: c.Driver,
		logger: c.Logger,
		now:    c.Now,
	}
}

// StoreRequest carries the fields for creating a content record.
type StoreRequest struct {
	MemorySpaceID   string                  `json:"memorySpaceId"`
	Content         string                  `json:"content"`
	ContentType     string                  `json:"contentType"`
	Embedding       []float32               `json:"embedding,omitempty"`
	ConversationRef *memory.ConversationRef `json:"conversationRef,omitempty"`
	ImmutableRef    *memory.ImmutableRef    `json:"immutableRef,omitempty"`
	MutableRef      *memory.MutableRef      `json:"mutableRef,omitempty"`
	Importance      int                     `json:"importance"`
	Tags            []string                `json:"tags,omitempty"`
	UserID          string                  `json:"userId,omitempty"`
	ParticipantID   string                  `json:"participantId,omitempty"`
}

// Store creates a content record at version 1. References are validated
// structurally only; their targets are not required to exist.
func (s *Service) Store(ctx context.Context, req StoreRequest) (*memory.ContentRecord, error) {
	now := s.now()
	record := &memory.ContentRecord{
		ID:              memory.NewID(memory.KindRecord),
		MemorySpaceID:   req.MemorySpaceID,
		Content:         req.Content,
		ContentType:     req.ContentType,
		Embedding:       req.Embedding,
		ConversationRef: req.ConversationRef,
		ImmutableRef:    req.ImmutableRef,
		MutableRef:      req.MutableRef,
		Importance:      req.Importance,
		Tags:            append([]string(nil), req.Tags...),
		Version:         1,
		UserID:          req.UserID,
		ParticipantID:   req.ParticipantID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := record.Validate(); err != nil {
		return nil, err
	}

	if err := s.driver.PutRecord(ctx, record); err != nil {
		return nil, err
	}

	s.logger.Debug("memory stored",
		zap.String("space", req.MemorySpaceID),
		zap.String("memory", record.ID),
	)

	return record, nil
}

// Get retrieves a record by id within the calling memory space. Records
// owned by other spaces are reported as not found.
func (s *Service) Get(ctx context.Context, memorySpaceID, id string) (*memory.ContentRecord, error) {
	if err := memory.CheckSpace(memorySpaceID); err != nil {
		return nil, err
	}
	if err := memory.CheckID(memory.KindRecord, id); err != nil {
		return nil, err
	}

	record, err := s.driver.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.MemorySpaceID != memorySpaceID {
		return nil, memory.NotFound(memory.KindRecord, id)
	}

	return record, nil
}

func (s *Service) getOwned(ctx context.Context, memorySpaceID, id string) (*memory.ContentRecord, error) {
	if err := memory.CheckSpace(memorySpaceID); err != nil {
		return nil, err
	}
	if err := memory.CheckID(memory.KindRecord, id); err != nil {
		return nil, err
	}

	record, err := s.driver.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.MemorySpaceID != memorySpaceID {
		return nil, memory.PermissionDenied(
			"memory " + id + " belongs to another memory space")
	}

	return record, nil
}

// UpdateRequest carries the updatable fields of a content record. Nil fields
// keep the current value.
type UpdateRequest struct {
	Content     *string   `json:"content,omitempty"`
	ContentType *string   `json:"contentType,omitempty"`
	Importance  *int      `json:"importance,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Embedding   []float32 `json:"embedding,omitempty"`
}

// Update mutates the record in place: the version increments and the prior
// content is retained as a snapshot in previousVersions. A concurrent update
// between read and write fails with CONFLICT.
func (s *Service) Update(ctx context.Context, memorySpaceID, id string, req UpdateRequest) (*memory.ContentRecord, error) {
	if req.Importance != nil && (*req.Importance < 0 || *req.Importance > 100) {
		return nil, memory.Validationf("importance %d out of range [0,100]", *req.Importance)
	}

	record, err := s.getOwned(ctx, memorySpaceID, id)
	if err != nil {
		return nil, err
	}

	expected := record.Version
	record.PreviousVersions = append(record.PreviousVersions, record.Snapshot())
	record.Version++

	if req.Content != nil {
		record.Content = *req.Content
	}
	if req.ContentType != nil {
		record.ContentType = *req.ContentType
	}
	if req.Importance != nil {
		record.Importance = *req.Importance
	}
	if req.Tags != nil {
		record.Tags = append([]string(nil), req.Tags...)
	}
	if req.Embedding != nil {
		record.Embedding = append([]float32(nil), req.Embedding...)
	}
	record.UpdatedAt = s.now()

	if err := s.driver.UpdateRecord(ctx, record, expected); err != nil {
		return nil, err
	}

	return record, nil
}

// Delete hard-deletes the record. References held by other entities are left
// orphaned.
func (s *Service) Delete(ctx context.Context, memorySpaceID, id string) (bool, error) {
	if _, err := s.getOwned(ctx, memorySpaceID, id); err != nil {
		return false, err
	}
	return s.driver.DeleteRecord(ctx, id)
}

// List returns records in the space matching the filter.
func (s *Service) List(ctx context.Context, memorySpaceID string, filter storage.RecordFilter) ([]*memory.ContentRecord, error) {
	if err := memory.CheckSpace(memorySpaceID); err != nil {
		return nil, err
	}
	filter.MemorySpaceID = memorySpaceID
	return s.driver.ListRecords(ctx, filter)
}

// Count returns the number of records in the space matching the filter.
func (s *Service) Count(ctx context.Context, memorySpaceID string, filter storage.RecordFilter) (int, error) {
	if err := memory.CheckSpace(memorySpaceID); err != nil {
		return 0, err
	}
	filter.MemorySpaceID = memorySpaceID
	return s.driver.CountRecords(ctx, filter)
}

// Search performs keyword search over record content with the same filter
// set as List.
func (s *Service) Search(ctx context.Context, memorySpaceID, query string, filter storage.RecordFilter) ([]*memory.ContentRecord, error) {
	if query == "" {
		return nil, memory.Validation("search query is required")
	}
	filter.Query = query
	return s.List(ctx, memorySpaceID, filter)
}

// History returns the record's retained version snapshots plus the current
// version, newest first.
func (s *Service) History(ctx context.Context, memorySpaceID, id string) ([]memory.RecordVersion, error) {
	record, err := s.Get(ctx, memorySpaceID, id)
	if err != nil {
		return nil, err
	}

	history := make([]memory.RecordVersion, 0, len(record.PreviousVersions)+1)
	history = append(history, record.Snapshot())
	for i := len(record.PreviousVersions) - 1; i >= 0; i-- {
		history = append(history, record.PreviousVersions[i])
	}

	return history, nil
}

// GetVersion returns a specific version of the record.
func (s *Service) GetVersion(ctx context.Context, memorySpaceID, id string, version int) (*memory.RecordVersion, error) {
	if version < 1 {
		return nil, memory.Validationf("version %d must be >= 1", version)
	}

	history, err := s.History(ctx, memorySpaceID, id)
	if err != nil {
		return nil, err
	}

	for i := range history {
		if history[i].Version == version {
			return &history[i], nil
		}
	}

	return nil, memory.NotFound(memory.KindRecord, id)
}

// AtTimestamp returns the version that was current at t: the newest snapshot
// whose updatedAt is not after t.
func (s *Service) AtTimestamp(ctx context.Context, memorySpaceID, id string, t time.Time) (*memory.RecordVersion, error) {
	history, err := s.History(ctx, memorySpaceID, id)
	if err != nil {
		return nil, err
	}

	for i := range history {
		if !history[i].UpdatedAt.After(t) {
			return &history[i], nil
		}
	}

	return nil, memory.NotFound(memory.KindRecord, id)
}

// UpdateManyFilter is the fixed filter set for bulk updates: space plus
// user and/or content type. Arbitrary metadata filters are deliberately not
// supported.
type UpdateManyFilter struct {
	MemorySpaceID string `json:"memorySpaceId"`
	UserID        string `json:"userId,omitempty"`
	ContentType   string `json:"contentType,omitempty"`
}

// UpdateMany applies the patch to every matching record, one entity at a
// time, each step atomic. Returns the exact number updated; records that hit
// a concurrent-update conflict are skipped and counted out.
func (s *Service) UpdateMany(ctx context.Context, filter UpdateManyFilter, patch UpdateRequest) (int, error) {
	if err := memory.CheckSpace(filter.MemorySpaceID); err != nil {
		return 0, err
	}

	matched, err := s.driver.ListRecords(ctx, storage.RecordFilter{
		MemorySpaceID: filter.MemorySpaceID,
		UserID:        filter.UserID,
		ContentType:   filter.ContentType,
	})
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, record := range matched {
		if _, err := s.Update(ctx, filter.MemorySpaceID, record.ID, patch); err != nil {
			if memory.IsCode(err, memory.CodeConflict) || memory.IsCode(err, memory.CodeMemoryNotFound) {
				continue
			}
			return updated, err
		}
		updated++
	}

	return updated, nil
}
