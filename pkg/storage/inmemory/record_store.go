package inmemory

import (
	"context"
	"time"

	"github.com/SaintNick1214/cortex/pkg/memory"
	"github.com/SaintNick1214/cortex/pkg/storage"
)

// PutRecord inserts a new content record.
func (d *Driver) PutRecord(_ context.Context, record *memory.ContentRecord) error {
	if record == nil {
		return errNil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.records[record.ID]; ok {
		return memory.Validationf("memory %s already exists", record.ID)
	}

	d.records[record.ID] = cloneRecord(record)
	return nil
}

// GetRecord retrieves a content record by id.
func (d *Driver) GetRecord(_ context.Context, id string) (*memory.ContentRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	record, ok := d.records[id]
	if !ok {
		return nil, memory.NotFound(memory.KindRecord, id)
	}

	return cloneRecord(record), nil
}

// UpdateRecord replaces the record in place, guarded by expectedVersion.
func (d *Driver) UpdateRecord(_ context.Context, record *memory.ContentRecord, expectedVersion int) error {
	if record == nil {
		return errNil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	stored, ok := d.records[record.ID]
	if !ok {
		return memory.NotFound(memory.KindRecord, record.ID)
	}
	if stored.Version != expectedVersion {
		return memory.NewError(memory.CodeConflict,
			"memory "+record.ID+" was modified concurrently")
	}

	d.records[record.ID] = cloneRecord(record)
	return nil
}

// DeleteRecord removes the record. Returns false when the id does not exist.
func (d *Driver) DeleteRecord(_ context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.records[id]; !ok {
		return false, nil
	}

	delete(d.records, id)
	return true, nil
}

// ListRecords returns records matching the filter, oldest first.
func (d *Driver) ListRecords(_ context.Context, filter storage.RecordFilter) ([]*memory.ContentRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var matched []*memory.ContentRecord
	for _, record := range d.records {
		if filter.Matches(record) {
			matched = append(matched, cloneRecord(record))
		}
	}

	sortByCreated(matched,
		func(r *memory.ContentRecord) time.Time { return r.CreatedAt },
		func(r *memory.ContentRecord) string { return r.ID })

	return storage.Page(matched, filter.Limit, filter.Offset), nil
}

// CountRecords returns the number of records matching the filter.
func (d *Driver) CountRecords(_ context.Context, filter storage.RecordFilter) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	count := 0
	for _, record := range d.records {
		if filter.Matches(record) {
			count++
		}
	}

	return count, nil
}

func cloneRecord(r *memory.ContentRecord) *memory.ContentRecord {
	c := *r
	c.Embedding = append([]float32(nil), r.Embedding...)
	c.Tags = append([]string(nil), r.Tags...)
	if r.ConversationRef != nil {
		v := *r.ConversationRef
		v.MessageIDs = append([]string(nil), r.ConversationRef.MessageIDs...)
		c.ConversationRef = &v
	}
	if r.ImmutableRef != nil {
		v := *r.ImmutableRef
		c.ImmutableRef = &v
	}
	if r.MutableRef != nil {
		v := *r.MutableRef
		c.MutableRef = &v
	}
	c.PreviousVersions = make([]memory.RecordVersion, len(r.PreviousVersions))
	for i, pv := range r.PreviousVersions {
		c.PreviousVersions[i] = pv
		c.PreviousVersions[i].Tags = append([]string(nil), pv.Tags...)
	}
	return &c
}
