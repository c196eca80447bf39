package inmemory

import (
	"context"
	"time"

	"github.com/SaintNick1214/cortex/pkg/memory"
	"github.com/SaintNick1214/cortex/pkg/storage"
)

// PutFact inserts a new fact row.
func (d *Driver) PutFact(_ context.Context, fact *memory.Fact) error {
	if fact == nil {
		return errNil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.facts[fact.FactID]; ok {
		return memory.Validationf("fact %s already exists", fact.FactID)
	}

	d.facts[fact.FactID] = cloneFact(fact)
	return nil
}

// GetFact retrieves a fact by id.
func (d *Driver) GetFact(_ context.Context, id string) (*memory.Fact, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	fact, ok := d.facts[id]
	if !ok {
		return nil, memory.NotFound(memory.KindFact, id)
	}

	return cloneFact(fact), nil
}

// ForkFact atomically inserts the successor and stamps the predecessor.
// Fails with CONFLICT if the predecessor is no longer the lineage head.
func (d *Driver) ForkFact(_ context.Context, predecessorID string, successor *memory.Fact, at time.Time) error {
	if successor == nil {
		return errNil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	predecessor, ok := d.facts[predecessorID]
	if !ok {
		return memory.NotFound(memory.KindFact, predecessorID)
	}
	if predecessor.SupersededBy != nil {
		return memory.NewError(memory.CodeConflict,
			"fact "+predecessorID+" is no longer the lineage head")
	}
	if _, ok := d.facts[successor.FactID]; ok {
		return memory.Validationf("fact %s already exists", successor.FactID)
	}

	supersededBy := successor.FactID
	until := at
	predecessor.SupersededBy = &supersededBy
	predecessor.ValidUntil = &until
	predecessor.UpdatedAt = at

	d.facts[successor.FactID] = cloneFact(successor)
	return nil
}

// MarkSuperseded stamps supersededBy and validUntil on a live head.
func (d *Driver) MarkSuperseded(_ context.Context, id, supersededBy string, at time.Time) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	fact, ok := d.facts[id]
	if !ok {
		return false, memory.NotFound(memory.KindFact, id)
	}
	if fact.SupersededBy != nil || fact.ValidUntil != nil {
		return false, nil
	}

	by := supersededBy
	until := at
	fact.SupersededBy = &by
	fact.ValidUntil = &until
	fact.UpdatedAt = at

	return true, nil
}

// SoftDeleteFact sets validUntil without creating a successor.
func (d *Driver) SoftDeleteFact(_ context.Context, id string, at time.Time) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	fact, ok := d.facts[id]
	if !ok {
		return false, memory.NotFound(memory.KindFact, id)
	}
	if fact.ValidUntil != nil {
		// Already soft-deleted; never un-set or move validUntil.
		return false, nil
	}

	until := at
	fact.ValidUntil = &until
	fact.UpdatedAt = at

	return true, nil
}

// UpdateFactEnrichment replaces the enrichment in place.
func (d *Driver) UpdateFactEnrichment(_ context.Context, id string, enrichment memory.Enrichment) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	fact, ok := d.facts[id]
	if !ok {
		return memory.NotFound(memory.KindFact, id)
	}

	fact.Enrichment = enrichment
	fact.UpdatedAt = time.Now().UTC()

	return nil
}

// ListFacts returns facts matching the filter, oldest first.
func (d *Driver) ListFacts(_ context.Context, filter storage.FactFilter) ([]*memory.Fact, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var matched []*memory.Fact
	for _, fact := range d.facts {
		if filter.Matches(fact) {
			matched = append(matched, cloneFact(fact))
		}
	}

	sortByCreated(matched,
		func(f *memory.Fact) time.Time { return f.CreatedAt },
		func(f *memory.Fact) string { return f.FactID })

	return storage.Page(matched, filter.Limit, filter.Offset), nil
}

// CountFacts returns the number of facts matching the filter.
func (d *Driver) CountFacts(_ context.Context, filter storage.FactFilter) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	count := 0
	for _, fact := range d.facts {
		if filter.Matches(fact) {
			count++
		}
	}

	return count, nil
}

func cloneFact(f *memory.Fact) *memory.Fact {
	c := *f
	if f.Supersedes != nil {
		v := *f.Supersedes
		c.Supersedes = &v
	}
	if f.SupersededBy != nil {
		v := *f.SupersededBy
		c.SupersededBy = &v
	}
	if f.ValidUntil != nil {
		v := *f.ValidUntil
		c.ValidUntil = &v
	}
	if f.SourceRef != nil {
		v := *f.SourceRef
		c.SourceRef = &v
	}
	c.Tags = append([]string(nil), f.Tags...)
	c.Enrichment.SearchAliases = append([]string(nil), f.Enrichment.SearchAliases...)
	c.Enrichment.Entities = append([]string(nil), f.Enrichment.Entities...)
	c.Enrichment.Relations = append([]memory.Relation(nil), f.Enrichment.Relations...)
	return &c
}
