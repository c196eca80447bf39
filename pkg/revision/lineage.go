package revision

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/SaintNick1214/cortex/pkg/memory"
)

// UpdateRequest carries the fields an explicit fact update may change. Nil
// fields keep the current value.
type UpdateRequest struct {
	FactText   *string  `json:"factText,omitempty"`
	Object     *string  `json:"object,omitempty"`
	Confidence *int     `json:"confidence,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

// Update forks a new version of the fact with the requested changes. The
// target must be the live head of its lineage and owned by the calling
// space; updating a superseded or soft-deleted version fails with CONFLICT.
func (e *Engine) Update(ctx context.Context, memorySpaceID, factID string, req UpdateRequest) (*Result, error) {
	if req.Confidence != nil && (*req.Confidence < 0 || *req.Confidence > 100) {
		return nil, memory.Validationf("confidence %d out of range [0,100]", *req.Confidence)
	}

	head, err := e.getOwned(ctx, memorySpaceID, factID)
	if err != nil {
		return nil, err
	}
	if head.SupersededBy != nil || head.ValidUntil != nil {
		return nil, memory.NewError(memory.CodeConflict,
			"fact "+factID+" is not the live head of its lineage")
	}

	now := e.now()
	successor := *head
	successor.FactID = memory.NewID(memory.KindFact)
	successor.Version = head.Version + 1
	predecessorID := head.FactID
	successor.Supersedes = &predecessorID
	successor.SupersededBy = nil
	successor.ValidFrom = now
	successor.ValidUntil = nil
	successor.CreatedAt = now
	successor.UpdatedAt = now

	if req.FactText != nil {
		successor.FactText = *req.FactText
	}
	if req.Object != nil {
		successor.Object = *req.Object
	}
	if req.Confidence != nil {
		successor.Confidence = e.policy.MergeConfidence(head.Confidence, *req.Confidence)
	}
	if req.Tags != nil {
		successor.Tags = append([]string(nil), req.Tags...)
	}

	if err := e.driver.ForkFact(ctx, head.FactID, &successor, now); err != nil {
		return nil, err
	}

	previous, err := e.driver.GetFact(ctx, head.FactID)
	if err != nil {
		return nil, err
	}

	action := ActionUpdate
	if req.Object != nil && *req.Object != head.Object {
		action = ActionSupersede
	}

	return &Result{Action: action, Fact: &successor, Previous: previous}, nil
}

// UpdateEnrichment replaces a fact's enrichment in place. This is the one
// mutation that does not fork a version; the chain is preserved.
func (e *Engine) UpdateEnrichment(ctx context.Context, memorySpaceID, factID string, enrichment memory.Enrichment) (*memory.Fact, error) {
	if _, err := e.getOwned(ctx, memorySpaceID, factID); err != nil {
		return nil, err
	}

	if err := e.driver.UpdateFactEnrichment(ctx, factID, enrichment); err != nil {
		return nil, err
	}

	return e.driver.GetFact(ctx, factID)
}

// Delete soft-deletes a fact: validUntil is stamped, no successor is created,
// and the fact stays retrievable by id and through history. Deleting an
// already soft-deleted fact is a no-op (reported via the returned bool); it
// never un-sets validUntil.
func (e *Engine) Delete(ctx context.Context, memorySpaceID, factID string) (bool, error) {
	if _, err := e.getOwned(ctx, memorySpaceID, factID); err != nil {
		return false, err
	}

	deleted, err := e.driver.SoftDeleteFact(ctx, factID, e.now())
	if err != nil {
		return false, err
	}

	if deleted {
		e.logger.Debug("fact soft-deleted",
			zap.String("space", memorySpaceID),
			zap.String("fact", factID),
		)
	}

	return deleted, nil
}

// History returns the full lineage containing the given fact, newest version
// first. The walk is bounded by the chain length: following supersededBy to
// the head, then supersedes back to version 1.
func (e *Engine) History(ctx context.Context, memorySpaceID, factID string) ([]*memory.Fact, error) {
	member, err := e.Get(ctx, memorySpaceID, factID)
	if err != nil {
		return nil, err
	}

	head := member
	for head.SupersededBy != nil {
		next, err := e.driver.GetFact(ctx, *head.SupersededBy)
		if err != nil {
			return nil, err
		}
		head = next
	}

	lineage := []*memory.Fact{head}
	current := head
	for current.Supersedes != nil {
		prev, err := e.driver.GetFact(ctx, *current.Supersedes)
		if err != nil {
			return nil, err
		}
		lineage = append(lineage, prev)
		current = prev
	}

	return lineage, nil
}

// GetVersion returns the lineage member with the given version number.
func (e *Engine) GetVersion(ctx context.Context, memorySpaceID, factID string, version int) (*memory.Fact, error) {
	if version < 1 {
		return nil, memory.Validationf("version %d must be >= 1", version)
	}

	lineage, err := e.History(ctx, memorySpaceID, factID)
	if err != nil {
		return nil, err
	}

	for _, fact := range lineage {
		if fact.Version == version {
			return fact, nil
		}
	}

	return nil, memory.NotFound(memory.KindFact, factID)
}

// AtTimestamp returns the lineage member that was valid at t, applying the
// boundary semantics validFrom <= t < validUntil.
func (e *Engine) AtTimestamp(ctx context.Context, memorySpaceID, factID string, t time.Time) (*memory.Fact, error) {
	lineage, err := e.History(ctx, memorySpaceID, factID)
	if err != nil {
		return nil, err
	}

	for _, fact := range lineage {
		if fact.ValidAt(t) {
			return fact, nil
		}
	}

	return nil, memory.NotFound(memory.KindFact, factID)
}
