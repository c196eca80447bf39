package revision

import (
	"context"

	"go.uber.org/zap"

	"github.com/SaintNick1214/cortex/pkg/memory"
)

// ConsolidateResult reports the outcome of a Consolidate call.
type ConsolidateResult struct {
	KeptFactID string `json:"keptFactId"`

	// MergedCount is always len(factIds)-1, whether or not every id was
	// eligible. Facts that are missing or owned by another space are
	// skipped, not merged, yet still counted; SupersededCount carries the
	// number actually stamped. Kept for wire compatibility with existing
	// consumers of the original backend.
	MergedCount int `json:"mergedCount"`

	// SupersededCount is the number of facts actually marked superseded.
	SupersededCount int `json:"supersededCount"`
}

// Consolidate marks every fact in factIDs as superseded by keepFactID,
// skipping the kept fact itself, facts outside the calling space, already
// superseded facts, and unknown ids. Each stamp is an independent atomic
// step; the whole operation is not one transaction and is idempotent on
// retry.
func (e *Engine) Consolidate(ctx context.Context, memorySpaceID string, factIDs []string, keepFactID string) (*ConsolidateResult, error) {
	if len(factIDs) == 0 {
		return nil, memory.Validation("factIds is required")
	}

	kept, err := e.getOwned(ctx, memorySpaceID, keepFactID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	superseded := 0

	for _, id := range factIDs {
		if id == kept.FactID {
			continue
		}

		fact, err := e.driver.GetFact(ctx, id)
		if err != nil {
			e.logger.Debug("consolidate skipping unknown fact",
				zap.String("space", memorySpaceID),
				zap.String("fact", id),
			)
			continue
		}
		if fact.MemorySpaceID != memorySpaceID {
			// Cross-space facts are skipped, never merged.
			continue
		}

		changed, err := e.driver.MarkSuperseded(ctx, id, kept.FactID, now)
		if err != nil {
			return nil, err
		}
		if changed {
			superseded++
		}
	}

	e.logger.Info("facts consolidated",
		zap.String("space", memorySpaceID),
		zap.String("kept", kept.FactID),
		zap.Int("superseded", superseded),
	)

	return &ConsolidateResult{
		KeptFactID:      kept.FactID,
		MergedCount:     len(factIDs) - 1,
		SupersededCount: superseded,
	}, nil
}
