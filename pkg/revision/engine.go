package revision

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/SaintNick1214/cortex/pkg/memory"
	"github.com/SaintNick1214/cortex/pkg/storage"
)

// Config holds construction options for the Engine.
type Config struct {
	// Driver is the storage backend. Required.
	Driver storage.Driver

	// Policy is the belief revision policy. Defaults to ExactMatchPolicy.
	Policy Policy

	// Logger is the configured zap logger. Defaults to zap.NewNop().
	Logger *zap.Logger

	// Now overrides the clock for tests.
	Now func() time.Time
}

// Engine applies belief revision over fact lineages.
type Engine struct {
	driver storage.Driver
	policy Policy
	logger *zap.Logger
	now    func() time.Time
}

// NewEngine creates a belief revision engine.
func NewEngine(c Config) *Engine {
	if c.Policy == nil {
		c.Policy = ExactMatchPolicy{}
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Now == nil {
		c.Now = func() time.Time { return time.Now().UTC() }
	}

	return &Engine{
		driver: c.Driver,
		policy: c.Policy,
		logger: c.Logger,
		now:    c.Now,
	}
}

// Result reports the outcome of an Assert.
type Result struct {
	// Action is the classification that was applied.
	Action Action `json:"action"`

	// Fact is the resulting live fact: the new version for ADD/UPDATE/
	// SUPERSEDE, the pre-existing equivalent for NONE.
	Fact *memory.Fact `json:"fact"`

	// Previous is the superseded version for UPDATE/SUPERSEDE, nil otherwise.
	Previous *memory.Fact `json:"previous,omitempty"`
}

// Assert submits a candidate assertion. The engine decides one action and
// applies it atomically; on a concurrent head fork the call fails with
// CONFLICT and no mutation.
func (e *Engine) Assert(ctx context.Context, candidate *memory.Candidate) (*Result, error) {
	if candidate == nil {
		return nil, memory.Validation("candidate is required")
	}
	if err := candidate.Validate(); err != nil {
		return nil, err
	}

	existing, err := e.driver.ListFacts(ctx, storage.FactFilter{
		MemorySpaceID: candidate.MemorySpaceID,
		Subject:       candidate.Subject,
		Predicate:     candidate.Predicate,
	})
	if err != nil {
		return nil, err
	}

	decision := e.policy.Decide(candidate, existing)
	now := e.now()

	switch decision.Action {
	case ActionNone:
		e.logger.Debug("candidate discarded as duplicate",
			zap.String("space", candidate.MemorySpaceID),
			zap.String("existing", decision.Existing.FactID),
		)
		return &Result{Action: ActionNone, Fact: decision.Existing}, nil

	case ActionAdd:
		fact := newFactFromCandidate(candidate, now)
		if err := e.driver.PutFact(ctx, fact); err != nil {
			return nil, err
		}
		e.logger.Debug("fact lineage created",
			zap.String("space", candidate.MemorySpaceID),
			zap.String("fact", fact.FactID),
		)
		return &Result{Action: ActionAdd, Fact: fact}, nil

	case ActionUpdate, ActionSupersede:
		head := decision.Existing
		successor := newFactFromCandidate(candidate, now)
		successor.Version = head.Version + 1
		predecessorID := head.FactID
		successor.Supersedes = &predecessorID
		if decision.Action == ActionUpdate {
			successor.Confidence = e.policy.MergeConfidence(head.Confidence, candidate.Confidence)
		}

		if err := e.driver.ForkFact(ctx, head.FactID, successor, now); err != nil {
			return nil, err
		}

		// Re-read the predecessor so the result reflects its stamped state.
		previous, err := e.driver.GetFact(ctx, head.FactID)
		if err != nil {
			return nil, err
		}

		e.logger.Debug("fact lineage forked",
			zap.String("space", candidate.MemorySpaceID),
			zap.String("action", string(decision.Action)),
			zap.String("predecessor", head.FactID),
			zap.String("successor", successor.FactID),
			zap.Int("version", successor.Version),
		)
		return &Result{Action: decision.Action, Fact: successor, Previous: previous}, nil
	}

	return nil, memory.Validationf("policy returned unknown action %q", decision.Action)
}

func newFactFromCandidate(c *memory.Candidate, now time.Time) *memory.Fact {
	factType := c.FactType
	if factType == "" {
		factType = memory.FactTypeKnowledge
	}

	return &memory.Fact{
		FactID:        memory.NewID(memory.KindFact),
		MemorySpaceID: c.MemorySpaceID,
		Subject:       c.Subject,
		Predicate:     c.Predicate,
		Object:        c.Object,
		FactText:      c.FactText,
		FactType:      factType,
		Confidence:    c.Confidence,
		Version:       1,
		ValidFrom:     now,
		SourceRef:     c.SourceRef,
		Tags:          append([]string(nil), c.Tags...),
		ParticipantID: c.ParticipantID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Get retrieves a fact by id within the calling memory space. Facts owned by
// other spaces are reported as not found so nothing leaks across the
// isolation boundary.
func (e *Engine) Get(ctx context.Context, memorySpaceID, factID string) (*memory.Fact, error) {
	if err := memory.CheckSpace(memorySpaceID); err != nil {
		return nil, err
	}
	if err := memory.CheckID(memory.KindFact, factID); err != nil {
		return nil, err
	}

	fact, err := e.driver.GetFact(ctx, factID)
	if err != nil {
		return nil, err
	}
	if fact.MemorySpaceID != memorySpaceID {
		return nil, memory.NotFound(memory.KindFact, factID)
	}

	return fact, nil
}

// getOwned fetches a fact for mutation: cross-space ownership fails with
// PERMISSION_DENIED rather than not-found.
func (e *Engine) getOwned(ctx context.Context, memorySpaceID, factID string) (*memory.Fact, error) {
	if err := memory.CheckSpace(memorySpaceID); err != nil {
		return nil, err
	}
	if err := memory.CheckID(memory.KindFact, factID); err != nil {
		return nil, err
	}

	fact, err := e.driver.GetFact(ctx, factID)
	if err != nil {
		return nil, err
	}
	if fact.MemorySpaceID != memorySpaceID {
		return nil, memory.PermissionDenied(
			"fact " + factID + " belongs to another memory space")
	}

	return fact, nil
}

// List returns facts in the space matching the filter. The filter's space is
// forced to memorySpaceID.
func (e *Engine) List(ctx context.Context, memorySpaceID string, filter storage.FactFilter) ([]*memory.Fact, error) {
	if err := memory.CheckSpace(memorySpaceID); err != nil {
		return nil, err
	}
	filter.MemorySpaceID = memorySpaceID
	return e.driver.ListFacts(ctx, filter)
}

// Count returns the number of facts in the space matching the filter.
func (e *Engine) Count(ctx context.Context, memorySpaceID string, filter storage.FactFilter) (int, error) {
	if err := memory.CheckSpace(memorySpaceID); err != nil {
		return 0, err
	}
	filter.MemorySpaceID = memorySpaceID
	return e.driver.CountFacts(ctx, filter)
}

// Search performs keyword search over fact text fields with the same filter
// set as List.
func (e *Engine) Search(ctx context.Context, memorySpaceID, query string, filter storage.FactFilter) ([]*memory.Fact, error) {
	if query == "" {
		return nil, memory.Validation("search query is required")
	}
	filter.Query = query
	return e.List(ctx, memorySpaceID, filter)
}
