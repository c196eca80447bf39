// Package revision implements the fact version chain and the belief revision
// decision procedure.
//
// A fact lineage is a strictly linear chain of immutable fact versions linked
// by supersedes/supersededBy. The engine classifies each incoming candidate
// assertion as ADD, NONE, UPDATE, or SUPERSEDE relative to the existing live
// facts in its memory space, then applies the classification atomically
// through the storage driver. Concurrent forks of the same lineage are
// detected at the store (the head CAS) and surface as CONFLICT; the engine
// never auto-retries, callers do.
package revision

import (
	"github.com/SaintNick1214/cortex/pkg/memory"
)

// Action is the belief revision classification for a candidate assertion.
type Action string

const (
	// ActionAdd creates a new lineage at version 1.
	ActionAdd Action = "ADD"

	// ActionNone discards the candidate as equivalent to an existing fact.
	ActionNone Action = "NONE"

	// ActionUpdate forks a refinement: same object, different
	// confidence/text/enrichment.
	ActionUpdate Action = "UPDATE"

	// ActionSupersede forks a belief change: the candidate's object
	// conflicts with the live fact's. Mechanically identical to UPDATE but
	// reported distinctly so callers can audit belief changes.
	ActionSupersede Action = "SUPERSEDE"
)

// Decision is a policy's classification of a candidate.
type Decision struct {
	Action Action

	// Existing is the live fact the decision was made against. Nil for ADD.
	Existing *memory.Fact
}

// Policy decides how a candidate interacts with existing live facts and how
// confidence merges on refinement. Policies are pluggable but must be pinned:
// a deployment picks one and keeps it, because decisions are not replayable
// under a different policy.
type Policy interface {
	// Decide classifies the candidate against the live facts that share its
	// subject and predicate. The slice may be empty.
	Decide(candidate *memory.Candidate, existing []*memory.Fact) Decision

	// MergeConfidence returns the confidence kept on the successor of an
	// UPDATE. The prior value stays reachable via history regardless.
	MergeConfidence(prior, candidate int) int
}

// ExactMatchPolicy is the deterministic fallback policy: equivalence is exact
// fact-text equality, refinement is object equality, conflict is object
// inequality. The successor keeps the candidate's confidence.
type ExactMatchPolicy struct{}

// Decide implements Policy.
func (ExactMatchPolicy) Decide(candidate *memory.Candidate, existing []*memory.Fact) Decision {
	if len(existing) == 0 {
		return Decision{Action: ActionAdd}
	}

	// Exact text match anywhere among the live facts means duplicate.
	for _, fact := range existing {
		if fact.FactText == candidate.FactText {
			return Decision{Action: ActionNone, Existing: fact}
		}
	}

	// Otherwise revise against the newest live head.
	head := existing[len(existing)-1]
	if head.Object == candidate.Object {
		return Decision{Action: ActionUpdate, Existing: head}
	}

	return Decision{Action: ActionSupersede, Existing: head}
}

// MergeConfidence implements Policy: the candidate's confidence wins.
func (ExactMatchPolicy) MergeConfidence(_, candidate int) int {
	return candidate
}

// AveragingPolicy decides like ExactMatchPolicy but merges confidence as the
// rounded mean of prior and candidate on UPDATE.
type AveragingPolicy struct {
	ExactMatchPolicy
}

// MergeConfidence implements Policy.
func (AveragingPolicy) MergeConfidence(prior, candidate int) int {
	return (prior + candidate + 1) / 2
}
