package revision_test

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/SaintNick1214/cortex/pkg/memory"
	"github.com/SaintNick1214/cortex/pkg/revision"
	"github.com/SaintNick1214/cortex/pkg/storage"
	"github.com/SaintNick1214/cortex/pkg/storage/inmemory"
)

func TestRevision(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Revision Suite")
}

var _ = Describe("Engine", func() {
	var (
		ctx     context.Context
		engine  *revision.Engine
		current time.Time
	)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	candidate := func(space, object string) *memory.Candidate {
		return &memory.Candidate{
			MemorySpaceID: space,
			Subject:       "user",
			Predicate:     "likes",
			Object:        object,
			FactText:      "user likes " + object,
			FactType:      memory.FactTypePreference,
			Confidence:    80,
		}
	}

	BeforeEach(func() {
		ctx = context.Background()
		current = base
		engine = revision.NewEngine(revision.Config{
			Driver: inmemory.NewDriver(),
			Now:    func() time.Time { return current },
		})
	})

	advance := func(d time.Duration) { current = current.Add(d) }

	Describe("Assert", func() {
		It("creates a new lineage at version 1", func() {
			result, err := engine.Assert(ctx, candidate("agent-1", "coffee"))
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Action).To(Equal(revision.ActionAdd))
			Expect(result.Fact.Version).To(Equal(1))
			Expect(result.Fact.Supersedes).To(BeNil())
			Expect(result.Fact.SupersededBy).To(BeNil())
			Expect(result.Fact.ValidFrom).To(Equal(base))
			Expect(result.Previous).To(BeNil())
		})

		It("discards an exact duplicate as NONE", func() {
			first, err := engine.Assert(ctx, candidate("agent-1", "coffee"))
			Expect(err).NotTo(HaveOccurred())

			second, err := engine.Assert(ctx, candidate("agent-1", "coffee"))
			Expect(err).NotTo(HaveOccurred())

			Expect(second.Action).To(Equal(revision.ActionNone))
			Expect(second.Fact.FactID).To(Equal(first.Fact.FactID))
		})

		It("updates when the object matches but the text differs", func() {
			first, err := engine.Assert(ctx, candidate("agent-1", "coffee"))
			Expect(err).NotTo(HaveOccurred())

			advance(time.Hour)
			refined := candidate("agent-1", "coffee")
			refined.FactText = "user really likes coffee"
			refined.Confidence = 95

			second, err := engine.Assert(ctx, refined)
			Expect(err).NotTo(HaveOccurred())

			Expect(second.Action).To(Equal(revision.ActionUpdate))
			Expect(second.Fact.Version).To(Equal(2))
			Expect(*second.Fact.Supersedes).To(Equal(first.Fact.FactID))
			Expect(second.Fact.Confidence).To(Equal(95))
		})

		It("supersedes when the object conflicts", func() {
			first, err := engine.Assert(ctx, candidate("agent-1", "coffee"))
			Expect(err).NotTo(HaveOccurred())

			advance(time.Hour)
			second, err := engine.Assert(ctx, candidate("agent-1", "tea"))
			Expect(err).NotTo(HaveOccurred())

			Expect(second.Action).To(Equal(revision.ActionSupersede))
			Expect(second.Fact.Version).To(Equal(2))
			Expect(second.Fact.Object).To(Equal("tea"))
			Expect(second.Previous.FactID).To(Equal(first.Fact.FactID))
		})

		It("stamps the predecessor when forking", func() {
			_, err := engine.Assert(ctx, candidate("agent-1", "coffee"))
			Expect(err).NotTo(HaveOccurred())

			advance(time.Hour)
			second, err := engine.Assert(ctx, candidate("agent-1", "tea"))
			Expect(err).NotTo(HaveOccurred())

			Expect(*second.Previous.SupersededBy).To(Equal(second.Fact.FactID))
			Expect(second.Previous.ValidUntil).NotTo(BeNil())
			Expect(*second.Previous.ValidUntil).To(Equal(current))
		})

		It("keeps exactly one live head per lineage", func() {
			engine.Assert(ctx, candidate("agent-1", "coffee"))
			advance(time.Hour)
			engine.Assert(ctx, candidate("agent-1", "tea"))
			advance(time.Hour)
			head, err := engine.Assert(ctx, candidate("agent-1", "mate"))
			Expect(err).NotTo(HaveOccurred())

			live, err := engine.List(ctx, "agent-1", storage.FactFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(live).To(HaveLen(1))
			Expect(live[0].FactID).To(Equal(head.Fact.FactID))
			Expect(live[0].Version).To(Equal(3))
		})

		It("rejects an invalid candidate before touching storage", func() {
			bad := candidate("agent-1", "coffee")
			bad.Confidence = 150
			_, err := engine.Assert(ctx, bad)
			Expect(memory.IsCode(err, memory.CodeValidation)).To(BeTrue())
		})

		It("defaults the fact type to knowledge", func() {
			c := candidate("agent-1", "coffee")
			c.FactType = ""
			result, err := engine.Assert(ctx, c)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Fact.FactType).To(Equal(memory.FactTypeKnowledge))
		})
	})

	Describe("confidence merge policies", func() {
		It("keeps the candidate's confidence under the exact match policy", func() {
			engine.Assert(ctx, candidate("agent-1", "coffee"))

			refined := candidate("agent-1", "coffee")
			refined.FactText = "user likes coffee a lot"
			refined.Confidence = 60

			result, err := engine.Assert(ctx, refined)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Fact.Confidence).To(Equal(60))
		})

		It("averages confidence under the averaging policy", func() {
			avg := revision.NewEngine(revision.Config{
				Driver: inmemory.NewDriver(),
				Policy: revision.AveragingPolicy{},
				Now:    func() time.Time { return current },
			})

			avg.Assert(ctx, candidate("agent-1", "coffee"))

			refined := candidate("agent-1", "coffee")
			refined.FactText = "user likes coffee a lot"
			refined.Confidence = 61

			result, err := avg.Assert(ctx, refined)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Fact.Confidence).To(Equal(71))
		})
	})

	Describe("Update", func() {
		It("forks a refinement off the live head", func() {
			created, _ := engine.Assert(ctx, candidate("agent-1", "coffee"))
			advance(time.Hour)

			text := "user likes strong coffee"
			result, err := engine.Update(ctx, "agent-1", created.Fact.FactID, revision.UpdateRequest{
				FactText: &text,
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Action).To(Equal(revision.ActionUpdate))
			Expect(result.Fact.Version).To(Equal(2))
			Expect(result.Fact.FactText).To(Equal(text))
		})

		It("reports a belief change when the object changes", func() {
			created, _ := engine.Assert(ctx, candidate("agent-1", "coffee"))
			advance(time.Hour)

			object := "tea"
			result, err := engine.Update(ctx, "agent-1", created.Fact.FactID, revision.UpdateRequest{
				Object: &object,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Action).To(Equal(revision.ActionSupersede))
		})

		It("refuses to update a superseded version", func() {
			created, _ := engine.Assert(ctx, candidate("agent-1", "coffee"))
			advance(time.Hour)
			engine.Assert(ctx, candidate("agent-1", "tea"))

			text := "stale"
			_, err := engine.Update(ctx, "agent-1", created.Fact.FactID, revision.UpdateRequest{
				FactText: &text,
			})
			Expect(memory.IsCode(err, memory.CodeConflict)).To(BeTrue())
		})

		It("rejects out-of-range confidence", func() {
			created, _ := engine.Assert(ctx, candidate("agent-1", "coffee"))
			bad := -1
			_, err := engine.Update(ctx, "agent-1", created.Fact.FactID, revision.UpdateRequest{
				Confidence: &bad,
			})
			Expect(memory.IsCode(err, memory.CodeValidation)).To(BeTrue())
		})
	})

	Describe("UpdateEnrichment", func() {
		It("replaces enrichment without forking", func() {
			created, _ := engine.Assert(ctx, candidate("agent-1", "coffee"))

			fact, err := engine.UpdateEnrichment(ctx, "agent-1", created.Fact.FactID, memory.Enrichment{
				SearchAliases: []string{"espresso"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(fact.Version).To(Equal(1))
			Expect(fact.Enrichment.SearchAliases).To(ContainElement("espresso"))

			history, err := engine.History(ctx, "agent-1", created.Fact.FactID)
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(HaveLen(1))
		})
	})

	Describe("Delete", func() {
		It("soft-deletes without creating a successor", func() {
			created, _ := engine.Assert(ctx, candidate("agent-1", "coffee"))
			advance(time.Hour)

			deleted, err := engine.Delete(ctx, "agent-1", created.Fact.FactID)
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(BeTrue())

			fact, err := engine.Get(ctx, "agent-1", created.Fact.FactID)
			Expect(err).NotTo(HaveOccurred())
			Expect(fact.ValidUntil).NotTo(BeNil())
			Expect(fact.SupersededBy).To(BeNil())
		})

		It("is idempotent and preserves the original deletion stamp", func() {
			created, _ := engine.Assert(ctx, candidate("agent-1", "coffee"))
			advance(time.Hour)
			engine.Delete(ctx, "agent-1", created.Fact.FactID)

			first, err := engine.Get(ctx, "agent-1", created.Fact.FactID)
			Expect(err).NotTo(HaveOccurred())
			stamp := *first.ValidUntil

			advance(time.Hour)
			deleted, err := engine.Delete(ctx, "agent-1", created.Fact.FactID)
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(BeFalse())

			again, err := engine.Get(ctx, "agent-1", created.Fact.FactID)
			Expect(err).NotTo(HaveOccurred())
			Expect(*again.ValidUntil).To(Equal(stamp))
		})

		It("hides soft-deleted facts from default listings", func() {
			created, _ := engine.Assert(ctx, candidate("agent-1", "coffee"))
			engine.Delete(ctx, "agent-1", created.Fact.FactID)

			live, err := engine.List(ctx, "agent-1", storage.FactFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(live).To(BeEmpty())

			all, err := engine.List(ctx, "agent-1", storage.FactFilter{IncludeSuperseded: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(1))
		})
	})

	Describe("History and time travel", func() {
		var v1, v2, v3 *memory.Fact

		BeforeEach(func() {
			r1, _ := engine.Assert(ctx, candidate("agent-1", "coffee"))
			advance(time.Hour)
			r2, _ := engine.Assert(ctx, candidate("agent-1", "tea"))
			advance(time.Hour)
			r3, _ := engine.Assert(ctx, candidate("agent-1", "mate"))
			v1, v2, v3 = r1.Fact, r2.Fact, r3.Fact
		})

		It("returns the full lineage newest first from any member", func() {
			history, err := engine.History(ctx, "agent-1", v1.FactID)
			Expect(err).NotTo(HaveOccurred())

			Expect(history).To(HaveLen(3))
			Expect(history[0].FactID).To(Equal(v3.FactID))
			Expect(history[1].FactID).To(Equal(v2.FactID))
			Expect(history[2].FactID).To(Equal(v1.FactID))
		})

		It("retrieves a specific version", func() {
			fact, err := engine.GetVersion(ctx, "agent-1", v3.FactID, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(fact.FactID).To(Equal(v2.FactID))
		})

		It("rejects version numbers below 1", func() {
			_, err := engine.GetVersion(ctx, "agent-1", v3.FactID, 0)
			Expect(memory.IsCode(err, memory.CodeValidation)).To(BeTrue())
		})

		It("resolves the version valid at a past instant", func() {
			fact, err := engine.AtTimestamp(ctx, "agent-1", v3.FactID, base.Add(30*time.Minute))
			Expect(err).NotTo(HaveOccurred())
			Expect(fact.FactID).To(Equal(v1.FactID))
		})

		It("treats validUntil as exclusive and validFrom as inclusive", func() {
			// Exactly at the first fork: v1's window has closed, v2's has opened.
			fact, err := engine.AtTimestamp(ctx, "agent-1", v3.FactID, base.Add(time.Hour))
			Expect(err).NotTo(HaveOccurred())
			Expect(fact.FactID).To(Equal(v2.FactID))
		})

		It("reports not found before the lineage began", func() {
			_, err := engine.AtTimestamp(ctx, "agent-1", v3.FactID, base.Add(-time.Minute))
			Expect(memory.IsCode(err, memory.CodeFactNotFound)).To(BeTrue())
		})
	})

	Describe("memory space isolation", func() {
		It("reports cross-space reads as not found", func() {
			created, _ := engine.Assert(ctx, candidate("agent-1", "coffee"))

			_, err := engine.Get(ctx, "agent-2", created.Fact.FactID)
			Expect(memory.IsCode(err, memory.CodeFactNotFound)).To(BeTrue())
		})

		It("reports cross-space mutations as permission denied", func() {
			created, _ := engine.Assert(ctx, candidate("agent-1", "coffee"))

			text := "hijack"
			_, err := engine.Update(ctx, "agent-2", created.Fact.FactID, revision.UpdateRequest{
				FactText: &text,
			})
			Expect(memory.IsCode(err, memory.CodePermissionDenied)).To(BeTrue())

			_, err = engine.Delete(ctx, "agent-2", created.Fact.FactID)
			Expect(memory.IsCode(err, memory.CodePermissionDenied)).To(BeTrue())
		})

		It("scopes listings to the calling space", func() {
			engine.Assert(ctx, candidate("agent-1", "coffee"))
			engine.Assert(ctx, candidate("agent-2", "tea"))

			facts, err := engine.List(ctx, "agent-1", storage.FactFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(facts).To(HaveLen(1))
			Expect(facts[0].Object).To(Equal("coffee"))
		})

		It("lineages with the same subject in different spaces stay independent", func() {
			engine.Assert(ctx, candidate("agent-1", "coffee"))
			result, err := engine.Assert(ctx, candidate("agent-2", "coffee"))
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Action).To(Equal(revision.ActionAdd))
			Expect(result.Fact.Version).To(Equal(1))
		})
	})

	Describe("Search", func() {
		It("matches keywords in fact text", func() {
			engine.Assert(ctx, candidate("agent-1", "coffee"))
			engine.Assert(ctx, &memory.Candidate{
				MemorySpaceID: "agent-1",
				Subject:       "user",
				Predicate:     "works_at",
				Object:        "tapeworks",
				FactText:      "user works at tapeworks",
				Confidence:    70,
			})

			facts, err := engine.Search(ctx, "agent-1", "coffee", storage.FactFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(facts).To(HaveLen(1))
		})

		It("matches enrichment search aliases", func() {
			created, _ := engine.Assert(ctx, candidate("agent-1", "coffee"))
			engine.UpdateEnrichment(ctx, "agent-1", created.Fact.FactID, memory.Enrichment{
				SearchAliases: []string{"espresso"},
			})

			facts, err := engine.Search(ctx, "agent-1", "espresso", storage.FactFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(facts).To(HaveLen(1))
		})

		It("requires a query", func() {
			_, err := engine.Search(ctx, "agent-1", "", storage.FactFilter{})
			Expect(memory.IsCode(err, memory.CodeValidation)).To(BeTrue())
		})
	})

	Describe("Consolidate", func() {
		It("marks losers superseded by the kept fact", func() {
			a, _ := engine.Assert(ctx, candidate("agent-1", "coffee"))
			b, _ := engine.Assert(ctx, &memory.Candidate{
				MemorySpaceID: "agent-1",
				Subject:       "user",
				Predicate:     "drinks",
				Object:        "espresso",
				FactText:      "user drinks espresso",
				Confidence:    70,
			})

			result, err := engine.Consolidate(ctx, "agent-1",
				[]string{a.Fact.FactID, b.Fact.FactID}, a.Fact.FactID)
			Expect(err).NotTo(HaveOccurred())

			Expect(result.KeptFactID).To(Equal(a.Fact.FactID))
			Expect(result.MergedCount).To(Equal(1))
			Expect(result.SupersededCount).To(Equal(1))

			merged, err := engine.Get(ctx, "agent-1", b.Fact.FactID)
			Expect(err).NotTo(HaveOccurred())
			Expect(*merged.SupersededBy).To(Equal(a.Fact.FactID))
		})

		It("skips unknown and cross-space facts while still counting them", func() {
			a, _ := engine.Assert(ctx, candidate("agent-1", "coffee"))
			other, _ := engine.Assert(ctx, candidate("agent-2", "tea"))

			result, err := engine.Consolidate(ctx, "agent-1",
				[]string{a.Fact.FactID, other.Fact.FactID, "fact-missing"}, a.Fact.FactID)
			Expect(err).NotTo(HaveOccurred())

			Expect(result.MergedCount).To(Equal(2))
			Expect(result.SupersededCount).To(Equal(0))

			untouched, err := engine.Get(ctx, "agent-2", other.Fact.FactID)
			Expect(err).NotTo(HaveOccurred())
			Expect(untouched.SupersededBy).To(BeNil())
		})

		It("requires fact ids", func() {
			a, _ := engine.Assert(ctx, candidate("agent-1", "coffee"))
			_, err := engine.Consolidate(ctx, "agent-1", nil, a.Fact.FactID)
			Expect(memory.IsCode(err, memory.CodeValidation)).To(BeTrue())
		})
	})
})
