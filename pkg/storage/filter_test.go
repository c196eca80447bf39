package storage_test

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/SaintNick1214/cortex/pkg/memory"
	"github.com/SaintNick1214/cortex/pkg/storage"
)

func TestStorage(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Storage Suite")
}

var _ = Describe("FactFilter", func() {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	live := func() *memory.Fact {
		return &memory.Fact{
			FactID:        memory.NewID(memory.KindFact),
			MemorySpaceID: "agent-1",
			Subject:       "user",
			Predicate:     "likes",
			Object:        "coffee",
			FactText:      "user likes coffee",
			FactType:      memory.FactTypePreference,
			Confidence:    80,
			Version:       1,
			ValidFrom:     base,
			CreatedAt:     base,
		}
	}

	It("matches a live fact with the zero filter", func() {
		Expect(storage.FactFilter{}.Matches(live())).To(BeTrue())
	})

	It("excludes superseded and soft-deleted facts by default", func() {
		superseded := live()
		winner := memory.NewID(memory.KindFact)
		superseded.SupersededBy = &winner

		deleted := live()
		until := base.Add(time.Hour)
		deleted.ValidUntil = &until

		Expect(storage.FactFilter{}.Matches(superseded)).To(BeFalse())
		Expect(storage.FactFilter{}.Matches(deleted)).To(BeFalse())
		Expect(storage.FactFilter{IncludeSuperseded: true}.Matches(superseded)).To(BeTrue())
		Expect(storage.FactFilter{IncludeSuperseded: true}.Matches(deleted)).To(BeTrue())
	})

	It("applies half-open validity windows for ValidAt", func() {
		fact := live()
		until := base.Add(time.Hour)
		fact.ValidUntil = &until

		at := func(t time.Time) bool {
			return storage.FactFilter{ValidAt: &t}.Matches(fact)
		}

		Expect(at(base)).To(BeTrue())
		Expect(at(base.Add(30 * time.Minute))).To(BeTrue())
		Expect(at(base.Add(time.Hour))).To(BeFalse())
		Expect(at(base.Add(-time.Second))).To(BeFalse())
	})

	It("lets ValidAt reach superseded facts inside their window", func() {
		fact := live()
		winner := memory.NewID(memory.KindFact)
		until := base.Add(time.Hour)
		fact.SupersededBy = &winner
		fact.ValidUntil = &until

		at := base.Add(30 * time.Minute)
		Expect(storage.FactFilter{ValidAt: &at}.Matches(fact)).To(BeTrue())
	})

	It("filters on structured fields and tags", func() {
		fact := live()
		fact.Tags = []string{"beverage", "morning"}

		Expect(storage.FactFilter{Subject: "user"}.Matches(fact)).To(BeTrue())
		Expect(storage.FactFilter{Subject: "assistant"}.Matches(fact)).To(BeFalse())
		Expect(storage.FactFilter{FactType: memory.FactTypeIdentity}.Matches(fact)).To(BeFalse())
		Expect(storage.FactFilter{MinConfidence: 90}.Matches(fact)).To(BeFalse())
		Expect(storage.FactFilter{Tags: []string{"beverage", "morning"}}.Matches(fact)).To(BeTrue())
		Expect(storage.FactFilter{Tags: []string{"beverage", "evening"}}.Matches(fact)).To(BeFalse())
	})

	It("matches keywords over text, subject, object and aliases", func() {
		fact := live()
		fact.Enrichment.SearchAliases = []string{"espresso", "latte"}

		for _, q := range []string{"COFFEE", "user", "espresso"} {
			Expect(storage.FactFilter{Query: q}.Matches(fact)).To(BeTrue(), q)
		}
		Expect(storage.FactFilter{Query: "tea"}.Matches(fact)).To(BeFalse())
	})
})

var _ = Describe("Page", func() {
	items := []int{1, 2, 3, 4, 5}

	It("windows with limit and offset", func() {
		Expect(storage.Page(items, 2, 0)).To(Equal([]int{1, 2}))
		Expect(storage.Page(items, 2, 3)).To(Equal([]int{4, 5}))
		Expect(storage.Page(items, 0, 0)).To(Equal(items))
	})

	It("returns nil past the end", func() {
		Expect(storage.Page(items, 2, 5)).To(BeNil())
		Expect(storage.Page(items, 2, 99)).To(BeNil())
	})

	It("clamps a window that overruns the slice", func() {
		Expect(storage.Page(items, 10, 4)).To(Equal([]int{5}))
	})
})
