package sqlite_test

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/SaintNick1214/cortex/pkg/memory"
	"github.com/SaintNick1214/cortex/pkg/storage"
	"github.com/SaintNick1214/cortex/pkg/storage/sqlite"
)

func TestSQLite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "SQLite Driver Suite")
}

var _ = Describe("Driver", func() {
	var (
		ctx    context.Context
		driver *sqlite.Driver
	)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		driver, err = sqlite.NewDriver(":memory:")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(driver.Close()).To(Succeed())
	})

	newFact := func(space, object string, version int) *memory.Fact {
		return &memory.Fact{
			FactID:        memory.NewID(memory.KindFact),
			MemorySpaceID: space,
			Subject:       "user",
			Predicate:     "likes",
			Object:        object,
			FactText:      "user likes " + object,
			FactType:      memory.FactTypePreference,
			Confidence:    80,
			Version:       version,
			ValidFrom:     base,
			CreatedAt:     base,
			UpdatedAt:     base,
		}
	}

	Describe("facts", func() {
		It("round-trips a fact document", func() {
			fact := newFact("agent-1", "coffee", 1)
			fact.Tags = []string{"beverage"}
			fact.SourceRef = &memory.SourceRef{ConversationID: memory.NewID(memory.KindConversation)}

			Expect(driver.PutFact(ctx, fact)).To(Succeed())

			got, err := driver.GetFact(ctx, fact.FactID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.FactText).To(Equal("user likes coffee"))
			Expect(got.Tags).To(Equal([]string{"beverage"}))
			Expect(got.SourceRef).NotTo(BeNil())
			Expect(got.ValidFrom).To(Equal(base))
		})

		It("rejects a duplicate id", func() {
			fact := newFact("agent-1", "coffee", 1)
			Expect(driver.PutFact(ctx, fact)).To(Succeed())
			Expect(memory.CodeOf(driver.PutFact(ctx, fact))).To(Equal(memory.CodeValidation))
		})

		It("forks atomically, stamping the predecessor", func() {
			head := newFact("agent-1", "coffee", 1)
			Expect(driver.PutFact(ctx, head)).To(Succeed())

			at := base.Add(time.Hour)
			successor := newFact("agent-1", "tea", 2)
			successor.Supersedes = &head.FactID
			successor.ValidFrom = at
			Expect(driver.ForkFact(ctx, head.FactID, successor, at)).To(Succeed())

			stamped, err := driver.GetFact(ctx, head.FactID)
			Expect(err).NotTo(HaveOccurred())
			Expect(*stamped.SupersededBy).To(Equal(successor.FactID))
			Expect(*stamped.ValidUntil).To(Equal(at))

			got, err := driver.GetFact(ctx, successor.FactID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.IsLive()).To(BeTrue())
		})

		It("fails a fork off a stale head with CONFLICT", func() {
			head := newFact("agent-1", "coffee", 1)
			Expect(driver.PutFact(ctx, head)).To(Succeed())

			at := base.Add(time.Hour)
			first := newFact("agent-1", "tea", 2)
			Expect(driver.ForkFact(ctx, head.FactID, first, at)).To(Succeed())

			second := newFact("agent-1", "mate", 2)
			err := driver.ForkFact(ctx, head.FactID, second, at)
			Expect(memory.CodeOf(err)).To(Equal(memory.CodeConflict))

			_, err = driver.GetFact(ctx, second.FactID)
			Expect(memory.CodeOf(err)).To(Equal(memory.CodeFactNotFound))
		})

		It("marks a live head superseded exactly once", func() {
			fact := newFact("agent-1", "coffee", 1)
			Expect(driver.PutFact(ctx, fact)).To(Succeed())

			winner := memory.NewID(memory.KindFact)
			at := base.Add(time.Hour)

			marked, err := driver.MarkSuperseded(ctx, fact.FactID, winner, at)
			Expect(err).NotTo(HaveOccurred())
			Expect(marked).To(BeTrue())

			again, err := driver.MarkSuperseded(ctx, fact.FactID, memory.NewID(memory.KindFact), at.Add(time.Hour))
			Expect(err).NotTo(HaveOccurred())
			Expect(again).To(BeFalse())

			got, err := driver.GetFact(ctx, fact.FactID)
			Expect(err).NotTo(HaveOccurred())
			Expect(*got.SupersededBy).To(Equal(winner))
			Expect(*got.ValidUntil).To(Equal(at))
		})

		It("soft-deletes idempotently without moving validUntil", func() {
			fact := newFact("agent-1", "coffee", 1)
			Expect(driver.PutFact(ctx, fact)).To(Succeed())

			at := base.Add(time.Hour)
			deleted, err := driver.SoftDeleteFact(ctx, fact.FactID, at)
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(BeTrue())

			again, err := driver.SoftDeleteFact(ctx, fact.FactID, at.Add(time.Hour))
			Expect(err).NotTo(HaveOccurred())
			Expect(again).To(BeFalse())

			got, err := driver.GetFact(ctx, fact.FactID)
			Expect(err).NotTo(HaveOccurred())
			Expect(*got.ValidUntil).To(Equal(at))
		})

		It("updates enrichment in place", func() {
			fact := newFact("agent-1", "coffee", 1)
			Expect(driver.PutFact(ctx, fact)).To(Succeed())

			Expect(driver.UpdateFactEnrichment(ctx, fact.FactID, memory.Enrichment{
				Category:      "beverage",
				SearchAliases: []string{"espresso"},
			})).To(Succeed())

			got, err := driver.GetFact(ctx, fact.FactID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Enrichment.SearchAliases).To(ConsistOf("espresso"))
			Expect(got.Version).To(Equal(1))
		})

		It("lists with the shared filter and pages", func() {
			for _, object := range []string{"coffee", "tea", "mate"} {
				Expect(driver.PutFact(ctx, newFact("agent-1", object, 1))).To(Succeed())
			}
			Expect(driver.PutFact(ctx, newFact("agent-2", "cocoa", 1))).To(Succeed())

			mine, err := driver.ListFacts(ctx, storage.FactFilter{MemorySpaceID: "agent-1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(mine).To(HaveLen(3))

			window, err := driver.ListFacts(ctx, storage.FactFilter{MemorySpaceID: "agent-1", Limit: 2, Offset: 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(window).To(HaveLen(1))

			count, err := driver.CountFacts(ctx, storage.FactFilter{MemorySpaceID: "agent-1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(3))
		})
	})

	Describe("records", func() {
		newRecord := func(space string) *memory.ContentRecord {
			return &memory.ContentRecord{
				ID:            memory.NewID(memory.KindRecord),
				MemorySpaceID: space,
				Content:       "prefers aisle seats",
				ContentType:   "note",
				Importance:    50,
				Version:       1,
				CreatedAt:     base,
				UpdatedAt:     base,
			}
		}

		It("guards updates with the expected version", func() {
			record := newRecord("agent-1")
			Expect(driver.PutRecord(ctx, record)).To(Succeed())

			record.Version = 2
			record.Content = "prefers window seats"
			record.PreviousVersions = []memory.RecordVersion{{Version: 1, Content: "prefers aisle seats"}}
			Expect(driver.UpdateRecord(ctx, record, 1)).To(Succeed())

			stale := *record
			stale.Version = 3
			err := driver.UpdateRecord(ctx, &stale, 1)
			Expect(memory.CodeOf(err)).To(Equal(memory.CodeConflict))

			got, err := driver.GetRecord(ctx, record.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Version).To(Equal(2))
			Expect(got.PreviousVersions).To(HaveLen(1))
		})

		It("deletes idempotently", func() {
			record := newRecord("agent-1")
			Expect(driver.PutRecord(ctx, record)).To(Succeed())

			deleted, err := driver.DeleteRecord(ctx, record.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(BeTrue())

			again, err := driver.DeleteRecord(ctx, record.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(again).To(BeFalse())
		})
	})

	Describe("contexts", func() {
		newContext := func(space string, parentID *string, depth int, rootID string) *memory.Context {
			node := &memory.Context{
				ContextID:     memory.NewID(memory.KindContext),
				MemorySpaceID: space,
				Purpose:       "plan the trip",
				Status:        memory.ContextActive,
				ParentID:      parentID,
				Depth:         depth,
				CreatedAt:     base,
				UpdatedAt:     base,
			}
			if rootID == "" {
				node.RootID = node.ContextID
			} else {
				node.RootID = rootID
			}
			return node
		}

		It("links both sides of the parent-child edge atomically", func() {
			root := newContext("agent-1", nil, 0, "")
			Expect(driver.PutContext(ctx, root)).To(Succeed())

			child := newContext("agent-1", &root.ContextID, 1, root.ContextID)
			Expect(driver.PutContext(ctx, child)).To(Succeed())

			reread, err := driver.GetContext(ctx, root.ContextID)
			Expect(err).NotTo(HaveOccurred())
			Expect(reread.ChildIDs).To(ConsistOf(child.ContextID))
		})

		It("rejects an insert under a missing parent", func() {
			missing := memory.NewID(memory.KindContext)
			node := newContext("agent-1", &missing, 1, missing)
			err := driver.PutContext(ctx, node)
			Expect(memory.CodeOf(err)).To(Equal(memory.CodeParentNotFound))

			_, err = driver.GetContext(ctx, node.ContextID)
			Expect(memory.CodeOf(err)).To(Equal(memory.CodeContextNotFound))
		})

		It("detaches from the parent on delete", func() {
			root := newContext("agent-1", nil, 0, "")
			Expect(driver.PutContext(ctx, root)).To(Succeed())
			child := newContext("agent-1", &root.ContextID, 1, root.ContextID)
			Expect(driver.PutContext(ctx, child)).To(Succeed())

			deleted, err := driver.DeleteContext(ctx, child.ContextID)
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(BeTrue())

			reread, err := driver.GetContext(ctx, root.ContextID)
			Expect(err).NotTo(HaveOccurred())
			Expect(reread.ChildIDs).To(BeEmpty())
		})
	})

	Describe("conversations", func() {
		It("appends messages in order", func() {
			conv := &memory.Conversation{
				ConversationID: memory.NewID(memory.KindConversation),
				MemorySpaceID:  "agent-1",
				Type:           "chat",
				CreatedAt:      base,
				UpdatedAt:      base,
			}
			Expect(driver.PutConversation(ctx, conv)).To(Succeed())

			for i, content := range []string{"hello", "hi there"} {
				msg := memory.Message{
					MessageID: memory.NewID(memory.KindMessage),
					Role:      "user",
					Content:   content,
					Timestamp: base.Add(time.Duration(i) * time.Minute),
				}
				Expect(driver.AppendMessage(ctx, conv.ConversationID, msg)).To(Succeed())
			}

			got, err := driver.GetConversation(ctx, conv.ConversationID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Messages).To(HaveLen(2))
			Expect(got.Messages[0].Content).To(Equal("hello"))
			Expect(got.Messages[1].Content).To(Equal("hi there"))
		})
	})

	Describe("Spaces", func() {
		It("returns the distinct spaces across entity sets", func() {
			Expect(driver.PutFact(ctx, newFact("agent-1", "coffee", 1))).To(Succeed())
			Expect(driver.PutConversation(ctx, &memory.Conversation{
				ConversationID: memory.NewID(memory.KindConversation),
				MemorySpaceID:  "agent-2",
				Type:           "chat",
				CreatedAt:      base,
				UpdatedAt:      base,
			})).To(Succeed())

			spaces, err := driver.Spaces(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(spaces).To(ConsistOf("agent-1", "agent-2"))
		})
	})
})
