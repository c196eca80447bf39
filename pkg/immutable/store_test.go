package immutable_test

import (
	"context"
	"testing"
	"time"

	"encoding/json/jsontext"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/SaintNick1214/cortex/pkg/immutable"
	"github.com/SaintNick1214/cortex/pkg/memory"
)

func TestImmutable(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Immutable Suite")
}

var _ = Describe("Store", func() {
	var (
		ctx     context.Context
		store   *immutable.Store
		current time.Time
	)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	BeforeEach(func() {
		ctx = context.Background()
		current = base
		store = immutable.NewStore(immutable.WithClock(func() time.Time { return current }))
	})

	raw := func(s string) jsontext.Value { return jsontext.Value(s) }

	Describe("Put", func() {
		It("appends versions monotonically", func() {
			first, err := store.Put(ctx, "kb-article", "faq-42", raw(`{"title":"Refunds"}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(first.Version).To(Equal(1))
			Expect(first.Hash).NotTo(BeEmpty())
			Expect(first.CreatedAt).To(Equal(base))

			current = current.Add(time.Hour)
			second, err := store.Put(ctx, "kb-article", "faq-42", raw(`{"title":"Refund policy"}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(second.Version).To(Equal(2))
			Expect(second.Hash).NotTo(Equal(first.Hash))
		})

		It("returns the latest version unchanged for identical content", func() {
			first, err := store.Put(ctx, "kb-article", "faq-42", raw(`{"title":"Refunds"}`))
			Expect(err).NotTo(HaveOccurred())

			dup, err := store.Put(ctx, "kb-article", "faq-42", raw(`{"title":"Refunds"}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(dup.Version).To(Equal(1))
			Expect(dup.Hash).To(Equal(first.Hash))
		})

		It("hashes semantically, ignoring key order and whitespace", func() {
			_, err := store.Put(ctx, "kb-article", "faq-42", raw(`{"a":1,"b":2}`))
			Expect(err).NotTo(HaveOccurred())

			dup, err := store.Put(ctx, "kb-article", "faq-42", raw(`{ "b": 2, "a": 1 }`))
			Expect(err).NotTo(HaveOccurred())
			Expect(dup.Version).To(Equal(1))
		})

		It("only dedupes against the latest version", func() {
			_, err := store.Put(ctx, "kb-article", "faq-42", raw(`{"v":1}`))
			Expect(err).NotTo(HaveOccurred())
			_, err = store.Put(ctx, "kb-article", "faq-42", raw(`{"v":2}`))
			Expect(err).NotTo(HaveOccurred())

			reverted, err := store.Put(ctx, "kb-article", "faq-42", raw(`{"v":1}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(reverted.Version).To(Equal(3))
		})

		It("rejects invalid JSON and missing fields", func() {
			_, err := store.Put(ctx, "kb-article", "faq-42", raw(`{not json`))
			Expect(memory.CodeOf(err)).To(Equal(memory.CodeValidation))

			_, err = store.Put(ctx, "", "faq-42", raw(`{}`))
			Expect(memory.CodeOf(err)).To(Equal(memory.CodeValidation))

			_, err = store.Put(ctx, "kb-article", "", raw(`{}`))
			Expect(memory.CodeOf(err)).To(Equal(memory.CodeValidation))

			_, err = store.Put(ctx, "kb-article", "faq-42", nil)
			Expect(memory.CodeOf(err)).To(Equal(memory.CodeValidation))
		})
	})

	Describe("retrieval", func() {
		BeforeEach(func() {
			_, err := store.Put(ctx, "kb-article", "faq-42", raw(`{"v":1}`))
			Expect(err).NotTo(HaveOccurred())
			_, err = store.Put(ctx, "kb-article", "faq-42", raw(`{"v":2}`))
			Expect(err).NotTo(HaveOccurred())
		})

		It("gets the latest version", func() {
			entry, err := store.Get(ctx, "kb-article", "faq-42")
			Expect(err).NotTo(HaveOccurred())
			Expect(entry.Version).To(Equal(2))
		})

		It("gets a pinned version", func() {
			entry, err := store.GetVersion(ctx, "kb-article", "faq-42", 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(entry.Data)).To(Equal(`{"v":1}`))

			_, err = store.GetVersion(ctx, "kb-article", "faq-42", 3)
			Expect(memory.CodeOf(err)).To(Equal(memory.CodeMemoryNotFound))

			_, err = store.GetVersion(ctx, "kb-article", "faq-42", 0)
			Expect(memory.CodeOf(err)).To(Equal(memory.CodeValidation))
		})

		It("returns history newest first", func() {
			history, err := store.History(ctx, "kb-article", "faq-42")
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(HaveLen(2))
			Expect(history[0].Version).To(Equal(2))
			Expect(history[1].Version).To(Equal(1))
		})

		It("resolves an ImmutableRef to the exact version", func() {
			entry, err := store.Resolve(ctx, memory.ImmutableRef{
				Type:    "kb-article",
				ID:      "faq-42",
				Version: 1,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(entry.Version).To(Equal(1))
			Expect(entry.Ref().Version).To(Equal(1))

			_, err = store.Resolve(ctx, memory.ImmutableRef{Type: "kb-article", ID: "gone", Version: 1})
			Expect(memory.CodeOf(err)).To(Equal(memory.CodeMemoryNotFound))
		})

		It("reports unknown entries as not found", func() {
			_, err := store.Get(ctx, "kb-article", "missing")
			Expect(memory.CodeOf(err)).To(Equal(memory.CodeMemoryNotFound))

			_, err = store.History(ctx, "kb-article", "missing")
			Expect(memory.CodeOf(err)).To(Equal(memory.CodeMemoryNotFound))
		})
	})

	Describe("List and Count", func() {
		It("lists the latest version per entry, ordered", func() {
			_, err := store.Put(ctx, "kb-article", "b", raw(`{"v":1}`))
			Expect(err).NotTo(HaveOccurred())
			_, err = store.Put(ctx, "kb-article", "a", raw(`{"v":1}`))
			Expect(err).NotTo(HaveOccurred())
			_, err = store.Put(ctx, "kb-article", "a", raw(`{"v":2}`))
			Expect(err).NotTo(HaveOccurred())
			_, err = store.Put(ctx, "policy", "p1", raw(`{"v":1}`))
			Expect(err).NotTo(HaveOccurred())

			articles, err := store.List(ctx, "kb-article")
			Expect(err).NotTo(HaveOccurred())
			Expect(articles).To(HaveLen(2))
			Expect(articles[0].ID).To(Equal("a"))
			Expect(articles[0].Version).To(Equal(2))
			Expect(articles[1].ID).To(Equal("b"))

			all, err := store.Count(ctx, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(Equal(3))
		})
	})
})
