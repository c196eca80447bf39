package mutable_test

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/SaintNick1214/cortex/pkg/memory"
	"github.com/SaintNick1214/cortex/pkg/mutable"
)

func TestMutable(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Mutable Suite")
}

var _ = Describe("Store", func() {
	var (
		ctx     context.Context
		store   *mutable.Store
		current time.Time
	)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	BeforeEach(func() {
		ctx = context.Background()
		current = base
		store = mutable.NewStore(mutable.WithClock(func() time.Time { return current }))
	})

	Describe("Set and Get", func() {
		It("replaces the value unconditionally, last write wins", func() {
			_, err := store.Set(ctx, "session", "active-task", "book flights")
			Expect(err).NotTo(HaveOccurred())

			current = current.Add(time.Minute)
			cell, err := store.Set(ctx, "session", "active-task", "book hotels")
			Expect(err).NotTo(HaveOccurred())
			Expect(cell.UpdatedAt).To(Equal(current))

			got, err := store.Get(ctx, "session", "active-task")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Value).To(Equal("book hotels"))
		})

		It("requires namespace and key", func() {
			_, err := store.Set(ctx, "", "k", "v")
			Expect(memory.CodeOf(err)).To(Equal(memory.CodeValidation))

			_, err = store.Set(ctx, "ns", "", "v")
			Expect(memory.CodeOf(err)).To(Equal(memory.CodeValidation))
		})

		It("allows an empty value", func() {
			_, err := store.Set(ctx, "session", "scratch", "")
			Expect(err).NotTo(HaveOccurred())

			got, err := store.Get(ctx, "session", "scratch")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Value).To(BeEmpty())
		})

		It("reports a missing cell as not found", func() {
			_, err := store.Get(ctx, "session", "missing")
			Expect(memory.CodeOf(err)).To(Equal(memory.CodeMemoryNotFound))
		})
	})

	Describe("Snapshot", func() {
		It("freezes the observed value against later writes", func() {
			_, err := store.Set(ctx, "session", "active-task", "book flights")
			Expect(err).NotTo(HaveOccurred())

			ref, err := store.Snapshot(ctx, "session", "active-task")
			Expect(err).NotTo(HaveOccurred())
			Expect(ref.SnapshotValue).To(Equal("book flights"))
			Expect(ref.SnapshotAt).To(Equal(base))

			current = current.Add(time.Hour)
			_, err = store.Set(ctx, "session", "active-task", "book hotels")
			Expect(err).NotTo(HaveOccurred())

			Expect(ref.SnapshotValue).To(Equal("book flights"))

			live, err := store.Get(ctx, "session", "active-task")
			Expect(err).NotTo(HaveOccurred())
			Expect(live.Value).To(Equal("book hotels"))
		})

		It("survives deletion of the cell", func() {
			_, err := store.Set(ctx, "session", "active-task", "book flights")
			Expect(err).NotTo(HaveOccurred())

			ref, err := store.Snapshot(ctx, "session", "active-task")
			Expect(err).NotTo(HaveOccurred())

			deleted, err := store.Delete(ctx, "session", "active-task")
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(BeTrue())

			Expect(ref.Validate()).To(Succeed())
			Expect(ref.SnapshotValue).To(Equal("book flights"))
		})
	})

	Describe("Delete", func() {
		It("reports false for a missing cell", func() {
			deleted, err := store.Delete(ctx, "session", "missing")
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(BeFalse())
		})
	})

	Describe("List", func() {
		It("orders by namespace then key and scopes by namespace", func() {
			for _, pair := range [][2]string{
				{"session", "b"},
				{"session", "a"},
				{"prefs", "theme"},
			} {
				_, err := store.Set(ctx, pair[0], pair[1], "v")
				Expect(err).NotTo(HaveOccurred())
			}

			session, err := store.List(ctx, "session")
			Expect(err).NotTo(HaveOccurred())
			Expect(session).To(HaveLen(2))
			Expect(session[0].Key).To(Equal("a"))
			Expect(session[1].Key).To(Equal("b"))

			all, err := store.List(ctx, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(3))
			Expect(all[0].Namespace).To(Equal("prefs"))
		})
	})
})
