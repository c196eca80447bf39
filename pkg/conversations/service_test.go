package conversations_test

import (
	"context"
	"strings"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/SaintNick1214/cortex/pkg/conversations"
	"github.com/SaintNick1214/cortex/pkg/memory"
	"github.com/SaintNick1214/cortex/pkg/storage"
	"github.com/SaintNick1214/cortex/pkg/storage/inmemory"
)

func TestConversations(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Conversations Suite")
}

var _ = Describe("Service", func() {
	var (
		ctx     context.Context
		service *conversations.Service
		current time.Time
	)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	BeforeEach(func() {
		ctx = context.Background()
		current = base
		service = conversations.NewService(conversations.Config{
			Driver: inmemory.NewDriver(),
			Now:    func() time.Time { return current },
		})
	})

	advance := func(d time.Duration) { current = current.Add(d) }

	create := func(space, convType string) *memory.Conversation {
		conv, err := service.Create(ctx, conversations.CreateRequest{
			MemorySpaceID: space,
			Type:          convType,
			Participants:  []string{"user-alex", "agent-1"},
		})
		Expect(err).NotTo(HaveOccurred())
		return conv
	}

	Describe("Create", func() {
		It("starts with an empty message list", func() {
			conv := create("agent-1", "chat")

			Expect(strings.HasPrefix(conv.ConversationID, "conv-")).To(BeTrue())
			Expect(conv.Messages).To(BeEmpty())
			Expect(conv.CreatedAt).To(Equal(base))
		})

		It("requires a type", func() {
			_, err := service.Create(ctx, conversations.CreateRequest{MemorySpaceID: "agent-1"})
			Expect(memory.CodeOf(err)).To(Equal(memory.CodeValidation))
		})
	})

	Describe("AddMessage", func() {
		It("appends in order with stable ids and timestamps", func() {
			conv := create("agent-1", "chat")

			first, err := service.AddMessage(ctx, "agent-1", conv.ConversationID, "user", "hello")
			Expect(err).NotTo(HaveOccurred())
			Expect(strings.HasPrefix(first.MessageID, "msg-")).To(BeTrue())
			Expect(first.Timestamp).To(Equal(base))

			advance(time.Minute)
			second, err := service.AddMessage(ctx, "agent-1", conv.ConversationID, "assistant", "hi there")
			Expect(err).NotTo(HaveOccurred())
			Expect(second.MessageID).NotTo(Equal(first.MessageID))

			reread, err := service.Get(ctx, "agent-1", conv.ConversationID)
			Expect(err).NotTo(HaveOccurred())
			Expect(reread.Messages).To(HaveLen(2))
			Expect(reread.Messages[0].MessageID).To(Equal(first.MessageID))
			Expect(reread.Messages[1].MessageID).To(Equal(second.MessageID))
			Expect(reread.Messages[1].Timestamp).To(Equal(current))
		})

		It("requires role and content", func() {
			conv := create("agent-1", "chat")

			_, err := service.AddMessage(ctx, "agent-1", conv.ConversationID, "", "hello")
			Expect(memory.CodeOf(err)).To(Equal(memory.CodeValidation))

			_, err = service.AddMessage(ctx, "agent-1", conv.ConversationID, "user", "")
			Expect(memory.CodeOf(err)).To(Equal(memory.CodeValidation))
		})

		It("fails on an unknown conversation", func() {
			_, err := service.AddMessage(ctx, "agent-1", memory.NewID(memory.KindConversation), "user", "hello")
			Expect(memory.CodeOf(err)).To(Equal(memory.CodeConversationNotFound))
		})
	})

	Describe("Delete", func() {
		It("hard-deletes the conversation", func() {
			conv := create("agent-1", "chat")

			deleted, err := service.Delete(ctx, "agent-1", conv.ConversationID)
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(BeTrue())

			_, err = service.Get(ctx, "agent-1", conv.ConversationID)
			Expect(memory.CodeOf(err)).To(Equal(memory.CodeConversationNotFound))
		})
	})

	Describe("isolation", func() {
		It("hides another space's conversation from reads", func() {
			conv := create("agent-1", "chat")

			_, err := service.Get(ctx, "agent-2", conv.ConversationID)
			Expect(memory.CodeOf(err)).To(Equal(memory.CodeConversationNotFound))
		})

		It("denies mutation across spaces", func() {
			conv := create("agent-1", "chat")

			_, err := service.AddMessage(ctx, "agent-2", conv.ConversationID, "user", "hello")
			Expect(memory.CodeOf(err)).To(Equal(memory.CodePermissionDenied))

			_, err = service.Delete(ctx, "agent-2", conv.ConversationID)
			Expect(memory.CodeOf(err)).To(Equal(memory.CodePermissionDenied))
		})
	})

	Describe("List", func() {
		It("filters by type and participant within the space", func() {
			create("agent-1", "chat")
			create("agent-1", "handoff")
			create("agent-2", "chat")

			chats, err := service.List(ctx, "agent-1", storage.ConversationFilter{Type: "chat"})
			Expect(err).NotTo(HaveOccurred())
			Expect(chats).To(HaveLen(1))

			all, err := service.List(ctx, "agent-1", storage.ConversationFilter{Participant: "user-alex"})
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(2))

			count, err := service.Count(ctx, "agent-1", storage.ConversationFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(2))
		})

		It("matches keywords over message content", func() {
			conv := create("agent-1", "chat")
			_, err := service.AddMessage(ctx, "agent-1", conv.ConversationID, "user", "Book me a flight to Lisbon")
			Expect(err).NotTo(HaveOccurred())
			create("agent-1", "chat")

			hits, err := service.List(ctx, "agent-1", storage.ConversationFilter{Query: "lisbon"})
			Expect(err).NotTo(HaveOccurred())
			Expect(hits).To(HaveLen(1))
			Expect(hits[0].ConversationID).To(Equal(conv.ConversationID))

			none, err := service.List(ctx, "agent-1", storage.ConversationFilter{Query: "porto"})
			Expect(err).NotTo(HaveOccurred())
			Expect(none).To(BeEmpty())
		})
	})
})
