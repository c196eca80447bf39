package worker

import (
	"context"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/SaintNick1214/cortex/pkg/eventstream"
	"github.com/SaintNick1214/cortex/pkg/memory"
)

// capturePublisher records published events so tests can assert on them
// after draining the pool via Close().
type capturePublisher struct {
	mu      sync.Mutex
	revised []*eventstream.FactRevisedEvent
	purged  []*eventstream.SpacePurgedEvent
}

func (c *capturePublisher) PublishFactRevised(_ context.Context, event *eventstream.FactRevisedEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.revised = append(c.revised, event)
	return nil
}

func (c *capturePublisher) PublishSpacePurged(_ context.Context, event *eventstream.SpacePurgedEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purged = append(c.purged, event)
	return nil
}

func (c *capturePublisher) Close() error { return nil }

func newTestPool() (*Pool, *capturePublisher) {
	logger, _ := zap.NewDevelopment()
	publisher := &capturePublisher{}

	wp, err := NewPool(&Config{
		Publisher: publisher,
		Logger:    logger,
	})
	Expect(err).NotTo(HaveOccurred())

	return wp, publisher
}

var _ = Describe("Worker Pool", func() {
	var (
		wp        *Pool
		publisher *capturePublisher
	)

	BeforeEach(func() {
		wp, publisher = newTestPool()
	})

	Describe("Enqueue", func() {
		It("returns true when the queue has capacity", func() {
			ok := wp.Enqueue(Job{
				FactRevised: eventstream.NewFactRevisedEvent("ADD", &memory.Fact{
					FactID:        "fact-1",
					MemorySpaceID: "agent-1",
				}, nil),
			})
			Expect(ok).To(BeTrue())
			wp.Close()
		})

		It("returns false when the queue is full", func() {
			full, err := NewPool(&Config{
				Publisher:  &blockedPublisher{release: make(chan struct{})},
				NumWorkers: 1,
				QueueSize:  1,
				Logger:     zap.NewNop(),
			})
			Expect(err).NotTo(HaveOccurred())

			job := Job{SpacePurged: eventstream.NewSpacePurgedEvent("agent-1", 0, 0, 0, 0)}

			// First job occupies the single worker, second fills the queue;
			// the third has nowhere to go.
			Expect(full.Enqueue(job)).To(BeTrue())
			Eventually(func() bool { return full.Enqueue(job) }).Should(BeFalse())

			close(full.config.Publisher.(*blockedPublisher).release)
			full.Close()
		})
	})

	Describe("publishing", func() {
		It("delivers enqueued events to the publisher", func() {
			wp.Enqueue(Job{
				FactRevised: eventstream.NewFactRevisedEvent("SUPERSEDE", &memory.Fact{
					FactID:        "fact-2",
					MemorySpaceID: "agent-1",
				}, nil),
			})
			wp.Enqueue(Job{
				SpacePurged: eventstream.NewSpacePurgedEvent("agent-1", 1, 2, 3, 0),
			})

			wp.Close()

			Expect(publisher.revised).To(HaveLen(1))
			Expect(publisher.revised[0].Action).To(Equal("SUPERSEDE"))
			Expect(publisher.purged).To(HaveLen(1))
			Expect(publisher.purged[0].MemoriesDeleted).To(Equal(2))
		})

		It("ignores jobs with no payload", func() {
			wp.Enqueue(Job{})
			wp.Close()

			Expect(publisher.revised).To(BeEmpty())
			Expect(publisher.purged).To(BeEmpty())
		})
	})
})

// blockedPublisher parks every publish until release closes, letting tests
// fill the queue deterministically.
type blockedPublisher struct {
	release chan struct{}
}

func (b *blockedPublisher) PublishFactRevised(_ context.Context, _ *eventstream.FactRevisedEvent) error {
	<-b.release
	return nil
}

func (b *blockedPublisher) PublishSpacePurged(_ context.Context, _ *eventstream.SpacePurgedEvent) error {
	<-b.release
	return nil
}

func (b *blockedPublisher) Close() error { return nil }
