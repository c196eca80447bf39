package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/SaintNick1214/cortex/pkg/eventstream"
)

// MockPublisher is a test publisher that records every event it receives
// and returns configurable errors.
type MockPublisher struct {
	mu sync.Mutex

	// FactRevised accumulates all fact revision events.
	FactRevised []*eventstream.FactRevisedEvent

	// SpacePurged accumulates all space purge events.
	SpacePurged []*eventstream.SpacePurgedEvent

	// FailPublish causes both publish methods to return an error.
	FailPublish bool

	// Closed reports whether Close has been called.
	Closed bool
}

var _ eventstream.Publisher = (*MockPublisher)(nil)

// NewMockPublisher creates a new mock publisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) PublishFactRevised(_ context.Context, event *eventstream.FactRevisedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailPublish {
		return errors.New("mock publish failure")
	}

	m.FactRevised = append(m.FactRevised, event)
	return nil
}

func (m *MockPublisher) PublishSpacePurged(_ context.Context, event *eventstream.SpacePurgedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailPublish {
		return errors.New("mock publish failure")
	}

	m.SpacePurged = append(m.SpacePurged, event)
	return nil
}

func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Closed = true
	return nil
}

// FactRevisedCount returns the number of recorded fact revision events.
func (m *MockPublisher) FactRevisedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.FactRevised)
}

// SpacePurgedCount returns the number of recorded space purge events.
func (m *MockPublisher) SpacePurgedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.SpacePurged)
}
