package nop

import (
	"context"

	"github.com/SaintNick1214/cortex/pkg/eventstream"
)

// Publisher is a no-op eventstream publisher used for tests and disabled mode.
type Publisher struct{}

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishFactRevised validates input and otherwise does nothing.
func (p *Publisher) PublishFactRevised(_ context.Context, event *eventstream.FactRevisedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	return nil
}

// PublishSpacePurged validates input and otherwise does nothing.
func (p *Publisher) PublishSpacePurged(_ context.Context, event *eventstream.SpacePurgedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}
