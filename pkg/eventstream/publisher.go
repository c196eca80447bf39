package eventstream

import "context"

// Publisher publishes memory store events to an event stream backend.
type Publisher interface {
	PublishFactRevised(ctx context.Context, event *FactRevisedEvent) error
	PublishSpacePurged(ctx context.Context, event *SpacePurgedEvent) error
	Close() error
}
