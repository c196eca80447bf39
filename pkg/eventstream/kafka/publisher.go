// Package kafka publishes memory store events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json/v2"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/SaintNick1214/cortex/pkg/eventstream"
)

// Config holds construction options for the Publisher.
type Config struct {
	// Brokers is the Kafka bootstrap broker list. Required.
	Brokers []string

	// Topic is the destination topic. Required.
	Topic string

	// Logger is the configured zap logger. Defaults to zap.NewNop().
	Logger *zap.Logger
}

// Publisher writes events to Kafka. Messages are keyed by memory space id so
// every event for a space lands on one partition in order.
type Publisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewPublisher creates a Kafka publisher.
func NewPublisher(c Config) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, eventstream.ErrNoBrokers
	}
	if c.Topic == "" {
		return nil, eventstream.ErrNoTopic
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(c.Brokers...),
		Topic:        c.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}

	return &Publisher{
		writer: writer,
		logger: c.Logger,
	}, nil
}

// PublishFactRevised writes a fact revision event.
func (p *Publisher) PublishFactRevised(ctx context.Context, event *eventstream.FactRevisedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	return p.publish(ctx, event.MemorySpaceID, event.EventType, event)
}

// PublishSpacePurged writes a space purge event.
func (p *Publisher) PublishSpacePurged(ctx context.Context, event *eventstream.SpacePurgedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	return p.publish(ctx, event.MemorySpaceID, event.EventType, event)
}

func (p *Publisher) publish(ctx context.Context, key, eventType string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	})
	if err != nil {
		return err
	}

	p.logger.Debug("event published",
		zap.String("topic", p.writer.Topic),
		zap.String("event_type", eventType),
		zap.String("key", key),
	)

	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
