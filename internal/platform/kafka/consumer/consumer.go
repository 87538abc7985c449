package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Message is the transport-agnostic view of a consumed record that handlers
// receive. Keeping it decoupled from kgo.Record lets handler tests construct
// messages directly.
type Message struct {
	Topic     string
	Key       []byte
	Value     []byte
	Timestamp time.Time
}

// Handler processes consumed messages. Returning an error stops the consumer;
// skippable messages should be logged and swallowed by the handler.
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

// Consumer wraps a franz-go consumer-group client in a poll loop.
type Consumer struct {
	client  *kgo.Client
	handler Handler
	logger  *slog.Logger
}

// Option configures the Consumer.
type Option func(*Consumer)

// WithLogger sets a logger for poll errors.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Consumer) {
		c.logger = logger
	}
}

// New connects a consumer group subscribed to the given topics.
func New(brokers []string, group string, topics []string, handler Handler, opts ...Option) (*Consumer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(group),
		kgo.ConsumeTopics(topics...),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}

	c := &Consumer{client: client, handler: handler}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Run polls until the context is canceled. Records are committed only after
// the handler returns nil, so a crash reprocesses uncommitted messages.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if err := ctx.Err(); err != nil {
			return err
		}
		if errs := fetches.Errors(); len(errs) > 0 {
			for _, fe := range errs {
				if c.logger != nil {
					c.logger.ErrorContext(ctx, "kafka fetch error",
						"topic", fe.Topic,
						"error", fe.Err,
					)
				}
			}
		}

		var failed error
		fetches.EachRecord(func(record *kgo.Record) {
			if failed != nil {
				return
			}
			msg := &Message{
				Topic:     record.Topic,
				Key:       record.Key,
				Value:     record.Value,
				Timestamp: record.Timestamp,
			}
			if err := c.handler.Handle(ctx, msg); err != nil {
				failed = fmt.Errorf("handle record from %s: %w", record.Topic, err)
			}
		})
		if failed != nil {
			return failed
		}

		if err := c.client.CommitUncommittedOffsets(ctx); err != nil {
			if c.logger != nil {
				c.logger.ErrorContext(ctx, "kafka commit failed", "error", err)
			}
		}
	}
}

// Close releases the underlying client.
func (c *Consumer) Close() {
	c.client.Close()
}
