package producer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Producer wraps a franz-go client for publishing domain events. Publishing is
// synchronous per record; callers that need buffering put a worker in front.
type Producer struct {
	client *kgo.Client
	logger *slog.Logger
}

// Option configures the Producer.
type Option func(*Producer)

// WithLogger sets a logger for publish failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Producer) {
		p.logger = logger
	}
}

// New connects to the given brokers. The caller owns Close.
func New(brokers []string, opts ...Option) (*Producer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	p := &Producer{client: client}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// EnsureTopic creates the topic if it does not exist yet. Safe to call on
// every startup; existing topics are left untouched.
func (p *Producer) EnsureTopic(ctx context.Context, topic string, partitions int32) error {
	adm := kadm.NewClient(p.client)

	resp, err := adm.CreateTopics(ctx, partitions, 1, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	for _, res := range resp {
		if res.Err != nil && !errors.Is(res.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", topic, res.Err)
		}
	}
	return nil
}

// Publish sends a single record and waits for the broker acknowledgment.
func (p *Producer) Publish(ctx context.Context, topic string, key, value []byte) error {
	record := &kgo.Record{
		Topic: topic,
		Key:   key,
		Value: value,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "kafka publish failed",
				"topic", topic,
				"error", err,
			)
		}
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Close flushes pending records and releases the client.
func (p *Producer) Close() {
	p.client.Close()
}
