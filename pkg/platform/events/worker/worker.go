package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"sigil/pkg/platform/events/outbox"
	"sigil/pkg/platform/events/outbox/metrics"
)

// Bus is the publish side of the event bus. Satisfied by the Kafka producer.
type Bus interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Worker drains the outbox and relays entries to the event bus. Entries stay
// pending until the bus acknowledges them, so a crash between publish and
// mark-processed results in a duplicate, never a loss.
type Worker struct {
	store        outbox.Store
	bus          Bus
	topic        string
	batchSize    int
	pollInterval time.Duration
	metrics      *metrics.Metrics
	logger       *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures the Worker.
type Option func(*Worker)

// WithBatchSize sets the maximum number of entries fetched per poll.
func WithBatchSize(size int) Option {
	return func(w *Worker) {
		if size > 0 {
			w.batchSize = size
		}
	}
}

// WithPollInterval sets the interval between polls.
func WithPollInterval(interval time.Duration) Option {
	return func(w *Worker) {
		if interval > 0 {
			w.pollInterval = interval
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Worker) {
		w.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = logger
	}
}

func New(store outbox.Store, bus Bus, topic string, opts ...Option) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	w := &Worker{
		store:        store,
		bus:          bus,
		topic:        topic,
		batchSize:    100,
		pollInterval: 100 * time.Millisecond,
		ctx:          ctx,
		cancel:       cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins the polling loop in a background goroutine.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.run()
}

// Stop cancels the loop, drains remaining entries and waits for the goroutine.
func (w *Worker) Stop() {
	w.cancel()
	w.wg.Wait()
}

func (w *Worker) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			w.drain()
			return
		case <-ticker.C:
			w.poll(w.ctx)
		}
	}
}

// poll relays one batch. Failed entries are left pending and retried on the
// next poll.
func (w *Worker) poll(ctx context.Context) {
	start := time.Now()
	defer func() {
		if w.metrics != nil {
			w.metrics.PollDuration.Observe(time.Since(start).Seconds())
		}
	}()

	entries, err := w.store.FetchUnprocessed(ctx, w.batchSize)
	if err != nil {
		if w.logger != nil {
			w.logger.Error("failed to fetch outbox entries", "error", err)
		}
		return
	}
	if len(entries) == 0 {
		return
	}
	if w.metrics != nil {
		w.metrics.BatchSize.Observe(float64(len(entries)))
	}

	relayed := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		if err := w.relay(ctx, entry); err != nil {
			if w.logger != nil {
				w.logger.Error("failed to relay outbox entry",
					"id", entry.ID,
					"event", entry.Event.Name,
					"error", err,
				)
			}
			if w.metrics != nil {
				w.metrics.PublishFailures.Inc()
			}
			continue
		}
		relayed = append(relayed, entry.ID)
		if w.metrics != nil {
			w.metrics.PublishedTotal.Inc()
		}
	}

	if len(relayed) == 0 {
		return
	}
	if err := w.store.MarkProcessed(ctx, relayed); err != nil {
		if w.logger != nil {
			w.logger.Error("failed to mark outbox entries processed", "error", err)
		}
		// Entries were published but not marked; consumers must tolerate
		// the resulting duplicates.
	}
}

// relay publishes a single entry. The entity ID keys the record so events
// about the same entity land on one partition in order.
func (w *Worker) relay(ctx context.Context, entry outbox.Entry) error {
	value, err := json.Marshal(entry.Event)
	if err != nil {
		return err
	}
	return w.bus.Publish(ctx, w.topic, []byte(entry.Event.EntityID), value)
}

// drain relays remaining entries during shutdown under a short deadline.
func (w *Worker) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for {
		entries, err := w.store.FetchUnprocessed(ctx, w.batchSize)
		if err != nil || len(entries) == 0 {
			return
		}

		relayed := make([]uuid.UUID, 0, len(entries))
		for _, entry := range entries {
			if err := w.relay(ctx, entry); err != nil {
				if w.logger != nil {
					w.logger.Error("failed to relay during drain", "id", entry.ID, "error", err)
				}
				continue
			}
			relayed = append(relayed, entry.ID)
		}
		if len(relayed) == 0 {
			return
		}
		if err := w.store.MarkProcessed(ctx, relayed); err != nil {
			return
		}
	}
}
