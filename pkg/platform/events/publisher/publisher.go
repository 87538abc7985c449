package publisher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	dErrors "sigil/pkg/domain-errors"
	"sigil/pkg/platform/events"
)

// Publisher captures domain events after successful mutating operations. It is
// append-only and uses the storage layer for persistence so tests can swap
// sinks easily.
type Publisher struct {
	store   events.Store
	inbox   chan events.Event
	wg      sync.WaitGroup
	logger  *slog.Logger
	dropped prometheus.Counter
	async   bool
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithAsyncBuffer enables async processing with the specified buffer size.
// Events are queued and persisted in a background goroutine.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.inbox = make(chan events.Event, size)
			p.async = true
		}
	}
}

// WithLogger sets a logger for async error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithDropCounter counts events dropped when the async buffer is full.
func WithDropCounter(c prometheus.Counter) Option {
	return func(p *Publisher) {
		p.dropped = c
	}
}

func New(store events.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.async {
		p.wg.Add(1)
		go p.processEvents()
	}
	return p
}

// processEvents runs in a goroutine and persists events from the channel.
func (p *Publisher) processEvents() {
	defer p.wg.Done()
	for event := range p.inbox {
		if err := p.store.Append(context.Background(), event); err != nil {
			if p.logger != nil {
				p.logger.Error("failed to persist domain event",
					"error", err,
					"event", event.Name,
					"entity_id", event.EntityID,
				)
			}
		}
	}
}

// Close shuts down the async publisher and waits for pending events to drain.
func (p *Publisher) Close() {
	if p.async && p.inbox != nil {
		close(p.inbox)
		p.wg.Wait()
	}
}

// Emit records the event. In sync mode the write happens on the caller's
// goroutine and its error is returned; in async mode a full buffer fails fast
// instead of blocking the issuing operation.
func (p *Publisher) Emit(ctx context.Context, event events.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if !p.async {
		return p.store.Append(ctx, event)
	}
	select {
	case p.inbox <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		if p.dropped != nil {
			p.dropped.Inc()
		}
		if p.logger != nil {
			p.logger.Warn("event buffer full, event dropped",
				"event", event.Name,
				"entity_id", event.EntityID,
			)
		}
		return dErrors.New(dErrors.CodeInternal, "event buffer full")
	}
}
