package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"sigil/internal/platform/kafka/consumer"
	"sigil/pkg/platform/events"
)

// EventHandler handles decoded events of a specific name.
type EventHandler interface {
	Handle(ctx context.Context, event events.Event) error
}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc func(ctx context.Context, event events.Event) error

func (f EventHandlerFunc) Handle(ctx context.Context, event events.Event) error {
	return f(ctx, event)
}

// Router decodes bus messages and dispatches them by event name. All issuance
// events share one topic, so routing happens on the envelope rather than the
// topic.
type Router struct {
	handlers map[events.Name]EventHandler
	fallback EventHandler
	logger   *slog.Logger
}

// NewRouter creates an event router with an optional fallback handler.
func NewRouter(logger *slog.Logger, fallback EventHandler) *Router {
	return &Router{
		handlers: make(map[events.Name]EventHandler),
		fallback: fallback,
		logger:   logger,
	}
}

// Register adds a handler for a specific event name.
func (r *Router) Register(name events.Name, handler EventHandler) {
	r.handlers[name] = handler
}

// Handle implements consumer.Handler. Messages that fail to decode are logged
// and committed; redelivering them cannot fix a malformed payload.
func (r *Router) Handle(ctx context.Context, msg *consumer.Message) error {
	var event events.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		r.logger.WarnContext(ctx, "skipping undecodable event",
			"topic", msg.Topic,
			"key", string(msg.Key),
			"error", err,
		)
		return nil
	}

	handler, ok := r.handlers[event.Name]
	if !ok {
		if r.fallback != nil {
			return r.fallback.Handle(ctx, event)
		}
		r.logger.WarnContext(ctx, "no handler for event, skipping",
			"event", event.Name,
			"entity_id", event.EntityID,
		)
		return nil
	}
	if err := handler.Handle(ctx, event); err != nil {
		return fmt.Errorf("handle %s event: %w", event.Name, err)
	}
	return nil
}
