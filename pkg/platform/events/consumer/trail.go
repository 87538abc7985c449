package consumer

import (
	"context"
	"log/slog"

	"sigil/pkg/platform/events"
)

// TrailHandler writes every event to the structured log. Wired as the router
// fallback it gives a complete issuance trail even for event names no
// downstream handler claims.
type TrailHandler struct {
	logger *slog.Logger
}

func NewTrailHandler(logger *slog.Logger) *TrailHandler {
	return &TrailHandler{logger: logger}
}

func (h *TrailHandler) Handle(ctx context.Context, event events.Event) error {
	h.logger.InfoContext(ctx, "issuance event",
		"event", event.Name,
		"category", event.Category,
		"subject_id", event.SubjectID,
		"entity_id", event.EntityID,
		"request_id", event.RequestID,
		"occurred_at", event.Timestamp,
	)
	return nil
}
