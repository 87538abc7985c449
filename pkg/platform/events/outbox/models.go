package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"

	"sigil/pkg/platform/events"
)

// Entry is a persisted event awaiting relay to the event bus. Entries are
// written in the same transaction scope as the state change they describe and
// drained by the relay worker.
type Entry struct {
	ID          uuid.UUID
	Event       events.Event
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// Processed reports whether the entry has been relayed.
func (e Entry) Processed() bool {
	return e.ProcessedAt != nil
}

// Store persists outbox entries and tracks relay progress.
type Store interface {
	events.Store

	// FetchUnprocessed returns up to limit entries that have not been
	// relayed yet, oldest first.
	FetchUnprocessed(ctx context.Context, limit int) ([]Entry, error)

	// MarkProcessed stamps the entries as relayed.
	MarkProcessed(ctx context.Context, ids []uuid.UUID) error

	// CountPending returns the number of entries awaiting relay.
	CountPending(ctx context.Context) (int, error)

	// DeleteProcessedBefore removes relayed entries older than the cutoff
	// and returns how many were deleted.
	DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int, error)
}
