package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"sigil/pkg/platform/events"
)

// DB is the subset of pgxpool.Pool the store needs. Satisfied by both a pool
// and a transaction, so callers can append entries inside their own tx.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store on the event_outbox table.
type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event events.Event) error {
	const q = `
		INSERT INTO event_outbox (id, event_id, event_name, event_category, subject_id, entity_id, request_id, payload, occurred_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())`

	_, err := s.db.Exec(ctx, q,
		uuid.New(), event.ID, event.Name, event.Category,
		event.SubjectID, event.EntityID, event.RequestID,
		event.Payload, event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// FetchUnprocessed locks the returned rows with SKIP LOCKED so concurrent
// relay workers never hand the same entry to the bus twice.
func (s *PostgresStore) FetchUnprocessed(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		return nil, nil
	}
	const maxBatch = 1000
	if limit > maxBatch {
		limit = maxBatch
	}

	const q = `
		SELECT id, event_id, event_name, event_category, subject_id, entity_id, request_id, payload, occurred_at, created_at, processed_at
		FROM event_outbox
		WHERE processed_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED`

	rows, err := s.db.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch unprocessed entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID, &e.Event.ID, &e.Event.Name, &e.Event.Category,
			&e.Event.SubjectID, &e.Event.EntityID, &e.Event.RequestID,
			&e.Event.Payload, &e.Event.Timestamp, &e.CreatedAt, &e.ProcessedAt,
		); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox entries: %w", err)
	}
	return entries, nil
}

func (s *PostgresStore) MarkProcessed(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	const q = `UPDATE event_outbox SET processed_at = now() WHERE id = ANY($1) AND processed_at IS NULL`

	if _, err := s.db.Exec(ctx, q, ids); err != nil {
		return fmt.Errorf("mark outbox entries processed: %w", err)
	}
	return nil
}

func (s *PostgresStore) CountPending(ctx context.Context) (int, error) {
	const q = `SELECT count(*) FROM event_outbox WHERE processed_at IS NULL`

	var count int
	if err := s.db.QueryRow(ctx, q).Scan(&count); err != nil {
		return 0, fmt.Errorf("count pending entries: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	const q = `DELETE FROM event_outbox WHERE processed_at IS NOT NULL AND processed_at < $1`

	tag, err := s.db.Exec(ctx, q, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete processed entries: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
