package outbox

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"sigil/pkg/platform/events"
)

// MemoryStore is an in-memory outbox used in unit tests and single-process
// deployments without Postgres.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[uuid.UUID]*Entry)}
}

func (s *MemoryStore) Append(_ context.Context, event events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New()
	s.entries[id] = &Entry{
		ID:        id,
		Event:     event,
		CreatedAt: time.Now(),
	}
	return nil
}

func (s *MemoryStore) FetchUnprocessed(_ context.Context, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pending := make([]Entry, 0, limit)
	for _, e := range s.entries {
		if !e.Processed() {
			pending = append(pending, *e)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (s *MemoryStore) MarkProcessed(_ context.Context, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, id := range ids {
		if e, ok := s.entries[id]; ok {
			e.ProcessedAt = &now
		}
	}
	return nil
}

func (s *MemoryStore) CountPending(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, e := range s.entries {
		if !e.Processed() {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) DeleteProcessedBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id, e := range s.entries {
		if e.Processed() && e.ProcessedAt.Before(cutoff) {
			delete(s.entries, id)
			deleted++
		}
	}
	return deleted, nil
}

// List returns all entries ordered by creation time. Test helper.
func (s *MemoryStore) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		all = append(all, *e)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	return all
}
