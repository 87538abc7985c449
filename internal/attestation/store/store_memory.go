package store

import (
	"context"
	"sort"
	"sync"

	"sigil/internal/attestation/models"
	id "sigil/pkg/domain"
	"sigil/pkg/platform/sentinel"
)

// InMemoryStore is an in-memory implementation of Store for tests or local
// use. Safe for concurrent access; does not survive restarts.
type InMemoryStore struct {
	mu           sync.RWMutex
	attestations map[id.AttestationID]models.Attestation
}

// NewInMemoryStore constructs an empty in-memory attestation store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{attestations: make(map[id.AttestationID]models.Attestation)}
}

func (s *InMemoryStore) Save(_ context.Context, attestation models.Attestation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attestations[attestation.ID] = attestation
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, attestationID id.AttestationID) (models.Attestation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if att, ok := s.attestations[attestationID]; ok {
		return att, nil
	}
	return models.Attestation{}, sentinel.ErrNotFound
}

// ListBySubject returns all attestations about a subject, oldest first.
func (s *InMemoryStore) ListBySubject(_ context.Context, subjectID id.SubjectID) ([]models.Attestation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Attestation
	for _, att := range s.attestations {
		if att.SubjectID == subjectID {
			out = append(out, att)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
