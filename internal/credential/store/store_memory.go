package store

import (
	"context"
	"sort"
	"sync"

	"sigil/internal/credential/models"
	id "sigil/pkg/domain"
	"sigil/pkg/platform/sentinel"
)

// InMemoryStore is an in-memory implementation of Store for tests or local
// use. Safe for concurrent access; does not survive restarts.
type InMemoryStore struct {
	mu          sync.RWMutex
	credentials map[id.CredentialID]models.VerifiableCredential
}

// NewInMemoryStore constructs an empty in-memory credential store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{credentials: make(map[id.CredentialID]models.VerifiableCredential)}
}

func (s *InMemoryStore) Save(_ context.Context, credential models.VerifiableCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials[credential.ID] = credential
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, credentialID id.CredentialID) (models.VerifiableCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if cred, ok := s.credentials[credentialID]; ok {
		return cred, nil
	}
	return models.VerifiableCredential{}, sentinel.ErrNotFound
}

// ListByHolder returns all credentials issued to a holder, oldest first.
func (s *InMemoryStore) ListByHolder(_ context.Context, holder id.HolderDID) ([]models.VerifiableCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.VerifiableCredential
	for _, cred := range s.credentials {
		if cred.Holder == holder {
			out = append(out, cred)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].IssuedAt.Before(out[j].IssuedAt)
	})
	return out, nil
}
