package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"sigil/internal/token/models"
	id "sigil/pkg/domain"
	"sigil/pkg/platform/sentinel"
)

// InMemoryStore is an in-memory implementation of Store for tests or local
// use. The single mutex serializes revocations, giving the required
// one-winner semantics.
type InMemoryStore struct {
	mu     sync.RWMutex
	tokens map[id.TokenID]models.SoulboundToken
}

// NewInMemoryStore constructs an empty in-memory token store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{tokens: make(map[id.TokenID]models.SoulboundToken)}
}

func (s *InMemoryStore) Save(_ context.Context, token models.SoulboundToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token.ID] = token
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, tokenID id.TokenID) (models.SoulboundToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if token, ok := s.tokens[tokenID]; ok {
		return token, nil
	}
	return models.SoulboundToken{}, sentinel.ErrNotFound
}

// ListByRecipient returns all tokens bound to a recipient, oldest first.
func (s *InMemoryStore) ListByRecipient(_ context.Context, recipientID id.SubjectID) ([]models.SoulboundToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.SoulboundToken
	for _, token := range s.tokens {
		if token.RecipientID == recipientID {
			out = append(out, token)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].IssuedAt.Before(out[j].IssuedAt)
	})
	return out, nil
}

// Revoke flips the revoked flag exactly once. A second call for the same
// token returns false without touching the recorded reason.
func (s *InMemoryStore) Revoke(_ context.Context, tokenID id.TokenID, reason string, revokedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.tokens[tokenID]
	if !ok {
		return false, sentinel.ErrNotFound
	}
	if token.Revoked {
		return false, nil
	}
	token.Revoked = true
	token.RevocationReason = reason
	token.RevokedAt = &revokedAt
	s.tokens[tokenID] = token
	return true, nil
}
