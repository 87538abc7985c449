package revocation

import (
	"context"
	"sync"

	"sigil/internal/token/models"
	id "sigil/pkg/domain"
)

// MemoryList is an in-process revocation list for tests and single-instance
// deployments without Redis.
type MemoryList struct {
	mu      sync.RWMutex
	revoked map[id.TokenID]models.RevocationDetails
}

// NewMemoryList constructs an empty in-memory revocation list.
func NewMemoryList() *MemoryList {
	return &MemoryList{revoked: make(map[id.TokenID]models.RevocationDetails)}
}

func (l *MemoryList) MarkRevoked(_ context.Context, tokenID id.TokenID, details models.RevocationDetails) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.revoked[tokenID]; !ok {
		l.revoked[tokenID] = details
	}
	return nil
}

func (l *MemoryList) IsRevoked(_ context.Context, tokenID id.TokenID) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.revoked[tokenID]
	return ok, nil
}

func (l *MemoryList) Details(_ context.Context, tokenID id.TokenID) (*models.RevocationDetails, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if details, ok := l.revoked[tokenID]; ok {
		return &details, nil
	}
	return nil, nil
}
