// Package store persists soulbound tokens and serializes their revocation.
package store

import (
	"context"
	"time"

	"sigil/internal/token/models"
	id "sigil/pkg/domain"
)

// Store is the token persistence contract. Implementations return
// sentinel.ErrNotFound for unknown ids.
//
// Revoke must behave as an atomic compare-and-swap on the revoked flag:
// under concurrent calls for the same token exactly one caller gets true,
// and the recorded reason is the winner's.
type Store interface {
	Save(ctx context.Context, token models.SoulboundToken) error
	FindByID(ctx context.Context, tokenID id.TokenID) (models.SoulboundToken, error)
	ListByRecipient(ctx context.Context, recipientID id.SubjectID) ([]models.SoulboundToken, error)
	Revoke(ctx context.Context, tokenID id.TokenID, reason string, revokedAt time.Time) (bool, error)
}
