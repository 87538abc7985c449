// Package store persists verifiable credentials.
package store

import (
	"context"

	"sigil/internal/credential/models"
	id "sigil/pkg/domain"
)

// Store is the credential persistence contract. Implementations return
// sentinel.ErrNotFound for unknown ids.
type Store interface {
	Save(ctx context.Context, credential models.VerifiableCredential) error
	FindByID(ctx context.Context, credentialID id.CredentialID) (models.VerifiableCredential, error)
	ListByHolder(ctx context.Context, holder id.HolderDID) ([]models.VerifiableCredential, error)
}
