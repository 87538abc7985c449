// Package store persists attestations.
package store

import (
	"context"

	"sigil/internal/attestation/models"
	id "sigil/pkg/domain"
)

// Store is the attestation persistence contract. Implementations return
// sentinel.ErrNotFound for unknown ids.
type Store interface {
	Save(ctx context.Context, attestation models.Attestation) error
	FindByID(ctx context.Context, attestationID id.AttestationID) (models.Attestation, error)
	ListBySubject(ctx context.Context, subjectID id.SubjectID) ([]models.Attestation, error)
}
