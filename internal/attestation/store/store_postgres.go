package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"sigil/internal/attestation/models"
	id "sigil/pkg/domain"
	"sigil/pkg/platform/sentinel"
)

// PostgresStore persists attestations in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed attestation store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, attestation models.Attestation) error {
	claimsBytes, err := json.Marshal(attestation.Claims)
	if err != nil {
		return fmt.Errorf("marshal attestation claims: %w", err)
	}
	query := `
		INSERT INTO attestations (id, type, issuer_id, subject_id, claims, signature, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = s.db.ExecContext(ctx, query,
		attestation.ID.String(),
		string(attestation.Type),
		attestation.IssuerID,
		attestation.SubjectID.String(),
		claimsBytes,
		attestation.Signature,
		attestation.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save attestation: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, attestationID id.AttestationID) (models.Attestation, error) {
	query := `
		SELECT id, type, issuer_id, subject_id, claims, signature, created_at
		FROM attestations
		WHERE id = $1
	`
	att, err := scanAttestation(s.db.QueryRowContext(ctx, query, attestationID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Attestation{}, sentinel.ErrNotFound
		}
		return models.Attestation{}, fmt.Errorf("find attestation by id: %w", err)
	}
	return att, nil
}

func (s *PostgresStore) ListBySubject(ctx context.Context, subjectID id.SubjectID) ([]models.Attestation, error) {
	query := `
		SELECT id, type, issuer_id, subject_id, claims, signature, created_at
		FROM attestations
		WHERE subject_id = $1
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, subjectID.String())
	if err != nil {
		return nil, fmt.Errorf("list attestations by subject: %w", err)
	}
	defer rows.Close()

	var out []models.Attestation
	for rows.Next() {
		att, err := scanAttestation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attestation: %w", err)
		}
		out = append(out, att)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attestations: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttestation(row rowScanner) (models.Attestation, error) {
	var (
		att         models.Attestation
		rawID       string
		rawType     string
		rawSubject  string
		claimsBytes []byte
	)
	if err := row.Scan(&rawID, &rawType, &att.IssuerID, &rawSubject, &claimsBytes, &att.Signature, &att.CreatedAt); err != nil {
		return models.Attestation{}, err
	}
	att.ID = id.AttestationID(rawID)
	att.Type = models.EventType(rawType)
	att.SubjectID = id.SubjectID(rawSubject)
	if len(claimsBytes) > 0 {
		if err := json.Unmarshal(claimsBytes, &att.Claims); err != nil {
			return models.Attestation{}, fmt.Errorf("unmarshal attestation claims: %w", err)
		}
	}
	if att.Claims == nil {
		att.Claims = models.Claims{}
	}
	return att, nil
}
