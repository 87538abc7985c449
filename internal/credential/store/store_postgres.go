package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"sigil/internal/credential/models"
	id "sigil/pkg/domain"
	"sigil/pkg/platform/sentinel"
)

// PostgresStore persists credentials in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed credential store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, credential models.VerifiableCredential) error {
	subjectBytes, err := json.Marshal(credential.CredentialSubject)
	if err != nil {
		return fmt.Errorf("marshal credential subject: %w", err)
	}
	proofBytes, err := json.Marshal(credential.Proof)
	if err != nil {
		return fmt.Errorf("marshal credential proof: %w", err)
	}
	query := `
		INSERT INTO credentials (id, type, issuer_id, holder, credential_subject, proof, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = s.db.ExecContext(ctx, query,
		credential.ID.String(),
		string(credential.Type),
		credential.IssuerID,
		string(credential.Holder),
		subjectBytes,
		proofBytes,
		credential.IssuedAt,
		credential.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, credentialID id.CredentialID) (models.VerifiableCredential, error) {
	query := `
		SELECT id, type, issuer_id, holder, credential_subject, proof, issued_at, expires_at
		FROM credentials
		WHERE id = $1
	`
	cred, err := scanCredential(s.db.QueryRowContext(ctx, query, credentialID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.VerifiableCredential{}, sentinel.ErrNotFound
		}
		return models.VerifiableCredential{}, fmt.Errorf("find credential by id: %w", err)
	}
	return cred, nil
}

func (s *PostgresStore) ListByHolder(ctx context.Context, holder id.HolderDID) ([]models.VerifiableCredential, error) {
	query := `
		SELECT id, type, issuer_id, holder, credential_subject, proof, issued_at, expires_at
		FROM credentials
		WHERE holder = $1
		ORDER BY issued_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, string(holder))
	if err != nil {
		return nil, fmt.Errorf("list credentials by holder: %w", err)
	}
	defer rows.Close()

	var out []models.VerifiableCredential
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		out = append(out, cred)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCredential(row rowScanner) (models.VerifiableCredential, error) {
	var (
		cred         models.VerifiableCredential
		rawID        string
		rawType      string
		rawHolder    string
		subjectBytes []byte
		proofBytes   []byte
		expiresAt    sql.NullTime
	)
	if err := row.Scan(&rawID, &rawType, &cred.IssuerID, &rawHolder, &subjectBytes, &proofBytes, &cred.IssuedAt, &expiresAt); err != nil {
		return models.VerifiableCredential{}, err
	}
	cred.ID = id.CredentialID(rawID)
	cred.Type = models.CredentialType(rawType)
	cred.Holder = id.HolderDID(rawHolder)
	if len(subjectBytes) > 0 {
		if err := json.Unmarshal(subjectBytes, &cred.CredentialSubject); err != nil {
			return models.VerifiableCredential{}, fmt.Errorf("unmarshal credential subject: %w", err)
		}
	}
	if cred.CredentialSubject == nil {
		cred.CredentialSubject = models.Subject{}
	}
	if len(proofBytes) > 0 {
		if err := json.Unmarshal(proofBytes, &cred.Proof); err != nil {
			return models.VerifiableCredential{}, fmt.Errorf("unmarshal credential proof: %w", err)
		}
	}
	if expiresAt.Valid {
		t := expiresAt.Time.UTC()
		cred.ExpiresAt = &t
	}
	return cred, nil
}
