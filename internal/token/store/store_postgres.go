package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sigil/internal/token/models"
	id "sigil/pkg/domain"
	"sigil/pkg/platform/sentinel"
)

// PostgresStore persists tokens in PostgreSQL. The revoked flag is flipped
// with a conditional UPDATE, so concurrent revocations of one token resolve
// to a single winner inside the database.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed token store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, token models.SoulboundToken) error {
	metadataBytes, err := json.Marshal(token.Metadata)
	if err != nil {
		return fmt.Errorf("marshal token metadata: %w", err)
	}
	query := `
		INSERT INTO soulbound_tokens (id, type, issuer_id, recipient_id, metadata, signature, issued_at, expires_at, revoked)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE)
	`
	_, err = s.db.ExecContext(ctx, query,
		token.ID.String(),
		string(token.Type),
		token.IssuerID,
		token.RecipientID.String(),
		metadataBytes,
		token.Signature,
		token.IssuedAt,
		token.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, tokenID id.TokenID) (models.SoulboundToken, error) {
	query := `
		SELECT id, type, issuer_id, recipient_id, metadata, signature, issued_at, expires_at, revoked, revocation_reason, revoked_at
		FROM soulbound_tokens
		WHERE id = $1
	`
	token, err := scanToken(s.db.QueryRowContext(ctx, query, tokenID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.SoulboundToken{}, sentinel.ErrNotFound
		}
		return models.SoulboundToken{}, fmt.Errorf("find token by id: %w", err)
	}
	return token, nil
}

func (s *PostgresStore) ListByRecipient(ctx context.Context, recipientID id.SubjectID) ([]models.SoulboundToken, error) {
	query := `
		SELECT id, type, issuer_id, recipient_id, metadata, signature, issued_at, expires_at, revoked, revocation_reason, revoked_at
		FROM soulbound_tokens
		WHERE recipient_id = $1
		ORDER BY issued_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, recipientID.String())
	if err != nil {
		return nil, fmt.Errorf("list tokens by recipient: %w", err)
	}
	defer rows.Close()

	var out []models.SoulboundToken
	for rows.Next() {
		token, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		out = append(out, token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tokens: %w", err)
	}
	return out, nil
}

// Revoke performs the compare-and-swap in SQL: the WHERE NOT revoked clause
// guarantees a single winner under concurrency.
func (s *PostgresStore) Revoke(ctx context.Context, tokenID id.TokenID, reason string, revokedAt time.Time) (bool, error) {
	query := `
		UPDATE soulbound_tokens
		SET revoked = TRUE, revocation_reason = $2, revoked_at = $3
		WHERE id = $1 AND NOT revoked
	`
	result, err := s.db.ExecContext(ctx, query, tokenID.String(), reason, revokedAt)
	if err != nil {
		return false, fmt.Errorf("revoke token: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("revoke token rows affected: %w", err)
	}
	if affected == 0 {
		// Either unknown or already revoked; disambiguate for the caller.
		var exists bool
		if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM soulbound_tokens WHERE id = $1)`, tokenID.String()).Scan(&exists); err != nil {
			return false, fmt.Errorf("check token existence: %w", err)
		}
		if !exists {
			return false, sentinel.ErrNotFound
		}
		return false, nil
	}
	return true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanToken(row rowScanner) (models.SoulboundToken, error) {
	var (
		token         models.SoulboundToken
		rawID         string
		rawType       string
		rawRecipient  string
		metadataBytes []byte
		expiresAt     sql.NullTime
		reason        sql.NullString
		revokedAt     sql.NullTime
	)
	if err := row.Scan(&rawID, &rawType, &token.IssuerID, &rawRecipient, &metadataBytes, &token.Signature, &token.IssuedAt, &expiresAt, &token.Revoked, &reason, &revokedAt); err != nil {
		return models.SoulboundToken{}, err
	}
	token.ID = id.TokenID(rawID)
	token.Type = models.TokenType(rawType)
	token.RecipientID = id.SubjectID(rawRecipient)
	if len(metadataBytes) > 0 {
		if err := json.Unmarshal(metadataBytes, &token.Metadata); err != nil {
			return models.SoulboundToken{}, fmt.Errorf("unmarshal token metadata: %w", err)
		}
	}
	if token.Metadata == nil {
		token.Metadata = models.Metadata{}
	}
	if expiresAt.Valid {
		t := expiresAt.Time.UTC()
		token.ExpiresAt = &t
	}
	if reason.Valid {
		token.RevocationReason = reason.String
	}
	if revokedAt.Valid {
		t := revokedAt.Time.UTC()
		token.RevokedAt = &t
	}
	return token, nil
}
