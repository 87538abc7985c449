// Package models defines soulbound tokens and their revocation state.
package models

import (
	"bytes"
	"fmt"
	"time"

	"sigil/internal/signer"
	id "sigil/pkg/domain"
	dErrors "sigil/pkg/domain-errors"
)

// TokenType enumerates the supported token classes.
type TokenType string

// TokenTypeSoulbound is the non-transferable badge class. It is the only
// class this registry issues; the binding to a recipient is permanent because
// no owner-change operation exists.
const TokenTypeSoulbound TokenType = "SOULBOUND"

// BadgeType values populated by the typed issuance helpers.
const (
	BadgeTypeKYC        = "kyc_verification"
	BadgeTypeMembership = "membership"
	BadgeTypeReputation = "reputation"
)

// DefaultValidityDays applies when metadata carries no validity_days entry.
const DefaultValidityDays = 365

// Metadata is the free-form mapping attached to a token at issuance.
type Metadata map[string]any

// ValidityDays extracts the validity_days entry, defaulting when absent.
// Zero means the token never expires.
func (m Metadata) ValidityDays() (int, error) {
	raw, ok := m["validity_days"]
	if !ok {
		return DefaultValidityDays, nil
	}
	var days int
	switch v := raw.(type) {
	case int:
		days = v
	case float64:
		days = int(v)
	default:
		return 0, dErrors.New(dErrors.CodeValidation, "validity_days must be a number")
	}
	if days < 0 {
		return 0, dErrors.New(dErrors.CodeValidation, "validity_days cannot be negative")
	}
	return days, nil
}

// RevocationDetails is the audit record retained when a token is revoked.
type RevocationDetails struct {
	Reason    string    `json:"reason"`
	RevokedAt time.Time `json:"revoked_at"`
}

// SoulboundToken is a non-transferable badge bound to a recipient. Issuance
// fields are immutable; only the revocation fields ever change, exactly once.
type SoulboundToken struct {
	ID               id.TokenID   `json:"token_id"`
	Type             TokenType    `json:"type"`
	IssuerID         string       `json:"issuer_id"`
	RecipientID      id.SubjectID `json:"recipient_id"`
	Metadata         Metadata     `json:"metadata"`
	Signature        string       `json:"signature"`
	IssuedAt         time.Time    `json:"issued_at"`
	ExpiresAt        *time.Time   `json:"expires_at,omitempty"`
	Revoked          bool         `json:"revoked"`
	RevocationReason string       `json:"revocation_reason,omitempty"`
	RevokedAt        *time.Time   `json:"revoked_at,omitempty"`
}

// Expired reports whether the token is past its expiry at the given instant.
// Tokens without an expiry never expire.
func (t SoulboundToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && now.After(*t.ExpiresAt)
}

// SigningInput assembles the canonical bytes the signature covers. Revocation
// fields are deliberately excluded: revoking must not break the issuance
// signature.
func (t SoulboundToken) SigningInput() ([]byte, error) {
	canonical, err := signer.Canonicalize(t.Metadata)
	if err != nil {
		return nil, err
	}

	expires := ""
	if t.ExpiresAt != nil {
		expires = t.ExpiresAt.UTC().Format(time.RFC3339Nano)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s|%s|%s|%s|", t.ID, t.IssuerID, t.RecipientID, t.Type)
	buf.Write(canonical)
	fmt.Fprintf(&buf, "|%s|%s", t.IssuedAt.UTC().Format(time.RFC3339Nano), expires)
	return buf.Bytes(), nil
}
