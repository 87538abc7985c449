// Package events hosts the stable wire-format payloads published to the event
// bus for external consumers (compliance workflows, anchoring pipelines,
// relying parties). Keep these PII-light and versioned independently from any
// internal models or persistence schemas.
package events

import "time"

// ContractVersion identifies the contract schema version for compatibility
// checks. Bump on breaking changes to the shapes below; consumers can pin or
// roll forward.
const ContractVersion = "v0.1.0"

// CredentialIssued is published on every successful credential issuance.
type CredentialIssued struct {
	CredentialID   string    `json:"credential_id"`
	CredentialType string    `json:"credential_type"`
	SubjectID      string    `json:"subject_id"`
	IssuedAt       time.Time `json:"issued_at"`
}

// Attested is published on every successful attestation. EventType carries the
// attestation variant (payment, delivery, receipt) so consumers can route
// without parsing claims.
type Attested struct {
	AttestationID string    `json:"attestation_id"`
	EventType     string    `json:"event_type"`
	SubjectID     string    `json:"subject_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// SoulboundTokenIssued is published when a badge token is bound to a recipient.
type SoulboundTokenIssued struct {
	TokenID     string    `json:"token_id"`
	RecipientID string    `json:"recipient_id"`
	BadgeType   string    `json:"badge_type,omitempty"`
	IssuedAt    time.Time `json:"issued_at"`
}

// SoulboundTokenRevoked is published exactly once per token, by the revoke
// call that won the race.
type SoulboundTokenRevoked struct {
	TokenID   string    `json:"token_id"`
	Reason    string    `json:"reason"`
	RevokedAt time.Time `json:"revoked_at"`
}
