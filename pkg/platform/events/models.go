package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	contract "sigil/contracts/events"
	id "sigil/pkg/domain"
)

// Category classifies domain events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type Category string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// These require tamper-proof storage and long retention.
	// Examples: credential issuance, token revocation.
	CategoryCompliance Category = "compliance"

	// CategoryOperations covers events useful for debugging and operational
	// visibility. These can be sampled or aggregated with shorter retention.
	CategoryOperations Category = "operations"
)

// Name identifies a domain event type on the wire.
type Name string

const (
	NameCredentialIssued Name = "credential_issued"
	NameAttested         Name = "attestation_created"
	NameTokenIssued      Name = "soulbound_token_issued"
	NameTokenRevoked     Name = "soulbound_token_revoked"
)

// categories maps each event to its category. Issuance and revocation both
// carry regulatory weight; there are no operations-only events today, but the
// split keeps routing and retention decisions out of the publishers.
var categories = map[Name]Category{
	NameCredentialIssued: CategoryCompliance,
	NameAttested:         CategoryCompliance,
	NameTokenIssued:      CategoryCompliance,
	NameTokenRevoked:     CategoryCompliance,
}

// Categorize returns the category for an event name, defaulting to operations
// for unknown names so nothing is silently dropped.
func Categorize(name Name) Category {
	if c, ok := categories[name]; ok {
		return c
	}
	return CategoryOperations
}

// Event is emitted from domain logic after a successful mutating operation.
// Payload holds the JSON wire form from contracts/events; consumers outside
// this process decode it against the published contract.
type Event struct {
	ID        uuid.UUID
	Name      Name
	Category  Category
	Timestamp time.Time
	SubjectID string
	EntityID  string
	RequestID string
	Payload   json.RawMessage
}

func newEvent(name Name, subjectID, entityID string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", name, err)
	}
	return Event{
		ID:        uuid.New(),
		Name:      name,
		Category:  Categorize(name),
		Timestamp: time.Now(),
		SubjectID: subjectID,
		EntityID:  entityID,
		Payload:   raw,
	}, nil
}

// NewCredentialIssued builds the event fired on every successful issuance.
func NewCredentialIssued(credentialID id.CredentialID, credentialType string, subjectID id.SubjectID, issuedAt time.Time) (Event, error) {
	return newEvent(NameCredentialIssued, subjectID.String(), credentialID.String(), contract.CredentialIssued{
		CredentialID:   credentialID.String(),
		CredentialType: credentialType,
		SubjectID:      subjectID.String(),
		IssuedAt:       issuedAt,
	})
}

// NewAttested builds the event fired on every successful attestation.
func NewAttested(attestationID id.AttestationID, eventType string, subjectID id.SubjectID, createdAt time.Time) (Event, error) {
	return newEvent(NameAttested, subjectID.String(), attestationID.String(), contract.Attested{
		AttestationID: attestationID.String(),
		EventType:     eventType,
		SubjectID:     subjectID.String(),
		CreatedAt:     createdAt,
	})
}

// NewTokenIssued builds the event fired when a badge token is bound to a recipient.
func NewTokenIssued(tokenID id.TokenID, recipientID id.SubjectID, badgeType string, issuedAt time.Time) (Event, error) {
	return newEvent(NameTokenIssued, recipientID.String(), tokenID.String(), contract.SoulboundTokenIssued{
		TokenID:     tokenID.String(),
		RecipientID: recipientID.String(),
		BadgeType:   badgeType,
		IssuedAt:    issuedAt,
	})
}

// NewTokenRevoked builds the event fired by the revocation call that won the race.
func NewTokenRevoked(tokenID id.TokenID, reason string, revokedAt time.Time) (Event, error) {
	return newEvent(NameTokenRevoked, "", tokenID.String(), contract.SoulboundTokenRevoked{
		TokenID:   tokenID.String(),
		Reason:    reason,
		RevokedAt: revokedAt,
	})
}

// Store is the minimal sink the publisher writes to. Outbox-backed stores
// also implement outbox.Store for the relay worker.
type Store interface {
	Append(ctx context.Context, event Event) error
}
