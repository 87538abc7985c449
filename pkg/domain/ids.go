// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "sigil/pkg/domain-errors"
)

// ID prefixes keep identifiers self-describing in logs and wire payloads.
const (
	attestationIDPrefix = "att_"
	tokenIDPrefix       = "sbt_"
	credentialIDPrefix  = "urn:credential:"
	holderDIDPrefix     = "did:user:"
)

// Distinct ID types - compiler prevents passing a TokenID where a
// CredentialID is expected.
type (
	// AttestationID identifies a signed claim bundle ("att_<uuid>").
	AttestationID string
	// CredentialID is the URN-style identifier of a verifiable credential
	// ("urn:credential:<uuid>").
	CredentialID string
	// TokenID identifies a soulbound token ("sbt_<uuid>").
	TokenID string
	// SubjectID is the raw identifier of the entity an attestation,
	// credential, or token is about. Callers supply it; we never parse
	// structure out of it beyond non-emptiness.
	SubjectID string
	// HolderDID is the namespaced decentralized identifier form of a subject
	// ("did:user:<raw>").
	HolderDID string
)

// New* generators - used by issuers when minting entities.

func NewAttestationID() AttestationID {
	return AttestationID(attestationIDPrefix + uuid.NewString())
}

func NewCredentialID() CredentialID {
	return CredentialID(credentialIDPrefix + uuid.NewString())
}

func NewTokenID() TokenID {
	return TokenID(tokenIDPrefix + uuid.NewString())
}

// DIDForSubject derives the namespaced holder identifier from a raw subject id.
func DIDForSubject(subject SubjectID) HolderDID {
	return HolderDID(holderDIDPrefix + string(subject))
}

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseAttestationID(s string) (AttestationID, error) {
	if err := parsePrefixed(s, attestationIDPrefix, "attestation ID"); err != nil {
		return "", err
	}
	return AttestationID(s), nil
}

func ParseCredentialID(s string) (CredentialID, error) {
	if strings.TrimSpace(s) == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "credential ID cannot be empty")
	}
	if !strings.HasPrefix(s, credentialIDPrefix) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "credential ID must start with "+credentialIDPrefix)
	}
	if _, err := uuid.Parse(strings.TrimPrefix(s, credentialIDPrefix)); err != nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid credential ID format")
	}
	return CredentialID(s), nil
}

func ParseTokenID(s string) (TokenID, error) {
	if err := parsePrefixed(s, tokenIDPrefix, "token ID"); err != nil {
		return "", err
	}
	return TokenID(s), nil
}

func ParseSubjectID(s string) (SubjectID, error) {
	if strings.TrimSpace(s) == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "subject ID cannot be empty")
	}
	return SubjectID(s), nil
}

// String methods - for logging and wire payloads.

func (id AttestationID) String() string { return string(id) }
func (id CredentialID) String() string  { return string(id) }
func (id TokenID) String() string       { return string(id) }
func (id SubjectID) String() string     { return string(id) }
func (id HolderDID) String() string     { return string(id) }

// IsNil checks - used for service-layer validation.

func (id AttestationID) IsNil() bool { return id == "" }
func (id CredentialID) IsNil() bool  { return id == "" }
func (id TokenID) IsNil() bool       { return id == "" }
func (id SubjectID) IsNil() bool     { return id == "" }
func (id HolderDID) IsNil() bool     { return id == "" }

// parsePrefixed is the shared validation logic for "<prefix><uuid>" IDs.
func parsePrefixed(s, prefix, label string) error {
	if s == "" {
		return dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	if !strings.HasPrefix(s, prefix) {
		return dErrors.New(dErrors.CodeInvalidInput, label+" must start with "+prefix)
	}
	if _, err := uuid.Parse(strings.TrimPrefix(s, prefix)); err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	return nil
}
