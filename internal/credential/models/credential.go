// Package models defines verifiable credentials and their validity policies.
package models

import (
	"bytes"
	"fmt"
	"time"

	"sigil/internal/signer"
	id "sigil/pkg/domain"
)

// CredentialType enumerates the supported credential variants.
type CredentialType string

const (
	CredentialTypeKYC            CredentialType = "KYC_VERIFICATION"
	CredentialTypeAccreditation  CredentialType = "ACCREDITATION"
	CredentialTypeProfessional   CredentialType = "PROFESSIONAL"
	CredentialTypePaymentHistory CredentialType = "PAYMENT_HISTORY"
)

// defaultValidityDays is the per-type validity policy applied when the caller
// does not pass an explicit validity period.
var defaultValidityDays = map[CredentialType]int{
	CredentialTypeKYC:            365,
	CredentialTypeAccreditation:  365,
	CredentialTypeProfessional:   730,
	CredentialTypePaymentHistory: 90,
}

// w3cNames maps each type to its W3C type-array entry.
var w3cNames = map[CredentialType]string{
	CredentialTypeKYC:            "KYCVerificationCredential",
	CredentialTypeAccreditation:  "AccreditationCredential",
	CredentialTypeProfessional:   "ProfessionalCredential",
	CredentialTypePaymentHistory: "PaymentHistoryCredential",
}

// Valid reports whether the credential type is a known variant.
func (t CredentialType) Valid() bool {
	_, ok := defaultValidityDays[t]
	return ok
}

// DefaultValidityDays returns the type's default validity period in days.
func (t CredentialType) DefaultValidityDays() int {
	return defaultValidityDays[t]
}

// W3CName returns the type-array entry for the W3C projection.
func (t CredentialType) W3CName() string {
	return w3cNames[t]
}

// Subject is the claim mapping a credential attests about its holder.
type Subject map[string]any

// Proof is the signature block attached to a credential or presentation.
type Proof struct {
	Type               string `json:"type"`
	Created            string `json:"created"`
	VerificationMethod string `json:"verificationMethod"`
	ProofPurpose       string `json:"proofPurpose"`
	ProofValue         string `json:"proofValue"`
}

// ProofType names the scheme proofs are minted under.
const ProofType = "HmacProof2026"

// VerifiableCredential is an immutable, issuer-signed claim bundle about a
// holder. ExpiresAt nil means the credential never expires.
type VerifiableCredential struct {
	ID                id.CredentialID `json:"credential_id"`
	Type              CredentialType  `json:"type"`
	IssuerID          string          `json:"issuer_id"`
	Holder            id.HolderDID    `json:"holder"`
	CredentialSubject Subject         `json:"credential_subject"`
	IssuedAt          time.Time       `json:"issued_at"`
	ExpiresAt         *time.Time      `json:"expires_at,omitempty"`
	Proof             Proof           `json:"proof"`
}

// Expired reports whether the credential is past its expiry at the given
// instant. Credentials without an expiry never expire.
func (c VerifiableCredential) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

// CanonicalBytes is the deterministic byte form the proof covers. Rebuilt
// from current field values at verification time, so any mutation after
// issuance invalidates the proof.
func (c VerifiableCredential) CanonicalBytes() ([]byte, error) {
	canonical, err := signer.Canonicalize(c.CredentialSubject)
	if err != nil {
		return nil, err
	}

	expires := ""
	if c.ExpiresAt != nil {
		expires = c.ExpiresAt.UTC().Format(time.RFC3339Nano)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s|%s|%s|%s|", c.ID, c.IssuerID, c.Holder, c.Type)
	buf.Write(canonical)
	fmt.Fprintf(&buf, "|%s|%s", c.IssuedAt.UTC().Format(time.RFC3339Nano), expires)
	return buf.Bytes(), nil
}
