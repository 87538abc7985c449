// Package signer implements the proof scheme shared by attestations,
// credentials, and soulbound tokens. Signatures are HMAC-SHA256 over canonical
// bytes, keyed by a per-scope key derived from the issuer's master secret.
// Symmetric proofs fit the deployment model: the issuer is also the verifier,
// and a foreign issuer's material simply fails verification.
package signer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"

	dErrors "sigil/pkg/domain-errors"
)

// Scope separates key material per entity kind so a signature minted for one
// kind can never validate material of another.
type Scope string

const (
	ScopeAttestation  Scope = "attestation"
	ScopeCredential   Scope = "credential"
	ScopeToken        Scope = "token"
	ScopePresentation Scope = "presentation"
)

// Signer holds the issuer identity and derives scoped signing keys from the
// master secret. Safe for concurrent use.
type Signer struct {
	issuerID string
	master   []byte
}

func New(issuerID, secret string) (*Signer, error) {
	if issuerID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "issuer id cannot be empty")
	}
	if secret == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "signing secret cannot be empty")
	}
	return &Signer{issuerID: issuerID, master: []byte(secret)}, nil
}

// IssuerID returns the identity signatures are bound to.
func (s *Signer) IssuerID() string {
	return s.issuerID
}

// key derives the HMAC key for a scope. The issuer id is part of the HKDF
// info, so two issuers sharing a master secret still produce distinct
// signatures.
func (s *Signer) key(scope Scope) []byte {
	info := fmt.Sprintf("sigil:%s:%s", scope, s.issuerID)
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, s.master, nil, []byte(info)), key); err != nil {
		// HKDF-SHA256 cannot fail for a 32-byte read.
		panic(fmt.Sprintf("hkdf expand: %v", err))
	}
	return key
}

// Canonicalize produces the deterministic byte form of a claims map.
// encoding/json emits map keys in sorted order at every nesting level, which
// is exactly the stability the signature input needs.
func Canonicalize(claims map[string]any) ([]byte, error) {
	data, err := json.Marshal(claims)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "claims are not serializable")
	}
	return data, nil
}

// Sign computes the hex HMAC-SHA256 signature of data under the scope's key.
func (s *Signer) Sign(scope Scope, data []byte) string {
	mac := hmac.New(sha256.New, s.key(scope))
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the signature for data and compares it in constant time.
// A mismatch means either tampered data or a different issuer identity; both
// read as "not verified", never as an error.
func (s *Signer) Verify(scope Scope, data []byte, signature string) bool {
	expected := s.Sign(scope, data)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Digest returns the 64-char hex SHA-256 of data. Content hashes and Merkle
// leaves use this.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// proofClaims is the payload carried inside a proofValue JWS.
type proofClaims struct {
	Digest string `json:"digest"`
	jwt.RegisteredClaims
}

// ProofValue wraps the digest of canonical entity bytes in a compact JWS
// signed with the scope key. HS256 signing is deterministic, so the same
// entity always yields the same proofValue.
func (s *Signer) ProofValue(scope Scope, digest string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, proofClaims{
		Digest: digest,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer: s.issuerID,
		},
	})
	signed, err := token.SignedString(s.key(scope))
	if err != nil {
		return "", fmt.Errorf("sign proof: %w", err)
	}
	return signed, nil
}

// VerifyProofValue checks that the JWS was signed under the scope key and
// carries the expected digest.
func (s *Signer) VerifyProofValue(scope Scope, proofValue, digest string) bool {
	var claims proofClaims
	token, err := jwt.ParseWithClaims(proofValue, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		return s.key(scope), nil
	})
	if err != nil || !token.Valid {
		return false
	}
	return claims.Issuer == s.issuerID && hmac.Equal([]byte(claims.Digest), []byte(digest))
}
