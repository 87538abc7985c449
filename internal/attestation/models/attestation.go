// Package models defines the attestation entity and its per-type claim
// requirements.
package models

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"sigil/internal/signer"
	id "sigil/pkg/domain"
)

// EventType enumerates the kinds of events an attestation can cover.
type EventType string

const (
	EventTypePayment  EventType = "PAYMENT"
	EventTypeDelivery EventType = "DELIVERY"
	EventTypeReceipt  EventType = "RECEIPT"
)

// requiredClaims maps each event type to the claim keys that must be present
// at creation time.
var requiredClaims = map[EventType][]string{
	EventTypePayment:  {"amount", "currency", "payer_id", "recipient_id", "timestamp"},
	EventTypeDelivery: {"order_id", "carrier", "delivered_at", "recipient_id"},
	EventTypeReceipt:  {"payment_id", "amount", "currency", "received_at"},
}

// Valid reports whether the event type is a known variant.
func (t EventType) Valid() bool {
	_, ok := requiredClaims[t]
	return ok
}

// RequiredClaims returns the claim keys the type demands, sorted.
func RequiredClaims(t EventType) []string {
	keys := append([]string(nil), requiredClaims[t]...)
	sort.Strings(keys)
	return keys
}

// Claims is the key/value payload an attestation covers.
type Claims map[string]any

// Missing returns the required keys absent from the claims, sorted.
func (c Claims) Missing(t EventType) []string {
	var missing []string
	for _, key := range requiredClaims[t] {
		if _, ok := c[key]; !ok {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)
	return missing
}

// Attestation is a tamper-evident claim bundle about a discrete event. Fields
// are immutable after creation; the signature is re-derivable from the rest.
type Attestation struct {
	ID        id.AttestationID `json:"attestation_id"`
	Type      EventType        `json:"type"`
	IssuerID  string           `json:"issuer_id"`
	SubjectID id.SubjectID     `json:"subject_id"`
	Claims    Claims           `json:"claims"`
	Signature string           `json:"signature"`
	CreatedAt time.Time        `json:"created_at"`
}

// SigningInput assembles the canonical bytes the signature covers. It is
// rebuilt from current field values on every verification, so any post-issue
// mutation changes the input and breaks the signature.
func (a Attestation) SigningInput() ([]byte, error) {
	canonical, err := signer.Canonicalize(a.Claims)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s|%s|%s|", a.IssuerID, a.SubjectID, a.Type)
	buf.Write(canonical)
	return buf.Bytes(), nil
}

// CanonicalBytes is the stable content form used for hashing and Merkle
// leaves. It covers every field including the signature.
func (a Attestation) CanonicalBytes() ([]byte, error) {
	canonical, err := signer.Canonicalize(a.Claims)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s|%s|%s|%s|", a.ID, a.IssuerID, a.SubjectID, a.Type)
	buf.Write(canonical)
	fmt.Fprintf(&buf, "|%s|%s", a.CreatedAt.UTC().Format(time.RFC3339Nano), a.Signature)
	return buf.Bytes(), nil
}
