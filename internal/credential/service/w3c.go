package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"sigil/internal/credential/models"
	"sigil/internal/signer"
	id "sigil/pkg/domain"
	dErrors "sigil/pkg/domain-errors"
	"sigil/pkg/requestcontext"
)

// w3cContext is the JSON-LD context every projection declares.
const w3cContext = "https://www.w3.org/2018/credentials/v1"

// ToW3C projects a credential into its W3C wire form. The projection is pure:
// the same credential always yields the same mapping, and the key names are
// part of the external contract.
func (s *Service) ToW3C(credential models.VerifiableCredential) map[string]any {
	subject := map[string]any{"id": string(credential.Holder)}
	for k, v := range credential.CredentialSubject {
		subject[k] = v
	}

	out := map[string]any{
		"@context":          []string{w3cContext},
		"id":                credential.ID.String(),
		"type":              []string{"VerifiableCredential", credential.Type.W3CName()},
		"issuer":            credential.IssuerID,
		"issuanceDate":      credential.IssuedAt.UTC().Format(time.RFC3339),
		"credentialSubject": subject,
		"proof": map[string]any{
			"type":               credential.Proof.Type,
			"created":            credential.Proof.Created,
			"verificationMethod": credential.Proof.VerificationMethod,
			"proofPurpose":       credential.Proof.ProofPurpose,
			"proofValue":         credential.Proof.ProofValue,
		},
	}
	if credential.ExpiresAt != nil {
		out["expirationDate"] = credential.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return out
}

// CreatePresentation bundles credentials into a holder envelope. The optional
// challenge is embedded verbatim in the proof block so a relying party can
// correlate the presentation with its own request.
func (s *Service) CreatePresentation(ctx context.Context, credentials []models.VerifiableCredential, holderID id.SubjectID, challenge *string) (map[string]any, error) {
	if holderID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "holder_id is required")
	}
	if len(credentials) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "at least one credential is required")
	}

	holder := id.DIDForSubject(holderID)
	bundled := make([]map[string]any, 0, len(credentials))
	for _, credential := range credentials {
		bundled = append(bundled, s.ToW3C(credential))
	}

	proofValue, err := s.signer.ProofValue(signer.ScopePresentation, presentationDigest(credentials, holder, challenge))
	if err != nil {
		return nil, err
	}
	proof := map[string]any{
		"type":               models.ProofType,
		"created":            requestcontext.Now(ctx).UTC().Format(time.RFC3339),
		"verificationMethod": string(holder) + "#keys-1",
		"proofPurpose":       "authentication",
		"proofValue":         proofValue,
	}
	if challenge != nil {
		proof["challenge"] = *challenge
	}

	if s.metrics != nil {
		s.metrics.PresentationsCreated.Inc()
	}
	return map[string]any{
		"@context":             []string{w3cContext},
		"type":                 []string{"VerifiablePresentation"},
		"holder":               string(holder),
		"verifiableCredential": bundled,
		"proof":                proof,
	}, nil
}

// presentationDigest covers the credential ids, holder, and challenge.
func presentationDigest(credentials []models.VerifiableCredential, holder id.HolderDID, challenge *string) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s|", holder)
	for _, credential := range credentials {
		fmt.Fprintf(&buf, "%s,", credential.ID)
	}
	if challenge != nil {
		fmt.Fprintf(&buf, "|%s", *challenge)
	}
	return signer.Digest(buf.Bytes())
}
