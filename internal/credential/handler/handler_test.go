package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"sigil/internal/credential/service"
	"sigil/internal/credential/store"
	"sigil/internal/signer"
	"sigil/pkg/testutil"
)

func newCredentialRouter(t *testing.T) http.Handler {
	t.Helper()
	sgn, err := signer.New("did:sigil:test-issuer", "test-signing-secret")
	if err != nil {
		t.Fatalf("failed to build signer: %v", err)
	}
	svc := service.NewService(store.NewInMemoryStore(), sgn)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := New(svc, logger)
	r := chi.NewRouter()
	h.Register(r)
	return r
}

func issueCredential(t *testing.T, router http.Handler, payload map[string]any) CredentialResponse {
	t.Helper()
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/credentials", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 issuing credential, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp CredentialResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode credential response: %v", err)
	}
	return resp
}

func kycPayload() map[string]any {
	return map[string]any{
		"type":       "KYC_VERIFICATION",
		"subject_id": "user-1",
		"credential_subject": map[string]any{
			"verificationLevel": 3,
		},
	}
}

func TestIssueCredentialDefaultExpiryPinnedClock(t *testing.T) {
	router := newCredentialRouter(t)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	req := testutil.NewJSONRequest(t, http.MethodPost, "/credentials", kycPayload())
	req = testutil.WithFixedTime(testutil.WithRequestID(req, "req-pinned-clock"), now)
	rec := testutil.DoRequest(router, req)
	testutil.AssertStatus(t, rec, http.StatusCreated)

	issued := testutil.UnmarshalResponse[CredentialResponse](t, rec)
	if !issued.IssuedAt.Equal(now) {
		t.Fatalf("expected issued_at pinned to request clock, got %s", issued.IssuedAt)
	}
	if issued.ExpiresAt == nil {
		t.Fatalf("expected default expiry for KYC credential")
	}
	if want := now.AddDate(0, 0, 365); !issued.ExpiresAt.Equal(want) {
		t.Fatalf("expected expiry %s, got %s", want, issued.ExpiresAt)
	}
}

func TestIssueAndFetchCredential(t *testing.T) {
	router := newCredentialRouter(t)

	issued := issueCredential(t, router, kycPayload())
	if issued.CredentialID == "" {
		t.Fatalf("expected credential_id in response")
	}
	if issued.Holder != "did:user:user-1" {
		t.Fatalf("expected holder DID for subject, got %q", issued.Holder)
	}
	if issued.Proof.ProofValue == "" {
		t.Fatalf("expected proof value in response")
	}
	if issued.ExpiresAt == nil {
		t.Fatalf("expected default expiry for KYC credential")
	}

	getReq := httptest.NewRequest(http.MethodGet, "/credentials/"+issued.CredentialID, nil)
	getRec := httptest.NewRecorder()
	router.ServeHTTP(getRec, getReq)
	if getRec.Code != http.StatusOK {
		t.Fatalf("expected 200 fetching credential, got %d", getRec.Code)
	}
}

func TestIssueCredentialUnknownType(t *testing.T) {
	router := newCredentialRouter(t)

	payload := kycPayload()
	payload["type"] = "DRIVERS_LICENSE"
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/credentials", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown credential type, got %d", rec.Code)
	}
}

func TestIssueCredentialNegativeValidity(t *testing.T) {
	router := newCredentialRouter(t)

	payload := kycPayload()
	payload["validity_days"] = -1
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/credentials", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative validity, got %d", rec.Code)
	}
}

func TestCredentialW3CProjection(t *testing.T) {
	router := newCredentialRouter(t)
	issued := issueCredential(t, router, kycPayload())

	req := httptest.NewRequest(http.MethodGet, "/credentials/"+issued.CredentialID+"/w3c", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 fetching w3c form, got %d", rec.Code)
	}

	var w3c map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&w3c); err != nil {
		t.Fatalf("failed to decode w3c response: %v", err)
	}

	contexts, ok := w3c["@context"].([]any)
	if !ok || len(contexts) == 0 || contexts[0] != "https://www.w3.org/2018/credentials/v1" {
		t.Fatalf("expected w3c @context, got %v", w3c["@context"])
	}
	types, ok := w3c["type"].([]any)
	if !ok || len(types) != 2 || types[0] != "VerifiableCredential" || types[1] != "KYCVerificationCredential" {
		t.Fatalf("expected [VerifiableCredential KYCVerificationCredential], got %v", w3c["type"])
	}
	subject, ok := w3c["credentialSubject"].(map[string]any)
	if !ok || subject["id"] != "did:user:user-1" {
		t.Fatalf("expected credentialSubject.id to carry the holder DID, got %v", w3c["credentialSubject"])
	}
	proof, ok := w3c["proof"].(map[string]any)
	if !ok || proof["proofValue"] == "" {
		t.Fatalf("expected proof block in w3c form, got %v", w3c["proof"])
	}
}

func TestVerifyCredentialEndpoint(t *testing.T) {
	router := newCredentialRouter(t)
	issued := issueCredential(t, router, kycPayload())

	body, _ := json.Marshal(VerifyRequest{Credential: issued})
	req := httptest.NewRequest(http.MethodPost, "/credentials/verify", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 verifying credential, got %d", rec.Code)
	}
	var resp VerifyResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode verify response: %v", err)
	}
	if !resp.Valid || resp.Expired {
		t.Fatalf("expected fresh credential to be valid, got %+v", resp)
	}

	// Tampering with the subject must invalidate the proof.
	tampered := issued
	tampered.CredentialSubject = map[string]any{"verificationLevel": 5}
	body, _ = json.Marshal(VerifyRequest{Credential: tampered})
	req = httptest.NewRequest(http.MethodPost, "/credentials/verify", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode verify response: %v", err)
	}
	if resp.Valid {
		t.Fatalf("expected tampered credential to fail verification")
	}
}

func TestCreatePresentationEndpoint(t *testing.T) {
	router := newCredentialRouter(t)

	first := issueCredential(t, router, kycPayload())
	second := issueCredential(t, router, map[string]any{
		"type":       "ACCREDITATION",
		"subject_id": "user-1",
		"credential_subject": map[string]any{
			"accreditor": "FinAuth",
			"status":     "approved",
		},
	})

	body, _ := json.Marshal(map[string]any{
		"credential_ids": []string{first.CredentialID, second.CredentialID},
		"holder_id":      "user-1",
		"challenge":      "nonce-123",
	})
	req := httptest.NewRequest(http.MethodPost, "/presentations", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating presentation, got %d: %s", rec.Code, rec.Body.String())
	}

	var presentation map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&presentation); err != nil {
		t.Fatalf("failed to decode presentation: %v", err)
	}
	if presentation["holder"] != "did:user:user-1" {
		t.Fatalf("expected holder DID, got %v", presentation["holder"])
	}
	bundled, ok := presentation["verifiableCredential"].([]any)
	if !ok || len(bundled) != 2 {
		t.Fatalf("expected 2 bundled credentials, got %v", presentation["verifiableCredential"])
	}
	proof, ok := presentation["proof"].(map[string]any)
	if !ok || proof["challenge"] != "nonce-123" {
		t.Fatalf("expected challenge in presentation proof, got %v", presentation["proof"])
	}
}

func TestCreatePresentationRequiresCredentials(t *testing.T) {
	router := newCredentialRouter(t)

	body, _ := json.Marshal(map[string]any{
		"credential_ids": []string{},
		"holder_id":      "user-1",
	})
	req := httptest.NewRequest(http.MethodPost, "/presentations", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty credential list, got %d", rec.Code)
	}
}

func TestListCredentialsByHolder(t *testing.T) {
	router := newCredentialRouter(t)

	issueCredential(t, router, kycPayload())
	issueCredential(t, router, kycPayload())

	req := httptest.NewRequest(http.MethodGet, "/holders/user-1/credentials", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 listing credentials, got %d", rec.Code)
	}
	var resp ListResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode list response: %v", err)
	}
	if len(resp.Credentials) != 2 {
		t.Fatalf("expected 2 credentials, got %d", len(resp.Credentials))
	}
}
