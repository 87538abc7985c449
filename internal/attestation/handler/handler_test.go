package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"sigil/internal/attestation/models"
	"sigil/internal/attestation/service"
	"sigil/internal/attestation/store"
	"sigil/internal/signer"
)

func newAttestationRouter(t *testing.T) http.Handler {
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

func paymentClaims() models.Claims {
	return models.Claims{
		"amount":       125.50,
		"currency":     "EUR",
		"payer_id":     "user-1",
		"recipient_id": "user-2",
		"timestamp":    "2026-03-01T12:00:00Z",
	}
}

func createAttestation(t *testing.T, router http.Handler) AttestationResponse {
	t.Helper()
	payload := map[string]any{
		"type":       "PAYMENT",
		"subject_id": "user-1",
		"claims":     paymentClaims(),
	}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/attestations", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating attestation, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp AttestationResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode attestation response: %v", err)
	}
	return resp
}

func TestCreateAndFetchAttestation(t *testing.T) {
	router := newAttestationRouter(t)

	created := createAttestation(t, router)
	if created.AttestationID == "" || created.Signature == "" {
		t.Fatalf("expected attestation_id and signature in response")
	}
	if created.IssuerID != "did:sigil:test-issuer" {
		t.Fatalf("expected issuer to be stamped, got %q", created.IssuerID)
	}

	getReq := httptest.NewRequest(http.MethodGet, "/attestations/"+created.AttestationID, nil)
	getRec := httptest.NewRecorder()
	router.ServeHTTP(getRec, getReq)
	if getRec.Code != http.StatusOK {
		t.Fatalf("expected 200 fetching attestation, got %d", getRec.Code)
	}

	var fetched AttestationResponse
	if err := json.NewDecoder(getRec.Body).Decode(&fetched); err != nil {
		t.Fatalf("failed to decode fetched attestation: %v", err)
	}
	if fetched.AttestationID != created.AttestationID || fetched.Signature != created.Signature {
		t.Fatalf("fetched attestation does not match created one")
	}
}

func TestCreateAttestationMissingClaims(t *testing.T) {
	router := newAttestationRouter(t)

	payload := map[string]any{
		"type":       "PAYMENT",
		"subject_id": "user-1",
		"claims":     map[string]any{"amount": 10, "payer_id": "user-1"},
	}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/attestations", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for missing claims, got %d", rec.Code)
	}

	var resp struct {
		Error         string   `json:"error"`
		MissingClaims []string `json:"missing_claims"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	want := []string{"currency", "recipient_id", "timestamp"}
	if len(resp.MissingClaims) != len(want) {
		t.Fatalf("expected missing claims %v, got %v", want, resp.MissingClaims)
	}
	for i, key := range want {
		if resp.MissingClaims[i] != key {
			t.Fatalf("expected missing claims %v, got %v", want, resp.MissingClaims)
		}
	}
}

func TestCreateAttestationUnknownType(t *testing.T) {
	router := newAttestationRouter(t)

	payload := map[string]any{
		"type":       "GIFT",
		"subject_id": "user-1",
		"claims":     map[string]any{},
	}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/attestations", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown type, got %d", rec.Code)
	}
}

func TestVerifyAttestationEndpoint(t *testing.T) {
	router := newAttestationRouter(t)
	created := createAttestation(t, router)

	body, _ := json.Marshal(VerifyRequest{Attestation: created})
	req := httptest.NewRequest(http.MethodPost, "/attestations/verify", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 verifying attestation, got %d", rec.Code)
	}
	var resp VerifyResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode verify response: %v", err)
	}
	if !resp.Valid {
		t.Fatalf("expected untampered attestation to verify")
	}
	if resp.Hash == "" {
		t.Fatalf("expected hash for valid attestation")
	}

	// Tamper with a claim and expect the signature to fail.
	tampered := created
	tampered.Claims = paymentClaims()
	tampered.Claims["amount"] = 9999.99
	body, _ = json.Marshal(VerifyRequest{Attestation: tampered})
	req = httptest.NewRequest(http.MethodPost, "/attestations/verify", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 verifying tampered attestation, got %d", rec.Code)
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode verify response: %v", err)
	}
	if resp.Valid {
		t.Fatalf("expected tampered attestation to fail verification")
	}
}

func TestMerkleRootEndpoint(t *testing.T) {
	router := newAttestationRouter(t)

	first := createAttestation(t, router)
	second := createAttestation(t, router)

	body, _ := json.Marshal(map[string]any{
		"attestation_ids": []string{first.AttestationID, second.AttestationID},
	})
	req := httptest.NewRequest(http.MethodPost, "/attestations/merkle-root", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 computing merkle root, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp MerkleRootResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode merkle root response: %v", err)
	}
	if len(resp.Root) != 64 {
		t.Fatalf("expected 64-char hex root, got %q", resp.Root)
	}
	if resp.Count != 2 {
		t.Fatalf("expected count 2, got %d", resp.Count)
	}
}

func TestMerkleRootUnknownAttestation(t *testing.T) {
	router := newAttestationRouter(t)

	body, _ := json.Marshal(map[string]any{
		"attestation_ids": []string{"att_00000000-0000-0000-0000-000000000000"},
	})
	req := httptest.NewRequest(http.MethodPost, "/attestations/merkle-root", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown attestation, got %d", rec.Code)
	}
}

func TestListAttestationsBySubject(t *testing.T) {
	router := newAttestationRouter(t)

	createAttestation(t, router)
	createAttestation(t, router)

	req := httptest.NewRequest(http.MethodGet, "/subjects/user-1/attestations", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 listing attestations, got %d", rec.Code)
	}
	var resp ListResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode list response: %v", err)
	}
	if len(resp.Attestations) != 2 {
		t.Fatalf("expected 2 attestations, got %d", len(resp.Attestations))
	}
}
