// Package handler wires attestation endpoints to the attestation service.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"sigil/internal/attestation/models"
	id "sigil/pkg/domain"
	dErrors "sigil/pkg/domain-errors"
	"sigil/pkg/platform/httputil"
	"sigil/pkg/requestcontext"
)

// Service defines the attestation operations used by the handler.
type Service interface {
	Create(ctx context.Context, eventType models.EventType, subjectID id.SubjectID, claims models.Claims) (*models.Attestation, error)
	Verify(ctx context.Context, attestation models.Attestation) bool
	Hash(attestation models.Attestation) (string, error)
	Get(ctx context.Context, attestationID id.AttestationID) (*models.Attestation, error)
	ListBySubject(ctx context.Context, subjectID id.SubjectID) ([]models.Attestation, error)
	MerkleRoot(attestations []models.Attestation) (string, error)
}

// Handler exposes attestation issuance over HTTP.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an attestation handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts attestation endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/attestations", h.HandleCreate)
	r.Get("/attestations/{attestationID}", h.HandleGet)
	r.Post("/attestations/verify", h.HandleVerify)
	r.Post("/attestations/merkle-root", h.HandleMerkleRoot)
	r.Get("/subjects/{subjectID}/attestations", h.HandleListBySubject)
}

// CreateRequest is the request body for attestation creation.
type CreateRequest struct {
	Type      string        `json:"type"`
	SubjectID string        `json:"subject_id"`
	Claims    models.Claims `json:"claims"`

	parsedType models.EventType
}

// Validate validates and parses the creation request.
func (r *CreateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if len(r.SubjectID) > 256 {
		return dErrors.New(dErrors.CodeValidation, "subject_id is too long")
	}
	if r.Type == "" {
		return dErrors.New(dErrors.CodeValidation, "type is required")
	}
	if r.SubjectID == "" {
		return dErrors.New(dErrors.CodeValidation, "subject_id is required")
	}

	parsed := models.EventType(r.Type)
	if !parsed.Valid() {
		return dErrors.New(dErrors.CodeBadRequest, "unknown attestation type")
	}
	r.parsedType = parsed
	return nil
}

// ParsedType returns the validated event type.
func (r *CreateRequest) ParsedType() models.EventType {
	return r.parsedType
}

// AttestationResponse is the wire form of an attestation.
type AttestationResponse struct {
	AttestationID string        `json:"attestation_id"`
	Type          string        `json:"type"`
	IssuerID      string        `json:"issuer_id"`
	SubjectID     string        `json:"subject_id"`
	Claims        models.Claims `json:"claims"`
	Signature     string        `json:"signature"`
	CreatedAt     time.Time     `json:"created_at"`
}

func toResponse(att models.Attestation) AttestationResponse {
	return AttestationResponse{
		AttestationID: att.ID.String(),
		Type:          string(att.Type),
		IssuerID:      att.IssuerID,
		SubjectID:     att.SubjectID.String(),
		Claims:        att.Claims,
		Signature:     att.Signature,
		CreatedAt:     att.CreatedAt.UTC(),
	}
}

// HandleCreate handles POST /attestations requests.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	attestation, err := h.service.Create(ctx, req.ParsedType(), id.SubjectID(req.SubjectID), req.Claims)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeMissingClaims) {
			h.logger.ErrorContext(ctx, "failed to create attestation",
				"request_id", requestID,
				"type", req.Type,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toResponse(*attestation))
}

// HandleGet handles GET /attestations/{attestationID} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	attestationID, err := id.ParseAttestationID(chi.URLParam(r, "attestationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	attestation, err := h.service.Get(ctx, attestationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toResponse(*attestation))
}

// VerifyRequest carries the full attestation to check; verification is a pure
// recomputation, so the caller supplies the entity rather than an id.
type VerifyRequest struct {
	Attestation AttestationResponse `json:"attestation"`
}

// Validate validates the verification request.
func (r *VerifyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.Attestation.AttestationID == "" {
		return dErrors.New(dErrors.CodeValidation, "attestation is required")
	}
	return nil
}

// VerifyResponse is the response body for attestation verification.
type VerifyResponse struct {
	Valid bool   `json:"valid"`
	Hash  string `json:"hash,omitempty"`
}

// HandleVerify handles POST /attestations/verify requests.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[VerifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	attestation := models.Attestation{
		ID:        id.AttestationID(req.Attestation.AttestationID),
		Type:      models.EventType(req.Attestation.Type),
		IssuerID:  req.Attestation.IssuerID,
		SubjectID: id.SubjectID(req.Attestation.SubjectID),
		Claims:    req.Attestation.Claims,
		Signature: req.Attestation.Signature,
		CreatedAt: req.Attestation.CreatedAt,
	}

	valid := h.service.Verify(ctx, attestation)
	resp := VerifyResponse{Valid: valid}
	if valid {
		if hash, err := h.service.Hash(attestation); err == nil {
			resp.Hash = hash
		}
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// MerkleRootRequest names the stored attestations to anchor.
type MerkleRootRequest struct {
	AttestationIDs []string `json:"attestation_ids"`

	parsedIDs []id.AttestationID
}

// Validate validates and parses the batch request.
func (r *MerkleRootRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if len(r.AttestationIDs) > 10000 {
		return dErrors.New(dErrors.CodeValidation, "batch is too large")
	}
	r.parsedIDs = make([]id.AttestationID, 0, len(r.AttestationIDs))
	for _, raw := range r.AttestationIDs {
		parsed, err := id.ParseAttestationID(raw)
		if err != nil {
			return err
		}
		r.parsedIDs = append(r.parsedIDs, parsed)
	}
	return nil
}

// MerkleRootResponse carries the computed root for a batch.
type MerkleRootResponse struct {
	Root  string `json:"root"`
	Count int    `json:"count"`
}

// HandleMerkleRoot handles POST /attestations/merkle-root requests.
func (h *Handler) HandleMerkleRoot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[MerkleRootRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	attestations := make([]models.Attestation, 0, len(req.parsedIDs))
	for _, attestationID := range req.parsedIDs {
		attestation, err := h.service.Get(ctx, attestationID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		attestations = append(attestations, *attestation)
	}

	root, err := h.service.MerkleRoot(attestations)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to compute merkle root",
			"request_id", requestID,
			"count", len(attestations),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, MerkleRootResponse{Root: root, Count: len(attestations)})
}

// ListResponse wraps a subject's attestations.
type ListResponse struct {
	Attestations []AttestationResponse `json:"attestations"`
}

// HandleListBySubject handles GET /subjects/{subjectID}/attestations requests.
func (h *Handler) HandleListBySubject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subjectID := chi.URLParam(r, "subjectID")
	if subjectID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "subject_id is required"))
		return
	}

	attestations, err := h.service.ListBySubject(ctx, id.SubjectID(subjectID))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	resp := ListResponse{Attestations: make([]AttestationResponse, 0, len(attestations))}
	for _, att := range attestations {
		resp.Attestations = append(resp.Attestations, toResponse(att))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
