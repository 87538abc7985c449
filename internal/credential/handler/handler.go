// Package handler wires credential endpoints to the credential service.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"sigil/internal/credential/models"
	id "sigil/pkg/domain"
	dErrors "sigil/pkg/domain-errors"
	"sigil/pkg/platform/httputil"
	"sigil/pkg/requestcontext"
)

// Service defines the credential operations used by the handler.
type Service interface {
	Issue(ctx context.Context, credType models.CredentialType, subjectID id.SubjectID, credentialSubject models.Subject, validityDays *int) (*models.VerifiableCredential, error)
	Verify(ctx context.Context, credential models.VerifiableCredential) bool
	IsValid(ctx context.Context, credential models.VerifiableCredential) bool
	Get(ctx context.Context, credentialID id.CredentialID) (*models.VerifiableCredential, error)
	ListByHolder(ctx context.Context, holder id.HolderDID) ([]models.VerifiableCredential, error)
	ToW3C(credential models.VerifiableCredential) map[string]any
	CreatePresentation(ctx context.Context, credentials []models.VerifiableCredential, holderID id.SubjectID, challenge *string) (map[string]any, error)
}

// Handler exposes credential issuance over HTTP.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a credential handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts credential endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/credentials", h.HandleIssue)
	r.Get("/credentials/{credentialID}", h.HandleGet)
	r.Get("/credentials/{credentialID}/w3c", h.HandleGetW3C)
	r.Post("/credentials/verify", h.HandleVerify)
	r.Post("/presentations", h.HandleCreatePresentation)
	r.Get("/holders/{subjectID}/credentials", h.HandleListByHolder)
}

// IssueRequest is the request body for credential issuance.
type IssueRequest struct {
	Type              string         `json:"type"`
	SubjectID         string         `json:"subject_id"`
	CredentialSubject models.Subject `json:"credential_subject"`
	ValidityDays      *int           `json:"validity_days"`

	parsedType models.CredentialType
}

// Validate validates and parses the issuance request.
func (r *IssueRequest) Validate() error {
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
	if r.ValidityDays != nil && *r.ValidityDays < 0 {
		return dErrors.New(dErrors.CodeValidation, "validity_days cannot be negative")
	}

	parsed := models.CredentialType(r.Type)
	if !parsed.Valid() {
		return dErrors.New(dErrors.CodeBadRequest, "unknown credential type")
	}
	r.parsedType = parsed
	return nil
}

// ParsedType returns the validated credential type.
func (r *IssueRequest) ParsedType() models.CredentialType {
	return r.parsedType
}

// CredentialResponse is the wire form of a credential.
type CredentialResponse struct {
	CredentialID      string         `json:"credential_id"`
	Type              string         `json:"type"`
	IssuerID          string         `json:"issuer_id"`
	Holder            string         `json:"holder"`
	CredentialSubject models.Subject `json:"credential_subject"`
	IssuedAt          time.Time      `json:"issued_at"`
	ExpiresAt         *time.Time     `json:"expires_at,omitempty"`
	Proof             models.Proof   `json:"proof"`
}

func toResponse(cred models.VerifiableCredential) CredentialResponse {
	return CredentialResponse{
		CredentialID:      cred.ID.String(),
		Type:              string(cred.Type),
		IssuerID:          cred.IssuerID,
		Holder:            string(cred.Holder),
		CredentialSubject: cred.CredentialSubject,
		IssuedAt:          cred.IssuedAt.UTC(),
		ExpiresAt:         cred.ExpiresAt,
		Proof:             cred.Proof,
	}
}

func fromResponse(resp CredentialResponse) models.VerifiableCredential {
	return models.VerifiableCredential{
		ID:                id.CredentialID(resp.CredentialID),
		Type:              models.CredentialType(resp.Type),
		IssuerID:          resp.IssuerID,
		Holder:            id.HolderDID(resp.Holder),
		CredentialSubject: resp.CredentialSubject,
		IssuedAt:          resp.IssuedAt,
		ExpiresAt:         resp.ExpiresAt,
		Proof:             resp.Proof,
	}
}

// HandleIssue handles POST /credentials requests.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[IssueRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	credential, err := h.service.Issue(ctx, req.ParsedType(), id.SubjectID(req.SubjectID), req.CredentialSubject, req.ValidityDays)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue credential",
			"request_id", requestID,
			"type", req.Type,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toResponse(*credential))
}

// HandleGet handles GET /credentials/{credentialID} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	credential, ok := h.loadFromPath(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(*credential))
}

// HandleGetW3C handles GET /credentials/{credentialID}/w3c requests.
func (h *Handler) HandleGetW3C(w http.ResponseWriter, r *http.Request) {
	credential, ok := h.loadFromPath(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.service.ToW3C(*credential))
}

func (h *Handler) loadFromPath(w http.ResponseWriter, r *http.Request) (*models.VerifiableCredential, bool) {
	credentialID, err := id.ParseCredentialID(chi.URLParam(r, "credentialID"))
	if err != nil {
		httputil.WriteError(w, err)
		return nil, false
	}
	credential, err := h.service.Get(r.Context(), credentialID)
	if err != nil {
		httputil.WriteError(w, err)
		return nil, false
	}
	return credential, true
}

// VerifyRequest carries the full credential to check.
type VerifyRequest struct {
	Credential CredentialResponse `json:"credential"`
}

// Validate validates the verification request.
func (r *VerifyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.Credential.CredentialID == "" {
		return dErrors.New(dErrors.CodeValidation, "credential is required")
	}
	return nil
}

// VerifyResponse is the response body for credential verification.
type VerifyResponse struct {
	Valid   bool `json:"valid"`
	Expired bool `json:"expired,omitempty"`
}

// HandleVerify handles POST /credentials/verify requests.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[VerifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	credential := fromResponse(req.Credential)
	httputil.WriteJSON(w, http.StatusOK, VerifyResponse{
		Valid:   h.service.IsValid(ctx, credential),
		Expired: credential.Expired(requestcontext.Now(ctx).UTC()),
	})
}

// PresentationRequest names stored credentials to bundle for a holder.
type PresentationRequest struct {
	CredentialIDs []string `json:"credential_ids"`
	HolderID      string   `json:"holder_id"`
	Challenge     *string  `json:"challenge"`

	parsedIDs []id.CredentialID
}

// Validate validates and parses the presentation request.
func (r *PresentationRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.HolderID == "" {
		return dErrors.New(dErrors.CodeValidation, "holder_id is required")
	}
	if len(r.CredentialIDs) == 0 {
		return dErrors.New(dErrors.CodeValidation, "credential_ids is required")
	}
	if len(r.CredentialIDs) > 100 {
		return dErrors.New(dErrors.CodeValidation, "too many credentials")
	}
	r.parsedIDs = make([]id.CredentialID, 0, len(r.CredentialIDs))
	for _, raw := range r.CredentialIDs {
		parsed, err := id.ParseCredentialID(raw)
		if err != nil {
			return err
		}
		r.parsedIDs = append(r.parsedIDs, parsed)
	}
	return nil
}

// HandleCreatePresentation handles POST /presentations requests.
func (h *Handler) HandleCreatePresentation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[PresentationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	credentials := make([]models.VerifiableCredential, 0, len(req.parsedIDs))
	for _, credentialID := range req.parsedIDs {
		credential, err := h.service.Get(ctx, credentialID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		credentials = append(credentials, *credential)
	}

	presentation, err := h.service.CreatePresentation(ctx, credentials, id.SubjectID(req.HolderID), req.Challenge)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to create presentation",
			"request_id", requestID,
			"holder_id", req.HolderID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, presentation)
}

// ListResponse wraps a holder's credentials.
type ListResponse struct {
	Credentials []CredentialResponse `json:"credentials"`
}

// HandleListByHolder handles GET /holders/{subjectID}/credentials requests.
func (h *Handler) HandleListByHolder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subjectID := chi.URLParam(r, "subjectID")
	if subjectID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "subject_id is required"))
		return
	}

	credentials, err := h.service.ListByHolder(ctx, id.DIDForSubject(id.SubjectID(subjectID)))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	resp := ListResponse{Credentials: make([]CredentialResponse, 0, len(credentials))}
	for _, cred := range credentials {
		resp.Credentials = append(resp.Credentials, toResponse(cred))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
