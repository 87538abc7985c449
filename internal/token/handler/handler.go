// Package handler wires soulbound token endpoints to the registry service.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"sigil/internal/token/models"
	id "sigil/pkg/domain"
	dErrors "sigil/pkg/domain-errors"
	"sigil/pkg/platform/httputil"
	"sigil/pkg/requestcontext"
)

// Service defines the token registry operations used by the handler.
type Service interface {
	Issue(ctx context.Context, recipientID id.SubjectID, metadata models.Metadata) (*models.SoulboundToken, error)
	Revoke(ctx context.Context, tokenID id.TokenID, reason string) (bool, error)
	IsRevoked(ctx context.Context, tokenID id.TokenID) (bool, error)
	RevocationDetails(ctx context.Context, tokenID id.TokenID) (*models.RevocationDetails, error)
	Verify(ctx context.Context, token models.SoulboundToken) bool
	IsValid(ctx context.Context, token models.SoulboundToken) bool
	RemainingValiditySeconds(ctx context.Context, token models.SoulboundToken) int64
	Get(ctx context.Context, tokenID id.TokenID) (*models.SoulboundToken, error)
	ListByRecipient(ctx context.Context, recipientID id.SubjectID) ([]models.SoulboundToken, error)
}

// Handler exposes the token registry over HTTP.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a token handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts token endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/tokens", h.HandleIssue)
	r.Get("/tokens/{tokenID}", h.HandleGet)
	r.Post("/tokens/{tokenID}/revoke", h.HandleRevoke)
	r.Get("/tokens/{tokenID}/revocation", h.HandleRevocationDetails)
	r.Post("/tokens/verify", h.HandleVerify)
	r.Get("/recipients/{recipientID}/tokens", h.HandleListByRecipient)
}

// IssueRequest is the request body for token issuance.
type IssueRequest struct {
	RecipientID string          `json:"recipient_id"`
	Metadata    models.Metadata `json:"metadata"`
}

// Validate validates the issuance request.
func (r *IssueRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if len(r.RecipientID) > 256 {
		return dErrors.New(dErrors.CodeValidation, "recipient_id is too long")
	}
	if r.RecipientID == "" {
		return dErrors.New(dErrors.CodeValidation, "recipient_id is required")
	}
	return nil
}

// TokenResponse is the wire form of a soulbound token.
type TokenResponse struct {
	TokenID          string          `json:"token_id"`
	Type             string          `json:"type"`
	IssuerID         string          `json:"issuer_id"`
	RecipientID      string          `json:"recipient_id"`
	Metadata         models.Metadata `json:"metadata"`
	Signature        string          `json:"signature"`
	IssuedAt         time.Time       `json:"issued_at"`
	ExpiresAt        *time.Time      `json:"expires_at,omitempty"`
	Revoked          bool            `json:"revoked"`
	RevocationReason string          `json:"revocation_reason,omitempty"`
	RevokedAt        *time.Time      `json:"revoked_at,omitempty"`
}

func toResponse(token models.SoulboundToken) TokenResponse {
	return TokenResponse{
		TokenID:          token.ID.String(),
		Type:             string(token.Type),
		IssuerID:         token.IssuerID,
		RecipientID:      token.RecipientID.String(),
		Metadata:         token.Metadata,
		Signature:        token.Signature,
		IssuedAt:         token.IssuedAt.UTC(),
		ExpiresAt:        token.ExpiresAt,
		Revoked:          token.Revoked,
		RevocationReason: token.RevocationReason,
		RevokedAt:        token.RevokedAt,
	}
}

func fromResponse(resp TokenResponse) models.SoulboundToken {
	return models.SoulboundToken{
		ID:               id.TokenID(resp.TokenID),
		Type:             models.TokenType(resp.Type),
		IssuerID:         resp.IssuerID,
		RecipientID:      id.SubjectID(resp.RecipientID),
		Metadata:         resp.Metadata,
		Signature:        resp.Signature,
		IssuedAt:         resp.IssuedAt,
		ExpiresAt:        resp.ExpiresAt,
		Revoked:          resp.Revoked,
		RevocationReason: resp.RevocationReason,
		RevokedAt:        resp.RevokedAt,
	}
}

// HandleIssue handles POST /tokens requests.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[IssueRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	token, err := h.service.Issue(ctx, id.SubjectID(req.RecipientID), req.Metadata)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue token",
			"request_id", requestID,
			"recipient_id", req.RecipientID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toResponse(*token))
}

// HandleGet handles GET /tokens/{tokenID} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	tokenID, err := id.ParseTokenID(chi.URLParam(r, "tokenID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	token, err := h.service.Get(r.Context(), tokenID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toResponse(*token))
}

// RevokeRequest is the request body for token revocation.
type RevokeRequest struct {
	Reason string `json:"reason"`
}

// Validate validates the revocation request.
func (r *RevokeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	if len(r.Reason) > 1024 {
		return dErrors.New(dErrors.CodeValidation, "reason is too long")
	}
	return nil
}

// RevokeResponse reports whether this call performed the revocation.
type RevokeResponse struct {
	Revoked bool `json:"revoked"`
}

// HandleRevoke handles POST /tokens/{tokenID}/revoke requests. The first call
// returns revoked=true; any later call returns revoked=false.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	tokenID, err := id.ParseTokenID(chi.URLParam(r, "tokenID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[RevokeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	won, err := h.service.Revoke(ctx, tokenID, req.Reason)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to revoke token",
			"request_id", requestID,
			"token_id", tokenID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, RevokeResponse{Revoked: won})
}

// RevocationDetailsResponse carries the audit record of a revocation.
type RevocationDetailsResponse struct {
	Revoked   bool       `json:"revoked"`
	Reason    string     `json:"reason,omitempty"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// HandleRevocationDetails handles GET /tokens/{tokenID}/revocation requests.
func (h *Handler) HandleRevocationDetails(w http.ResponseWriter, r *http.Request) {
	tokenID, err := id.ParseTokenID(chi.URLParam(r, "tokenID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	details, err := h.service.RevocationDetails(r.Context(), tokenID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	resp := RevocationDetailsResponse{Revoked: details != nil}
	if details != nil {
		resp.Reason = details.Reason
		revokedAt := details.RevokedAt
		resp.RevokedAt = &revokedAt
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// VerifyRequest carries the full token to check.
type VerifyRequest struct {
	Token TokenResponse `json:"token"`
}

// Validate validates the verification request.
func (r *VerifyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.Token.TokenID == "" {
		return dErrors.New(dErrors.CodeValidation, "token is required")
	}
	return nil
}

// VerifyResponse is the response body for token verification.
type VerifyResponse struct {
	Valid            bool  `json:"valid"`
	RemainingSeconds int64 `json:"remaining_seconds"`
}

// HandleVerify handles POST /tokens/verify requests.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[VerifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	token := fromResponse(req.Token)
	httputil.WriteJSON(w, http.StatusOK, VerifyResponse{
		Valid:            h.service.IsValid(ctx, token),
		RemainingSeconds: h.service.RemainingValiditySeconds(ctx, token),
	})
}

// ListResponse wraps a recipient's tokens.
type ListResponse struct {
	Tokens []TokenResponse `json:"tokens"`
}

// HandleListByRecipient handles GET /recipients/{recipientID}/tokens requests.
func (h *Handler) HandleListByRecipient(w http.ResponseWriter, r *http.Request) {
	recipientID := chi.URLParam(r, "recipientID")
	if recipientID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "recipient_id is required"))
		return
	}

	tokens, err := h.service.ListByRecipient(r.Context(), id.SubjectID(recipientID))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	resp := ListResponse{Tokens: make([]TokenResponse, 0, len(tokens))}
	for _, token := range tokens {
		resp.Tokens = append(resp.Tokens, toResponse(token))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
