// Package service implements the soulbound token registry: issuance,
// verification, and the revocation lifecycle.
package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"sigil/internal/platform/tracer"
	"sigil/internal/signer"
	"sigil/internal/token/metrics"
	"sigil/internal/token/models"
	"sigil/internal/token/store"
	"sigil/internal/token/store/revocation"
	id "sigil/pkg/domain"
	dErrors "sigil/pkg/domain-errors"
	"sigil/pkg/platform/events"
	"sigil/pkg/platform/sentinel"
	"sigil/pkg/requestcontext"
)

// NeverExpires is the remaining-validity sentinel for tokens without expiry.
const NeverExpires = math.MaxInt64

// EventPublisher emits domain events after successful mutations.
type EventPublisher interface {
	Emit(ctx context.Context, event events.Event) error
}

// Option configures the token service.
type Option func(*Service)

// Service issues non-transferable badge tokens and manages revocation. The
// store owns the revoked flag; the revocation list is a shared fast path the
// service keeps in step after every successful revoke.
type Service struct {
	store     store.Store
	revlist   revocation.List
	signer    *signer.Signer
	publisher EventPublisher
	metrics   *metrics.Metrics
	tracer    tracer.Tracer
	logger    *slog.Logger
}

// NewService creates a token service with the required dependencies.
func NewService(st store.Store, sgn *signer.Signer, opts ...Option) *Service {
	svc := &Service{
		store:  st,
		signer: sgn,
		tracer: tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// WithRevocationList configures a shared revocation list for the service.
func WithRevocationList(list revocation.List) Option {
	return func(s *Service) {
		s.revlist = list
	}
}

// WithPublisher configures an event publisher for the service.
func WithPublisher(publisher EventPublisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

// WithMetrics configures a metrics collector for the service.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTracer configures a tracer for the service.
func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithLogger configures a logger for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// Issue mints a soulbound token for the recipient. The validity period comes
// from metadata's validity_days entry, defaulting to a year; zero means the
// token never expires.
func (s *Service) Issue(ctx context.Context, recipientID id.SubjectID, metadata models.Metadata) (ret *models.SoulboundToken, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanTokenIssue,
		tracer.String(tracer.AttrSubjectID, recipientID.String()),
	)
	defer func() { span.End(err) }()

	start := time.Now()
	if recipientID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "recipient_id is required")
	}

	meta := models.Metadata{}
	for k, v := range metadata {
		meta[k] = v
	}

	days, err := meta.ValidityDays()
	if err != nil {
		return nil, err
	}

	// Truncated to the precision TIMESTAMPTZ preserves, so the signature
	// stays re-derivable after a store round trip.
	now := requestcontext.Now(ctx).UTC().Truncate(time.Microsecond)
	var expiresAt *time.Time
	if days > 0 {
		t := now.AddDate(0, 0, days)
		expiresAt = &t
	}

	token := models.SoulboundToken{
		ID:          id.NewTokenID(),
		Type:        models.TokenTypeSoulbound,
		IssuerID:    s.signer.IssuerID(),
		RecipientID: recipientID,
		Metadata:    meta,
		IssuedAt:    now,
		ExpiresAt:   expiresAt,
	}

	input, err := token.SigningInput()
	if err != nil {
		return nil, err
	}
	token.Signature = s.signer.Sign(signer.ScopeToken, input)

	if err := s.store.Save(ctx, token); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store token")
	}

	s.emitIssued(ctx, token)
	if s.metrics != nil {
		badge, _ := meta["badge_type"].(string)
		s.metrics.IncrementIssued(badge)
		s.metrics.ObserveIssue(start)
	}
	return &token, nil
}

// IssueKYCBadge fixes the badge type and records the verification level.
func (s *Service) IssueKYCBadge(ctx context.Context, recipientID id.SubjectID, verificationLevel int) (*models.SoulboundToken, error) {
	return s.Issue(ctx, recipientID, models.Metadata{
		"badge_type":         models.BadgeTypeKYC,
		"verification_level": verificationLevel,
	})
}

// IssueMembershipToken fixes the badge type and records the membership tier.
func (s *Service) IssueMembershipToken(ctx context.Context, recipientID id.SubjectID, tier string) (*models.SoulboundToken, error) {
	return s.Issue(ctx, recipientID, models.Metadata{
		"badge_type": models.BadgeTypeMembership,
		"tier":       tier,
	})
}

// IssueReputationToken fixes the badge type and records the score and its
// category. Reputation badges never expire on their own.
func (s *Service) IssueReputationToken(ctx context.Context, recipientID id.SubjectID, category string, score int) (*models.SoulboundToken, error) {
	return s.Issue(ctx, recipientID, models.Metadata{
		"badge_type":    models.BadgeTypeReputation,
		"category":      category,
		"score":         score,
		"validity_days": 0,
	})
}

// Revoke marks the token revoked exactly once. The first caller gets true
// and an emitted event; later callers get false with no state change.
func (s *Service) Revoke(ctx context.Context, tokenID id.TokenID, reason string) (won bool, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanTokenRevoke)
	defer func() { span.End(err) }()

	if reason == "" {
		return false, dErrors.New(dErrors.CodeBadRequest, "revocation reason is required")
	}

	revokedAt := requestcontext.Now(ctx).UTC().Truncate(time.Microsecond)
	won, err = s.store.Revoke(ctx, tokenID, reason, revokedAt)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, dErrors.New(dErrors.CodeNotFound, "token not found")
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke token")
	}
	span.SetAttributes(tracer.Bool(tracer.AttrRevoked, won))
	if !won {
		if s.metrics != nil {
			s.metrics.RevokeConflict.Inc()
		}
		return false, nil
	}

	s.markRevoked(ctx, tokenID, models.RevocationDetails{Reason: reason, RevokedAt: revokedAt})
	s.emitRevoked(ctx, tokenID, reason, revokedAt)
	if s.metrics != nil {
		s.metrics.Revoked.Inc()
	}
	return true, nil
}

// IsRevoked reports whether the token is revoked. The shared list answers
// first; the store resolves misses.
func (s *Service) IsRevoked(ctx context.Context, tokenID id.TokenID) (bool, error) {
	if s.revlist != nil {
		revoked, err := s.revlist.IsRevoked(ctx, tokenID)
		if err == nil && revoked {
			return true, nil
		}
		if err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "revocation list lookup failed, falling back to store",
				"token_id", tokenID,
				"error", err,
			)
		}
	}
	token, err := s.store.FindByID(ctx, tokenID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, dErrors.New(dErrors.CodeNotFound, "token not found")
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load token")
	}
	return token.Revoked, nil
}

// RevocationDetails returns the audit record for a revoked token, or nil when
// the token is active.
func (s *Service) RevocationDetails(ctx context.Context, tokenID id.TokenID) (*models.RevocationDetails, error) {
	token, err := s.store.FindByID(ctx, tokenID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "token not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load token")
	}
	if !token.Revoked {
		return nil, nil
	}
	details := models.RevocationDetails{Reason: token.RevocationReason}
	if token.RevokedAt != nil {
		details.RevokedAt = *token.RevokedAt
	}
	return &details, nil
}

// Verify checks the issuance signature and the revocation list. Revocation
// always wins: a revoked token fails verification even with an intact
// signature.
func (s *Service) Verify(ctx context.Context, token models.SoulboundToken) bool {
	ctx, span := s.tracer.Start(ctx, tracer.SpanTokenVerify)
	defer span.End(nil)

	valid := s.verifySignature(token)
	if valid {
		revoked, err := s.IsRevoked(ctx, token.ID)
		valid = err == nil && !revoked
	}
	if !valid && s.metrics != nil {
		s.metrics.VerifyFailures.Inc()
	}
	span.SetAttributes(tracer.Bool(tracer.AttrValid, valid))
	return valid
}

// IsValid reports whether the token is unrevoked and unexpired. Expiry is
// evaluated live against the request clock, never stored.
func (s *Service) IsValid(ctx context.Context, token models.SoulboundToken) bool {
	if token.Expired(requestcontext.Now(ctx).UTC()) {
		return false
	}
	return s.Verify(ctx, token)
}

// RemainingValiditySeconds returns the seconds until expiry, or the
// NeverExpires sentinel for tokens without one.
func (s *Service) RemainingValiditySeconds(ctx context.Context, token models.SoulboundToken) int64 {
	if token.ExpiresAt == nil {
		return NeverExpires
	}
	return int64(token.ExpiresAt.Sub(requestcontext.Now(ctx).UTC()).Seconds())
}

// Get loads a stored token by id.
func (s *Service) Get(ctx context.Context, tokenID id.TokenID) (*models.SoulboundToken, error) {
	token, err := s.store.FindByID(ctx, tokenID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "token not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load token")
	}
	return &token, nil
}

// ListByRecipient returns every token bound to a recipient.
func (s *Service) ListByRecipient(ctx context.Context, recipientID id.SubjectID) ([]models.SoulboundToken, error) {
	tokens, err := s.store.ListByRecipient(ctx, recipientID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list tokens")
	}
	return tokens, nil
}

func (s *Service) markRevoked(ctx context.Context, tokenID id.TokenID, details models.RevocationDetails) {
	if s.revlist == nil {
		return
	}
	if err := s.revlist.MarkRevoked(ctx, tokenID, details); err != nil && s.logger != nil {
		// The store already holds the truth; the list catches up on the
		// next miss.
		s.logger.WarnContext(ctx, "failed to update revocation list",
			"token_id", tokenID,
			"error", err,
		)
	}
}

func (s *Service) emitIssued(ctx context.Context, token models.SoulboundToken) {
	if s.publisher == nil {
		return
	}
	badge, _ := token.Metadata["badge_type"].(string)
	event, err := events.NewTokenIssued(token.ID, token.RecipientID, badge, token.IssuedAt)
	if err == nil {
		event.RequestID = requestcontext.RequestID(ctx)
		err = s.publisher.Emit(ctx, event)
	}
	if err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to emit token_issued event",
			"error", err,
			"token_id", token.ID,
		)
	}
}

func (s *Service) emitRevoked(ctx context.Context, tokenID id.TokenID, reason string, revokedAt time.Time) {
	if s.publisher == nil {
		return
	}
	event, err := events.NewTokenRevoked(tokenID, reason, revokedAt)
	if err == nil {
		event.RequestID = requestcontext.RequestID(ctx)
		err = s.publisher.Emit(ctx, event)
	}
	if err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to emit token_revoked event",
			"error", err,
			"token_id", tokenID,
		)
	}
}

func (s *Service) verifySignature(token models.SoulboundToken) bool {
	input, err := token.SigningInput()
	if err != nil {
		return false
	}
	return s.signer.Verify(signer.ScopeToken, input, token.Signature)
}
