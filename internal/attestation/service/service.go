// Package service implements attestation issuance and verification.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"sigil/internal/attestation/metrics"
	"sigil/internal/attestation/models"
	"sigil/internal/attestation/store"
	"sigil/internal/platform/tracer"
	"sigil/internal/signer"
	id "sigil/pkg/domain"
	dErrors "sigil/pkg/domain-errors"
	"sigil/pkg/platform/events"
	"sigil/pkg/platform/sentinel"
	"sigil/pkg/requestcontext"
)

// EventPublisher emits domain events after successful mutations.
type EventPublisher interface {
	Emit(ctx context.Context, event events.Event) error
}

// Option configures the attestation service.
type Option func(*Service)

// Service produces tamper-evident claim bundles and verifies them later.
type Service struct {
	store     store.Store
	signer    *signer.Signer
	publisher EventPublisher
	metrics   *metrics.Metrics
	tracer    tracer.Tracer
	logger    *slog.Logger
}

// NewService creates an attestation service with the required dependencies.
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

// Create validates the required claims for the event type, signs the bundle,
// persists it, and emits an attestation event. Missing claims fail with a
// MissingClaimsError naming every absent key.
func (s *Service) Create(ctx context.Context, eventType models.EventType, subjectID id.SubjectID, claims models.Claims) (ret *models.Attestation, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanAttestationCreate,
		tracer.String(tracer.AttrEventType, string(eventType)),
		tracer.String(tracer.AttrSubjectID, subjectID.String()),
	)
	defer func() { span.End(err) }()

	start := time.Now()
	if !eventType.Valid() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "unknown attestation type")
	}
	if subjectID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "subject_id is required")
	}
	if missing := claims.Missing(eventType); len(missing) > 0 {
		if s.metrics != nil {
			s.metrics.MissingClaims.Inc()
		}
		return nil, dErrors.NewMissingClaims(string(eventType), missing)
	}

	attestation := models.Attestation{
		ID:        id.NewAttestationID(),
		Type:      eventType,
		IssuerID:  s.signer.IssuerID(),
		SubjectID: subjectID,
		Claims:    claims,
		// Truncated to the precision TIMESTAMPTZ preserves, so the signature
		// and content hash stay re-derivable after a store round trip.
		CreatedAt: requestcontext.Now(ctx).UTC().Truncate(time.Microsecond),
	}

	input, err := attestation.SigningInput()
	if err != nil {
		return nil, err
	}
	attestation.Signature = s.signer.Sign(signer.ScopeAttestation, input)

	if err := s.store.Save(ctx, attestation); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store attestation")
	}

	s.emitAttested(ctx, attestation)
	if s.metrics != nil {
		s.metrics.IncrementCreated(string(eventType))
		s.metrics.ObserveCreate(start)
	}
	return &attestation, nil
}

// CreatePayment binds a payment event's parameters into the required claims.
func (s *Service) CreatePayment(ctx context.Context, subjectID id.SubjectID, amount float64, currency, payerID, recipientID string, timestamp time.Time) (*models.Attestation, error) {
	return s.Create(ctx, models.EventTypePayment, subjectID, models.Claims{
		"amount":       amount,
		"currency":     currency,
		"payer_id":     payerID,
		"recipient_id": recipientID,
		"timestamp":    timestamp.UTC().Format(time.RFC3339),
	})
}

// CreateDelivery binds a delivery event's parameters into the required claims.
func (s *Service) CreateDelivery(ctx context.Context, subjectID id.SubjectID, orderID, carrier, recipientID string, deliveredAt time.Time) (*models.Attestation, error) {
	return s.Create(ctx, models.EventTypeDelivery, subjectID, models.Claims{
		"order_id":     orderID,
		"carrier":      carrier,
		"delivered_at": deliveredAt.UTC().Format(time.RFC3339),
		"recipient_id": recipientID,
	})
}

// CreateReceipt binds a receipt event's parameters into the required claims.
func (s *Service) CreateReceipt(ctx context.Context, subjectID id.SubjectID, paymentID string, amount float64, currency string, receivedAt time.Time) (*models.Attestation, error) {
	return s.Create(ctx, models.EventTypeReceipt, subjectID, models.Claims{
		"payment_id":  paymentID,
		"amount":      amount,
		"currency":    currency,
		"received_at": receivedAt.UTC().Format(time.RFC3339),
	})
}

// Verify recomputes the expected signature from the attestation's current
// field values under this issuer's key. A false result means the attestation
// was tampered with or issued by a different identity; neither is an error.
func (s *Service) Verify(ctx context.Context, attestation models.Attestation) bool {
	_, span := s.tracer.Start(ctx, tracer.SpanAttestationVerify,
		tracer.String(tracer.AttrEventType, string(attestation.Type)),
	)
	defer span.End(nil)

	input, err := attestation.SigningInput()
	if err != nil {
		return false
	}
	valid := s.signer.Verify(signer.ScopeAttestation, input, attestation.Signature)
	if !valid && s.metrics != nil {
		s.metrics.VerifyFailures.Inc()
	}
	span.SetAttributes(tracer.Bool(tracer.AttrValid, valid))
	return valid
}

// Hash returns the stable 64-char hex content hash of the attestation.
func (s *Service) Hash(attestation models.Attestation) (string, error) {
	canonical, err := attestation.CanonicalBytes()
	if err != nil {
		return "", err
	}
	return signer.Digest(canonical), nil
}

// Get loads a stored attestation by id.
func (s *Service) Get(ctx context.Context, attestationID id.AttestationID) (*models.Attestation, error) {
	attestation, err := s.store.FindByID(ctx, attestationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "attestation not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load attestation")
	}
	return &attestation, nil
}

// ListBySubject returns every attestation issued about a subject.
func (s *Service) ListBySubject(ctx context.Context, subjectID id.SubjectID) ([]models.Attestation, error) {
	attestations, err := s.store.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list attestations")
	}
	return attestations, nil
}

func (s *Service) emitAttested(ctx context.Context, attestation models.Attestation) {
	if s.publisher == nil {
		return
	}
	event, err := events.NewAttested(attestation.ID, string(attestation.Type), attestation.SubjectID, attestation.CreatedAt)
	if err == nil {
		event.RequestID = requestcontext.RequestID(ctx)
		err = s.publisher.Emit(ctx, event)
	}
	if err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to emit attestation event",
			"error", err,
			"attestation_id", attestation.ID,
		)
	}
}
