// Package service implements credential issuance, verification, and bundling.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"sigil/internal/credential/metrics"
	"sigil/internal/credential/models"
	"sigil/internal/credential/store"
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

// Option configures the credential service.
type Option func(*Service)

// Service issues W3C-shaped verifiable credentials and bundles them into
// presentations.
type Service struct {
	store     store.Store
	signer    *signer.Signer
	publisher EventPublisher
	metrics   *metrics.Metrics
	tracer    tracer.Tracer
	logger    *slog.Logger
}

// NewService creates a credential service with the required dependencies.
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

// Issue mints a credential for the raw subject id. A nil validityDays falls
// back to the type's default policy; zero means the credential never expires.
func (s *Service) Issue(ctx context.Context, credType models.CredentialType, subjectID id.SubjectID, credentialSubject models.Subject, validityDays *int) (ret *models.VerifiableCredential, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanCredentialIssue,
		tracer.String(tracer.AttrCredentialType, string(credType)),
		tracer.String(tracer.AttrSubjectID, subjectID.String()),
	)
	defer func() { span.End(err) }()

	start := time.Now()
	if !credType.Valid() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "unknown credential type")
	}
	if subjectID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "subject_id is required")
	}
	if validityDays != nil && *validityDays < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "validity_days cannot be negative")
	}

	days := credType.DefaultValidityDays()
	if validityDays != nil {
		days = *validityDays
	}

	// Truncated to the precision TIMESTAMPTZ preserves, so the proof stays
	// re-derivable after a store round trip.
	now := requestcontext.Now(ctx).UTC().Truncate(time.Microsecond)
	var expiresAt *time.Time
	if days > 0 {
		t := now.AddDate(0, 0, days)
		expiresAt = &t
	}

	subject := models.Subject{}
	for k, v := range credentialSubject {
		subject[k] = v
	}

	credential := models.VerifiableCredential{
		ID:                id.NewCredentialID(),
		Type:              credType,
		IssuerID:          s.signer.IssuerID(),
		Holder:            id.DIDForSubject(subjectID),
		CredentialSubject: subject,
		IssuedAt:          now,
		ExpiresAt:         expiresAt,
	}

	credential.Proof, err = s.prove(signer.ScopeCredential, credential)
	if err != nil {
		return nil, err
	}

	if err := s.store.Save(ctx, credential); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store credential")
	}

	s.emitIssued(ctx, credential, subjectID)
	if s.metrics != nil {
		s.metrics.IncrementIssued(string(credType))
		s.metrics.ObserveIssue(start)
	}
	return &credential, nil
}

// prove builds the proof block over the credential's canonical bytes.
func (s *Service) prove(scope signer.Scope, credential models.VerifiableCredential) (models.Proof, error) {
	canonical, err := credential.CanonicalBytes()
	if err != nil {
		return models.Proof{}, err
	}
	proofValue, err := s.signer.ProofValue(scope, signer.Digest(canonical))
	if err != nil {
		return models.Proof{}, err
	}
	return models.Proof{
		Type:               models.ProofType,
		Created:            credential.IssuedAt.UTC().Format(time.RFC3339),
		VerificationMethod: s.signer.IssuerID() + "#keys-1",
		ProofPurpose:       "assertionMethod",
		ProofValue:         proofValue,
	}, nil
}

// IssueKYC fixes the KYC type and records the verification level reached.
func (s *Service) IssueKYC(ctx context.Context, subjectID id.SubjectID, verificationLevel int, extra models.Subject, validityDays *int) (*models.VerifiableCredential, error) {
	subject := models.Subject{"verificationLevel": verificationLevel}
	for k, v := range extra {
		subject[k] = v
	}
	return s.Issue(ctx, models.CredentialTypeKYC, subjectID, subject, validityDays)
}

// IssueAccreditation fixes the accreditation type and records the accrediting
// body and status.
func (s *Service) IssueAccreditation(ctx context.Context, subjectID id.SubjectID, accreditor, status string, validityDays *int) (*models.VerifiableCredential, error) {
	return s.Issue(ctx, models.CredentialTypeAccreditation, subjectID, models.Subject{
		"accreditor": accreditor,
		"status":     status,
	}, validityDays)
}

// IssueProfessional fixes the professional type and records the profession
// and licensing body.
func (s *Service) IssueProfessional(ctx context.Context, subjectID id.SubjectID, profession, licenseBody string, validityDays *int) (*models.VerifiableCredential, error) {
	return s.Issue(ctx, models.CredentialTypeProfessional, subjectID, models.Subject{
		"profession":   profession,
		"license_body": licenseBody,
	}, validityDays)
}

// IssuePaymentHistory fixes the payment-history type and records aggregate
// payment behavior.
func (s *Service) IssuePaymentHistory(ctx context.Context, subjectID id.SubjectID, totalPayments int, onTimeRate float64, validityDays *int) (*models.VerifiableCredential, error) {
	return s.Issue(ctx, models.CredentialTypePaymentHistory, subjectID, models.Subject{
		"total_payments": totalPayments,
		"on_time_rate":   onTimeRate,
	}, validityDays)
}

// Verify recomputes the proof from the credential's current field values
// under this issuer's key. False for foreign issuers and tampered content.
func (s *Service) Verify(ctx context.Context, credential models.VerifiableCredential) bool {
	_, span := s.tracer.Start(ctx, tracer.SpanCredentialVerify,
		tracer.String(tracer.AttrCredentialType, string(credential.Type)),
	)
	defer span.End(nil)

	canonical, err := credential.CanonicalBytes()
	if err != nil {
		return false
	}
	valid := s.signer.VerifyProofValue(signer.ScopeCredential, credential.Proof.ProofValue, signer.Digest(canonical))
	if !valid && s.metrics != nil {
		s.metrics.VerifyFailures.Inc()
	}
	span.SetAttributes(tracer.Bool(tracer.AttrValid, valid))
	return valid
}

// IsValid reports whether the credential is unexpired and its proof verifies.
func (s *Service) IsValid(ctx context.Context, credential models.VerifiableCredential) bool {
	if credential.Expired(requestcontext.Now(ctx).UTC()) {
		return false
	}
	return s.Verify(ctx, credential)
}

// Get loads a stored credential by id.
func (s *Service) Get(ctx context.Context, credentialID id.CredentialID) (*models.VerifiableCredential, error) {
	credential, err := s.store.FindByID(ctx, credentialID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "credential not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credential")
	}
	return &credential, nil
}

// ListByHolder returns every credential issued to a holder.
func (s *Service) ListByHolder(ctx context.Context, holder id.HolderDID) ([]models.VerifiableCredential, error) {
	credentials, err := s.store.ListByHolder(ctx, holder)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list credentials")
	}
	return credentials, nil
}

func (s *Service) emitIssued(ctx context.Context, credential models.VerifiableCredential, subjectID id.SubjectID) {
	if s.publisher == nil {
		return
	}
	event, err := events.NewCredentialIssued(credential.ID, string(credential.Type), subjectID, credential.IssuedAt)
	if err == nil {
		event.RequestID = requestcontext.RequestID(ctx)
		err = s.publisher.Emit(ctx, event)
	}
	if err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to emit credential_issued event",
			"error", err,
			"credential_id", credential.ID,
		)
	}
}
