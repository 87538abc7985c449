package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"sigil/internal/credential/models"
	"sigil/internal/credential/service"
	"sigil/internal/credential/store"
	"sigil/internal/signer"
	dErrors "sigil/pkg/domain-errors"
	"sigil/pkg/platform/events"
	"sigil/pkg/platform/events/outbox"
	"sigil/pkg/platform/events/publisher"
	"sigil/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	svc    *service.Service
	outbox *outbox.MemoryStore
	now    time.Time
	ctx    context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	sgn, err := signer.New("did:sigil:issuer", "test-secret")
	s.Require().NoError(err)
	s.outbox = outbox.NewMemoryStore()
	s.svc = service.NewService(
		store.NewInMemoryStore(),
		sgn,
		service.WithPublisher(publisher.New(s.outbox)),
	)
	s.now = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func intptr(v int) *int { return &v }

func (s *ServiceSuite) TestIssueAppliesDefaultValidity() {
	cred, err := s.svc.Issue(s.ctx, models.CredentialTypeKYC, "user-123", models.Subject{"verificationLevel": 2}, nil)

	s.Require().NoError(err)
	s.Require().NotNil(cred.ExpiresAt)
	s.Equal(s.now.AddDate(0, 0, 365), *cred.ExpiresAt)
	s.Equal("did:user:user-123", string(cred.Holder))
}

func (s *ServiceSuite) TestVerifySurvivesStoreRoundTrip() {
	// Real wall clock, no pinned time: nanosecond precision at the source.
	ctx := context.Background()
	cred, err := s.svc.Issue(ctx, models.CredentialTypeKYC, "user-123", models.Subject{"verificationLevel": 2}, nil)
	s.Require().NoError(err)
	s.True(s.svc.Verify(ctx, *cred))

	// TIMESTAMPTZ keeps microseconds, so a row reloaded from postgres carries
	// truncated times. The proof must still verify.
	reloaded := *cred
	reloaded.IssuedAt = reloaded.IssuedAt.Truncate(time.Microsecond)
	if reloaded.ExpiresAt != nil {
		t := reloaded.ExpiresAt.Truncate(time.Microsecond)
		reloaded.ExpiresAt = &t
	}
	s.True(s.svc.Verify(ctx, reloaded), "proof must survive a timestamptz round trip")
	s.True(s.svc.IsValid(ctx, reloaded))
	s.True(reloaded.IssuedAt.Equal(cred.IssuedAt), "issuance must not mint sub-microsecond timestamps")
}

func (s *ServiceSuite) TestIssueExplicitValidityOverridesPolicy() {
	cred, err := s.svc.Issue(s.ctx, models.CredentialTypeKYC, "user-123", models.Subject{}, intptr(30))

	s.Require().NoError(err)
	s.Require().NotNil(cred.ExpiresAt)
	s.Equal(s.now.AddDate(0, 0, 30), *cred.ExpiresAt)
}

func (s *ServiceSuite) TestIssueZeroValidityNeverExpires() {
	cred, err := s.svc.Issue(s.ctx, models.CredentialTypeKYC, "user-123", models.Subject{}, intptr(0))

	s.Require().NoError(err)
	s.Nil(cred.ExpiresAt)

	farFuture := requestcontext.WithTime(context.Background(), s.now.AddDate(10, 0, 0))
	s.True(s.svc.IsValid(farFuture, *cred))
}

func (s *ServiceSuite) TestIssueRejectsNegativeValidity() {
	_, err := s.svc.Issue(s.ctx, models.CredentialTypeKYC, "user-123", models.Subject{}, intptr(-1))
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestIssueEmitsEvent() {
	_, err := s.svc.Issue(s.ctx, models.CredentialTypeProfessional, "user-123", models.Subject{}, nil)
	s.Require().NoError(err)

	entries := s.outbox.List()
	s.Require().Len(entries, 1)
	s.Equal(events.NameCredentialIssued, entries[0].Event.Name)
	s.Equal("user-123", entries[0].Event.SubjectID)
}

func (s *ServiceSuite) TestExpiredCredentialIsInvalidButStillVerifies() {
	cred, err := s.svc.Issue(s.ctx, models.CredentialTypeKYC, "user-123", models.Subject{}, intptr(30))
	s.Require().NoError(err)

	later := requestcontext.WithTime(context.Background(), s.now.AddDate(0, 0, 31))
	s.True(s.svc.Verify(later, *cred), "proof stays intact after expiry")
	s.False(s.svc.IsValid(later, *cred))
}

func (s *ServiceSuite) TestVerifyRejectsTamperedSubject() {
	cred, err := s.svc.Issue(s.ctx, models.CredentialTypeKYC, "user-123", models.Subject{"verificationLevel": 2}, nil)
	s.Require().NoError(err)

	tampered := *cred
	tampered.CredentialSubject = models.Subject{"verificationLevel": 5}

	s.False(s.svc.Verify(s.ctx, tampered))
}

func (s *ServiceSuite) TestVerifyRejectsForeignIssuer() {
	cred, err := s.svc.Issue(s.ctx, models.CredentialTypeKYC, "user-123", models.Subject{}, nil)
	s.Require().NoError(err)

	foreign, err := signer.New("did:sigil:other", "test-secret")
	s.Require().NoError(err)
	other := service.NewService(store.NewInMemoryStore(), foreign)

	s.False(other.Verify(s.ctx, *cred))
}

func (s *ServiceSuite) TestTypedHelpers() {
	s.Run("kyc merges verification level", func() {
		cred, err := s.svc.IssueKYC(s.ctx, "user-123", 3, nil, nil)
		s.Require().NoError(err)
		s.Equal(models.CredentialTypeKYC, cred.Type)
		s.Equal(3, cred.CredentialSubject["verificationLevel"])
	})

	s.Run("accreditation", func() {
		cred, err := s.svc.IssueAccreditation(s.ctx, "user-123", "FSA", "approved", nil)
		s.Require().NoError(err)
		s.Equal(models.CredentialTypeAccreditation, cred.Type)
		s.Equal("FSA", cred.CredentialSubject["accreditor"])
	})

	s.Run("professional has 730 day default", func() {
		cred, err := s.svc.IssueProfessional(s.ctx, "user-123", "engineer", "ACME Board", nil)
		s.Require().NoError(err)
		s.Require().NotNil(cred.ExpiresAt)
		s.Equal(s.now.AddDate(0, 0, 730), *cred.ExpiresAt)
	})

	s.Run("payment history has 90 day default", func() {
		cred, err := s.svc.IssuePaymentHistory(s.ctx, "user-123", 42, 0.98, nil)
		s.Require().NoError(err)
		s.Require().NotNil(cred.ExpiresAt)
		s.Equal(s.now.AddDate(0, 0, 90), *cred.ExpiresAt)
	})
}

func (s *ServiceSuite) TestToW3CShape() {
	cred, err := s.svc.IssueKYC(s.ctx, "user-123", 3, nil, nil)
	s.Require().NoError(err)

	w3c := s.svc.ToW3C(*cred)

	s.Equal([]string{"https://www.w3.org/2018/credentials/v1"}, w3c["@context"])
	s.Equal([]string{"VerifiableCredential", "KYCVerificationCredential"}, w3c["type"])
	s.Equal("did:sigil:issuer", w3c["issuer"])

	subject, ok := w3c["credentialSubject"].(map[string]any)
	s.Require().True(ok)
	s.Equal("did:user:user-123", subject["id"])
	s.Equal(3, subject["verificationLevel"])

	proof, ok := w3c["proof"].(map[string]any)
	s.Require().True(ok)
	s.NotEmpty(proof["proofValue"])

	s.Run("projection is deterministic", func() {
		s.Equal(w3c, s.svc.ToW3C(*cred))
	})
}

func (s *ServiceSuite) TestCreatePresentation() {
	issue := func(fn func() (*models.VerifiableCredential, error)) models.VerifiableCredential {
		cred, err := fn()
		s.Require().NoError(err)
		return *cred
	}
	creds := []models.VerifiableCredential{
		issue(func() (*models.VerifiableCredential, error) { return s.svc.IssueKYC(s.ctx, "user-123", 3, nil, nil) }),
		issue(func() (*models.VerifiableCredential, error) {
			return s.svc.IssuePaymentHistory(s.ctx, "user-123", 42, 0.98, nil)
		}),
		issue(func() (*models.VerifiableCredential, error) {
			return s.svc.IssueAccreditation(s.ctx, "user-123", "FSA", "approved", nil)
		}),
	}

	challenge := "abc"
	presentation, err := s.svc.CreatePresentation(s.ctx, creds, "user-123", &challenge)
	s.Require().NoError(err)

	s.Equal([]string{"VerifiablePresentation"}, presentation["type"])
	s.Equal("did:user:user-123", presentation["holder"])

	bundled, ok := presentation["verifiableCredential"].([]map[string]any)
	s.Require().True(ok)
	s.Len(bundled, 3)

	proof, ok := presentation["proof"].(map[string]any)
	s.Require().True(ok)
	s.Equal("abc", proof["challenge"])
	s.NotEmpty(proof["proofValue"])

	s.Run("challenge omitted when absent", func() {
		presentation, err := s.svc.CreatePresentation(s.ctx, creds, "user-123", nil)
		s.Require().NoError(err)
		proof := presentation["proof"].(map[string]any)
		_, hasChallenge := proof["challenge"]
		s.False(hasChallenge)
	})

	s.Run("empty bundle is rejected", func() {
		_, err := s.svc.CreatePresentation(s.ctx, nil, "user-123", nil)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}
