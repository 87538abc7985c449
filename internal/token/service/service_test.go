package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"sigil/internal/signer"
	"sigil/internal/token/models"
	"sigil/internal/token/service"
	"sigil/internal/token/store"
	"sigil/internal/token/store/revocation"
	dErrors "sigil/pkg/domain-errors"
	"sigil/pkg/platform/events"
	"sigil/pkg/platform/events/outbox"
	"sigil/pkg/platform/events/publisher"
	"sigil/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	svc     *service.Service
	outbox  *outbox.MemoryStore
	revlist *revocation.MemoryList
	now     time.Time
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	sgn, err := signer.New("did:sigil:issuer", "test-secret")
	s.Require().NoError(err)
	s.outbox = outbox.NewMemoryStore()
	s.revlist = revocation.NewMemoryList()
	s.svc = service.NewService(
		store.NewInMemoryStore(),
		sgn,
		service.WithRevocationList(s.revlist),
		service.WithPublisher(publisher.New(s.outbox)),
	)
	s.now = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *ServiceSuite) TestIssueAppliesDefaultValidity() {
	token, err := s.svc.Issue(s.ctx, "user-123", models.Metadata{"badge_type": "custom"})

	s.Require().NoError(err)
	s.Require().NotNil(token.ExpiresAt)
	s.Equal(s.now.AddDate(0, 0, models.DefaultValidityDays), *token.ExpiresAt)
	s.Equal(models.TokenTypeSoulbound, token.Type)
	s.True(s.svc.Verify(s.ctx, *token))
}

func (s *ServiceSuite) TestIssueZeroValidityNeverExpires() {
	token, err := s.svc.Issue(s.ctx, "user-123", models.Metadata{"validity_days": 0})

	s.Require().NoError(err)
	s.Nil(token.ExpiresAt)
	s.EqualValues(service.NeverExpires, s.svc.RemainingValiditySeconds(s.ctx, *token))

	farFuture := requestcontext.WithTime(context.Background(), s.now.AddDate(10, 0, 0))
	s.True(s.svc.IsValid(farFuture, *token))
}

func (s *ServiceSuite) TestRemainingValidityThirtyDays() {
	token, err := s.svc.Issue(s.ctx, "user-123", models.Metadata{"validity_days": 30})
	s.Require().NoError(err)

	later := requestcontext.WithTime(context.Background(), s.now.Add(time.Hour))
	remaining := s.svc.RemainingValiditySeconds(later, *token)

	s.Greater(remaining, int64(29*24*3600))
	s.LessOrEqual(remaining, int64(30*24*3600))
}

func (s *ServiceSuite) TestIssueRejectsBadValidity() {
	_, err := s.svc.Issue(s.ctx, "user-123", models.Metadata{"validity_days": "soon"})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.svc.Issue(s.ctx, "user-123", models.Metadata{"validity_days": -3})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestTypedHelpers() {
	s.Run("kyc badge", func() {
		token, err := s.svc.IssueKYCBadge(s.ctx, "user-123", 3)
		s.Require().NoError(err)
		s.Equal(models.BadgeTypeKYC, token.Metadata["badge_type"])
		s.Equal(3, token.Metadata["verification_level"])
	})

	s.Run("membership token", func() {
		token, err := s.svc.IssueMembershipToken(s.ctx, "user-123", "gold")
		s.Require().NoError(err)
		s.Equal(models.BadgeTypeMembership, token.Metadata["badge_type"])
		s.Equal("gold", token.Metadata["tier"])
	})

	s.Run("reputation token never expires", func() {
		token, err := s.svc.IssueReputationToken(s.ctx, "user-123", "seller", 87)
		s.Require().NoError(err)
		s.Equal(models.BadgeTypeReputation, token.Metadata["badge_type"])
		s.Nil(token.ExpiresAt)
	})
}

func (s *ServiceSuite) TestRevokeIsIdempotentWithSingleWinner() {
	token, err := s.svc.IssueKYCBadge(s.ctx, "user-123", 2)
	s.Require().NoError(err)

	won, err := s.svc.Revoke(s.ctx, token.ID, "fraud")
	s.Require().NoError(err)
	s.True(won)

	again, err := s.svc.Revoke(s.ctx, token.ID, "duplicate")
	s.Require().NoError(err)
	s.False(again)

	details, err := s.svc.RevocationDetails(s.ctx, token.ID)
	s.Require().NoError(err)
	s.Require().NotNil(details)
	s.Equal("fraud", details.Reason, "loser's reason must not overwrite the winner's")
}

func (s *ServiceSuite) TestRevocationWinsOverValidSignature() {
	token, err := s.svc.IssueKYCBadge(s.ctx, "user-123", 2)
	s.Require().NoError(err)
	s.True(s.svc.Verify(s.ctx, *token))

	_, err = s.svc.Revoke(s.ctx, token.ID, "fraud")
	s.Require().NoError(err)

	s.False(s.svc.Verify(s.ctx, *token))
	s.False(s.svc.IsValid(s.ctx, *token))

	revoked, err := s.svc.IsRevoked(s.ctx, token.ID)
	s.Require().NoError(err)
	s.True(revoked)
}

func (s *ServiceSuite) TestVerifySurvivesStoreRoundTrip() {
	// Real wall clock, no pinned time: nanosecond precision at the source.
	ctx := context.Background()
	token, err := s.svc.Issue(ctx, "user-123", models.Metadata{"badge_type": "custom"})
	s.Require().NoError(err)
	s.True(s.svc.Verify(ctx, *token))

	// TIMESTAMPTZ keeps microseconds, so a row reloaded from postgres carries
	// truncated times. The signature must still verify.
	reloaded := *token
	reloaded.IssuedAt = reloaded.IssuedAt.Truncate(time.Microsecond)
	if reloaded.ExpiresAt != nil {
		t := reloaded.ExpiresAt.Truncate(time.Microsecond)
		reloaded.ExpiresAt = &t
	}
	s.True(s.svc.Verify(ctx, reloaded), "signature must survive a timestamptz round trip")
	s.True(reloaded.IssuedAt.Equal(token.IssuedAt), "issuance must not mint sub-microsecond timestamps")
}

func (s *ServiceSuite) TestRevokeUpdatesRevocationList() {
	token, err := s.svc.IssueKYCBadge(s.ctx, "user-123", 2)
	s.Require().NoError(err)

	_, err = s.svc.Revoke(s.ctx, token.ID, "fraud")
	s.Require().NoError(err)

	revoked, err := s.revlist.IsRevoked(s.ctx, token.ID)
	s.Require().NoError(err)
	s.True(revoked)
}

func (s *ServiceSuite) TestRevokeUnknownTokenFails() {
	_, err := s.svc.Revoke(s.ctx, "sbt_00000000-0000-0000-0000-000000000000", "fraud")
	s.Error(err)
}

func (s *ServiceSuite) TestRevocationDetailsNilForActiveToken() {
	token, err := s.svc.IssueKYCBadge(s.ctx, "user-123", 2)
	s.Require().NoError(err)

	details, err := s.svc.RevocationDetails(s.ctx, token.ID)
	s.Require().NoError(err)
	s.Nil(details)
}

func (s *ServiceSuite) TestExpiredTokenIsInvalid() {
	token, err := s.svc.Issue(s.ctx, "user-123", models.Metadata{"validity_days": 30})
	s.Require().NoError(err)

	later := requestcontext.WithTime(context.Background(), s.now.AddDate(0, 0, 31))
	s.False(s.svc.IsValid(later, *token))
	s.True(s.svc.Verify(later, *token), "signature survives expiry")
}

func (s *ServiceSuite) TestVerifyRejectsForeignIssuer() {
	token, err := s.svc.IssueKYCBadge(s.ctx, "user-123", 2)
	s.Require().NoError(err)

	foreign, err := signer.New("did:sigil:other", "test-secret")
	s.Require().NoError(err)
	other := service.NewService(store.NewInMemoryStore(), foreign)

	s.False(other.Verify(s.ctx, *token))
}

func (s *ServiceSuite) TestEventFlow() {
	token, err := s.svc.IssueKYCBadge(s.ctx, "user-123", 2)
	s.Require().NoError(err)

	_, err = s.svc.Revoke(s.ctx, token.ID, "fraud")
	s.Require().NoError(err)

	_, err = s.svc.Revoke(s.ctx, token.ID, "again")
	s.Require().NoError(err)

	entries := s.outbox.List()
	s.Require().Len(entries, 2, "second revoke must not emit")
	s.Equal(events.NameTokenIssued, entries[0].Event.Name)
	s.Equal(events.NameTokenRevoked, entries[1].Event.Name)
}
