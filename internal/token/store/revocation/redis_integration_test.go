//go:build integration

package revocation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"sigil/internal/token/models"
	"sigil/internal/token/store/revocation"
	id "sigil/pkg/domain"
	"sigil/pkg/testutil/containers"
)

type RedisListSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	list  *revocation.RedisList
}

func TestRedisListSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisListSuite))
}

func (s *RedisListSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.list = revocation.NewRedisList(s.redis.Client)
}

func (s *RedisListSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisListSuite) TestMarkAndLookup() {
	ctx := context.Background()
	tokenID := id.NewTokenID()
	revokedAt := time.Now().UTC().Truncate(time.Second)

	revoked, err := s.list.IsRevoked(ctx, tokenID)
	s.Require().NoError(err)
	s.False(revoked)

	err = s.list.MarkRevoked(ctx, tokenID, models.RevocationDetails{Reason: "fraud", RevokedAt: revokedAt})
	s.Require().NoError(err)

	revoked, err = s.list.IsRevoked(ctx, tokenID)
	s.Require().NoError(err)
	s.True(revoked)

	details, err := s.list.Details(ctx, tokenID)
	s.Require().NoError(err)
	s.Require().NotNil(details)
	s.Equal("fraud", details.Reason)
	s.True(revokedAt.Equal(details.RevokedAt))
}

func (s *RedisListSuite) TestFirstWriteWins() {
	ctx := context.Background()
	tokenID := id.NewTokenID()
	first := time.Now().UTC().Truncate(time.Second)

	err := s.list.MarkRevoked(ctx, tokenID, models.RevocationDetails{Reason: "fraud", RevokedAt: first})
	s.Require().NoError(err)

	err = s.list.MarkRevoked(ctx, tokenID, models.RevocationDetails{Reason: "duplicate", RevokedAt: first.Add(time.Hour)})
	s.Require().NoError(err)

	details, err := s.list.Details(ctx, tokenID)
	s.Require().NoError(err)
	s.Require().NotNil(details)
	s.Equal("fraud", details.Reason)
	s.True(first.Equal(details.RevokedAt))
}

func (s *RedisListSuite) TestDetailsForActiveToken() {
	ctx := context.Background()

	details, err := s.list.Details(ctx, id.NewTokenID())
	s.Require().NoError(err)
	s.Nil(details)
}
