package revocation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"sigil/internal/token/models"
	id "sigil/pkg/domain"
)

var isRevokedDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "sigil_is_token_revoked_duration_ms",
	Help:    "Latency of token revocation checks in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
})

// Redis key prefix for revoked tokens.
const revokedTokenKeyPrefix = "trl:sbt:"

// RedisList is a Redis-backed revocation list. Use this in distributed
// deployments where multiple instances share revocation state.
type RedisList struct {
	client *redis.Client
}

// NewRedisList constructs a Redis-backed revocation list.
func NewRedisList(client *redis.Client) *RedisList {
	return &RedisList{client: client}
}

// MarkRevoked records revocation details under the token key. SetNX keeps
// the first recorded details if two instances race.
func (l *RedisList) MarkRevoked(ctx context.Context, tokenID id.TokenID, details models.RevocationDetails) error {
	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("marshal revocation details: %w", err)
	}
	key := revokedTokenKeyPrefix + tokenID.String()
	if err := l.client.SetNX(ctx, key, payload, 0).Err(); err != nil {
		return fmt.Errorf("mark token revoked: %w", err)
	}
	return nil
}

// IsRevoked checks if the token is on the list. A missing key means not
// revoked.
func (l *RedisList) IsRevoked(ctx context.Context, tokenID id.TokenID) (bool, error) {
	start := time.Now()
	defer func() {
		isRevokedDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	key := revokedTokenKeyPrefix + tokenID.String()
	_, err := l.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Details returns the recorded revocation details, or nil when absent.
func (l *RedisList) Details(ctx context.Context, tokenID id.TokenID) (*models.RevocationDetails, error) {
	key := revokedTokenKeyPrefix + tokenID.String()
	payload, err := l.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var details models.RevocationDetails
	if err := json.Unmarshal(payload, &details); err != nil {
		return nil, fmt.Errorf("unmarshal revocation details: %w", err)
	}
	return &details, nil
}
