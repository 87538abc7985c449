// Package revocation provides the fast-path revocation list consulted on
// every token validity check. The token store stays authoritative; the list
// is a shared read cache kept in step by the registry service.
package revocation

import (
	"context"

	"sigil/internal/token/models"
	id "sigil/pkg/domain"
)

// List is the revocation lookup contract.
type List interface {
	// MarkRevoked records the revocation details for a token. Recording is
	// first-write-wins: details already present are never overwritten.
	MarkRevoked(ctx context.Context, tokenID id.TokenID, details models.RevocationDetails) error

	// IsRevoked reports whether the token is on the list.
	IsRevoked(ctx context.Context, tokenID id.TokenID) (bool, error)

	// Details returns the recorded revocation details, or nil when the token
	// is not on the list.
	Details(ctx context.Context, tokenID id.TokenID) (*models.RevocationDetails, error)
}
