package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "sigil/pkg/domain-errors"
)

// TestParsePrefixedIDs validates the parsing invariant:
// "IDs must carry their scheme prefix and wrap a valid UUID".
//
// Justification: This is a pure function enforcing a domain invariant
// at trust boundaries.
func TestParsePrefixedIDs(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseTokenID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects missing prefix", func(t *testing.T) {
		raw := strings.TrimPrefix(string(NewTokenID()), "sbt_")
		_, err := ParseTokenID(raw)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects non-uuid payload", func(t *testing.T) {
		_, err := ParseAttestationID("att_not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts generated IDs round-trip", func(t *testing.T) {
		tok := NewTokenID()
		parsed, err := ParseTokenID(tok.String())
		require.NoError(t, err)
		assert.Equal(t, tok, parsed)

		att := NewAttestationID()
		parsedAtt, err := ParseAttestationID(att.String())
		require.NoError(t, err)
		assert.Equal(t, att, parsedAtt)
	})
}

func TestParseCredentialID(t *testing.T) {
	t.Run("accepts urn form", func(t *testing.T) {
		cred := NewCredentialID()
		parsed, err := ParseCredentialID(cred.String())
		require.NoError(t, err)
		assert.Equal(t, cred, parsed)
	})

	t.Run("rejects bare uuid", func(t *testing.T) {
		raw := strings.TrimPrefix(string(NewCredentialID()), "urn:credential:")
		_, err := ParseCredentialID(raw)
		require.Error(t, err)
	})
}

func TestDIDForSubject(t *testing.T) {
	assert.Equal(t, HolderDID("did:user:user-123"), DIDForSubject("user-123"))
}

// TestTypeDistinction verifies the compiler enforces type safety.
// This is a compile-time check - if this compiles, the invariant holds.
func TestTypeDistinction(t *testing.T) {
	tokenID := NewTokenID()
	credID := NewCredentialID()

	// These would fail to compile if types were interchangeable:
	// var _ TokenID = credID        // compile error
	// var _ CredentialID = tokenID  // compile error

	assert.NotEqual(t, string(tokenID), string(credID))
}
