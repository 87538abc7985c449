package signer_test

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"sigil/internal/signer"
)

type SignerSuite struct {
	suite.Suite
	signer *signer.Signer
}

func TestSignerSuite(t *testing.T) {
	suite.Run(t, new(SignerSuite))
}

func (s *SignerSuite) SetupTest() {
	sgn, err := signer.New("did:sigil:issuer", "test-secret")
	s.Require().NoError(err)
	s.signer = sgn
}

func (s *SignerSuite) TestNewRejectsEmptyInputs() {
	_, err := signer.New("", "secret")
	s.Error(err)

	_, err = signer.New("did:sigil:issuer", "")
	s.Error(err)
}

func (s *SignerSuite) TestSignIsDeterministic() {
	data := []byte(`{"amount":100}`)

	first := s.signer.Sign(signer.ScopeAttestation, data)
	second := s.signer.Sign(signer.ScopeAttestation, data)

	s.Equal(first, second)
	s.Len(first, 64)
}

func (s *SignerSuite) TestVerifyDetectsTampering() {
	data := []byte(`{"amount":100}`)
	sig := s.signer.Sign(signer.ScopeAttestation, data)

	s.True(s.signer.Verify(signer.ScopeAttestation, data, sig))
	s.False(s.signer.Verify(signer.ScopeAttestation, []byte(`{"amount":999}`), sig))
}

func (s *SignerSuite) TestScopesAreIsolated() {
	data := []byte("payload")

	attSig := s.signer.Sign(signer.ScopeAttestation, data)

	s.NotEqual(attSig, s.signer.Sign(signer.ScopeCredential, data))
	s.False(s.signer.Verify(signer.ScopeCredential, data, attSig))
}

func (s *SignerSuite) TestIssuersAreIsolated() {
	other, err := signer.New("did:sigil:other", "test-secret")
	s.Require().NoError(err)

	data := []byte("payload")
	sig := s.signer.Sign(signer.ScopeAttestation, data)

	s.False(other.Verify(signer.ScopeAttestation, data, sig))
}

func (s *SignerSuite) TestCanonicalizeIsKeyOrderStable() {
	a, err := signer.Canonicalize(map[string]any{"b": 1, "a": map[string]any{"z": true, "y": "x"}})
	s.Require().NoError(err)
	b, err := signer.Canonicalize(map[string]any{"a": map[string]any{"y": "x", "z": true}, "b": 1})
	s.Require().NoError(err)

	s.Equal(a, b)
}

func (s *SignerSuite) TestProofValueRoundTrip() {
	digest := signer.Digest([]byte("credential bytes"))

	proof, err := s.signer.ProofValue(signer.ScopeCredential, digest)
	s.Require().NoError(err)

	s.Run("same input yields same proof", func() {
		again, err := s.signer.ProofValue(signer.ScopeCredential, digest)
		s.Require().NoError(err)
		s.Equal(proof, again)
	})

	s.Run("verifies against the digest", func() {
		s.True(s.signer.VerifyProofValue(signer.ScopeCredential, proof, digest))
	})

	s.Run("rejects a different digest", func() {
		s.False(s.signer.VerifyProofValue(signer.ScopeCredential, proof, signer.Digest([]byte("other"))))
	})

	s.Run("rejects a foreign issuer", func() {
		other, err := signer.New("did:sigil:other", "test-secret")
		s.Require().NoError(err)
		s.False(other.VerifyProofValue(signer.ScopeCredential, proof, digest))
	})
}

func (s *SignerSuite) TestDigestShape() {
	s.Len(signer.Digest([]byte("x")), 64)
	s.Equal(signer.Digest([]byte("x")), signer.Digest([]byte("x")))
}
