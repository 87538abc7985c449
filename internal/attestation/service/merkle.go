package service

import (
	"encoding/hex"
	"time"

	"sigil/internal/attestation/models"
	"sigil/internal/signer"
	dErrors "sigil/pkg/domain-errors"
)

// MerkleRoot builds a Merkle tree over the content hashes of the given
// attestations and returns the hex root. An empty batch yields the hash of
// the empty byte string; a single attestation yields its own hash. Leaf order
// matters, and the same ordered batch always produces the same root.
//
// Roots summarize large attestation batches into one value cheap enough to
// anchor externally.
func (s *Service) MerkleRoot(attestations []models.Attestation) (string, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveMerkle(start)
		}
	}()

	if len(attestations) == 0 {
		return signer.Digest(nil), nil
	}

	level := make([]string, 0, len(attestations))
	for _, att := range attestations {
		hash, err := s.Hash(att)
		if err != nil {
			return "", err
		}
		level = append(level, hash)
	}

	for len(level) > 1 {
		next := make([]string, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				// Odd leaf is promoted unchanged to the next level.
				next = append(next, level[i])
				continue
			}
			combined, err := combinePair(level[i], level[i+1])
			if err != nil {
				return "", err
			}
			next = append(next, combined)
		}
		level = next
	}
	return level[0], nil
}

// combinePair hashes the concatenated raw bytes of two hex node hashes.
func combinePair(left, right string) (string, error) {
	lb, err := hex.DecodeString(left)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "invalid merkle node")
	}
	rb, err := hex.DecodeString(right)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "invalid merkle node")
	}
	return signer.Digest(append(lb, rb...)), nil
}
