// Package security provides MARCout's DSL-source content hashing: the
// engine cache keys and compares compiled definitions by a SHA-256 of
// their source text rather than by the text itself, the same hash
// shape the teacher used for upload integrity, narrowed down to just
// the calls enginecache actually makes.
package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// Hash represents a SHA-256 hash (32 bytes)
type Hash [32]byte

// CalculateDataHash computes the SHA-256 hash of byte data
func CalculateDataHash(data []byte) *Hash {
	hashArray := sha256.Sum256(data)
	hash := Hash(hashArray)
	return &hash
}

// String returns the hash as a hex string
func (h *Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Equal compares two hashes using constant-time comparison, so a
// replica checking whether its cached Engine is stale never leaks
// timing information about how much of the two hex digests match.
func (h *Hash) Equal(other *Hash) bool {
	if other == nil {
		return false
	}
	return subtle.ConstantTimeCompare(h[:], other[:]) == 1
}

// FromHexString creates a Hash from a hex string, used to parse the
// hash another replica last recorded in Redis back into comparable form.
func FromHexString(s string) (*Hash, error) {
	bytes, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex string: %w", err)
	}

	if len(bytes) != 32 {
		return nil, fmt.Errorf("invalid hash length: expected 32 bytes, got %d", len(bytes))
	}

	var hash Hash
	copy(hash[:], bytes)
	return &hash, nil
}
