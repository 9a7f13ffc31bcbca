// Package sha256 derives stable hex identifiers from strings.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hasher implements publisher.Hasher using SHA-256.
type Hasher struct{}

// New returns a SHA-256 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash returns the lowercase hex digest of s.
func (h *Hasher) Hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
