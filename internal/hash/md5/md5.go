// Package md5 provides the content fingerprint hasher.
package md5

import (
	"crypto/md5" // #nosec G501 -- fingerprint is a content identity key, not a security primitive.
	"encoding/hex"
)

// Hasher implements fetch.Hasher using MD5.
type Hasher struct{}

// New returns an MD5 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash hashes the input and returns a hex digest.
func (h *Hasher) Hash(data []byte) (string, error) {
	sum := md5.Sum(data) // #nosec G401
	return hex.EncodeToString(sum[:]), nil
}
