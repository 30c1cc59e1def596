// Package jcs hashes JSON documents over their RFC 8785 canonical form.
// Container metadata identities are digests of a canonical JSON view, so two
// configs that differ only in key order or whitespace hash identically.
package jcs

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/gowebpki/jcs"
)

// Canonicalize returns the RFC 8785 (JCS) canonical form of input.
func Canonicalize(input []byte) ([]byte, error) {
	return jcs.Transform(input)
}

// Digest canonicalizes input and returns the sha256 hex digest of the
// canonical form.
func Digest(input []byte) (string, error) {
	canonical, err := Canonicalize(input)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
