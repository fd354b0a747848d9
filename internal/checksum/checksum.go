// Package checksum fingerprints vault content for optimistic concurrency checks.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Of is Sum for text content.
func Of(content string) string {
	return Sum([]byte(content))
}

// Matches reports whether data still has the expected digest.
// An empty expectation always matches.
func Matches(data []byte, want string) bool {
	return want == "" || Sum(data) == want
}
