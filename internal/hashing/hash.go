// Package hashing computes the content fingerprint stored with every document.
package hashing

import (
	"crypto/subtle"
	"encoding/hex"

	sha256 "github.com/minio/sha256-simd"
)

// Hash returns the lowercase hex SHA-256 digest of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Matches reports whether data hashes to the expected digest. The comparison runs in constant time.
func Matches(data []byte, expected string) bool {
	return subtle.ConstantTimeCompare([]byte(Hash(data)), []byte(expected)) == 1
}
