// Package passwd hashes user passwords. The digest is the lowercase hex
// SHA-256 of the UTF-8 password bytes, unsalted, so stores written by
// earlier deployments keep verifying.
package passwd

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Hash returns the stored form of password.
func Hash(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Matches reports whether password hashes to stored.
func Matches(stored, password string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(Hash(password))) == 1
}
