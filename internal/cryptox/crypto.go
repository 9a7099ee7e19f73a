// Package cryptox derives login keys from passwords.
//
// The password never leaves the device: the client derives a master key with
// Argon2id and sends only a SHA-256 verifier of it.
package cryptox

import (
	"crypto/sha256"
	"crypto/subtle"

	"golang.org/x/crypto/argon2"
)

const (
	SaltSize = 16
	KeySize  = 32
)

func MakeVerifier(masterKey []byte) []byte {
	hash := sha256.Sum256(masterKey)
	return hash[:]
}

func DeriveMasterKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, KeySize)
}

// VerifierMatches compares two verifiers in constant time.
func VerifierMatches(stored, candidate []byte) bool {
	return len(stored) > 0 && subtle.ConstantTimeCompare(stored, candidate) == 1
}
