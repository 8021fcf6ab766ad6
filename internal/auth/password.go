package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	digestKeyLen = 32
	digestLen    = 64

	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 2
)

// HashPassword derives a random per-user key and the keyed digest of password.
func HashPassword(password string) (digest, key []byte, err error) {
	key = make([]byte, digestKeyLen)
	if _, err := rand.Read(key); err != nil {
		return nil, nil, fmt.Errorf("generate digest key: %w", err)
	}
	return computeDigest(password, key), key, nil
}

// VerifyPassword recomputes the digest with the stored key and compares in constant time.
func VerifyPassword(password string, digest, key []byte) bool {
	if len(digest) == 0 || len(key) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(computeDigest(password, key), digest) == 1
}

func computeDigest(password string, key []byte) []byte {
	return argon2.IDKey([]byte(password), key, argonTime, argonMemory, argonThreads, digestLen)
}
