// ABOUTME: Password hashing and verification built on bcrypt
// ABOUTME: The hash is opaque to every other layer; plaintext never leaves this package's callers

package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// dummyHash is compared against when no credential exists, so a login probe
// for an unknown email costs the same time as a real comparison.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// HashPassword returns the bcrypt hash of a plaintext password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the stored hash.
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// VerifyDummy performs a throwaway comparison to keep login timing constant
// when the account or credential does not exist.
func VerifyDummy(password string) {
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
}
