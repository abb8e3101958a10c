package utils

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

const (
	scryptN      = 32768
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 64
	saltBytes    = 16
)

// HashPassword derives a scrypt hash with a fresh random salt. The stored
// form is "scrypt$<salt>$<digestHex>" so the algorithm can be swapped later
// without invalidating existing hashes.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	saltHex := hex.EncodeToString(salt)
	derived, err := scrypt.Key([]byte(password), []byte(saltHex), scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return "", fmt.Errorf("deriving key: %w", err)
	}

	return fmt.Sprintf("scrypt$%s$%s", saltHex, hex.EncodeToString(derived)), nil
}

// VerifyPassword reports whether password matches the stored hash. Malformed
// or unrecognized stored values verify as false; this never panics or
// returns an error. The digest comparison is constant-time.
func VerifyPassword(password, stored string) bool {
	parts := strings.Split(stored, "$")
	if len(parts) != 3 || parts[0] != "scrypt" {
		return false
	}

	expected, err := hex.DecodeString(parts[2])
	if err != nil {
		return false
	}

	derived, err := scrypt.Key([]byte(password), []byte(parts[1]), scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return false
	}

	if len(expected) != len(derived) {
		return false
	}

	return subtle.ConstantTimeCompare(expected, derived) == 1
}
