// Package password provides one-way hashing and verification for stored
// credentials. The adaptive scheme is bcrypt; bare SHA-256 digests left over
// from earlier deployments verify through a migration-only legacy path and
// are reported by NeedsRehash so callers can upgrade them on the next
// successful login.
package password

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Cost matches the bcrypt work factor already present in production hashes.
const Cost = 12

var ErrInvalidHash = errors.New("invalid hash format")

// Hash generates a salted bcrypt hash of the password.
func Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), Cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Verify checks whether the password matches the encoded hash. Legacy
// SHA-256 digests are compared in constant time; everything else must be a
// bcrypt hash.
func Verify(password, encodedHash string) (bool, error) {
	if isLegacyDigest(encodedHash) {
		digest := sha256.Sum256([]byte(password))
		want, err := hex.DecodeString(encodedHash)
		if err != nil {
			return false, ErrInvalidHash
		}
		return subtle.ConstantTimeCompare(digest[:], want) == 1, nil
	}

	if !strings.HasPrefix(encodedHash, "$2") {
		return false, ErrInvalidHash
	}

	err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// NeedsRehash reports whether the stored hash should be replaced with the
// adaptive scheme on the next successful verification.
func NeedsRehash(encodedHash string) bool {
	return isLegacyDigest(encodedHash)
}

// isLegacyDigest recognizes a bare hex-encoded SHA-256 digest.
func isLegacyDigest(encodedHash string) bool {
	if len(encodedHash) != 64 {
		return false
	}
	for _, c := range encodedHash {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
