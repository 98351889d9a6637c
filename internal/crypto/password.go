package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

const (
	saltLength = 16
	keyLength  = 64
)

// ErrInvalidCredentialFormat is returned when a stored hash cannot be decoded.
var ErrInvalidCredentialFormat = errors.New("invalid credential format")

// Hasher derives salted scrypt hashes encoded as "<hex key>.<hex salt>".
type Hasher struct {
	N int
	R int
	P int
}

// NewHasher creates a hasher with the given scrypt cost parameters.
func NewHasher(n, r, p int) *Hasher {
	return &Hasher{N: n, R: r, P: p}
}

// HashPassword salts and hashes a password.
func (h *Hasher) HashPassword(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	key, err := scrypt.Key([]byte(password), salt, h.N, h.R, h.P, keyLength)
	if err != nil {
		return "", fmt.Errorf("failed to derive key: %w", err)
	}

	return hex.EncodeToString(key) + "." + hex.EncodeToString(salt), nil
}

// VerifyPassword reports whether candidate matches the encoded hash. The
// comparison runs in constant time. A malformed hash yields false together
// with ErrInvalidCredentialFormat.
func (h *Hasher) VerifyPassword(candidate, encoded string) (bool, error) {
	keyHex, saltHex, ok := strings.Cut(encoded, ".")
	if !ok || keyHex == "" || saltHex == "" {
		return false, ErrInvalidCredentialFormat
	}

	stored, err := hex.DecodeString(keyHex)
	if err != nil {
		return false, fmt.Errorf("%w: key: %v", ErrInvalidCredentialFormat, err)
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false, fmt.Errorf("%w: salt: %v", ErrInvalidCredentialFormat, err)
	}

	derived, err := scrypt.Key([]byte(candidate), salt, h.N, h.R, h.P, len(stored))
	if err != nil {
		return false, fmt.Errorf("failed to derive key: %w", err)
	}

	return subtle.ConstantTimeCompare(derived, stored) == 1, nil
}
