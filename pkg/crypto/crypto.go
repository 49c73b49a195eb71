package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCodeCost is the bcrypt cost used for one-time code hashes.
const DefaultCodeCost = 10

var ten = big.NewInt(10)

// HashCode hashes a one-time code with bcrypt. A cost outside bcrypt's range
// falls back to DefaultCodeCost.
func HashCode(code string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCodeCost
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(code), cost)
	return string(bytes), err
}

// CheckCode compares a candidate code against a bcrypt hash.
func CheckCode(code, hash string) bool {
	if code == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
}

// GenerateNumericCode draws a fixed-width decimal code. Leading zeros are kept.
func GenerateNumericCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid code length %d", length)
	}
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("failed to generate random digit: %w", err)
		}
		out[i] = byte('0' + n.Int64())
	}
	return string(out), nil
}

// IsNumericCode reports whether code is exactly length ASCII digits.
func IsNumericCode(code string, length int) bool {
	if length <= 0 || len(code) != length {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

// GenerateRandomString produces a cryptographically random base64url string of n bytes.
func GenerateRandomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashToken returns the hex SHA-256 of an opaque token, used as its lookup key at rest.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
