package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateNumericCode returns a zero-padded random decimal code of the given length.
func GenerateNumericCode(length int) (string, error) {
	if length <= 0 || length > 12 {
		return "", fmt.Errorf("code length must be between 1 and 12")
	}
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", length, n), nil
}

// GenerateUpperAlnum returns a random string over A-Z0-9.
func GenerateUpperAlnum(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("length must be positive")
	}
	var b strings.Builder
	limit := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// HashCode derives a keyed digest of a short-lived code so plaintext codes never hit storage.
func HashCode(secret, subject, code string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(subject))
	mac.Write([]byte{0})
	mac.Write([]byte(code))
	return hex.EncodeToString(mac.Sum(nil))
}

// EqualCodeHash compares two digests in constant time.
func EqualCodeHash(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}
