package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"

	"github.com/rs/zerolog"

	"video-generation-api/internal/domain"
)

const minKeyLen = 16

// Fingerprint derives the stable lookup key for a credential: hex-encoded
// SHA-256. The raw credential is never stored or logged.
func Fingerprint(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:])
}

// ValidKeyFormat applies the cheap pre-checks: minimum length and a
// URL-safe character set.
func ValidKeyFormat(apiKey string) bool {
	if len(apiKey) < minKeyLen {
		return false
	}
	for _, r := range apiKey {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}

// Authenticator verifies an opaque caller credential against the
// configured set.
type Authenticator struct {
	fingerprints [][]byte // decoded fingerprints of valid keys
	log          *zerolog.Logger
}

func NewAuthenticator(apiKeys []string, logger *zerolog.Logger) *Authenticator {
	compLog := logger.With().Str("component", "Authenticator").Logger()
	a := &Authenticator{log: &compLog}
	for _, k := range apiKeys {
		sum := sha256.Sum256([]byte(k))
		a.fingerprints = append(a.fingerprints, sum[:])
	}
	return a
}

// Verify returns the credential's fingerprint on success. The comparison
// always scans every configured candidate and aggregates the outcome, so
// execution time does not depend on where a mismatch occurs or which
// candidate would have matched.
func (a *Authenticator) Verify(apiKey string) (string, error) {
	if apiKey == "" {
		return "", domain.Authenticationf("missing API key")
	}
	if !ValidKeyFormat(apiKey) {
		return "", domain.Authenticationf("invalid API key format")
	}

	sum := sha256.Sum256([]byte(apiKey))
	match := 0
	for _, candidate := range a.fingerprints {
		match |= subtle.ConstantTimeCompare(sum[:], candidate)
	}
	if match != 1 {
		// Log a short non-identifying prefix only.
		a.log.Warn().Str("key_prefix", keyPrefix(apiKey)).Msg("authentication failed")
		return "", domain.Authenticationf("invalid API key")
	}
	return hex.EncodeToString(sum[:]), nil
}

func keyPrefix(apiKey string) string {
	if len(apiKey) < 4 {
		return "***"
	}
	return apiKey[:4] + "..."
}

// GenerateKey produces a new URL-safe random credential (32 bytes of
// entropy, 43 characters).
func GenerateKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
