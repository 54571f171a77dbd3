package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"strings"
)

// Authenticator validates the shared webhook secret presented by callers.
type Authenticator struct {
	secretDigest [sha256.Size]byte
}

func NewAuthenticator(secret string) (*Authenticator, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("api key secret is required")
	}

	return &Authenticator{secretDigest: sha256.Sum256([]byte(secret))}, nil
}

// Authenticate reports whether the presented key matches the configured
// secret. Both sides are hashed to fixed-length digests before a
// non-short-circuiting comparison, so the check runs in time independent of
// the position of the first differing byte and of the presented key length.
// Absent or empty keys are rejected outright.
func (a *Authenticator) Authenticate(presentedKey string) bool {
	if a == nil || presentedKey == "" {
		return false
	}

	presentedDigest := sha256.Sum256([]byte(presentedKey))
	return subtle.ConstantTimeCompare(presentedDigest[:], a.secretDigest[:]) == 1
}
