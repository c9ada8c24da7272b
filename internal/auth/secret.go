package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// secretBytes is the entropy of a verification token: 32 random bytes,
// mailed as 64 hex characters.
const secretBytes = 32

// NewVerificationSecret returns a fresh random token for verification and
// password reset links.
func NewVerificationSecret() (string, error) {
	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("auth: generating verification secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
