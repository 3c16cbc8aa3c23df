// Package deeplink signs and verifies the protect links sent to users
package deeplink

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"

	apperrors "blendguard/pkg/errors"
)

// ErrNoSecret is returned when the signer has no secret configured
var ErrNoSecret = fmt.Errorf("deeplink secret %w", apperrors.ErrNotConfigured)

// Signer produces HMAC-SHA256 signatures over "positionID:userID"
type Signer struct {
	secret      []byte
	frontendURL string
}

// NewSigner creates a signer for links under frontendURL
func NewSigner(secret, frontendURL string) *Signer {
	return &Signer{
		secret:      []byte(secret),
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

// Enabled reports whether a secret is configured. Without one no link can be
// signed or verified.
func (s *Signer) Enabled() bool {
	return len(s.secret) > 0
}

// Sign returns the lowercase hex signature for a position/user pair
func (s *Signer) Sign(positionID, userID string) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrNoSecret
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(positionID + ":" + userID))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Generate builds the signed protect URL
func (s *Signer) Generate(positionID, userID string) (string, error) {
	sig, err := s.Sign(positionID, userID)
	if err != nil {
		return "", fmt.Errorf("failed to sign deeplink: %w", err)
	}
	return fmt.Sprintf("%s/protect/?pos=%s&user=%s&sig=%s",
		s.frontendURL, url.QueryEscape(positionID), url.QueryEscape(userID), sig), nil
}

// Verify checks a signature in constant time. Any signing failure counts as invalid.
func (s *Signer) Verify(positionID, userID, signature string) bool {
	expected, err := s.Sign(positionID, userID)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(signature), []byte(expected))
}
