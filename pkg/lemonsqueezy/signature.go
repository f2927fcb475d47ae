package lemonsqueezy

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

var (
	// ErrMissingSignature indicates the request carried no signature header at all.
	ErrMissingSignature = errors.New("signature header is required")
	// ErrInvalidSignature indicates the signature did not match the payload.
	ErrInvalidSignature = errors.New("signature mismatch")
	// ErrSigningSecretRequired indicates a process misconfiguration.
	ErrSigningSecretRequired = errors.New("signing secret is required")
)

// VerifySignature checks the hex-encoded HMAC-SHA256 signature of the exact
// raw body bytes against the shared signing secret. Comparison is constant
// time. The body must not be re-serialized before verification.
func VerifySignature(secret string, body []byte, signatureHeader string) error {
	if strings.TrimSpace(secret) == "" {
		return ErrSigningSecretRequired
	}
	header := strings.TrimSpace(signatureHeader)
	if header == "" {
		return ErrMissingSignature
	}

	provided, err := hex.DecodeString(header)
	if err != nil {
		return ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(mac.Sum(nil), provided) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign computes the hex-encoded HMAC-SHA256 signature for the payload.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
