package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"
)

const (
	SignatureHeader = "X-Hub-Signature-256"
	signaturePrefix = "sha256="
)

var (
	ErrSignatureMissing  = errors.New("signature header is required")
	ErrSignatureMismatch = errors.New("invalid signature")
)

// VerifySignature checks an X-Hub-Signature-256 header against the HMAC-SHA256
// of body keyed with the app secret.
func VerifySignature(secret, header string, body []byte) error {
	signature := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(header), signaturePrefix))
	if signature == "" {
		return ErrSignatureMissing
	}
	decoded, err := hex.DecodeString(signature)
	if err != nil {
		return ErrSignatureMismatch
	}

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	if !hmac.Equal(decoded, mac.Sum(nil)) {
		return ErrSignatureMismatch
	}
	return nil
}

// Sign returns the header value the platform would send for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}
