package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

// Verifier authenticates inbound webhook payloads against the shared app
// secret. Verification is signature-over-raw-bytes: the body must be the
// exact byte sequence Shopify sent, before any re-serialization.
type Verifier struct {
	secret []byte
}

// NewVerifier fails when the secret is empty so a misconfigured deployment
// refuses to start instead of silently accepting unsigned payloads.
func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, errors.New("shopify webhook secret is not configured")
	}
	return &Verifier{secret: []byte(secret)}, nil
}

// Verify reports whether signature is the base64-encoded HMAC-SHA256 of body
// under the app secret. A missing signature is rejected before any hash is
// computed. The comparison is constant time.
func (v *Verifier) Verify(body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	return hmac.Equal([]byte(v.Sign(body)), []byte(signature))
}

// Sign returns the base64-encoded HMAC-SHA256 of body.
func (v *Verifier) Sign(body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
