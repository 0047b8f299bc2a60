// Package signature implements the shared-secret request authentication
// used between the customer portal and the ingestion endpoint. Both sides
// compute HMAC-SHA256 over the raw request body and carry the digest in an
// `x-signature: sha256=<hex>` header.
//
// The verifier runs on raw bytes exactly as received. Never re-serialize
// JSON before checking: re-serialization is not byte-stable.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Prefix is the required scheme prefix in the signature header.
const Prefix = "sha256="

// Verifier checks inbound webhook signatures against a shared secret.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier. An empty secret yields a verifier that
// rejects everything: an unconfigured secret is a deployment error, not an
// open door.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Sign returns the header value for a request body, including the prefix.
func (v *Verifier) Sign(body []byte) string {
	h := hmac.New(sha256.New, v.secret)
	h.Write(body)
	return Prefix + hex.EncodeToString(h.Sum(nil))
}

// Verify reports whether header carries a valid signature for body.
// Malformed headers are invalid, never an error. Comparison is
// constant-time via hmac.Equal.
func (v *Verifier) Verify(body []byte, header string) bool {
	if len(v.secret) == 0 {
		return false
	}
	if !strings.HasPrefix(header, Prefix) {
		return false
	}
	supplied, err := hex.DecodeString(strings.TrimPrefix(header, Prefix))
	if err != nil {
		return false
	}
	h := hmac.New(sha256.New, v.secret)
	h.Write(body)
	return hmac.Equal(h.Sum(nil), supplied)
}
