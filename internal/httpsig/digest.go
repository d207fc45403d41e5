// Package httpsig signs and verifies HTTP message signatures: the
// deprecated but still widely deployed draft-cavage-http-signatures-10
// scheme, and its RFC-9421 successor. Both wire formats bind a request
// to a body through the same digest headers, so the digest logic is
// shared between them.
package httpsig

import (
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

// SetDigest sets the legacy draft-cavage "Digest" header to the
// SHA-256 digest of body.
func SetDigest(req *http.Request, body []byte) {
	sum := sha256.Sum256(body)
	req.Header.Set("Digest", "SHA-256="+base64.StdEncoding.EncodeToString(sum[:]))
}

// SetContentDigest sets the RFC-9530 "Content-Digest" header (sha-256
// member) to the digest of body.
func SetContentDigest(req *http.Request, body []byte) {
	sum := sha256.Sum256(body)
	req.Header.Set("Content-Digest", fmt.Sprintf("sha-256=:%s:", base64.StdEncoding.EncodeToString(sum[:])))
}

// VerifyDigest checks whichever of Content-Digest or legacy Digest is
// present against body. A request with a non-empty body and neither
// header is rejected outright — a signature cannot bind a body it
// never names.
func VerifyDigest(req *http.Request, body []byte) error {
	if cd := req.Header.Get("Content-Digest"); cd != "" {
		return verifyContentDigest(cd, body)
	}
	if d := req.Header.Get("Digest"); d != "" {
		return verifyLegacyDigest(d, body)
	}
	if len(body) > 0 {
		return fmt.Errorf("httpsig: body present but no Content-Digest or Digest header")
	}
	return nil
}

func verifyLegacyDigest(header string, body []byte) error {
	algo, value, ok := strings.Cut(header, "=")
	if !ok || !strings.EqualFold(algo, "SHA-256") {
		return fmt.Errorf("httpsig: unsupported Digest algorithm in %q", header)
	}
	sum := sha256.Sum256(body)
	want := base64.StdEncoding.EncodeToString(sum[:])
	if subtle.ConstantTimeCompare([]byte(value), []byte(want)) != 1 {
		return fmt.Errorf("httpsig: digest mismatch")
	}
	return nil
}

// verifyContentDigest parses a single-member RFC-9530 structured-field
// dictionary: "sha-256=:<base64>:". Multi-algorithm Content-Digest
// headers are not produced by this module and are rejected as
// unsupported rather than silently picking one member.
func verifyContentDigest(header string, body []byte) error {
	algo, value, ok := strings.Cut(header, "=")
	if !ok {
		return fmt.Errorf("httpsig: malformed Content-Digest %q", header)
	}
	value = strings.Trim(strings.TrimSpace(value), ":")
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return fmt.Errorf("httpsig: invalid Content-Digest encoding: %w", err)
	}

	var sum []byte
	switch strings.ToLower(strings.TrimSpace(algo)) {
	case "sha-256":
		s := sha256.Sum256(body)
		sum = s[:]
	case "sha-512":
		s := sha512.Sum512(body)
		sum = s[:]
	default:
		return fmt.Errorf("httpsig: unsupported Content-Digest algorithm %q", algo)
	}

	if subtle.ConstantTimeCompare(raw, sum) != 1 {
		return fmt.Errorf("httpsig: content-digest mismatch")
	}
	return nil
}
