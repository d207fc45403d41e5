package httpsig

import (
	"crypto"
	"crypto/ed25519"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	gofedhttpsig "github.com/go-fed/httpsig"

	"github.com/apxfed/apx/internal/xcrypto"
)

// RequestTarget is the draft-cavage pseudo-header covering the
// lowercase method and path+query.
const RequestTarget = gofedhttpsig.RequestTarget

var cavageHeadersNoBody = []string{RequestTarget, "host", "date"}
var cavageHeadersWithBody = []string{RequestTarget, "host", "date", "digest"}

func cavageAlgorithm(t xcrypto.KeyType) (gofedhttpsig.Algorithm, error) {
	switch t {
	case xcrypto.KeyTypeRSA:
		return gofedhttpsig.RSA_SHA256, nil
	case xcrypto.KeyTypeEd25519:
		return gofedhttpsig.ED25519, nil
	default:
		return "", fmt.Errorf("httpsig: key type %s has no draft-cavage algorithm", t)
	}
}

func cavagePrivateKey(key xcrypto.SecretKey) (crypto.PrivateKey, error) {
	switch k := key.(type) {
	case *xcrypto.RSASecretKey:
		return k.Key, nil
	case *xcrypto.Ed25519SecretKey:
		return k.Key, nil
	default:
		return nil, fmt.Errorf("httpsig: key type %T not usable with draft-cavage", key)
	}
}

func cavagePublicKey(key xcrypto.PublicKey) (crypto.PublicKey, error) {
	switch k := key.(type) {
	case *xcrypto.RSAPublicKey:
		return k.Key, nil
	case *xcrypto.Ed25519PublicKey:
		return ed25519.PublicKey(k.Key), nil
	default:
		return nil, fmt.Errorf("httpsig: key type %T not usable with draft-cavage", key)
	}
}

// SignCavage signs req under keyID using draft-cavage-http-signatures-10.
// It covers (request-target), host, and date, plus digest when body is
// non-empty — the teacher's RSA-only signing string builder generalized
// to both key families by delegating to go-fed/httpsig's own signer
// instead of hand-concatenating headers.
func SignCavage(req *http.Request, keyID string, key xcrypto.SecretKey, body []byte) error {
	algo, err := cavageAlgorithm(key.Type())
	if err != nil {
		return err
	}
	priv, err := cavagePrivateKey(key)
	if err != nil {
		return err
	}

	// go-fed/httpsig computes and sets the Digest header itself when body
	// is non-nil, and reads "host" from req.Header, which an outgoing
	// request built by http.NewRequest carries only in req.Host.
	headers := cavageHeadersNoBody
	if len(body) > 0 {
		headers = cavageHeadersWithBody
	}
	if req.Header.Get("Host") == "" {
		req.Header.Set("Host", req.Host)
	}

	signer, _, err := gofedhttpsig.NewSigner([]gofedhttpsig.Algorithm{algo}, gofedhttpsig.DigestSha256, headers, gofedhttpsig.Signature, 0)
	if err != nil {
		return err
	}

	req.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))
	return signer.SignRequest(priv, keyID, req, body)
}

// ParsedCavageSignature is the decomposed form of a draft-cavage
// Signature header. It exists separately from go-fed/httpsig.Verifier
// because that type does not expose which headers it parsed — and this
// module must reject signatures that skip covering the request target
// or a present body's digest, not merely ones that fail cryptographically.
type ParsedCavageSignature struct {
	KeyID     string
	Algorithm string
	Headers   []string
	Created   time.Time  // zero if the signature carries no "created" param
	Expires   *time.Time // nil if the signature carries no "expires" param
}

// ParseCavageSignature parses the request's draft-cavage Signature
// header without verifying it.
func ParseCavageSignature(req *http.Request) (*ParsedCavageSignature, error) {
	header := req.Header.Get("Signature")
	if header == "" {
		return nil, fmt.Errorf("httpsig: Signature header missing")
	}

	parsed := &ParsedCavageSignature{}
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		v = strings.Trim(strings.TrimSpace(v), `"`)
		switch k {
		case "keyId":
			parsed.KeyID = v
		case "algorithm":
			parsed.Algorithm = v
		case "headers":
			parsed.Headers = strings.Fields(v)
		case "created":
			if sec, err := strconv.ParseInt(v, 10, 64); err == nil {
				parsed.Created = time.Unix(sec, 0).UTC()
			}
		case "expires":
			if sec, err := strconv.ParseInt(v, 10, 64); err == nil {
				t := time.Unix(sec, 0).UTC()
				parsed.Expires = &t
			}
		}
	}

	if parsed.KeyID == "" {
		return nil, fmt.Errorf("httpsig: Signature header missing keyId")
	}
	if len(parsed.Headers) == 0 {
		// draft-cavage defaults to signing just "date" when headers is omitted.
		parsed.Headers = []string{"date"}
	}
	return parsed, nil
}

// dateSkew reports the request's Date header drift from now, and
// whether a usable Date header was present at all.
func dateSkew(req *http.Request, now time.Time) (time.Duration, bool) {
	v := req.Header.Get("Date")
	if v == "" {
		return 0, false
	}
	t, err := http.ParseTime(v)
	if err != nil {
		return 0, false
	}
	return now.Sub(t), true
}

func (p *ParsedCavageSignature) coversRequiredHeaders(hasBody bool) error {
	covered := make(map[string]bool, len(p.Headers))
	for _, h := range p.Headers {
		covered[strings.ToLower(h)] = true
	}
	if !covered[RequestTarget] {
		return fmt.Errorf("httpsig: signature does not cover request target")
	}
	if hasBody && !covered["digest"] && !covered["content-digest"] {
		return fmt.Errorf("httpsig: signature does not cover digest of a non-empty body")
	}
	return nil
}

// VerifyCavage verifies req's draft-cavage Signature header against
// key, enforcing that the signature covers the request target and, if
// body is non-empty, the digest — then checks the digest itself
// matches body, and the request's clock skew, before deferring the
// cryptographic check to go-fed/httpsig. A "created"/"expires" param on
// the Signature header is checked against the same SkewTolerance the
// RFC-9421 path uses; draft-cavage requests carrying neither fall back
// to the Date header the scheme always requires.
func VerifyCavage(req *http.Request, body []byte, key xcrypto.PublicKey, now time.Time) (*ParsedCavageSignature, error) {
	parsed, err := ParseCavageSignature(req)
	if err != nil {
		return nil, err
	}
	if err := parsed.coversRequiredHeaders(len(body) > 0); err != nil {
		return nil, err
	}
	if err := VerifyDigest(req, body); err != nil {
		return nil, err
	}

	if !parsed.Created.IsZero() {
		drift := now.Sub(parsed.Created)
		if drift > SkewTolerance || drift < -SkewTolerance {
			return nil, fmt.Errorf("httpsig: created timestamp outside skew tolerance")
		}
	} else if drift, ok := dateSkew(req, now); ok {
		if drift > SkewTolerance || drift < -SkewTolerance {
			return nil, fmt.Errorf("httpsig: date header outside skew tolerance")
		}
	}
	if parsed.Expires != nil && parsed.Expires.Before(now) {
		return nil, fmt.Errorf("httpsig: signature expired")
	}

	algo, err := cavageAlgorithm(key.Type())
	if err != nil {
		return nil, err
	}
	pub, err := cavagePublicKey(key)
	if err != nil {
		return nil, err
	}

	// A server-side request carries Host only in req.Host; go-fed/httpsig
	// reads it from req.Header when rebuilding the signing string.
	if req.Header.Get("Host") == "" && req.Host != "" {
		req.Header.Set("Host", req.Host)
	}
	verifier, err := gofedhttpsig.NewVerifier(req)
	if err != nil {
		return nil, fmt.Errorf("httpsig: %w", err)
	}
	if verifier.KeyId() != parsed.KeyID {
		return nil, fmt.Errorf("httpsig: keyId mismatch")
	}
	if err := verifier.Verify(pub, algo); err != nil {
		return nil, fmt.Errorf("httpsig: signature verification failed: %w", err)
	}
	return parsed, nil
}
