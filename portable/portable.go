// Package portable implements FEP-ef61 portable objects: parsing and
// canonicalizing "ap://did:.../path" identifiers, selecting a gateway
// to fetch a portable object through, rewriting a canonical id into
// the HTTPS-compatible URL a gateway serves it at, and applying the
// caller's trusted-origins allowlist. It generalizes
// other_examples/dimkr-tootik__id.go's regex-based Canonicalize/
// Gateway/GetOrigin helpers (did:key only) onto the full
// internal/urlid.ApUrl/DidUrl grammar those already implement.
package portable

import (
	"fmt"
	"strings"

	"github.com/apxfed/apx/internal/urlid"
)

// IsPortable reports whether id names a portable object: an "ap://"
// URL, or an id already rewritten as a gateway-compatible HTTPS URL
// under "/.well-known/apgateway/did:...".
func IsPortable(id string) bool {
	if strings.HasPrefix(id, "ap://") {
		return true
	}
	return strings.Contains(id, "/.well-known/apgateway/did:")
}

// Canonicalize rewrites id to its canonical "ap://did:.../path" form.
// A gateway-compatible HTTPS URL is rewritten by extracting the
// did:... segment after "/.well-known/apgateway/"; an id that is
// already an ap:// URL, or not portable at all, is returned unchanged
// (after validating it parses, for the ap:// case).
func Canonicalize(id string) (string, error) {
	if strings.HasPrefix(id, "ap://") {
		u, err := urlid.ParseApUrl(id)
		if err != nil {
			return "", err
		}
		return u.Canonical(), nil
	}

	if i := strings.Index(id, "/.well-known/apgateway/"); i >= 0 {
		rest := id[i+len("/.well-known/apgateway/"):]
		u, err := urlid.ParseApUrl("ap://" + rest)
		if err != nil {
			return "", fmt.Errorf("portable: invalid gateway-compatible id %q: %w", id, err)
		}
		return u.Canonical(), nil
	}

	return id, nil
}

// Gateways lists the HTTP locations a portable actor publishes as
// alternative retrieval points for its own objects, in publication
// order. It is the actor document's "gateways" field, already decoded
// by the caller — this package only consumes it, since parsing the
// containing actor document is the fetcher/activity packages' job.
type Gateways []*urlid.HttpUrl

// ParseGateways parses a raw "gateways" array (as decoded from JSON:
// []any of strings) into HttpUrls, skipping entries that fail to
// parse rather than failing the whole actor document.
func ParseGateways(raw []any) Gateways {
	var out Gateways
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			continue
		}
		u, err := urlid.ParseHttpUrl(s)
		if err != nil {
			continue
		}
		out = append(out, u)
	}
	return out
}

// SelectGateway picks the first gateway in the list — publication
// order is the actor's stated preference, and verification is
// identical regardless of which gateway serves the bytes, so there is
// no reason to prefer any other one. Returns an error if the list is
// empty.
func SelectGateway(gateways Gateways) (*urlid.HttpUrl, error) {
	if len(gateways) == 0 {
		return nil, fmt.Errorf("portable: no gateways available")
	}
	return gateways[0], nil
}

// CompatibleID renders the HTTPS URL a specific gateway serves
// canonicalID (an "ap://did:.../path" string) at.
func CompatibleID(canonicalID string, gateway *urlid.HttpUrl) (string, error) {
	u, err := urlid.ParseApUrl(canonicalID)
	if err != nil {
		return "", fmt.Errorf("portable: %w", err)
	}
	return u.CompatibleID(gateway), nil
}

// TrustedOrigins is a caller-supplied allowlist of HTTP origins
// permitted to serve portable objects without their responding origin
// needing to match anything derived from the canonical id — the proof
// still must verify regardless. This resolves the chicken-and-egg
// between HTTP origin checks and cryptographic authority: an operator
// who has pre-vetted a gateway (e.g. their own instance's) can skip
// that check for it.
type TrustedOrigins []string

// Allows reports whether origin (a scheme://host[:port] string, as
// produced by internal/transport when resolving a response's final
// URL) is in the allowlist. An empty allowlist trusts no origin beyond
// the object's own cryptographic proof — which is always required
// regardless of this check.
func (t TrustedOrigins) Allows(origin string) bool {
	for _, o := range t {
		if o == origin {
			return true
		}
	}
	return false
}

// ResolveKeyMethod reports whether id's DID authority uses a method
// this module can resolve to a public key. Only did:key is supported,
// per spec; other methods parse but are rejected here with
// *urlid.DidMethodError so callers can distinguish "malformed id" from
// "id names a DID method we don't support".
func ResolveKeyMethod(id string) error {
	u, err := urlid.ParseApUrl(id)
	if err != nil {
		return err
	}
	if !u.Authority.IsKey() {
		return &urlid.DidMethodError{Method: u.Authority.Method}
	}
	return nil
}
