package urlid

import (
	"fmt"
	"strings"
)

// ApUrl is a portable object identifier: "ap://<authority>/<path>"
// where authority is a DID (did:key:z... today, per spec). Unlike
// HttpUrl, the authority is not a DNS name — it is derivable from a
// public key the object or its owner commits to.
type ApUrl struct {
	Authority *DidUrl
	Path      string
	Query     string
	Fragment  string
}

// ParseApUrl parses "ap://did:method:msid[/path][?query][#fragment]".
func ParseApUrl(s string) (*ApUrl, error) {
	rest, ok := strings.CutPrefix(s, "ap://")
	if !ok {
		return nil, fmt.Errorf("urlid: not an ap:// url: %q", s)
	}

	did, err := ParseDidUrl(rest)
	if err != nil {
		return nil, fmt.Errorf("urlid: invalid ap:// authority: %w", err)
	}

	return &ApUrl{
		Authority: &DidUrl{Method: did.Method, MSID: did.MSID},
		Path:      did.Path,
		Query:     did.Query,
		Fragment:  did.Fragment,
	}, nil
}

// String renders the ap:// url including query and fragment.
func (u *ApUrl) String() string {
	s := "ap://" + u.Authority.Did() + u.Path
	if u.Query != "" {
		s += "?" + u.Query
	}
	if u.Fragment != "" {
		s += "#" + u.Fragment
	}
	return s
}

// Canonical strips query and fragment — the form used as an identifier
// for storage and cross-origin comparison.
func (u *ApUrl) Canonical() string {
	return "ap://" + u.Authority.Did() + u.Path
}

// Origin of a portable object is its DID authority.
func (u *ApUrl) Origin() Origin {
	return u.Authority.Origin()
}

// CompatibleID renders the HTTPS URL a gateway serves this object at:
// "https://<gateway host>/.well-known/apgateway/<did>/<path>".
func (u *ApUrl) CompatibleID(gateway *HttpUrl) string {
	base := strings.TrimSuffix(gateway.String(), "/")
	return base + "/.well-known/apgateway/" + u.Authority.Did() + u.Path
}
