package urlid

import (
	"fmt"
	"strings"
)

// DidUrl is a parsed "did:method:msid[/path][?query][#fragment]".
// Only did:key is required to resolve to a key; other methods parse
// but fail with DidMethodError when asked to resolve.
type DidUrl struct {
	Method   string
	MSID     string
	Path     string
	Query    string
	Fragment string
}

// DidMethodError reports a syntactically valid DID whose method this
// module does not know how to resolve.
type DidMethodError struct {
	Method string
}

func (e *DidMethodError) Error() string {
	return fmt.Sprintf("urlid: unsupported did method %q", e.Method)
}

// ParseDidUrl parses s as a DID URL. It does not require the method to
// be did:key — callers that need key resolution check Method themselves
// and get a *DidMethodError for anything else.
func ParseDidUrl(s string) (*DidUrl, error) {
	rest, ok := strings.CutPrefix(s, "did:")
	if !ok {
		return nil, fmt.Errorf("urlid: not a did url: %q", s)
	}

	method, rest, ok := strings.Cut(rest, ":")
	if !ok || method == "" {
		return nil, fmt.Errorf("urlid: missing did method in %q", s)
	}

	var fragment string
	if i := strings.IndexByte(rest, '#'); i >= 0 {
		fragment = rest[i+1:]
		rest = rest[:i]
	}

	var query string
	if i := strings.IndexByte(rest, '?'); i >= 0 {
		query = rest[i+1:]
		rest = rest[:i]
	}

	var path string
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		path = rest[i:]
		rest = rest[:i]
	}

	if rest == "" {
		return nil, fmt.Errorf("urlid: missing method-specific id in %q", s)
	}

	return &DidUrl{
		Method:   method,
		MSID:     rest,
		Path:     path,
		Query:    query,
		Fragment: fragment,
	}, nil
}

// Did returns the bare "did:method:msid" authority, without path,
// query, or fragment.
func (d *DidUrl) Did() string {
	return "did:" + d.Method + ":" + d.MSID
}

func (d *DidUrl) String() string {
	s := d.Did() + d.Path
	if d.Query != "" {
		s += "?" + d.Query
	}
	if d.Fragment != "" {
		s += "#" + d.Fragment
	}
	return s
}

// Origin for a DID subject is the DID itself: method plus
// method-specific-id, with no path/query/fragment. Two DID URLs share
// an origin iff they name the same DID subject.
func (d *DidUrl) Origin() Origin {
	return Origin{Scheme: "did", Host: d.Method + ":" + d.MSID}
}

// IsKey reports whether this is a did:key DID, the only method this
// module resolves to an actual public key.
func (d *DidUrl) IsKey() bool { return d.Method == "key" }

// ResolveKeyMultibase returns the multibase-encoded public key embedded
// in a did:key MSID (the "z..." portion after "did:key:"), or a
// *DidMethodError for any other method.
func (d *DidUrl) ResolveKeyMultibase() (string, error) {
	if !d.IsKey() {
		return "", &DidMethodError{Method: d.Method}
	}
	return d.MSID, nil
}
