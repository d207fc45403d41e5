// Package urlid implements the URL and identifier model: HttpUrl,
// ApUrl (portable, FEP-ef61), DidUrl, and VerificationMethod, plus the
// origin-equality rules same-origin checks throughout the federation
// core depend on.
package urlid

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/idna"
)

// HttpUrl is a validated http(s) URL: scheme in {http, https}, no
// userinfo, a lowercase IDN-A host, and (if present) a port in range.
// HttpUrl.String always round-trips through ParseHttpUrl.
type HttpUrl struct {
	scheme string
	host   string // lowercase IDN-A label or literal IP
	port   string // empty if default for scheme
	path   string
	query  string
	frag   string
}

// ParseHttpUrl parses and validates s as an HttpUrl, rejecting anything
// the spec's invariants don't allow.
func ParseHttpUrl(s string) (*HttpUrl, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("urlid: invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("urlid: unsupported scheme %q", u.Scheme)
	}
	if u.User != nil {
		return nil, fmt.Errorf("urlid: userinfo not allowed in %q", s)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("urlid: empty host in %q", s)
	}

	host := u.Hostname()
	if !isLiteralIP(host) {
		lower := strings.ToLower(host)
		encoded, err := idna.Lookup.ToASCII(lower)
		if err != nil {
			return nil, fmt.Errorf("urlid: invalid idn host %q: %w", host, err)
		}
		host = encoded
	}

	port := u.Port()
	if port != "" {
		n, err := strconv.Atoi(port)
		if err != nil || n < 1 || n > 65535 {
			return nil, fmt.Errorf("urlid: invalid port %q", port)
		}
	}

	return &HttpUrl{
		scheme: u.Scheme,
		host:   host,
		port:   port,
		path:   u.EscapedPath(),
		query:  u.RawQuery,
		frag:   u.EscapedFragment(),
	}, nil
}

func isLiteralIP(host string) bool {
	return net.ParseIP(host) != nil
}

// String renders the canonical form of the URL. parse(String()) == u.
func (u *HttpUrl) String() string {
	var b strings.Builder
	b.WriteString(u.scheme)
	b.WriteString("://")
	if strings.Contains(u.host, ":") {
		// IPv6 literal: brackets keep its colons apart from the port.
		b.WriteByte('[')
		b.WriteString(u.host)
		b.WriteByte(']')
	} else {
		b.WriteString(u.host)
	}
	if u.port != "" {
		b.WriteByte(':')
		b.WriteString(u.port)
	}
	if u.path == "" {
		b.WriteByte('/')
	} else {
		b.WriteString(u.path)
	}
	if u.query != "" {
		b.WriteByte('?')
		b.WriteString(u.query)
	}
	if u.frag != "" {
		b.WriteByte('#')
		b.WriteString(u.frag)
	}
	return b.String()
}

func (u *HttpUrl) Scheme() string { return u.scheme }
func (u *HttpUrl) Host() string   { return u.host }
func (u *HttpUrl) Port() string   { return u.port }
func (u *HttpUrl) Path() string   { return u.path }

// IsOnion reports whether the host is a Tor hidden service address.
func (u *HttpUrl) IsOnion() bool { return strings.HasSuffix(u.host, ".onion") }

// IsI2P reports whether the host is an I2P or Lokinet address.
func (u *HttpUrl) IsI2P() bool {
	return strings.HasSuffix(u.host, ".i2p") || strings.HasSuffix(u.host, ".loki")
}

// Origin returns the scheme+host+port triple used for same-origin checks.
func (u *HttpUrl) Origin() Origin {
	return Origin{Scheme: u.scheme, Host: u.host, Port: u.port}
}

// Origin is the basis of same-origin comparisons across the federation
// core. Equality is exact: comparing hostname alone is never sufficient
// (it would allow a confused-deputy across ports).
type Origin struct {
	Scheme string
	Host   string
	Port   string
}

func (o Origin) String() string {
	if o.Port == "" {
		return o.Scheme + "://" + o.Host
	}
	return o.Scheme + "://" + o.Host + ":" + o.Port
}

func (o Origin) Equal(other Origin) bool {
	return o.Scheme == other.Scheme && o.Host == other.Host && o.Port == other.Port
}
