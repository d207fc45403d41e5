// Package webfinger implements RFC 7033 WebFinger lookup and FEP-d556
// instance-level discovery, generalizing teacher's
// internal/webfinger/webfinger.go (Acct, Webfinger, Fetch) from a bare
// HTTPS GET to one routed through internal/transport, so .onion/.i2p
// targets resolve through the right proxy and every response is
// SSRF-checked, size-capped, and content-type-gated the same way an
// object fetch is.
package webfinger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/apxfed/apx/internal/ferr"
	"github.com/apxfed/apx/internal/transport"
	"github.com/carlmjohnson/requests"
)

// Acct is a parsed "acct:user@host" address.
type Acct struct {
	User string
	Host string
}

// ParseAcct accepts "acct:user@host" or bare "user@host".
func ParseAcct(address string) (*Acct, error) {
	address = strings.TrimPrefix(address, "acct:")
	user, host, ok := strings.Cut(address, "@")
	if !ok || user == "" || host == "" {
		return nil, fmt.Errorf("webfinger: invalid acct address %q", address)
	}
	return &Acct{User: user, Host: host}, nil
}

func (a *Acct) String() string { return "acct:" + a.User + "@" + a.Host }

// resourceURL builds the well-known WebFinger request URL for host and
// resource using requests.Builder's query encoding, then hands the
// built URL to transport.Agent.Get — keeping the SSRF-checked, capped,
// proxy-routed fetch path in one place (internal/transport) rather
// than duplicating it behind requests' own Transport/Client hooks.
func resourceURL(host, resource string) (string, error) {
	req, err := requests.
		URL("https://"+host+"/.well-known/webfinger").
		Param("resource", resource).
		Request(context.Background())
	if err != nil {
		return "", fmt.Errorf("webfinger: build request: %w", err)
	}
	return req.URL.String(), nil
}

// Lookup resolves address (an acct: address or a full actor URL) to
// its JRD via WebFinger.
func Lookup(ctx context.Context, agent *transport.Agent, address string) (*Jrd, error) {
	const op = "webfinger.Lookup"

	host, resource, err := resourceFor(address)
	if err != nil {
		return nil, ferr.New(ferr.ActorUnresolvable, op, err)
	}

	url, err := resourceURL(host, resource)
	if err != nil {
		return nil, ferr.New(ferr.ActorUnresolvable, op, err)
	}

	body, _, err := agent.Get(ctx, url, "application/jrd+json", transport.AcceptedWebfingerTypes)
	if err != nil {
		return nil, err
	}

	var jrd Jrd
	if err := json.Unmarshal(body, &jrd); err != nil {
		return nil, ferr.New(ferr.NetworkFatal, op, fmt.Errorf("decode jrd: %w", err))
	}

	if !subjectMatches(jrd.Subject, resource) {
		return nil, ferr.New(ferr.ActorUnresolvable, op, fmt.Errorf("jrd subject %q does not match requested resource %q", jrd.Subject, resource))
	}

	return &jrd, nil
}

// resourceFor derives the WebFinger host and resource parameter from
// address: acct addresses query "acct:user@host"; a bare https(s) URL
// queries its own string as the resource against its own host.
func resourceFor(address string) (host, resource string, err error) {
	if strings.HasPrefix(address, "http://") || strings.HasPrefix(address, "https://") {
		u := address
		host, err = hostOf(u)
		if err != nil {
			return "", "", err
		}
		return host, u, nil
	}

	acct, err := ParseAcct(address)
	if err != nil {
		return "", "", err
	}
	return acct.Host, acct.String(), nil
}

func hostOf(rawURL string) (string, error) {
	i := strings.Index(rawURL, "://")
	if i < 0 {
		return "", fmt.Errorf("webfinger: invalid url %q", rawURL)
	}
	rest := rawURL[i+3:]
	if j := strings.IndexAny(rest, "/?#"); j >= 0 {
		rest = rest[:j]
	}
	if rest == "" {
		return "", fmt.Errorf("webfinger: url %q has no host", rawURL)
	}
	return rest, nil
}

// subjectMatches compares a returned JRD subject against the
// requested resource, case-insensitively for acct: resources (host
// names are case-insensitive; usernames on most implementations are
// too) and exactly otherwise.
func subjectMatches(subject, resource string) bool {
	if strings.HasPrefix(resource, "acct:") {
		return strings.EqualFold(subject, resource)
	}
	return subject == resource
}

// DiscoverInstance implements FEP-d556: a WebFinger query for the
// instance's own base URL as the resource, used to discover
// instance-level metadata without knowing any account on it.
func DiscoverInstance(ctx context.Context, agent *transport.Agent, instanceBaseURL string) (*Jrd, error) {
	const op = "webfinger.DiscoverInstance"

	host, err := hostOf(instanceBaseURL)
	if err != nil {
		return nil, ferr.New(ferr.ActorUnresolvable, op, err)
	}

	url, err := resourceURL(host, instanceBaseURL)
	if err != nil {
		return nil, ferr.New(ferr.ActorUnresolvable, op, err)
	}

	body, _, err := agent.Get(ctx, url, "application/jrd+json", transport.AcceptedWebfingerTypes)
	if err != nil {
		return nil, err
	}

	var jrd Jrd
	if err := json.Unmarshal(body, &jrd); err != nil {
		return nil, ferr.New(ferr.NetworkFatal, op, fmt.Errorf("decode jrd: %w", err))
	}
	return &jrd, nil
}
