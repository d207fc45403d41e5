// Package transport provides the Agent the rest of the federation core
// fetches and delivers through: SSRF-checked dialing, proxy routing by
// target network, redirect discipline, response size capping, and
// content-type gating. It generalizes the teacher's activitypub.Client
// — a bare http.RoundTripper that only ever signed and fetched
// clearnet RSA-signed requests — into something that can also reach
// .onion/.i2p/.loki peers and verify the response it gets back.
package transport

import (
	"crypto/tls"
	"net/url"
	"time"
)

// Config configures an Agent. Zero value is not usable; use
// DefaultConfig as a starting point.
type Config struct {
	UserAgent string

	ProxyURL      *url.URL
	OnionProxyURL *url.URL
	I2PProxyURL   *url.URL

	FetcherTimeout   time.Duration
	DelivererTimeout time.Duration

	SSRFProtectionEnabled bool
	MaxResponseSize       int64
	MaxRedirects          int

	// TLSClientConfig overrides the default TLS trust store — e.g. to
	// pin a private CA for an instance's own onion-over-TLS gateway, or
	// to trust a test harness's certificate. Nil uses Go's default
	// system roots.
	TLSClientConfig *tls.Config
}

// DefaultConfig matches the defaults spec.md names: 30s fetcher
// timeout, 10s deliverer timeout, SSRF protection on, 2 MiB response
// cap, 3 redirects.
func DefaultConfig() Config {
	return Config{
		UserAgent:             "apx/1.0",
		FetcherTimeout:        30 * time.Second,
		DelivererTimeout:      10 * time.Second,
		SSRFProtectionEnabled: true,
		MaxResponseSize:       2 * 1024 * 1024,
		MaxRedirects:          3,
	}
}
