package transport

import (
	"net/url"
	"strings"
)

// proxyFor selects the outbound proxy for host per spec: .onion goes
// through OnionProxyURL, .i2p/.loki through I2PProxyURL, everything
// else through ProxyURL if configured, or direct.
func (c Config) proxyFor(host string) *url.URL {
	switch {
	case strings.HasSuffix(host, ".onion"):
		return c.OnionProxyURL
	case strings.HasSuffix(host, ".i2p"), strings.HasSuffix(host, ".loki"):
		return c.I2PProxyURL
	default:
		return c.ProxyURL
	}
}

// IsOverlayHost reports whether host names a Tor/I2P/Lokinet overlay
// address rather than a regular DNS name — used to decide whether a
// request must route through a proxy instead of the SSRF-checked
// direct dialer, and to serialize onion deliveries to one worker.
func IsOverlayHost(host string) bool {
	return strings.HasSuffix(host, ".onion") || strings.HasSuffix(host, ".i2p") || strings.HasSuffix(host, ".loki")
}

// IsOnionHost reports whether host is a Tor hidden-service address.
func IsOnionHost(host string) bool {
	return strings.HasSuffix(host, ".onion")
}
