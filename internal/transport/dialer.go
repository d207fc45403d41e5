package transport

import (
	"context"
	"fmt"
	"net"

	"golang.org/x/net/proxy"

	"github.com/apxfed/apx/internal/ferr"
)

// splitHostPort splits a ":port" suffix from addr so the host alone can be
// matched against proxy and blocklist rules; it is restored before
// dialing.
func splitHostPort(addr string) (host, port string, err error) {
	return net.SplitHostPort(addr)
}

// newDialContext builds the DialContext function an Agent's transport
// uses: proxy selection by target hostname suffix, then either a
// proxied dial (the proxy resolves the address; SSRF protection
// doesn't apply to overlay networks it cannot reach in the first
// place) or a direct dial that resolves the host itself and rejects
// any address in a blocked range before connecting.
func (c Config) newDialContext() func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, _, err := splitHostPort(addr)
		if err != nil {
			return nil, err
		}

		if p := c.proxyFor(host); p != nil {
			dialer, err := proxy.FromURL(p, proxy.Direct)
			if err != nil {
				return nil, fmt.Errorf("transport: building proxy dialer for %s: %w", p.Host, err)
			}
			if cd, ok := dialer.(proxy.ContextDialer); ok {
				return cd.DialContext(ctx, network, addr)
			}
			return dialer.Dial(network, addr)
		}

		if IsOverlayHost(host) {
			return nil, ferr.New(ferr.NetworkFatal, "transport.dial", fmt.Errorf("no proxy configured for overlay host %q", host))
		}

		return dialDirect(ctx, c.SSRFProtectionEnabled, network, addr, host)
	}
}

func dialDirect(ctx context.Context, ssrfEnabled bool, network, addr, host string) (net.Conn, error) {
	if !ssrfEnabled {
		var d net.Dialer
		return d.DialContext(ctx, network, addr)
	}

	ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, ferr.New(ferr.NetworkTransient, "transport.dial", err)
	}

	var lastErr error
	for _, ip := range ips {
		if IsBlockedAddr(ip.IP) {
			continue
		}
		d := net.Dialer{}
		conn, err := d.DialContext(ctx, network, net.JoinHostPort(ip.IP.String(), portOf(addr)))
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		return nil, ferr.New(ferr.SSRFBlocked, "transport.dial", fmt.Errorf("every address for %q is blocked", host))
	}
	return nil, ferr.New(ferr.NetworkTransient, "transport.dial", lastErr)
}

func portOf(addr string) string {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "443"
	}
	return port
}
