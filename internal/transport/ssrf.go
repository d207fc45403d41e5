package transport

import "net"

// blockedRanges are the address ranges an SSRF-protected dial must
// never connect to: loopback, link-local, RFC-1918 private space,
// IPv6 unique-local, the unspecified address, and the limited
// broadcast address.
var blockedRanges = mustParseCIDRs(
	"127.0.0.0/8",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"169.254.0.0/16",
	"0.0.0.0/8",
	"255.255.255.255/32",
	"::1/128",
	"fe80::/10",
	"fc00::/7",
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic("transport: invalid CIDR literal " + c)
		}
		nets = append(nets, n)
	}
	return nets
}

// IsBlockedAddr reports whether ip falls in a range an SSRF-protected
// agent must refuse to connect to.
func IsBlockedAddr(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
		return true
	}
	for _, n := range blockedRanges {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
