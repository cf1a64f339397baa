package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ClientIPResolver finds the originating client address, honoring
// X-Real-IP and X-Forwarded-For only from trusted proxies.
type ClientIPResolver struct {
	trusted []*net.IPNet
}

// NewClientIPResolver parses proxies, each a CIDR or a bare IP. An empty list
// trusts nobody and always uses RemoteAddr.
func NewClientIPResolver(proxies []string) (*ClientIPResolver, error) {
	nets, err := ParseTrustedProxies(proxies)
	if err != nil {
		return nil, err
	}
	return &ClientIPResolver{trusted: nets}, nil
}

// ParseTrustedProxies converts CIDRs and bare IPs to networks.
func ParseTrustedProxies(proxies []string) ([]*net.IPNet, error) {
	var nets []*net.IPNet
	for _, p := range proxies {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.Contains(p, "/") {
			ip := net.ParseIP(p)
			if ip == nil {
				return nil, fmt.Errorf("trusted proxy %q: invalid IP", p)
			}
			if ip.To4() != nil {
				p += "/32"
			} else {
				p += "/128"
			}
		}
		_, n, err := net.ParseCIDR(p)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", p, err)
		}
		nets = append(nets, n)
	}
	return nets, nil
}

func (c *ClientIPResolver) isTrusted(ip net.IP) bool {
	for _, n := range c.trusted {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

// ClientIP returns the client address of r.
func (c *ClientIPResolver) ClientIP(r *http.Request) string {
	host := remoteHost(r.RemoteAddr)
	peer := net.ParseIP(host)
	if c == nil || peer == nil || !c.isTrusted(peer) {
		return host
	}

	if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
		return ip.String()
	}

	// Walk X-Forwarded-For right to left, skipping our own proxies; the
	// first untrusted hop is the client.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			ip := net.ParseIP(strings.TrimSpace(hops[i]))
			if ip == nil {
				break
			}
			if !c.isTrusted(ip) || i == 0 {
				return ip.String()
			}
		}
	}
	return host
}
