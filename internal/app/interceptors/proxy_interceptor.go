package interceptors

import (
	"fmt"
	"net/http"
	"net/netip"
	"strings"
)

var (
	xForwardedFor = http.CanonicalHeaderKey("X-Forwarded-For")
	xRealIP       = http.CanonicalHeaderKey("X-Real-IP")
)

// ParseTrustedProxies accepts bare addresses and CIDR ranges
func ParseTrustedProxies(entries []string) ([]netip.Prefix, error) {
	const op = "interceptors.ParseTrustedProxies"

	prefixes := make([]netip.Prefix, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// ProxyInterceptor rewrites RemoteAddr to the client address reported by a
// trusted reverse proxy. Forwarding headers from any other peer are ignored,
// so clients cannot choose the address they are rate limited under.
func ProxyInterceptor(trusted []netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(trusted) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if peer, ok := parseAddr(remoteHost(r.RemoteAddr)); ok && isTrusted(trusted, peer) {
				if client, ok := forwardedClient(r, trusted); ok {
					r.RemoteAddr = client.String()
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// forwardedClient walks X-Forwarded-For from the nearest hop and returns the
// first address not owned by a trusted proxy, falling back to X-Real-IP.
func forwardedClient(r *http.Request, trusted []netip.Prefix) (netip.Addr, bool) {
	if header := r.Header.Values(xForwardedFor); len(header) > 0 {
		hops := strings.Split(strings.Join(header, ","), ",")
		for i := len(hops) - 1; i >= 0; i-- {
			addr, ok := parseAddr(hops[i])
			if !ok {
				return netip.Addr{}, false
			}
			if !isTrusted(trusted, addr) {
				return addr, true
			}
		}
	}
	return parseAddr(r.Header.Get(xRealIP))
}

func parseAddr(raw string) (netip.Addr, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(raw))
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

func isTrusted(trusted []netip.Prefix, addr netip.Addr) bool {
	for _, prefix := range trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
