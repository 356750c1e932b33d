package server

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
)

// proxyMatcher matches trusted proxy addresses.
type proxyMatcher struct {
	ips  map[string]struct{}
	nets []*net.IPNet
}

func newProxyMatcher(entries []string, logger *slog.Logger) *proxyMatcher {
	m := &proxyMatcher{ips: make(map[string]struct{})}
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			_, network, err := net.ParseCIDR(entry)
			if err != nil {
				if logger != nil {
					logger.Warn("invalid trusted proxy CIDR", "entry", entry, "error", err)
				}
				continue
			}
			m.nets = append(m.nets, network)
			continue
		}
		ip := net.ParseIP(entry)
		if ip == nil {
			if logger != nil {
				logger.Warn("invalid trusted proxy IP", "entry", entry)
			}
			continue
		}
		m.ips[ip.String()] = struct{}{}
	}
	if len(m.ips) == 0 && len(m.nets) == 0 {
		return nil
	}
	return m
}

func (m *proxyMatcher) trusted(ip net.IP) bool {
	if m == nil || ip == nil {
		return false
	}
	if _, ok := m.ips[ip.String()]; ok {
		return true
	}
	for _, network := range m.nets {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// clientIP returns the address of the client that sent r. Forwarding
// headers are honored only when the direct peer is a trusted proxy; the
// right-most untrusted hop wins.
func clientIP(r *http.Request, proxies *proxyMatcher) net.IP {
	remote := parseIP(r.RemoteAddr)
	if remote == nil || !proxies.trusted(remote) {
		return remote
	}

	hops := forwardedHops(r.Header.Get("Forwarded"))
	if len(hops) == 0 {
		hops = forwardedHops(r.Header.Get("X-Forwarded-For"))
	}
	if len(hops) == 0 {
		return remote
	}
	for i := len(hops) - 1; i >= 0; i-- {
		if !proxies.trusted(hops[i]) {
			return hops[i]
		}
	}
	return hops[0]
}

// forwardedHops parses both "Forwarded: for=a, for=b" and
// "X-Forwarded-For: a, b".
func forwardedHops(header string) []net.IP {
	if header == "" {
		return nil
	}
	var out []net.IP
	for _, part := range strings.Split(header, ",") {
		value := part
		if strings.Contains(part, "=") {
			value = ""
			for _, param := range strings.Split(part, ";") {
				k, v, ok := strings.Cut(strings.TrimSpace(param), "=")
				if ok && strings.EqualFold(strings.TrimSpace(k), "for") {
					value = v
				}
			}
		}
		if ip := parseIP(value); ip != nil {
			out = append(out, ip)
		}
	}
	return out
}

func parseIP(value string) net.IP {
	host := strings.Trim(strings.TrimSpace(value), "\"")
	if host == "" || strings.EqualFold(host, "unknown") {
		return nil
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	if zone := strings.Index(host, "%"); zone != -1 {
		host = host[:zone]
	}
	return net.ParseIP(host)
}
