package http

import (
	"net"
	"net/http"
	"strings"
)

// IPConfig holds the CIDR ranges of proxies whose forwarding headers are
// believed. Requests arriving from anywhere else have their headers ignored,
// which prevents clients from spoofing the address recorded in the attempt
// ledger and audit trail.
type IPConfig struct {
	TrustedProxies []string
}

// ExtractClientIP returns the client address for a request. X-Forwarded-For
// and X-Real-IP are consulted only when the direct peer is a trusted proxy;
// otherwise the socket address wins.
func ExtractClientIP(r *http.Request, config *IPConfig) string {
	remoteIP := remoteAddr(r)

	if config != nil && isTrustedProxy(remoteIP, config.TrustedProxies) {
		if ip := forwardedIP(r); ip != "" {
			return ip
		}
	}

	return remoteIP
}

// forwardedIP picks the first parseable address from the forwarding headers.
func forwardedIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, part := range strings.Split(xff, ",") {
			ip := strings.TrimSpace(part)
			if net.ParseIP(ip) != nil {
				return ip
			}
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if net.ParseIP(xri) != nil {
			return xri
		}
	}

	return ""
}

// remoteAddr strips the port from the socket address when one is present.
func remoteAddr(r *http.Request) string {
	if r.RemoteAddr == "" {
		return "unknown"
	}
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}
	return r.RemoteAddr
}

func isTrustedProxy(ip string, trustedProxies []string) bool {
	if len(trustedProxies) == 0 {
		return false
	}

	clientIP := net.ParseIP(ip)
	if clientIP == nil {
		return false
	}

	for _, cidr := range trustedProxies {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			continue
		}
		if ipNet.Contains(clientIP) {
			return true
		}
	}

	return false
}
