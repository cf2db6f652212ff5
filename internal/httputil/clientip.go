// Package httputil holds request helpers shared by the HTTP handlers.
package httputil

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the address used to attribute a request: the stream
// limiter counts connections per ClientIP and request logs record it.
//
// When trustProxy is true the proxy headers are consulted in the order
// Forwarded (RFC 7239, first for= parameter), X-Forwarded-For (leftmost
// entry), X-Real-IP. Enable it only behind a trusted reverse proxy.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if ip := forwardedFor(r.Header.Get("Forwarded")); ip != "" {
			return ip
		}
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
	}
	return stripPort(r.RemoteAddr)
}

// forwardedFor extracts the for= node of the first Forwarded element.
func forwardedFor(header string) string {
	if header == "" {
		return ""
	}
	first, _, _ := strings.Cut(header, ",")
	for _, pair := range strings.Split(first, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || !strings.EqualFold(key, "for") {
			continue
		}
		value = strings.Trim(value, `"`)
		if strings.HasPrefix(value, "_") || strings.EqualFold(value, "unknown") {
			return "" // obfuscated identifier
		}
		return stripPort(value)
	}
	return ""
}

// stripPort drops an optional port and IPv6 brackets.
func stripPort(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return strings.Trim(addr, "[]")
}
