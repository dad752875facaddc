package middleware

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP extracts the client address of r. X-Forwarded-For and X-Real-IP
// are only honoured when trustProxy is set.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		// Check X-Forwarded-For header (proxy/load balancer)
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			// Take first IP if multiple
			ips := strings.Split(forwarded, ",")
			return strings.TrimSpace(ips[0])
		}

		// Check X-Real-IP header
		if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
			return realIP
		}
	}

	// Fall back to RemoteAddr without the port
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
