package middleware

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP extracts the originating client address of r.
// Precedence: first X-Forwarded-For entry, then X-Real-IP, then the connection's
// remote address. It returns "" when none is available.
//
// X-Forwarded-For is client controlled unless a trusted proxy rewrites it, so the
// value is recorded for observation only and must not be used for access decisions.
func ClientIP(r *http.Request) (ip string) {
	defer func() {
		if recover() != nil {
			ip = ""
		}
	}()

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Format is "client, proxy1, proxy2"; the leftmost entry is the client.
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	if r.RemoteAddr == "" {
		return ""
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr // Return as-is if parsing fails
	}
	return host
}
