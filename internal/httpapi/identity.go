package httpapi

import (
	"net"
	"net/http"
	"strings"
)

// ClientIdentity derives the per-caller quota and session key from the
// network origin. The first hop of X-Forwarded-For wins when present;
// otherwise the connection address is used with any port stripped.
func ClientIdentity(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
