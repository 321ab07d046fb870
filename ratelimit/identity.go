package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// DefaultTrustedHeader is set by Cloudflare in front of the service
const DefaultTrustedHeader = "CF-Connecting-IP"

// IdentityResolver derives the client identity used as the rate-limit key.
// Order: trusted proxy header, first X-Forwarded-For entry, then the peer address.
// Header sources are only safe behind an ingress that overwrites them.
type IdentityResolver struct {
	TrustedHeader     string
	TrustForwardedFor bool
}

func (i IdentityResolver) Resolve(r *http.Request) string {
	if i.TrustedHeader != "" {
		if v := strings.TrimSpace(r.Header.Get(i.TrustedHeader)); v != "" {
			return v
		}
	}
	if i.TrustForwardedFor {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			// "client, proxy1, proxy2"
			first := strings.TrimSpace(strings.Split(xff, ",")[0])
			if first != "" {
				return first
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
