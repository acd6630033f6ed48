// Package metadata captures client IP and a readable User-Agent summary for
// audit enrichment.
package metadata

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"festreg/pkg/requestcontext"
)

// ClientMetadata stores the client IP and User-Agent summary in the request
// context. Apply it early in the chain.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientMetadata(r.Context(),
			ClientIPFromRequest(r),
			SummarizeUserAgent(r.Header.Get("User-Agent")),
		)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SummarizeUserAgent renders "Browser Version on OS", "bot: Name" or the raw
// header when it cannot be parsed.
func SummarizeUserAgent(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	if ua.Bot() {
		return "bot: " + name
	}
	if name == "" {
		return truncate(raw, 128)
	}
	summary := name
	if version != "" {
		summary = fmt.Sprintf("%s %s", name, majorVersion(version))
	}
	if os := ua.OS(); os != "" {
		summary += " on " + os
	}
	if ua.Mobile() {
		summary += " (mobile)"
	}
	return summary
}

// ClientIPFromRequest extracts the client IP, honouring X-Forwarded-For and
// X-Real-IP set by the load balancer.
func ClientIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}

func majorVersion(v string) string {
	major, _, _ := strings.Cut(v, ".")
	return major
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
