package middleware

import (
	"fmt"
	"net"
	"net/http"

	"github.com/mssola/useragent"

	"stagegate/pkg/requestcontext"
)

// Device captures client IP, the raw User-Agent, and a parsed browser/OS
// summary. The override service records these in audit entry metadata.
func Device(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientMetadata(r.Context(), clientIP(r), r.UserAgent())
		if summary := summarizeUserAgent(r.UserAgent()); summary != "" {
			ctx = requestcontext.WithDeviceSummary(ctx, summary)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func summarizeUserAgent(raw string) string {
	if raw == "" {
		return ""
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	if name == "" {
		return ""
	}
	if os := ua.OS(); os != "" {
		return fmt.Sprintf("%s %s (%s)", name, version, os)
	}
	return fmt.Sprintf("%s %s", name, version)
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
