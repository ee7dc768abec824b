package security

import (
	"net/http"
)

// HeadersConfig lists the response headers applied to every API response.
type HeadersConfig struct {
	XContentTypeOptions string
	XFrameOptions       string
	ReferrerPolicy      string
	CacheControl        string
	CSP                 string
}

// DefaultHeadersConfig suits a JSON API that never serves documents.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		XContentTypeOptions: "nosniff",
		XFrameOptions:       "DENY",
		ReferrerPolicy:      "no-referrer",
		CacheControl:        "no-store",
		CSP:                 "default-src 'none'; frame-ancestors 'none'",
	}
}

// Headers returns middleware that sets the configured headers.
func Headers(config HeadersConfig) func(http.Handler) http.Handler {
	set := func(h http.Header, key, value string) {
		if value != "" {
			h.Set(key, value)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			set(h, "X-Content-Type-Options", config.XContentTypeOptions)
			set(h, "X-Frame-Options", config.XFrameOptions)
			set(h, "Referrer-Policy", config.ReferrerPolicy)
			set(h, "Cache-Control", config.CacheControl)
			set(h, "Content-Security-Policy", config.CSP)
			next.ServeHTTP(w, r)
		})
	}
}
