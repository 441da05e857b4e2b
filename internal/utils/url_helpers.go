package utils

import (
	"net/http"
	"net/url"
	"strings"
)

// URLFromRequest creates a URL with the correct scheme and host based on the request.
// It detects HTTPS from either direct TLS connection or X-Forwarded-Proto header,
// and uses X-Forwarded-Host for the hostname when available.
func URLFromRequest(r *http.Request) *url.URL {
	u := &url.URL{
		Scheme: "http",
		Host:   r.Host,
	}
	if v := r.Header.Get("X-Forwarded-Host"); v != "" {
		u.Host = v
	}
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		u.Scheme = "https"
	}
	return u
}

// BaseURLFromRequest returns the base URL as a string from the request.
func BaseURLFromRequest(r *http.Request) string {
	return URLFromRequest(r).String()
}

// ResolveBaseURL prefers a configured base URL over the request-derived
// one. The result never ends in a slash.
func ResolveBaseURL(configured string, r *http.Request) string {
	base := configured
	if base == "" {
		base = BaseURLFromRequest(r)
	}
	return strings.TrimRight(base, "/")
}
