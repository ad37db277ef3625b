package httpx

import (
	"net/http"
	"net/url"
	"strings"
)

// safeRedirect returns candidate when it is a same-origin relative path or an
// absolute URL on the application's own host, and fallback otherwise.
func safeRedirect(candidate, fallback, baseURL string) string {
	if candidate == "" {
		return fallback
	}
	u, err := url.Parse(candidate)
	if err != nil {
		return fallback
	}
	if u.IsAbs() || u.Host != "" {
		base, baseErr := url.Parse(baseURL)
		if baseErr != nil || base.Host == "" || !u.IsAbs() ||
			!strings.EqualFold(u.Host, base.Host) || u.Scheme != base.Scheme {
			return fallback
		}
		return candidate
	}
	if !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(candidate, "//") || strings.Contains(candidate, "\\") {
		return fallback
	}
	return candidate
}

// wantsJSON reports whether the client asked for a JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	accept := r.Header.Get("Accept")
	if strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html") {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest")
}

// isBrowserRequest determines if a request is from a browser based on:
// 1. Path prefix - API routes start with /api/
// 2. Accept header - browsers typically accept text/html.
func isBrowserRequest(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return false
	}
	if wantsJSON(r) {
		return false
	}
	accept := r.Header.Get("Accept")
	return accept == "" || strings.Contains(accept, "text/html") || strings.Contains(accept, "*/*")
}
