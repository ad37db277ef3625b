package httpx

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

const (
	// DefaultCSRFHeaderName is the default name for the CSRF header (canonical form).
	DefaultCSRFHeaderName = "X-Csrf-Token"
	// DefaultCSRFFieldName is the default form field carrying the token.
	DefaultCSRFFieldName = "csrf_token"
)

// CSRFConfig holds configuration for CSRF protection middleware.
type CSRFConfig struct {
	// HeaderName is the name of the CSRF header to check (default: "X-Csrf-Token")
	HeaderName string
	// FormFieldName is the name of the form field to check (default: "csrf_token")
	FormFieldName string
}

// CSRFProtection validates state-changing requests against the CSRF token
// stored in the server-side session. The token can be submitted via:
// - X-Csrf-Token header (for fetch/XHR requests)
// - csrf_token form field (for standard form submissions)
//
// GET, HEAD, OPTIONS, and TRACE requests are exempt. SessionManager.Middleware
// must run first.
func CSRFProtection(cfg CSRFConfig) func(http.Handler) http.Handler {
	if cfg.HeaderName == "" {
		cfg.HeaderName = DefaultCSRFHeaderName
	}
	if cfg.FormFieldName == "" {
		cfg.FormFieldName = DefaultCSRFFieldName
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if requiresCSRFValidation(r.Method) {
				sess := GetSessionFromContext(r.Context())
				expected := ""
				if sess != nil {
					expected = sess.CSRFToken
				}
				if !validateCSRFToken(r, expected, cfg) {
					http.Error(w, "CSRF token validation failed", http.StatusForbidden)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requiresCSRFValidation returns true if the HTTP method requires CSRF validation.
// Safe methods (GET, HEAD, OPTIONS, TRACE) are exempt.
func requiresCSRFValidation(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return false
	default:
		return true
	}
}

// validateCSRFToken compares the submitted token with expected in constant time.
func validateCSRFToken(r *http.Request, expected string, cfg CSRFConfig) bool {
	if expected == "" {
		return false
	}

	if headerToken := r.Header.Get(cfg.HeaderName); headerToken != "" {
		return subtle.ConstantTimeCompare([]byte(headerToken), []byte(expected)) == 1
	}

	// Only parse form for form-encoded content types
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") ||
		strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseForm(); err != nil {
			return false
		}
		if formToken := r.PostFormValue(cfg.FormFieldName); formToken != "" {
			return subtle.ConstantTimeCompare([]byte(formToken), []byte(expected)) == 1
		}
	}

	return false
}
