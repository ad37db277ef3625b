package config

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/avisitor/idp-client/internal/errors"
	"golang.org/x/net/publicsuffix"
)

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// CookieDomain is the domain for session cookies.
	// Leave empty to use the request domain.
	CookieDomain string `env:"APP_COOKIE_DOMAIN" envDefault:""`

	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	h.CookieDomain = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(h.CookieDomain)), ".")
	if h.ShutdownTimeout <= 0 {
		h.ShutdownTimeout = 10 * time.Second
	}
}

// Validate rejects cookie domains that browsers would refuse, such as a bare public suffix.
func (h *HTTPConfig) Validate() []error {
	if h.CookieDomain == "" || h.CookieDomain == "localhost" {
		return nil
	}
	suffix, _ := publicsuffix.PublicSuffix(h.CookieDomain)
	if suffix == h.CookieDomain {
		return []error{apperrors.Configuration("APP_COOKIE_DOMAIN",
			fmt.Sprintf("APP_COOKIE_DOMAIN %q is a public suffix", h.CookieDomain))}
	}
	return nil
}

// SessionStoreKind selects the session backend.
type SessionStoreKind string

const (
	SessionStoreMemory SessionStoreKind = "memory"
	SessionStoreRedis  SessionStoreKind = "redis"
)

// UnmarshalText implements encoding.TextUnmarshaler for SessionStoreKind.
func (k *SessionStoreKind) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "memory", "redis":
		*k = SessionStoreKind(v)
		return nil
	default:
		return fmt.Errorf("invalid SessionStoreKind: %q (valid options: memory, redis)", v)
	}
}

// SessionConfig controls server-side session storage and the browser cookie.
type SessionConfig struct {
	Store      SessionStoreKind `env:"SESSION_STORE"       envDefault:"memory"`
	TTL        time.Duration    `env:"SESSION_TTL"         envDefault:"8h"`
	CookieName string           `env:"SESSION_COOKIE_NAME" envDefault:"idp_session"`
	KeyPrefix  string           `env:"SESSION_KEY_PREFIX"  envDefault:"idp-session:"`
}

// Sanitize restores defaults for empty or invalid values.
func (c *SessionConfig) Sanitize() {
	if c.TTL <= 0 {
		c.TTL = 8 * time.Hour
	}
	if strings.TrimSpace(c.CookieName) == "" {
		c.CookieName = "idp_session"
	}
	if c.Store == "" {
		c.Store = SessionStoreMemory
	}
}

// Validate reports impossible session settings.
func (c *SessionConfig) Validate() []error {
	if strings.ContainsAny(c.CookieName, " ;,=") {
		return []error{apperrors.Configuration("SESSION_COOKIE_NAME", "SESSION_COOKIE_NAME contains invalid characters")}
	}
	return nil
}
