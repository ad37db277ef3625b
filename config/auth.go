package config

import (
	"fmt"
	"net/mail"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/avisitor/idp-client/internal/errors"
)

// IDPConfig describes the external identity provider.
type IDPConfig struct {
	// URL is the IDP base URL, e.g. "https://idp.example.com".
	URL string `env:"IDP_URL"`
	// AppID identifies this application to the IDP.
	AppID string `env:"IDP_APP_ID"`
	// ClientSecret is only needed for the OAuth authorization-code exchange.
	ClientSecret string `env:"IDP_CLIENT_SECRET"`

	// JWKSURL is where signing keys are published. Defaults to {URL}/.well-known/jwks.json.
	JWKSURL string `env:"IDP_JWKS_URL"`
	// Issuer is matched against the iss claim when set.
	Issuer string `env:"IDP_ISSUER"`

	// VerifySignature enables JWT signature checks on the login callback.
	VerifySignature bool `env:"IDP_VERIFY_SIGNATURE" envDefault:"true"`
	// InsecureSkipVerify disables TLS certificate checks for IDP calls. Compatibility only.
	InsecureSkipVerify bool `env:"IDP_INSECURE_SKIP_VERIFY" envDefault:"false"`

	EnhanceTimeout time.Duration `env:"IDP_ENHANCE_TIMEOUT" envDefault:"10s"`
	APITimeout     time.Duration `env:"IDP_API_TIMEOUT"     envDefault:"30s"`
}

// Sanitize trims values and restores default timeouts.
func (c *IDPConfig) Sanitize() {
	c.URL = strings.TrimRight(strings.TrimSpace(c.URL), "/")
	c.AppID = strings.TrimSpace(c.AppID)
	c.JWKSURL = strings.TrimSpace(c.JWKSURL)
	if c.JWKSURL == "" && c.URL != "" {
		c.JWKSURL = c.URL + "/.well-known/jwks.json"
	}
	if c.EnhanceTimeout <= 0 {
		c.EnhanceTimeout = 10 * time.Second
	}
	if c.APITimeout <= 0 {
		c.APITimeout = 30 * time.Second
	}
}

// Validate reports missing or malformed IDP settings.
func (c *IDPConfig) Validate() []error {
	var errs []error
	if c.URL == "" {
		errs = append(errs, apperrors.Configuration("IDP_URL", "IDP_URL is required for external authentication"))
	} else if err := validateAbsoluteURL("IDP_URL", c.URL); err != nil {
		errs = append(errs, err)
	}
	if c.AppID == "" {
		errs = append(errs, apperrors.Configuration("IDP_APP_ID", "IDP_APP_ID is required for external authentication"))
	}
	if c.VerifySignature && c.JWKSURL != "" {
		if err := validateAbsoluteURL("IDP_JWKS_URL", c.JWKSURL); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// AppDetailsConfig describes the consuming application.
type AppDetailsConfig struct {
	Name string `env:"APP_NAME" envDefault:"Application"`
	// BaseURL is the public URL of the application, used to build callback URLs.
	BaseURL string `env:"APP_BASE_URL"`
	// AuthPath is the path prefix the auth handlers are mounted under.
	AuthPath     string `env:"APP_AUTH_PATH" envDefault:"/auth"`
	SupportEmail string `env:"SUPPORT_EMAIL"`
	// DefaultRedirect is where users land after login when no redirect was requested.
	DefaultRedirect string `env:"APP_DEFAULT_REDIRECT" envDefault:"/"`
	// LogoutRedirect overrides the post-logout destination.
	LogoutRedirect string `env:"APP_LOGOUT_REDIRECT"`
}

// Sanitize normalises the base URL and auth path.
func (c *AppDetailsConfig) Sanitize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	c.AuthPath = "/" + strings.Trim(strings.TrimSpace(c.AuthPath), "/")
	if c.AuthPath == "/" {
		c.AuthPath = "/auth"
	}
	c.SupportEmail = strings.TrimSpace(c.SupportEmail)
	if c.DefaultRedirect == "" {
		c.DefaultRedirect = "/"
	}
}

// Validate reports missing or malformed application settings.
func (c *AppDetailsConfig) Validate() []error {
	var errs []error
	if c.BaseURL == "" {
		errs = append(errs, apperrors.Configuration("APP_BASE_URL", "APP_BASE_URL is required"))
	} else if err := validateAbsoluteURL("APP_BASE_URL", c.BaseURL); err != nil {
		errs = append(errs, err)
	}
	if c.SupportEmail == "" {
		errs = append(errs, apperrors.Configuration("SUPPORT_EMAIL", "SUPPORT_EMAIL is required"))
	} else if _, err := mail.ParseAddress(c.SupportEmail); err != nil {
		errs = append(errs, apperrors.Configuration("SUPPORT_EMAIL", "SUPPORT_EMAIL is not a valid email address"))
	}
	return errs
}

// AppURL joins path onto the application base URL.
func (c AppDetailsConfig) AppURL(path string) string {
	return c.BaseURL + "/" + strings.TrimLeft(path, "/")
}

// AuthURL builds an absolute URL for an auth handler with optional query parameters.
func (c AppDetailsConfig) AuthURL(path string, query url.Values) string {
	u := c.BaseURL + c.AuthPath + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// UserSource selects where local credentials and admin levels come from.
type UserSource string

const (
	// UserSourceStatic uses the DEV_AUTH_USERS directory.
	UserSourceStatic UserSource = "static"
	// UserSourcePostgres uses the users table.
	UserSourcePostgres UserSource = "postgres"
)

// UnmarshalText implements encoding.TextUnmarshaler for UserSource.
func (u *UserSource) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "static", "postgres":
		*u = UserSource(v)
		return nil
	default:
		return fmt.Errorf("invalid UserSource: %q (valid options: static, postgres)", v)
	}
}

// RoleLevels maps an admin level to the roles granted at that level.
// Text form: "0:user;1:user,admin".
type RoleLevels map[int][]string

// UnmarshalText implements encoding.TextUnmarshaler for RoleLevels.
func (r *RoleLevels) UnmarshalText(text []byte) error {
	out := RoleLevels{}
	for _, entry := range strings.Split(string(text), ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		levelStr, rolesStr, ok := strings.Cut(entry, ":")
		if !ok {
			return fmt.Errorf("invalid role level entry %q (want level:role,role)", entry)
		}
		level, err := strconv.Atoi(strings.TrimSpace(levelStr))
		if err != nil {
			return fmt.Errorf("invalid admin level %q: %w", levelStr, err)
		}
		var roles []string
		for _, role := range strings.Split(rolesStr, ",") {
			if role = strings.TrimSpace(role); role != "" {
				roles = append(roles, role)
			}
		}
		out[level] = roles
	}
	*r = out
	return nil
}

// Levels returns the configured levels in ascending order.
func (r RoleLevels) Levels() []int {
	levels := make([]int, 0, len(r))
	for l := range r {
		levels = append(levels, l)
	}
	sort.Ints(levels)
	return levels
}

// AuthConfig groups authentication behaviour settings.
type AuthConfig struct {
	// UseExternalAuth selects the IDP-backed provider instead of local credentials.
	UseExternalAuth bool `env:"USE_EXTERNAL_AUTH" envDefault:"true"`

	// RoleLevels maps the host's admin level to roles requested during enhancement.
	RoleLevels RoleLevels `env:"AUTH_ROLE_LEVELS" envDefault:"0:user;1:user,admin"`

	// UsableBuffer is how far ahead of expiry a cached token stops being reused.
	UsableBuffer time.Duration `env:"AUTH_TOKEN_USABLE_BUFFER" envDefault:"0s"`
	// RefreshBuffer is the proactive refresh window reported to browser watchdogs.
	RefreshBuffer time.Duration `env:"AUTH_TOKEN_REFRESH_BUFFER" envDefault:"5m"`
	// MaxRefreshAttempts bounds consecutive failed refreshes per token source.
	MaxRefreshAttempts int `env:"AUTH_MAX_REFRESH_ATTEMPTS" envDefault:"2"`

	// UserSource selects the local user directory.
	UserSource UserSource `env:"AUTH_USER_SOURCE" envDefault:"static"`
	// DevUsers is the static directory: email=adminLevel pairs.
	DevUsers map[string]int `env:"DEV_AUTH_USERS" envSeparator:";" envKeyValSeparator:"="`
}

// Sanitize applies guardrails to auth settings.
func (c *AuthConfig) Sanitize() {
	if c.UsableBuffer < 0 {
		c.UsableBuffer = 0
	}
	if c.RefreshBuffer <= 0 {
		c.RefreshBuffer = 5 * time.Minute
	}
	if c.MaxRefreshAttempts < 1 {
		c.MaxRefreshAttempts = 2
	}
	if len(c.RoleLevels) == 0 {
		c.RoleLevels = RoleLevels{0: {"user"}, 1: {"user", "admin"}}
	}
	if c.UserSource == "" {
		c.UserSource = UserSourceStatic
	}
}

func validateAbsoluteURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apperrors.Configuration(field, field+" must be an absolute http(s) URL")
	}
	return nil
}
