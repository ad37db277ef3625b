package auth

// Package auth contains domain-level types for authentication and sessions.
// It is pure and free of framework/adapter concerns.

import (
	"slices"
	"time"
)

// Well-known role names.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// DefaultRoles is granted when a login token carries no roles claim.
func DefaultRoles() []string { return []string{RoleUser} }

// UserInfo is the identity extracted from a callback token or reported by a provider.
type UserInfo struct {
	Email  string   `json:"email"`
	UserID string   `json:"user_id,omitempty"`
	Name   string   `json:"name,omitempty"`
	Roles  []string `json:"roles"`

	// Populated by providers that know more than the token does.
	Username      string `json:"username,omitempty"`
	Admin         int    `json:"admin,omitempty"`
	Authenticated bool   `json:"authenticated,omitempty"`
}

// HasRole reports whether role is in the user's role list.
func (u UserInfo) HasRole(role string) bool { return slices.Contains(u.Roles, role) }

// Session is the server-side record persisted for a browser session.
// ID is an opaque session identifier carried in a cookie.
type Session struct {
	ID        string    `json:"id"`
	ExpiresAt time.Time `json:"expires_at"`

	Authenticated   bool      `json:"authenticated"`
	Username        string    `json:"username,omitempty"`
	Email           string    `json:"email,omitempty"`
	Name            string    `json:"name,omitempty"`
	UserID          string    `json:"user_id,omitempty"`
	Roles           []string  `json:"roles,omitempty"`
	Admin           int       `json:"admin"`
	IsAdmin         bool      `json:"is_admin"`
	JWTToken        string    `json:"jwt_token,omitempty"`
	OAuthState      string    `json:"oauth_state,omitempty"`
	AuthenticatedAt time.Time `json:"authenticated_at,omitzero"`

	// CSRFToken survives logout so open forms keep working.
	CSRFToken string `json:"_token,omitempty"`

	// Data holds host-application values merged in at login.
	Data map[string]any `json:"data,omitempty"`
}

// IsLoggedIn reports whether the session belongs to an authenticated user.
// An identity key and the authenticated flag must both be present.
func (s *Session) IsLoggedIn() bool {
	if s == nil {
		return false
	}
	return s.Authenticated && (s.Email != "" || s.Username != "")
}

// HasRole reports whether the session's role list contains role.
func (s *Session) HasRole(role string) bool {
	return s != nil && slices.Contains(s.Roles, role)
}

// Establish records a successful login for user.
func (s *Session) Establish(user UserInfo, now time.Time) {
	s.Authenticated = true
	s.Email = user.Email
	s.Username = user.Email
	if user.Username != "" {
		s.Username = user.Username
	}
	s.Name = user.Name
	s.UserID = user.UserID
	s.Roles = slices.Clone(user.Roles)
	s.IsAdmin = slices.Contains(user.Roles, RoleAdmin)
	s.AuthenticatedAt = now
}

// Clear removes every identity and token field. The CSRF token and the
// session identity (ID, expiry) are kept so the store can decide whether
// to rotate the session.
func (s *Session) Clear() {
	*s = Session{
		ID:        s.ID,
		ExpiresAt: s.ExpiresAt,
		CSRFToken: s.CSRFToken,
	}
}

// Set merges a host-application value into Data.
func (s *Session) Set(key string, value any) {
	if s.Data == nil {
		s.Data = make(map[string]any)
	}
	s.Data[key] = value
}

// CurrentUser projects the session into a UserInfo.
func (s *Session) CurrentUser() UserInfo {
	return UserInfo{
		Email:         s.Email,
		UserID:        s.UserID,
		Name:          s.Name,
		Roles:         slices.Clone(s.Roles),
		Username:      s.Username,
		Admin:         s.Admin,
		Authenticated: s.Authenticated,
	}
}

// AuthResult is returned by every provider operation.
// Success=false always carries a non-empty Error.
type AuthResult struct {
	Success  bool      `json:"success"`
	Error    string    `json:"error,omitempty"`
	Redirect string    `json:"redirect,omitempty"`
	User     *UserInfo `json:"user,omitempty"`
	Message  string    `json:"message,omitempty"`

	// ExternalRedirect tells the HTTP layer to send the browser to Redirect.
	ExternalRedirect     bool `json:"external_redirect"`
	VerificationRequired bool `json:"verification_required,omitempty"`
}

// Failure builds an unsuccessful result.
func Failure(msg string) AuthResult {
	if msg == "" {
		msg = "Authentication failed."
	}
	return AuthResult{Success: false, Error: msg}
}

// ExternalRedirect builds a successful result that sends the browser to target.
func ExternalRedirect(target, message string) AuthResult {
	return AuthResult{Success: true, Redirect: target, Message: message, ExternalRedirect: true}
}

// Credentials are submitted to a local login.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	// Redirect is the post-login destination.
	Redirect string `json:"redirect,omitempty"`
}

// Registration carries sign-up input.
type Registration struct {
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Name     string         `json:"name,omitempty"`
	Extra    map[string]any `json:"user_data,omitempty"`
	Redirect string         `json:"redirect,omitempty"`
}
