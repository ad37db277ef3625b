package ports

// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"
	"errors"

	domainauth "github.com/avisitor/idp-client/internal/domain/auth"
)

// ErrSessionNotFound is returned by SessionStore.Get for unknown or expired ids.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore persists and retrieves browser sessions.
type SessionStore interface {
	Save(ctx context.Context, sess domainauth.Session) error
	Get(ctx context.Context, id string) (domainauth.Session, error)
	Delete(ctx context.Context, id string) error
}

// EnhanceRequest asks the IDP for a token carrying Roles for UserEmail in AppID.
type EnhanceRequest struct {
	// Token is the token being replaced; may be empty.
	Token     string
	UserEmail string
	Roles     []string
	AppID     string
	// IDPURL overrides the client's configured base URL when set.
	IDPURL string
}

// TokenEnhancer obtains role-bearing tokens from the IDP.
type TokenEnhancer interface {
	Enhance(ctx context.Context, req EnhanceRequest) (string, error)
}

// UserRecord is what the host application knows about a user.
type UserRecord struct {
	Email string
	Name  string
	Admin int
}

// UserDirectory looks up host-side user data. A nil record with a nil error
// means the user is unknown.
type UserDirectory interface {
	LookupUser(ctx context.Context, email string) (*UserRecord, error)
}

// RoleMapper maps a host admin level to application roles.
type RoleMapper interface {
	Map(adminLevel int) []string
}

// LoginHooks lets the host application observe and redirect auth events.
type LoginHooks interface {
	// OnPreLogin runs before the browser is sent to the login page.
	OnPreLogin(ctx context.Context, loginURL string)
	// OnSuccessfulLogin returns the final post-login destination.
	OnSuccessfulLogin(ctx context.Context, user domainauth.UserInfo, redirect string) string
	// OnLogout runs before the session is cleared.
	OnLogout(ctx context.Context, sess *domainauth.Session)
	// OnLogoutRedirect returns the final post-logout destination.
	OnLogoutRedirect(ctx context.Context, defaultURL string) string
}

// LocalCredentials is a row from the host's credential table.
type LocalCredentials struct {
	ID           string
	Username     string
	PasswordHash string
	Name         string
	Active       bool
	Admin        int
}

// LocalUserStore backs the local provider. FindCredentials returns nil, nil
// when the username does not exist.
type LocalUserStore interface {
	FindCredentials(ctx context.Context, username string) (*LocalCredentials, error)
	LoadUserData(ctx context.Context, username string) (map[string]any, error)
}

// LocalAccountManager is optionally implemented by a LocalUserStore that can
// also create accounts and change passwords.
type LocalAccountManager interface {
	Register(ctx context.Context, reg domainauth.Registration) error
	ChangePassword(ctx context.Context, username, oldPassword, newPassword string) error
}

// IDPResponse is the common {success, error} envelope returned by IDP API calls.
type IDPResponse struct {
	Success              bool           `json:"success"`
	Error                string         `json:"error,omitempty"`
	Message              string         `json:"message,omitempty"`
	User                 map[string]any `json:"user,omitempty"`
	VerificationRequired bool           `json:"verification_required,omitempty"`
	Valid                bool           `json:"valid,omitempty"`
}

// IDPClient calls the IDP's JSON API.
type IDPClient interface {
	Register(ctx context.Context, reg domainauth.Registration) (IDPResponse, error)
	VerifyEmail(ctx context.Context, token string) (IDPResponse, error)
	RequestPasswordReset(ctx context.Context, email string) (IDPResponse, error)
	ValidateToken(ctx context.Context, token string) (IDPResponse, error)
	ExchangeCode(ctx context.Context, code, redirectURI string) (string, error)
}

// IDPPages builds the browser-facing IDP page URLs.
type IDPPages interface {
	LoginURL(returnURL string) (string, error)
	LogoutURL(redirectURI string) (string, error)
	RegisterURL(callbackURL, state string) (string, error)
	ResetPasswordURL(email string) (string, error)
	ChangePasswordURL() (string, error)
}

// TokenVerifier checks a token's signature and issuer.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) error
}

// AuthProvider is implemented by the local and external providers.
// Operations report failures through AuthResult; URL builders return
// configuration errors.
type AuthProvider interface {
	Login(ctx context.Context, sess *domainauth.Session, creds domainauth.Credentials) domainauth.AuthResult
	Logout(ctx context.Context, sess *domainauth.Session, redirectURL string) domainauth.AuthResult
	Register(ctx context.Context, sess *domainauth.Session, reg domainauth.Registration) domainauth.AuthResult
	ResetPassword(ctx context.Context, email string) domainauth.AuthResult
	ChangePassword(ctx context.Context, sess *domainauth.Session, oldPassword, newPassword string) domainauth.AuthResult
	VerifyAccount(ctx context.Context, token string) domainauth.AuthResult

	IsAuthenticated(sess *domainauth.Session) bool
	CurrentUser(sess *domainauth.Session) *domainauth.UserInfo
	InitializeSession(sess *domainauth.Session)

	LoginURL(from string) (string, error)
	RegistrationURL(redirect, state string) (string, error)
	ResetPasswordURL(email string) (string, error)
	ChangePasswordURL() (string, error)

	IsExternalAuth() bool
}
