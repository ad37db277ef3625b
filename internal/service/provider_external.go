package service

import (
	"context"
	"log/slog"

	domainauth "github.com/avisitor/idp-client/internal/domain/auth"
	apperrors "github.com/avisitor/idp-client/internal/errors"
	"github.com/avisitor/idp-client/internal/ports"
)

// Messages returned by ExternalAuthProvider.
const (
	msgResetRedirect      = "Redirecting to password reset page..."
	msgChangeRedirect     = "Redirecting to password change page..."
	msgLocalLogout        = "Logout completed locally due to IDP connection issue."
	msgVerifyHandledByIDP = "Account verification is handled by the Identity Provider."
)

// ExternalProviderOptions groups dependencies for ExternalAuthProvider.
type ExternalProviderOptions struct {
	URLs   AppURLs
	Pages  ports.IDPPages // Required
	Logger *slog.Logger   // Optional
}

// ExternalAuthProvider delegates every credential operation to the IDP.
// Mutating operations return a redirect to the matching IDP page instead of
// acting locally.
type ExternalAuthProvider struct {
	urls   AppURLs
	pages  ports.IDPPages
	logger *slog.Logger
}

var _ ports.AuthProvider = (*ExternalAuthProvider)(nil)

// NewExternalAuthProvider constructs the provider. It panics if Pages is nil.
func NewExternalAuthProvider(opts ExternalProviderOptions) *ExternalAuthProvider {
	if opts.Pages == nil {
		panic("IDPPages is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ExternalAuthProvider{
		urls:   opts.URLs,
		pages:  opts.Pages,
		logger: logger.With("component", "external_auth"),
	}
}

func (p *ExternalAuthProvider) Login(ctx context.Context, _ *domainauth.Session, creds domainauth.Credentials) domainauth.AuthResult {
	loginURL, err := p.LoginURL(creds.Redirect)
	if err != nil {
		p.logger.ErrorContext(ctx, "build IDP login URL", "error", err)
		return domainauth.Failure(apperrors.UserMessage(err))
	}
	return domainauth.ExternalRedirect(loginURL, "")
}

// Logout clears the session first, then points the browser at the IDP logout
// page. When that URL cannot be built it still succeeds, redirecting to the
// local login handler without an external hop.
func (p *ExternalAuthProvider) Logout(ctx context.Context, sess *domainauth.Session, redirectURL string) domainauth.AuthResult {
	if sess != nil {
		sess.Clear()
	}

	logoutURL, err := p.logoutURL(redirectURL)
	if err != nil {
		p.logger.WarnContext(ctx, "IDP logout unavailable; logged out locally", "error", err)
		return domainauth.AuthResult{
			Success:  true,
			Redirect: p.urls.LocalPath("login", nil),
			Error:    msgLocalLogout,
		}
	}
	return domainauth.ExternalRedirect(logoutURL, "")
}

func (p *ExternalAuthProvider) logoutURL(redirectURL string) (string, error) {
	cb, err := p.urls.callbackURL(redirectURL)
	if err != nil {
		return "", err
	}
	return p.pages.LogoutURL(cb)
}

// Register sends the browser to the IDP sign-up page, carrying the session's
// OAuth state when one was issued.
func (p *ExternalAuthProvider) Register(ctx context.Context, sess *domainauth.Session, reg domainauth.Registration) domainauth.AuthResult {
	state := ""
	if sess != nil {
		state = sess.OAuthState
	}
	registerURL, err := p.RegistrationURL(reg.Redirect, state)
	if err != nil {
		p.logger.ErrorContext(ctx, "build IDP registration URL", "error", err)
		return domainauth.Failure(apperrors.UserMessage(err))
	}
	return domainauth.ExternalRedirect(registerURL, "")
}

func (p *ExternalAuthProvider) ResetPassword(ctx context.Context, email string) domainauth.AuthResult {
	resetURL, err := p.ResetPasswordURL(email)
	if err != nil {
		p.logger.ErrorContext(ctx, "build IDP reset URL", "error", err)
		return domainauth.Failure(apperrors.UserMessage(err))
	}
	return domainauth.ExternalRedirect(resetURL, msgResetRedirect)
}

func (p *ExternalAuthProvider) ChangePassword(ctx context.Context, _ *domainauth.Session, _, _ string) domainauth.AuthResult {
	changeURL, err := p.ChangePasswordURL()
	if err != nil {
		p.logger.ErrorContext(ctx, "build IDP change-password URL", "error", err)
		return domainauth.Failure(apperrors.UserMessage(err))
	}
	return domainauth.ExternalRedirect(changeURL, msgChangeRedirect)
}

func (p *ExternalAuthProvider) VerifyAccount(_ context.Context, _ string) domainauth.AuthResult {
	return domainauth.AuthResult{Success: true, Message: msgVerifyHandledByIDP}
}

// IsAuthenticated trusts the session, not the token.
func (p *ExternalAuthProvider) IsAuthenticated(sess *domainauth.Session) bool {
	return sess.IsLoggedIn()
}

func (p *ExternalAuthProvider) CurrentUser(sess *domainauth.Session) *domainauth.UserInfo {
	if sess == nil {
		return nil
	}
	email := sess.Email
	if email == "" {
		email = sess.Username
	}
	if email == "" {
		return nil
	}
	u := sess.CurrentUser()
	u.Email = email
	u.Username = email
	if u.Roles == nil {
		u.Roles = []string{}
	}
	return &u
}

// InitializeSession fills in the flags a session restored from an IDP login
// may be missing.
func (p *ExternalAuthProvider) InitializeSession(sess *domainauth.Session) {
	if sess == nil || sess.Email == "" {
		return
	}
	sess.Authenticated = true
	if sess.Username == "" {
		sess.Username = sess.Email
	}
}

func (p *ExternalAuthProvider) LoginURL(from string) (string, error) {
	cb, err := p.urls.callbackURL(from)
	if err != nil {
		return "", err
	}
	return p.pages.LoginURL(cb)
}

func (p *ExternalAuthProvider) RegistrationURL(redirect, state string) (string, error) {
	cb, err := p.urls.callbackURL(redirect)
	if err != nil {
		return "", err
	}
	return p.pages.RegisterURL(cb, state)
}

func (p *ExternalAuthProvider) ResetPasswordURL(email string) (string, error) {
	return p.pages.ResetPasswordURL(email)
}

func (p *ExternalAuthProvider) ChangePasswordURL() (string, error) {
	return p.pages.ChangePasswordURL()
}

func (p *ExternalAuthProvider) IsExternalAuth() bool { return true }
