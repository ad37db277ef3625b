package service

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	domainauth "github.com/avisitor/idp-client/internal/domain/auth"
	apperrors "github.com/avisitor/idp-client/internal/errors"
	"github.com/avisitor/idp-client/internal/ports"
)

// Messages returned by LocalAuthProvider.
const (
	msgEnterEmail         = "Please enter email."
	msgEnterPassword      = "Please enter your password."
	msgInvalidCredentials = "Invalid username or password."
	msgInactiveAccount    = "Please activate your account. Check your email for the activation link."
	msgLoginSystemError   = "Login system error. Please try again."
	msgRegisterNotImpl    = "Local registration not implemented."
	msgResetNotImpl       = "Local password reset not implemented."
	msgChangeNotImpl      = "Local password change not implemented."
	msgVerifyNotImpl      = "Local account verification not implemented."
	msgNotLoggedIn        = "You must be logged in to change your password."
)

// LocalProviderOptions groups dependencies for LocalAuthProvider.
type LocalProviderOptions struct {
	URLs   AppURLs
	Store  ports.LocalUserStore // Required
	Logger *slog.Logger         // Optional
}

// LocalAuthProvider checks credentials against the host's user store.
// Register and ChangePassword work when the store also implements
// ports.LocalAccountManager.
type LocalAuthProvider struct {
	urls   AppURLs
	store  ports.LocalUserStore
	logger *slog.Logger
	now    func() time.Time
}

var _ ports.AuthProvider = (*LocalAuthProvider)(nil)

// NewLocalAuthProvider constructs the provider. It panics if Store is nil.
func NewLocalAuthProvider(opts LocalProviderOptions) *LocalAuthProvider {
	if opts.Store == nil {
		panic("LocalUserStore is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalAuthProvider{
		urls:   opts.URLs,
		store:  opts.Store,
		logger: logger.With("component", "local_auth"),
		now:    time.Now,
	}
}

// Login verifies the password hash and the active flag, then fills the
// session and merges the store's user data into it.
func (p *LocalAuthProvider) Login(ctx context.Context, sess *domainauth.Session, creds domainauth.Credentials) domainauth.AuthResult {
	username := strings.TrimSpace(creds.Username)
	password := strings.TrimSpace(creds.Password)
	if username == "" {
		return domainauth.Failure(msgEnterEmail)
	}
	if password == "" {
		return domainauth.Failure(msgEnterPassword)
	}

	row, err := p.store.FindCredentials(ctx, username)
	if err != nil {
		p.logger.ErrorContext(ctx, "credential lookup failed", "user", username, "error", err)
		return domainauth.Failure(msgLoginSystemError)
	}
	if row == nil || bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(password)) != nil {
		return domainauth.Failure(msgInvalidCredentials)
	}
	if !row.Active {
		return domainauth.Failure(msgInactiveAccount)
	}

	data, err := p.store.LoadUserData(ctx, username)
	if err != nil {
		p.logger.ErrorContext(ctx, "load user data failed", "user", username, "error", err)
		return domainauth.Failure(msgLoginSystemError)
	}

	user := domainauth.UserInfo{
		Email:         username,
		UserID:        row.ID,
		Name:          row.Name,
		Roles:         rolesFromData(data),
		Username:      username,
		Admin:         row.Admin,
		Authenticated: true,
	}
	if sess != nil {
		sess.Establish(user, p.now())
		sess.Admin = row.Admin
		for k, v := range data {
			sess.Set(k, v)
		}
	}

	p.logger.InfoContext(ctx, "login successful", "user", username)
	return domainauth.AuthResult{Success: true, User: &user, Redirect: creds.Redirect}
}

// rolesFromData reads a "roles" entry written by the host, defaulting to user.
func rolesFromData(data map[string]any) []string {
	switch v := data["roles"].(type) {
	case []string:
		if len(v) > 0 {
			return v
		}
	case []any:
		out := make([]string, 0, len(v))
		for _, r := range v {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return domainauth.DefaultRoles()
}

func (p *LocalAuthProvider) Logout(_ context.Context, sess *domainauth.Session, redirectURL string) domainauth.AuthResult {
	if sess != nil {
		sess.Clear()
	}
	if redirectURL == "" {
		redirectURL, _ = p.LoginURL("")
	}
	return domainauth.AuthResult{Success: true, Redirect: redirectURL}
}

func (p *LocalAuthProvider) accounts() (ports.LocalAccountManager, bool) {
	m, ok := p.store.(ports.LocalAccountManager)
	return m, ok
}

func (p *LocalAuthProvider) Register(ctx context.Context, _ *domainauth.Session, reg domainauth.Registration) domainauth.AuthResult {
	m, ok := p.accounts()
	if !ok {
		return domainauth.AuthResult{Success: false, Error: msgRegisterNotImpl, VerificationRequired: true}
	}
	if err := m.Register(ctx, reg); err != nil {
		p.logger.WarnContext(ctx, "local registration failed", "user", reg.Email, "error", err)
		return domainauth.Failure(userFacing(err))
	}
	return domainauth.AuthResult{Success: true, Redirect: reg.Redirect, Message: "Registration successful. You can now log in."}
}

func (p *LocalAuthProvider) ResetPassword(context.Context, string) domainauth.AuthResult {
	return domainauth.Failure(msgResetNotImpl)
}

func (p *LocalAuthProvider) ChangePassword(ctx context.Context, sess *domainauth.Session, oldPassword, newPassword string) domainauth.AuthResult {
	m, ok := p.accounts()
	if !ok {
		return domainauth.Failure(msgChangeNotImpl)
	}
	if !p.IsAuthenticated(sess) {
		return domainauth.Failure(msgNotLoggedIn)
	}
	if err := m.ChangePassword(ctx, sess.Username, oldPassword, newPassword); err != nil {
		p.logger.WarnContext(ctx, "local password change failed", "user", sess.Username, "error", err)
		return domainauth.Failure(userFacing(err))
	}
	return domainauth.AuthResult{Success: true, Message: "Password changed."}
}

func (p *LocalAuthProvider) VerifyAccount(context.Context, string) domainauth.AuthResult {
	return domainauth.Failure(msgVerifyNotImpl)
}

func (p *LocalAuthProvider) IsAuthenticated(sess *domainauth.Session) bool {
	return sess != nil && sess.Authenticated && sess.Username != ""
}

func (p *LocalAuthProvider) CurrentUser(sess *domainauth.Session) *domainauth.UserInfo {
	if !p.IsAuthenticated(sess) {
		return nil
	}
	u := sess.CurrentUser()
	if u.Email == "" {
		u.Email = u.Username
	}
	return &u
}

// InitializeSession reloads store data for an authenticated session without
// overwriting values already present.
func (p *LocalAuthProvider) InitializeSession(sess *domainauth.Session) {
	if !p.IsAuthenticated(sess) {
		return
	}
	ctx := context.Background()
	data, err := p.store.LoadUserData(ctx, sess.Username)
	if err != nil {
		p.logger.WarnContext(ctx, "reload user data failed", "user", sess.Username, "error", err)
		return
	}
	for k, v := range data {
		if _, exists := sess.Data[k]; !exists {
			sess.Set(k, v)
		}
	}
}

func (p *LocalAuthProvider) LoginURL(from string) (string, error) {
	return p.page("login", "from", from), nil
}

func (p *LocalAuthProvider) RegistrationURL(redirect, state string) (string, error) {
	q := url.Values{}
	if redirect != "" {
		q.Set("from", redirect)
	}
	if state != "" {
		q.Set("state", state)
	}
	return p.pageQuery("register", q), nil
}

func (p *LocalAuthProvider) ResetPasswordURL(email string) (string, error) {
	return p.page("reset", "email", email), nil
}

func (p *LocalAuthProvider) ChangePasswordURL() (string, error) {
	return p.pageQuery("change", nil), nil
}

func (p *LocalAuthProvider) IsExternalAuth() bool { return false }

func (p *LocalAuthProvider) page(name, key, value string) string {
	var q url.Values
	if value != "" {
		q = url.Values{key: {value}}
	}
	return p.pageQuery(name, q)
}

// pageQuery is absolute when a base URL is configured and relative otherwise.
func (p *LocalAuthProvider) pageQuery(name string, q url.Values) string {
	if abs, err := p.urls.Absolute(name, q); err == nil {
		return abs
	}
	return p.urls.LocalPath(name, q)
}

// userFacing returns the AppError message or a generic fallback.
func userFacing(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Message != "" && appErr.Code != apperrors.ErrCodeInternal {
		return appErr.Message
	}
	return msgLoginSystemError
}
