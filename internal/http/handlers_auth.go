package httpx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	domainauth "github.com/avisitor/idp-client/internal/domain/auth"
	"github.com/avisitor/idp-client/internal/domain/token"
	apperrors "github.com/avisitor/idp-client/internal/errors"
	"github.com/avisitor/idp-client/internal/ports"
	"github.com/avisitor/idp-client/internal/service"
)

const (
	msgNoToken         = "No authentication token received from IDP"
	msgBadTokenFormat  = "Invalid JWT token format"
	msgBadTokenPayload = "Invalid JWT payload"
	msgMissingEmail    = "Incomplete user information in JWT - missing email"
	msgBadState        = "Invalid state parameter"
	msgBadSignature    = "Token signature could not be verified"
	msgVerified        = "Your email has been verified! You can now log in."
	msgRegistered      = "Registration successful. Please check your email to verify your account."
	msgRegisteredLocal = "Registration successful. You can now log in."
	msgResetSent       = "If an account exists for that email, a password reset link has been sent."
)

// ProviderSource yields the active auth provider.
// *service.AuthProviderFactory implements it.
type ProviderSource interface {
	Instance() (ports.AuthProvider, error)
}

// AuthRoutes locates the auth handlers and the pages they send users to.
type AuthRoutes struct {
	URLs service.AppURLs
	// DefaultRedirect is used when a request carries no usable destination.
	DefaultRedirect string
	// LogoutRedirect is where users land after logout. Defaults to DefaultRedirect.
	LogoutRedirect string
	SupportEmail   string
}

// AuthHandlers serves the redirect-based login flow.
type AuthHandlers struct {
	Providers ProviderSource
	Sessions  *SessionManager
	Routes    AuthRoutes

	// IDP backs code exchange, email verification and API sign-up.
	IDP ports.IDPClient
	// Verifier checks callback token signatures when set.
	Verifier ports.TokenVerifier
	Hooks    ports.LoginHooks

	Tokens        *service.TokenManager
	TokenTarget   service.TokenTarget
	RefreshBuffer time.Duration

	// NewState issues OAuth state values. Defaults to random UUIDs.
	NewState func() (string, error)
	Logger   *slog.Logger
	Now      func() time.Time
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *AuthHandlers) hooks() ports.LoginHooks {
	if h.Hooks != nil {
		return h.Hooks
	}
	return service.DefaultLoginHooks{Logger: h.logger()}
}

func (h *AuthHandlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *AuthHandlers) newState() (string, error) {
	if h.NewState != nil {
		return h.NewState()
	}
	return uuid.NewString(), nil
}

func (h *AuthHandlers) defaultRedirect() string {
	if h.Routes.DefaultRedirect != "" {
		return h.Routes.DefaultRedirect
	}
	return "/"
}

func (h *AuthHandlers) logoutRedirect() string {
	if h.Routes.LogoutRedirect != "" {
		return h.Routes.LogoutRedirect
	}
	return h.defaultRedirect()
}

// destination reads the first non-empty parameter in keys and sanitizes it.
func (h *AuthHandlers) destination(r *http.Request, fallback string, keys ...string) string {
	for _, k := range keys {
		if v := r.FormValue(k); v != "" {
			return safeRedirect(v, fallback, h.Routes.URLs.BaseURL)
		}
	}
	return fallback
}

// provider resolves the active provider. On failure it writes a 500 and returns false.
func (h *AuthHandlers) provider(w http.ResponseWriter, r *http.Request) (ports.AuthProvider, bool) {
	p, err := h.Providers.Instance()
	if err != nil {
		h.logger().ErrorContext(r.Context(), "auth provider unavailable", "error", err)
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "auth_unavailable", Err: err})
		return nil, false
	}
	return p, true
}

func (h *AuthHandlers) save(w http.ResponseWriter, r *http.Request, sess *domainauth.Session) bool {
	if err := h.Sessions.Save(w, r, sess); err != nil {
		h.logger().ErrorContext(r.Context(), "save session failed", "error", err)
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "session_error", Err: err})
		return false
	}
	return true
}

// promote moves the state built up in next onto a new session id and
// deletes old from the store.
func (h *AuthHandlers) promote(w http.ResponseWriter, r *http.Request, old, next *domainauth.Session) bool {
	fresh, err := h.Sessions.Rotate(r, old)
	if err != nil {
		h.logger().ErrorContext(r.Context(), "rotate session failed", "error", err)
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "session_error", Err: err})
		return false
	}
	next.ID = fresh.ID
	next.ExpiresAt = fresh.ExpiresAt
	if next.CSRFToken == "" {
		next.CSRFToken = fresh.CSRFToken
	}
	return h.save(w, r, next)
}

func cloneSession(s *domainauth.Session) *domainauth.Session {
	c := *s
	c.Roles = append([]string(nil), s.Roles...)
	c.Data = maps.Clone(s.Data)
	return &c
}

// outcome is the end state of a form-style auth operation.
type outcome struct {
	Result domainauth.AuthResult
	// Page is the auth page shown next when Result carries no redirect.
	Page string
	From string
}

// finish answers JSON clients with the result and redirects browsers: to
// the result's redirect on success, otherwise back to Page with an error.
func (h *AuthHandlers) finish(w http.ResponseWriter, r *http.Request, o outcome) {
	res := o.Result
	status := http.StatusFound
	if r.Method != http.MethodGet {
		status = http.StatusSeeOther
	}
	if res.Success && res.ExternalRedirect {
		http.Redirect(w, r, res.Redirect, status)
		return
	}
	if wantsJSON(r) {
		code := http.StatusOK
		if !res.Success {
			code = http.StatusBadRequest
			if o.Page == "login" {
				code = http.StatusUnauthorized
			}
		}
		WriteJSON(w, code, res)
		return
	}

	q := url.Values{}
	if o.From != "" {
		q.Set("from", o.From)
	}
	if !res.Success {
		q.Set("error", res.Error)
		http.Redirect(w, r, h.Routes.URLs.LocalPath(o.Page, q), status)
		return
	}
	if res.Redirect != "" && res.Message == "" {
		http.Redirect(w, r, res.Redirect, status)
		return
	}
	if res.Message != "" {
		q.Set("message", res.Message)
	}
	http.Redirect(w, r, h.Routes.URLs.LocalPath(o.Page, q), status)
}

// formResponse describes a local auth form for clients rendering their own UI.
type formResponse struct {
	Provider  string `json:"provider"`
	Form      string `json:"form"`
	Action    string `json:"action"`
	From      string `json:"from,omitempty"`
	Error     string `json:"error,omitempty"`
	Message   string `json:"message,omitempty"`
	CSRFToken string `json:"csrf_token"`
}

// showForm persists the session so its CSRF token survives until the POST.
func (h *AuthHandlers) showForm(w http.ResponseWriter, r *http.Request, form, from string) {
	sess := h.Sessions.session(r)
	if !h.save(w, r, sess) {
		return
	}
	WriteJSON(w, http.StatusOK, formResponse{
		Provider:  "local",
		Form:      form,
		Action:    h.Routes.URLs.LocalPath(form, nil),
		From:      from,
		Error:     r.URL.Query().Get("error"),
		Message:   r.URL.Query().Get("message"),
		CSRFToken: sess.CSRFToken,
	})
}

type credentialsBody struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Redirect  string `json:"redirect"`
	CSRFToken string `json:"csrf_token"`
}

func (h *AuthHandlers) readCredentials(w http.ResponseWriter, r *http.Request) (domainauth.Credentials, bool) {
	var body credentialsBody
	if isJSONBody(r) {
		if !DecodeJSON(w, r, &body) {
			return domainauth.Credentials{}, false
		}
	} else {
		body = credentialsBody{
			Username: r.PostFormValue("username"),
			Email:    r.PostFormValue("email"),
			Password: r.PostFormValue("password"),
			Redirect: r.PostFormValue("redirect"),
		}
	}
	if body.Username == "" {
		body.Username = body.Email
	}
	return domainauth.Credentials{Username: body.Username, Password: body.Password, Redirect: body.Redirect}, true
}

type registrationBody struct {
	Email     string         `json:"email"`
	Password  string         `json:"password"`
	Name      string         `json:"name"`
	UserData  map[string]any `json:"user_data"`
	Redirect  string         `json:"redirect"`
	CSRFToken string         `json:"csrf_token"`
}

func (h *AuthHandlers) readRegistration(w http.ResponseWriter, r *http.Request) (domainauth.Registration, bool) {
	var body registrationBody
	if isJSONBody(r) {
		if !DecodeJSON(w, r, &body) {
			return domainauth.Registration{}, false
		}
	} else {
		body = registrationBody{
			Email:    r.PostFormValue("email"),
			Password: r.PostFormValue("password"),
			Name:     r.PostFormValue("name"),
			Redirect: r.PostFormValue("redirect"),
		}
	}
	return domainauth.Registration{
		Email:    strings.TrimSpace(body.Email),
		Password: body.Password,
		Name:     strings.TrimSpace(body.Name),
		Extra:    body.UserData,
		Redirect: body.Redirect,
	}, true
}

func isJSONBody(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

// Login starts a login.
// GET /auth/login?from=<url> redirects to the IDP in external mode and
// describes the local form otherwise. POST accepts local credentials.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	p, ok := h.provider(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	from := h.destination(r, h.defaultRedirect(), "from", "redirect")

	if p.IsExternalAuth() {
		res := p.Login(ctx, h.Sessions.session(r), domainauth.Credentials{Redirect: from})
		if !res.Success {
			WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "login_unavailable", Err: errors.New(res.Error)})
			return
		}
		h.hooks().OnPreLogin(ctx, res.Redirect)
		http.Redirect(w, r, res.Redirect, http.StatusFound)
		return
	}

	if r.Method != http.MethodPost {
		h.showForm(w, r, "login", from)
		return
	}

	creds, ok := h.readCredentials(w, r)
	if !ok {
		return
	}
	creds.Redirect = safeRedirect(creds.Redirect, from, h.Routes.URLs.BaseURL)

	sess := h.Sessions.session(r)
	next := cloneSession(sess)
	res := p.Login(ctx, next, creds)
	if !res.Success {
		h.logger().InfoContext(ctx, "local login rejected", "user", creds.Username)
		h.finish(w, r, outcome{Result: res, Page: "login", From: creds.Redirect})
		return
	}
	if !h.promote(w, r, sess, next) {
		return
	}
	res.Redirect = h.hooks().OnSuccessfulLogin(ctx, *res.User, creds.Redirect)
	if res.Redirect == "" {
		res.Redirect = creds.Redirect
	}
	h.finish(w, r, outcome{Result: res, Page: "login"})
}

// callbackInput is what the IDP sent back to the callback.
type callbackInput struct {
	Token       string
	Code        string
	State       string
	IDPError    string
	RedirectURI string
}

// Callback completes an IDP login. It requires a token (token or jwt
// parameter) or an authorization code.
// GET /auth/idp-callback?token=<jwt>&redirect=<url>
func (h *AuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	h.callback(w, r, false)
}

// Return is the IDP's return address for both login and logout. Without a
// token, code or error it is a post-logout return and just redirects.
// GET /auth/callback?redirect=<url>[&token=<jwt>]
func (h *AuthHandlers) Return(w http.ResponseWriter, r *http.Request) {
	h.callback(w, r, true)
}

func (h *AuthHandlers) callback(w http.ResponseWriter, r *http.Request, allowEmpty bool) {
	ctx := r.Context()
	q := r.URL.Query()
	redirect := safeRedirect(q.Get("redirect"), h.defaultRedirect(), h.Routes.URLs.BaseURL)

	in := callbackInput{
		Token:       q.Get("token"),
		Code:        q.Get("code"),
		State:       q.Get("state"),
		IDPError:    q.Get("error"),
		RedirectURI: strings.TrimRight(h.Routes.URLs.BaseURL, "/") + r.URL.Path,
	}
	if in.Token == "" {
		in.Token = q.Get("jwt")
	}
	if allowEmpty && in.Token == "" && in.Code == "" && in.IDPError == "" {
		http.Redirect(w, r, redirect, http.StatusFound)
		return
	}

	sess := h.Sessions.session(r)
	user, raw, err := h.completeLogin(ctx, sess, in)
	if err != nil {
		h.logger().WarnContext(ctx, "IDP callback rejected", "error", err)
		q := url.Values{"error": {"Authentication failed: " + apperrors.UserMessage(err)}, "from": {redirect}}
		http.Redirect(w, r, h.Routes.URLs.LocalPath("login", q), http.StatusFound)
		return
	}

	next := cloneSession(sess)
	next.OAuthState = ""
	next.Establish(user, h.now())
	next.JWTToken = raw
	if !h.promote(w, r, sess, next) {
		return
	}

	final := h.hooks().OnSuccessfulLogin(ctx, user, redirect)
	if final == "" {
		final = redirect
	}
	h.logger().InfoContext(ctx, "IDP login successful", "user", user.Email, "roles", user.Roles)
	http.Redirect(w, r, final, http.StatusFound)
}

// completeLogin turns callback input into a user. Every error is an
// authentication failure carrying a user-facing message.
func (h *AuthHandlers) completeLogin(ctx context.Context, sess *domainauth.Session, in callbackInput) (domainauth.UserInfo, string, error) {
	if in.IDPError != "" {
		return domainauth.UserInfo{}, "", apperrors.Authentication(in.IDPError)
	}
	if in.State != "" && in.State != sess.OAuthState {
		return domainauth.UserInfo{}, "", apperrors.Authentication(msgBadState)
	}

	raw := in.Token
	if raw == "" && in.Code != "" {
		if h.IDP == nil {
			return domainauth.UserInfo{}, "", apperrors.Configurationf("IDP client is not configured for code exchange")
		}
		exchanged, err := h.IDP.ExchangeCode(ctx, in.Code, in.RedirectURI)
		if err != nil {
			return domainauth.UserInfo{}, "", err
		}
		raw = exchanged
	}
	if raw == "" {
		return domainauth.UserInfo{}, "", apperrors.Authentication(msgNoToken)
	}

	claims, err := token.Decode(raw)
	switch {
	case errors.Is(err, token.ErrMalformedToken):
		return domainauth.UserInfo{}, "", apperrors.Authentication(msgBadTokenFormat)
	case err != nil:
		return domainauth.UserInfo{}, "", apperrors.Authentication(msgBadTokenPayload)
	}
	if h.Verifier != nil {
		if err := h.Verifier.Verify(ctx, raw); err != nil {
			return domainauth.UserInfo{}, "", apperrors.Wrap(err, apperrors.ErrCodeAuthentication, msgBadSignature)
		}
	}

	email := claims.Identity()
	if email == "" {
		return domainauth.UserInfo{}, "", apperrors.Authentication(msgMissingEmail)
	}
	roles := claims.Roles
	if roles == nil {
		roles = domainauth.DefaultRoles()
	}
	userID := claims.Subject
	if userID == "" {
		userID = claims.UserID
	}
	return domainauth.UserInfo{
		Email:         email,
		UserID:        userID,
		Name:          claims.Name,
		Roles:         roles,
		Username:      email,
		Authenticated: true,
	}, raw, nil
}

// Logout ends the session and redirects through the IDP logout page in
// external mode. GET or POST /auth/logout?redirect=<url>
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	p, ok := h.provider(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	sess := h.Sessions.session(r)

	h.hooks().OnLogout(ctx, sess)
	target := h.destination(r, h.logoutRedirect(), "redirect", "from")
	if hooked := h.hooks().OnLogoutRedirect(ctx, target); hooked != "" {
		target = hooked
	}

	res := p.Logout(ctx, sess, target)
	fresh, err := h.Sessions.Rotate(r, sess)
	if err != nil {
		h.logger().WarnContext(ctx, "rotate session on logout failed", "error", err)
		h.Sessions.ClearCookie(w, r)
	} else if err := h.Sessions.Save(w, r, fresh); err != nil {
		h.logger().WarnContext(ctx, "save session on logout failed", "error", err)
		h.Sessions.ClearCookie(w, r)
	}

	dest := res.Redirect
	if dest == "" {
		dest = target
	}
	if wantsJSON(r) {
		WriteJSON(w, http.StatusOK, domainauth.AuthResult{Success: true, Redirect: dest, Message: res.Error})
		return
	}
	status := http.StatusFound
	if r.Method != http.MethodGet {
		status = http.StatusSeeOther
	}
	http.Redirect(w, r, dest, status)
}

// Register starts sign-up. GET redirects to the IDP sign-up page with a
// fresh OAuth state, or describes the local form. POST creates the account
// through the IDP API in external mode and the local store otherwise.
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	p, ok := h.provider(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	from := h.destination(r, h.defaultRedirect(), "from", "redirect")

	if r.Method == http.MethodPost {
		h.registerDirect(w, r, p, from)
		return
	}
	if !p.IsExternalAuth() {
		h.showForm(w, r, "register", from)
		return
	}

	state, err := h.newState()
	if err != nil {
		h.logger().ErrorContext(ctx, "generate oauth state failed", "error", err)
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "state_error", Err: err})
		return
	}
	sess := h.Sessions.session(r)
	sess.OAuthState = state
	res := p.Register(ctx, sess, domainauth.Registration{Redirect: from})
	if !res.Success {
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "register_unavailable", Err: errors.New(res.Error)})
		return
	}
	if !h.save(w, r, sess) {
		return
	}
	http.Redirect(w, r, res.Redirect, http.StatusFound)
}

func (h *AuthHandlers) registerDirect(w http.ResponseWriter, r *http.Request, p ports.AuthProvider, from string) {
	ctx := r.Context()
	reg, ok := h.readRegistration(w, r)
	if !ok {
		return
	}
	reg.Redirect = safeRedirect(reg.Redirect, from, h.Routes.URLs.BaseURL)

	if !p.IsExternalAuth() {
		res := p.Register(ctx, h.Sessions.session(r), reg)
		res.Redirect = ""
		h.finish(w, r, outcome{Result: res, Page: pageAfterRegister(res), From: reg.Redirect})
		return
	}

	if h.IDP == nil {
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "register_unavailable", Err: apperrors.Configurationf("IDP client is not configured")})
		return
	}
	resp, err := h.IDP.Register(ctx, reg)
	res := resultFromIDP(resp, err)
	if res.Success && res.Message == "" {
		res.Message = msgRegisteredLocal
		if res.VerificationRequired {
			res.Message = msgRegistered
		}
	}
	if !res.Success {
		h.logger().InfoContext(ctx, "IDP registration rejected", "user", reg.Email, "error", res.Error)
	}
	h.finish(w, r, outcome{Result: res, Page: pageAfterRegister(res), From: reg.Redirect})
}

// pageAfterRegister sends successful sign-ups to login and failures back to the form.
func pageAfterRegister(res domainauth.AuthResult) string {
	if res.Success {
		return "login"
	}
	return "register"
}

// resultFromIDP folds an IDP API answer into an AuthResult.
func resultFromIDP(resp ports.IDPResponse, err error) domainauth.AuthResult {
	if err != nil || !resp.Success {
		msg := resp.Error
		if msg == "" && err != nil {
			msg = apperrors.UserMessage(err)
		}
		return domainauth.Failure(msg)
	}
	return domainauth.AuthResult{
		Success:              true,
		Message:              resp.Message,
		VerificationRequired: resp.VerificationRequired,
	}
}

// Reset starts a password reset. GET /auth/reset?email= redirects to the
// IDP reset page. POST with an email asks the IDP to send the reset mail.
func (h *AuthHandlers) Reset(w http.ResponseWriter, r *http.Request) {
	p, ok := h.provider(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	email := strings.TrimSpace(r.FormValue("email"))
	if isJSONBody(r) && r.Method == http.MethodPost {
		var body struct {
			Email     string `json:"email"`
			CSRFToken string `json:"csrf_token"`
		}
		if !DecodeJSON(w, r, &body) {
			return
		}
		email = strings.TrimSpace(body.Email)
	}

	if r.Method != http.MethodPost || !p.IsExternalAuth() {
		h.finish(w, r, outcome{Result: p.ResetPassword(ctx, email), Page: "login"})
		return
	}
	if email == "" {
		h.finish(w, r, outcome{Result: domainauth.Failure("Please enter email."), Page: "reset"})
		return
	}
	if h.IDP == nil {
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "reset_unavailable", Err: apperrors.Configurationf("IDP client is not configured")})
		return
	}
	res := resultFromIDP(h.IDP.RequestPasswordReset(ctx, email))
	if res.Success && res.Message == "" {
		res.Message = msgResetSent
	}
	h.finish(w, r, outcome{Result: res, Page: "login"})
}

// Change starts a password change for the logged-in user. External mode
// redirects to the IDP; local mode accepts current_password and new_password.
func (h *AuthHandlers) Change(w http.ResponseWriter, r *http.Request) {
	p, ok := h.provider(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	sess := h.Sessions.session(r)
	if !p.IsAuthenticated(sess) {
		q := url.Values{"from": {h.Routes.URLs.LocalPath("change", nil)}}
		http.Redirect(w, r, h.Routes.URLs.LocalPath("login", q), http.StatusFound)
		return
	}
	if p.IsExternalAuth() {
		h.finish(w, r, outcome{Result: p.ChangePassword(ctx, sess, "", ""), Page: "change"})
		return
	}
	if r.Method != http.MethodPost {
		h.showForm(w, r, "change", "")
		return
	}

	var body struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
		CSRFToken       string `json:"csrf_token"`
	}
	if isJSONBody(r) {
		if !DecodeJSON(w, r, &body) {
			return
		}
	} else {
		body.CurrentPassword = r.PostFormValue("current_password")
		body.NewPassword = r.PostFormValue("new_password")
	}
	if body.NewPassword == "" {
		h.finish(w, r, outcome{Result: domainauth.Failure("Please enter a new password."), Page: "change"})
		return
	}
	h.finish(w, r, outcome{Result: p.ChangePassword(ctx, sess, body.CurrentPassword, body.NewPassword), Page: "change"})
}

// Verify confirms an email-verification link.
// GET /auth/verify?token=<token>&return=<url>
func (h *AuthHandlers) Verify(w http.ResponseWriter, r *http.Request) {
	p, ok := h.provider(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	tok := strings.TrimSpace(r.URL.Query().Get("token"))
	returnURL := h.destination(r, "", "return", "redirect")

	if tok == "" {
		msg := "Invalid verification link. Please use the link from your verification email."
		if h.Routes.SupportEmail != "" {
			msg += fmt.Sprintf(" If you did not receive it, contact %s.", h.Routes.SupportEmail)
		}
		h.finish(w, r, outcome{Result: domainauth.Failure(msg), Page: "login", From: returnURL})
		return
	}

	var res domainauth.AuthResult
	switch {
	case p.IsExternalAuth() && h.IDP != nil:
		res = resultFromIDP(h.IDP.VerifyEmail(ctx, tok))
	default:
		res = p.VerifyAccount(ctx, tok)
	}
	if !res.Success {
		h.logger().InfoContext(ctx, "email verification failed", "error", res.Error)
		msg := "Verification failed: " + res.Error
		if h.Routes.SupportEmail != "" {
			msg += fmt.Sprintf(" Please request a new verification email or contact %s.", h.Routes.SupportEmail)
		}
		h.finish(w, r, outcome{Result: domainauth.Failure(msg), Page: "login", From: returnURL})
		return
	}
	res.Message = msgVerified
	res.Redirect = ""
	h.finish(w, r, outcome{Result: res, Page: "login", From: returnURL})
}
