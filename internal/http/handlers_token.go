package httpx

import (
	"net/http"
	"strconv"
	"time"

	domainauth "github.com/avisitor/idp-client/internal/domain/auth"
	"github.com/avisitor/idp-client/internal/domain/token"
	apperrors "github.com/avisitor/idp-client/internal/errors"
)

// tokenResponse is served to the browser-side token watchdog.
type tokenResponse struct {
	Success   bool   `json:"success"`
	Token     string `json:"token,omitempty"`
	UserEmail string `json:"user_email,omitempty"`
	AppID     string `json:"app_id,omitempty"`
	ExpiresIn int64  `json:"expires_in"`
	RefreshIn int64  `json:"refresh_in"`
	Error     string `json:"error,omitempty"`
}

// Token returns a usable role-bearing token for the logged-in user,
// refreshing it through the IDP when needed.
// GET /auth/token[?refresh=true]
func (h *AuthHandlers) Token(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := h.Sessions.session(r)
	if !sess.IsLoggedIn() {
		WriteJSON(w, http.StatusUnauthorized, tokenResponse{Error: "No authenticated user found"})
		return
	}
	if h.Tokens == nil {
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "token_unavailable", Err: apperrors.Configurationf("token manager is not configured")})
		return
	}

	force, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
	before := sess.JWTToken
	tok, err := h.Tokens.ForSession(sess, h.TokenTarget).Token(ctx, force)
	if err != nil {
		h.logger().ErrorContext(ctx, "token refresh failed", "user", sess.Email, "error", err)
		WriteJSON(w, http.StatusInternalServerError, tokenResponse{Error: apperrors.UserMessage(err)})
		return
	}
	if tok == "" {
		WriteJSON(w, http.StatusBadGateway, tokenResponse{Error: "Failed to obtain valid token"})
		return
	}
	if sess.JWTToken != before && !h.save(w, r, sess) {
		return
	}

	resp := tokenResponse{
		Success:   true,
		Token:     tok,
		UserEmail: sess.Email,
		AppID:     h.TokenTarget.AppID,
	}
	if claims, err := token.Decode(tok); err == nil {
		left := token.ExpiresIn(claims, h.Tokens.Now())
		resp.ExpiresIn = int64(left / time.Second)
		resp.RefreshIn = int64(max(left-h.refreshBuffer(), 0) / time.Second)
	}
	WriteJSON(w, http.StatusOK, resp)
}

func (h *AuthHandlers) refreshBuffer() time.Duration {
	if h.RefreshBuffer > 0 {
		return h.RefreshBuffer
	}
	return token.DefaultRefreshBuffer
}

// statusResponse describes the current auth state.
type statusResponse struct {
	Authenticated bool                 `json:"authenticated"`
	Provider      string               `json:"provider"`
	User          *domainauth.UserInfo `json:"user,omitempty"`
	LoginURL      string               `json:"login_url,omitempty"`
	ExpiresIn     int64                `json:"expires_in,omitempty"`
	TokenValid    *bool                `json:"token_valid,omitempty"`
	CSRFToken     string               `json:"csrf_token,omitempty"`
}

// Status reports whether the caller is logged in and as whom.
// GET /auth/status[?validate=true] also asks the IDP whether the session
// token is still valid.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	p, ok := h.provider(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	sess := h.Sessions.session(r)
	resp := statusResponse{
		Authenticated: p.IsAuthenticated(sess),
		Provider:      "local",
	}
	if p.IsExternalAuth() {
		resp.Provider = "external"
	}
	if !resp.Authenticated {
		resp.LoginURL, _ = p.LoginURL("")
		WriteJSON(w, http.StatusOK, resp)
		return
	}

	resp.User = p.CurrentUser(sess)
	resp.CSRFToken = sess.CSRFToken
	if sess.JWTToken != "" {
		if claims, err := token.Decode(sess.JWTToken); err == nil {
			resp.ExpiresIn = int64(token.ExpiresIn(claims, h.now()) / time.Second)
		}
	}
	if validate, _ := strconv.ParseBool(r.URL.Query().Get("validate")); validate && h.IDP != nil && sess.JWTToken != "" {
		res, err := h.IDP.ValidateToken(ctx, sess.JWTToken)
		valid := err == nil && (res.Valid || res.Success)
		if err != nil {
			h.logger().WarnContext(ctx, "token validation failed", "user", sess.Email, "error", err)
		}
		resp.TokenValid = &valid
	}
	WriteJSON(w, http.StatusOK, resp)
}
