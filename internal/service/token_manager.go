package service

import (
	"context"
	"log/slog"
	"slices"
	"time"

	domainauth "github.com/avisitor/idp-client/internal/domain/auth"
	"github.com/avisitor/idp-client/internal/domain/token"
	apperrors "github.com/avisitor/idp-client/internal/errors"
	"github.com/avisitor/idp-client/internal/ports"
)

// DefaultMaxRefreshAttempts bounds consecutive failed refreshes per SessionTokenSource.
const DefaultMaxRefreshAttempts = 2

// TokenManagerOptions groups dependencies for TokenManager.
type TokenManagerOptions struct {
	Enhancer ports.TokenEnhancer // Required
	Policy   TokenPolicy
	Logger   *slog.Logger // Optional
}

// TokenPolicy tunes token reuse and the refresh ceiling.
type TokenPolicy struct {
	// UsableBuffer is how far ahead of exp a cached token stops being reused.
	UsableBuffer time.Duration
	// MaxRefreshAttempts is the ceiling used by SessionTokenSource. Defaults to 2.
	MaxRefreshAttempts int
	// Now overrides the clock. Test use.
	Now func() time.Time
}

// TokenManager returns tokens that carry the roles this application needs,
// asking the IDP for an enhanced token when the cached one is not usable.
// It holds no session state of its own.
type TokenManager struct {
	enhancer ports.TokenEnhancer
	policy   TokenPolicy
	logger   *slog.Logger
}

// NewTokenManager constructs a TokenManager. It panics if Enhancer is nil.
func NewTokenManager(opts TokenManagerOptions) *TokenManager {
	if opts.Enhancer == nil {
		panic("TokenEnhancer is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	policy := opts.Policy
	if policy.MaxRefreshAttempts < 1 {
		policy.MaxRefreshAttempts = DefaultMaxRefreshAttempts
	}
	if policy.UsableBuffer < 0 {
		policy.UsableBuffer = 0
	}
	if policy.Now == nil {
		policy.Now = time.Now
	}
	return &TokenManager{
		enhancer: opts.Enhancer,
		policy:   policy,
		logger:   logger.With("component", "token_manager"),
	}
}

// GetTokenRequest describes one GetValidToken call.
type GetTokenRequest struct {
	UserEmail string
	AppID     string
	IDPURL    string
	// CurrentToken is the cached token, possibly stale or empty.
	CurrentToken string

	// Directory supplies the user's admin level. Required.
	Directory ports.UserDirectory
	// Roles maps the admin level to the roles requested from the IDP. Required.
	Roles ports.RoleMapper

	// Session, when set, receives the new token, admin level and roles.
	Session *domainauth.Session
	// ForceRefresh skips the cached-token check.
	ForceRefresh bool
}

func (r GetTokenRequest) validate() error {
	switch {
	case r.UserEmail == "":
		return apperrors.ValidationField("userEmail", "userEmail is required to refresh the token")
	case r.AppID == "":
		return apperrors.Configuration("IDP_APP_ID", "App ID is required to refresh the token")
	case r.IDPURL == "":
		return apperrors.Configuration("IDP_URL", "IDP URL is required to refresh the token")
	case r.Directory == nil:
		return apperrors.Configurationf("a user directory is required to refresh the token")
	case r.Roles == nil:
		return apperrors.Configurationf("a role mapper is required to refresh the token")
	}
	return nil
}

// GetValidToken returns CurrentToken when it is still usable. Otherwise it
// looks up the user's admin level, maps it to roles and asks the IDP for a
// new token. Lookup and enhancement failures fall back to CurrentToken, which
// may be stale or empty. Only invalid requests return an error.
func (m *TokenManager) GetValidToken(ctx context.Context, req GetTokenRequest) (string, error) {
	tok, _, err := m.getValidToken(ctx, req)
	return tok, err
}

// getValidToken also reports whether a new token was obtained from the IDP.
func (m *TokenManager) getValidToken(ctx context.Context, req GetTokenRequest) (string, bool, error) {
	if err := req.validate(); err != nil {
		return "", false, err
	}

	now := m.policy.Now()
	if !req.ForceRefresh && token.RawIsUsable(req.CurrentToken, m.policy.UsableBuffer, now) {
		return req.CurrentToken, false, nil
	}

	log := m.logger.With("user", req.UserEmail, "app_id", req.AppID)

	user, err := req.Directory.LookupUser(ctx, req.UserEmail)
	if err != nil {
		log.WarnContext(ctx, "user lookup failed; keeping current token", "error", err)
		return req.CurrentToken, false, nil
	}
	if user == nil {
		log.WarnContext(ctx, "unable to fetch user info; keeping current token")
		return req.CurrentToken, false, nil
	}

	roles := req.Roles.Map(user.Admin)
	if roles == nil {
		roles = []string{}
	}

	log.InfoContext(ctx, "enhancing token", "admin", user.Admin, "roles", roles)
	enhanced, err := m.enhancer.Enhance(ctx, ports.EnhanceRequest{
		Token:     req.CurrentToken,
		UserEmail: req.UserEmail,
		Roles:     roles,
		AppID:     req.AppID,
		IDPURL:    req.IDPURL,
	})
	if err != nil || enhanced == "" {
		log.WarnContext(ctx, "token enhancement failed; keeping current token", "error", err)
		return req.CurrentToken, false, nil
	}

	if req.Session != nil {
		req.Session.JWTToken = enhanced
		req.Session.Admin = user.Admin
		req.Session.Roles = slices.Clone(roles)
		req.Session.IsAdmin = slices.Contains(roles, domainauth.RoleAdmin)
	}
	return enhanced, true, nil
}

// UsableBuffer reports the configured reuse buffer.
func (m *TokenManager) UsableBuffer() time.Duration { return m.policy.UsableBuffer }

// Now reports the manager's clock.
func (m *TokenManager) Now() time.Time { return m.policy.Now() }
