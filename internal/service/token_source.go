package service

import (
	"context"

	domainauth "github.com/avisitor/idp-client/internal/domain/auth"
	"github.com/avisitor/idp-client/internal/domain/token"
	"github.com/avisitor/idp-client/internal/ports"
)

// SessionTokenSource keeps one session's token fresh. After MaxRefreshAttempts
// consecutive failed refreshes it stops calling the IDP and returns an empty
// token; any successful refresh resets the count.
//
// The counter lives on the value, so a source should be scoped to a single
// request or explicitly Reset.
type SessionTokenSource struct {
	manager  *TokenManager
	session  *domainauth.Session
	target   TokenTarget
	attempts int
	maxTries int
}

// TokenTarget identifies the IDP and application a token is requested for,
// plus the capabilities used to derive roles.
type TokenTarget struct {
	AppID     string
	IDPURL    string
	Directory ports.UserDirectory
	Roles     ports.RoleMapper
}

// ForSession binds the manager to a session.
func (m *TokenManager) ForSession(sess *domainauth.Session, target TokenTarget) *SessionTokenSource {
	return &SessionTokenSource{
		manager:  m,
		session:  sess,
		target:   target,
		maxTries: m.policy.MaxRefreshAttempts,
	}
}

// Token returns a usable token for the session, refreshing when the cached
// one is not usable or forceRefresh is set. A refresh succeeds only when the
// IDP returns a token that passes the validity policy.
func (s *SessionTokenSource) Token(ctx context.Context, forceRefresh bool) (string, error) {
	if s.session == nil || !s.session.IsLoggedIn() {
		return "", nil
	}
	email := s.session.Email
	if email == "" {
		email = s.session.Username
	}
	current := s.session.JWTToken
	log := s.manager.logger.With("user", email, "app_id", s.target.AppID)

	if !forceRefresh && token.RawIsUsable(current, s.manager.policy.UsableBuffer, s.manager.policy.Now()) {
		return current, nil
	}

	if s.attempts >= s.maxTries {
		log.WarnContext(ctx, "refresh attempt ceiling reached", "attempt", s.attempts)
		return "", nil
	}
	s.attempts++

	// The session only takes the new token once it passes the policy.
	pending := *s.session
	tok, refreshed, err := s.manager.getValidToken(ctx, GetTokenRequest{
		UserEmail:    email,
		AppID:        s.target.AppID,
		IDPURL:       s.target.IDPURL,
		CurrentToken: current,
		Directory:    s.target.Directory,
		Roles:        s.target.Roles,
		Session:      &pending,
		ForceRefresh: true,
	})
	if err != nil {
		return "", err
	}
	if refreshed && token.RawIsUsable(tok, s.manager.policy.UsableBuffer, s.manager.policy.Now()) {
		*s.session = pending
		s.attempts = 0
		return tok, nil
	}

	log.WarnContext(ctx, "token refresh did not produce a usable token", "attempt", s.attempts)
	return tok, nil
}

// Attempts reports consecutive failed refreshes.
func (s *SessionTokenSource) Attempts() int { return s.attempts }

// Reset clears the failure count.
func (s *SessionTokenSource) Reset() { s.attempts = 0 }
