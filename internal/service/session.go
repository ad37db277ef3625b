package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	domainauth "github.com/avisitor/idp-client/internal/domain/auth"
	"github.com/avisitor/idp-client/internal/ports"
)

// DefaultSessionTTL is used when SessionServiceOptions.TTL is zero.
const DefaultSessionTTL = 8 * time.Hour

// SessionServiceOptions groups dependencies for SessionService.
type SessionServiceOptions struct {
	Store ports.SessionStore // Required
	TTL   time.Duration
	Now   func() time.Time // Optional, defaults to time.Now
}

// SessionService creates, loads and rotates browser sessions.
type SessionService struct {
	store ports.SessionStore
	ttl   time.Duration
	now   func() time.Time
}

// NewSessionService constructs a SessionService. It panics if Store is nil.
func NewSessionService(opts SessionServiceOptions) *SessionService {
	if opts.Store == nil {
		panic("SessionStore is required")
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &SessionService{store: opts.Store, ttl: ttl, now: now}
}

// Start returns a new, unsaved anonymous session.
func (s *SessionService) Start() *domainauth.Session {
	return &domainauth.Session{
		ID:        generateSessionID(),
		ExpiresAt: s.now().Add(s.ttl),
		CSRFToken: uuid.NewString(),
	}
}

// Load returns the stored session for id, or a new one when id is empty,
// unknown or expired. The bool reports whether the session already existed.
func (s *SessionService) Load(ctx context.Context, id string) (*domainauth.Session, bool, error) {
	if id == "" {
		return s.Start(), false, nil
	}
	sess, err := s.store.Get(ctx, id)
	if errors.Is(err, ports.ErrSessionNotFound) {
		return s.Start(), false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get session: %w", err)
	}
	if !s.now().Before(sess.ExpiresAt) {
		if deleteErr := s.store.Delete(ctx, id); deleteErr != nil {
			return nil, false, fmt.Errorf("delete expired session: %w", deleteErr)
		}
		return s.Start(), false, nil
	}
	return &sess, true, nil
}

// Save persists sess.
func (s *SessionService) Save(ctx context.Context, sess *domainauth.Session) error {
	if sess == nil {
		return errors.New("session is required")
	}
	if err := s.store.Save(ctx, *sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Rotate deletes sess from the store and returns a fresh session under a new
// id. Only the CSRF token is carried over, so no identity or token survives.
func (s *SessionService) Rotate(ctx context.Context, sess *domainauth.Session) (*domainauth.Session, error) {
	fresh := s.Start()
	if sess == nil {
		return fresh, nil
	}
	if sess.CSRFToken != "" {
		fresh.CSRFToken = sess.CSRFToken
	}
	if sess.ID != "" {
		if err := s.store.Delete(ctx, sess.ID); err != nil {
			return nil, fmt.Errorf("delete session: %w", err)
		}
	}
	return fresh, nil
}

// TTL reports the lifetime given to new sessions.
func (s *SessionService) TTL() time.Duration { return s.ttl }

// generateSessionID creates a random session ID.
func generateSessionID() string {
	return uuid.New().String()
}
