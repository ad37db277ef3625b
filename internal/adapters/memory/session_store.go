// Package memory provides in-process adapters for single-instance deployments.
package memory

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	domainauth "github.com/avisitor/idp-client/internal/domain/auth"
	"github.com/avisitor/idp-client/internal/ports"
)

// DefaultSweepInterval is how often StartSweeper drops expired sessions.
const DefaultSweepInterval = time.Minute

// SessionStore keeps sessions in a map guarded by a mutex. Expired entries
// are dropped on read and by Sweep. Sessions are copied on the way in and
// out, so callers never share maps or slices with the store.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domainauth.Session
	now      func() time.Time

	sweepMu   sync.Mutex
	stopSweep context.CancelFunc
	sweepDone chan struct{}
}

var _ ports.SessionStore = (*SessionStore)(nil)

// NewSessionStore returns an empty store. A nil clock uses time.Now.
func NewSessionStore(now func() time.Time) *SessionStore {
	if now == nil {
		now = time.Now
	}
	return &SessionStore{sessions: make(map[string]domainauth.Session), now: now}
}

func (s *SessionStore) Save(_ context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	if !s.now().Before(sess.ExpiresAt) {
		return errors.New("session is expired")
	}
	s.mu.Lock()
	s.sessions[sess.ID] = cloneSession(sess)
	s.mu.Unlock()
	return nil
}

func (s *SessionStore) Get(_ context.Context, id string) (domainauth.Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return domainauth.Session{}, ports.ErrSessionNotFound
	}
	if !s.now().Before(sess.ExpiresAt) {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		return domainauth.Session{}, ports.ErrSessionNotFound
	}
	return cloneSession(sess), nil
}

func cloneSession(sess domainauth.Session) domainauth.Session {
	sess.Roles = slices.Clone(sess.Roles)
	sess.Data = maps.Clone(sess.Data)
	return sess
}

func (s *SessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

// Sweep removes expired sessions and returns how many were dropped.
func (s *SessionStore) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sess := range s.sessions {
		if !now.Before(sess.ExpiresAt) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// Len reports the number of stored sessions, expired or not.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *SessionStore) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Sweep()
		}
	}
}

// StartSweeper runs RunSweeper in the background until Close. Calling it
// again while a sweeper is running does nothing.
func (s *SessionStore) StartSweeper(interval time.Duration) {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()
	if s.stopSweep != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.stopSweep, s.sweepDone = cancel, done
	go func() {
		defer close(done)
		s.RunSweeper(ctx, interval)
	}()
}

// Close stops the background sweeper and waits for it to exit.
func (s *SessionStore) Close() error {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()
	if s.stopSweep == nil {
		return nil
	}
	s.stopSweep()
	<-s.sweepDone
	s.stopSweep, s.sweepDone = nil, nil
	return nil
}
