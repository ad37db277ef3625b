package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	domainauth "github.com/avisitor/idp-client/internal/domain/auth"
	apperrors "github.com/avisitor/idp-client/internal/errors"
	"github.com/avisitor/idp-client/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.LoginHooks          = (*RecordingHooks)(nil)
	_ ports.LocalUserStore      = (*MemoryUserStore)(nil)
	_ ports.LocalAccountManager = (*MemoryUserStore)(nil)
	_ ports.UserDirectory       = (*MemoryUserStore)(nil)
	_ ports.RoleMapper          = StaticRoleMapper{}
	_ ports.IDPPages            = (*StaticPages)(nil)
)

// RecordingHooks records every hook call. The Func fields override the
// default pass-through behavior.
type RecordingHooks struct {
	mu sync.Mutex

	SuccessFunc        func(user domainauth.UserInfo, redirect string) string
	LogoutRedirectFunc func(defaultURL string) string

	PreLoginURLs []string
	LoggedIn     []domainauth.UserInfo
	LoggedOut    []string
}

func (h *RecordingHooks) OnPreLogin(_ context.Context, loginURL string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.PreLoginURLs = append(h.PreLoginURLs, loginURL)
}

func (h *RecordingHooks) OnSuccessfulLogin(_ context.Context, user domainauth.UserInfo, redirect string) string {
	h.mu.Lock()
	h.LoggedIn = append(h.LoggedIn, user)
	h.mu.Unlock()
	if h.SuccessFunc != nil {
		return h.SuccessFunc(user, redirect)
	}
	return redirect
}

func (h *RecordingHooks) OnLogout(_ context.Context, sess *domainauth.Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	email := ""
	if sess != nil {
		email = sess.Email
	}
	h.LoggedOut = append(h.LoggedOut, email)
}

func (h *RecordingHooks) OnLogoutRedirect(_ context.Context, defaultURL string) string {
	if h.LogoutRedirectFunc != nil {
		return h.LogoutRedirectFunc(defaultURL)
	}
	return defaultURL
}

// ErrNotFound is returned by doubles when an entity is not present.
var ErrNotFound = errors.New("not found")

// MemoryUser is one account held by MemoryUserStore.
type MemoryUser struct {
	Email    string
	Name     string
	Password string
	Admin    int
	Active   bool
	Data     map[string]any
}

// MemoryUserStore is an in-memory credential store and user directory.
// Passwords are hashed with bcrypt.MinCost on insert.
type MemoryUserStore struct {
	mu    sync.Mutex
	users map[string]*memoryRow

	// Err, when set, is returned by every read.
	Err error
}

type memoryRow struct {
	user MemoryUser
	hash string
	id   string
}

// NewMemoryUserStore creates a store holding users.
func NewMemoryUserStore(users ...MemoryUser) *MemoryUserStore {
	s := &MemoryUserStore{users: map[string]*memoryRow{}}
	for _, u := range users {
		s.Add(u)
	}
	return s
}

// Add inserts or replaces a user.
func (s *MemoryUserStore) Add(u MemoryUser) {
	hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(u.Email)
	id := key
	if old, ok := s.users[key]; ok {
		id = old.id
	}
	s.users[key] = &memoryRow{user: u, hash: string(hash), id: id}
}

func (s *MemoryUserStore) row(email string) *memoryRow {
	return s.users[strings.ToLower(strings.TrimSpace(email))]
}

func (s *MemoryUserStore) FindCredentials(_ context.Context, username string) (*ports.LocalCredentials, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.row(username)
	if r == nil {
		return nil, nil
	}
	return &ports.LocalCredentials{
		ID:           r.id,
		Username:     r.user.Email,
		PasswordHash: r.hash,
		Name:         r.user.Name,
		Active:       r.user.Active,
		Admin:        r.user.Admin,
	}, nil
}

func (s *MemoryUserStore) LoadUserData(_ context.Context, username string) (map[string]any, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.row(username)
	if r == nil {
		return nil, ErrNotFound
	}
	out := map[string]any{"email": r.user.Email, "name": r.user.Name, "admin": r.user.Admin}
	for k, v := range r.user.Data {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryUserStore) LookupUser(_ context.Context, email string) (*ports.UserRecord, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.row(email)
	if r == nil {
		return nil, nil
	}
	return &ports.UserRecord{Email: r.user.Email, Name: r.user.Name, Admin: r.user.Admin}, nil
}

func (s *MemoryUserStore) Register(_ context.Context, reg domainauth.Registration) error {
	if reg.Email == "" || reg.Password == "" {
		return apperrors.Validation("Email and password are required.")
	}
	s.mu.Lock()
	exists := s.row(reg.Email) != nil
	s.mu.Unlock()
	if exists {
		return apperrors.Conflict("An account with that email already exists.")
	}
	s.Add(MemoryUser{Email: reg.Email, Name: reg.Name, Password: reg.Password, Active: true})
	return nil
}

func (s *MemoryUserStore) ChangePassword(_ context.Context, username, oldPassword, newPassword string) error {
	s.mu.Lock()
	r := s.row(username)
	s.mu.Unlock()
	if r == nil {
		return apperrors.NotFound("User not found.")
	}
	if bcrypt.CompareHashAndPassword([]byte(r.hash), []byte(oldPassword)) != nil {
		return apperrors.Authentication("Current password is incorrect.")
	}
	u := r.user
	u.Password = newPassword
	s.Add(u)
	return nil
}

// StaticRoleMapper returns Roles[level], or Default when the level is absent.
type StaticRoleMapper struct {
	Roles   map[int][]string
	Default []string
}

func (m StaticRoleMapper) Map(adminLevel int) []string {
	if r, ok := m.Roles[adminLevel]; ok {
		return r
	}
	return m.Default
}

// StaticPages builds predictable IDP page URLs rooted at Base. Err, when set,
// is returned by every builder.
type StaticPages struct {
	Base string
	Err  error
}

func (p *StaticPages) build(path string, q url.Values) (string, error) {
	if p.Err != nil {
		return "", p.Err
	}
	u := strings.TrimRight(p.Base, "/") + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u, nil
}

func (p *StaticPages) LoginURL(returnURL string) (string, error) {
	return p.build("/login", url.Values{"return": {returnURL}})
}

func (p *StaticPages) LogoutURL(redirectURI string) (string, error) {
	return p.build("/logout", url.Values{"redirect_uri": {redirectURI}})
}

func (p *StaticPages) RegisterURL(callbackURL, state string) (string, error) {
	q := url.Values{"return": {callbackURL}}
	if state != "" {
		q.Set("state", state)
	}
	return p.build("/register", q)
}

func (p *StaticPages) ResetPasswordURL(email string) (string, error) {
	var q url.Values
	if email != "" {
		q = url.Values{"email": {email}}
	}
	return p.build("/reset", q)
}

func (p *StaticPages) ChangePasswordURL() (string, error) {
	return p.build("/change", nil)
}
