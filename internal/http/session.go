package httpx

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	domainauth "github.com/avisitor/idp-client/internal/domain/auth"
	"github.com/avisitor/idp-client/internal/service"
)

// DefaultSessionCookieName is used when CookieOptions.Name is empty.
const DefaultSessionCookieName = "idp_session"

// CookieOptions controls the session cookie.
type CookieOptions struct {
	Name string
	// Domain is left empty to scope the cookie to the request host.
	Domain string
}

// SessionManagerOptions groups dependencies for SessionManager.
type SessionManagerOptions struct {
	Sessions *service.SessionService // Required
	Cookie   CookieOptions
	Logger   *slog.Logger // Optional
}

// SessionManager binds server-side sessions to a browser cookie.
type SessionManager struct {
	sessions *service.SessionService
	cookie   CookieOptions
	logger   *slog.Logger
}

// NewSessionManager constructs a SessionManager. It panics if Sessions is nil.
func NewSessionManager(opts SessionManagerOptions) *SessionManager {
	if opts.Sessions == nil {
		panic("SessionService is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cookie := opts.Cookie
	if cookie.Name == "" {
		cookie.Name = DefaultSessionCookieName
	}
	return &SessionManager{sessions: opts.Sessions, cookie: cookie, logger: logger}
}

// Load returns the session named by the request cookie, or a fresh one.
func (m *SessionManager) Load(r *http.Request) (*domainauth.Session, error) {
	id := ""
	if c, err := r.Cookie(m.cookie.Name); err == nil {
		id = c.Value
	}
	sess, _, err := m.sessions.Load(r.Context(), id)
	return sess, err
}

// Save persists sess and refreshes the cookie.
func (m *SessionManager) Save(w http.ResponseWriter, r *http.Request, sess *domainauth.Session) error {
	if err := m.sessions.Save(r.Context(), sess); err != nil {
		return err
	}
	m.setCookie(w, r, sess)
	return nil
}

// Rotate replaces sess with a fresh session under a new id. The caller must
// Save the returned session.
func (m *SessionManager) Rotate(r *http.Request, sess *domainauth.Session) (*domainauth.Session, error) {
	return m.sessions.Rotate(r.Context(), sess)
}

// Middleware loads the session into the request context. Store failures are
// logged and the request continues with a fresh anonymous session.
func (m *SessionManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := m.Load(r)
		if err != nil {
			m.logger.WarnContext(r.Context(), "session load failed", "error", err)
			sess = m.sessions.Start()
		}
		next.ServeHTTP(w, r.WithContext(SetSessionInContext(r.Context(), sess)))
	})
}

// session returns the request's session, loading it when no middleware ran.
func (m *SessionManager) session(r *http.Request) *domainauth.Session {
	if sess, ok := GetUserSessionFromContext(r.Context()); ok {
		return sess
	}
	sess, err := m.Load(r)
	if err != nil {
		m.logger.WarnContext(r.Context(), "session load failed", "error", err)
		return m.sessions.Start()
	}
	return sess
}

// setCookie writes the session cookie based on the session's expiry.
func (m *SessionManager) setCookie(w http.ResponseWriter, r *http.Request, sess *domainauth.Session) {
	maxAge := int(time.Until(sess.ExpiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookie.Name,
		Value:    sess.ID,
		Path:     "/",
		Domain:   m.cookie.Domain,
		HttpOnly: true,
		Secure:   isSecure(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

// ClearCookie expires the session cookie. It mirrors the attributes used when
// setting it so every browser drops it.
func (m *SessionManager) ClearCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookie.Name,
		Value:    "",
		Path:     "/",
		Domain:   m.cookie.Domain,
		HttpOnly: true,
		Secure:   isSecure(r),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}

// isSecure reports whether the request arrived over HTTPS, accounting for proxies.
func isSecure(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	for _, proto := range strings.Split(r.Header.Get("X-Forwarded-Proto"), ",") {
		if strings.EqualFold(strings.TrimSpace(proto), "https") {
			return true
		}
	}
	return false
}
