package httpx

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/avisitor/idp-client/internal/adapters/memory"
	domainauth "github.com/avisitor/idp-client/internal/domain/auth"
	"github.com/avisitor/idp-client/internal/mocks"
	mockauth "github.com/avisitor/idp-client/internal/mocks/auth"
	"github.com/avisitor/idp-client/internal/service"
	"github.com/avisitor/idp-client/internal/testutil"
)

const (
	testBaseURL = "https://app.example.com"
	testIDPURL  = "https://idp.example.com"
	testAppID   = "app-1"
)

// harness wires the router against an in-memory session store.
type harness struct {
	t        *testing.T
	store    *memory.SessionStore
	factory  *service.AuthProviderFactory
	auth     *AuthHandlers
	hooks    *mockauth.RecordingHooks
	idp      *mocks.MockIDPClient
	enhancer *mocks.MockTokenEnhancer
	users    *mockauth.MemoryUserStore
	router   http.Handler
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHarness(t *testing.T, external bool) *harness {
	t.Helper()
	ctrl := gomock.NewController(t)
	logger := quietLogger()

	urls := service.AppURLs{BaseURL: testBaseURL}
	factory := service.NewAuthProviderFactory(service.FactoryOptions{
		Config: service.FactoryConfig{
			UseExternalAuth: external,
			IDPURL:          testIDPURL,
			AppID:           testAppID,
			URLs:            urls,
		},
		Pages:  &mockauth.StaticPages{Base: testIDPURL},
		Logger: logger,
	})
	users := mockauth.NewMemoryUserStore(
		mockauth.MemoryUser{Email: "ann@example.com", Name: "Ann", Password: "s3cret", Admin: 1, Active: true},
		mockauth.MemoryUser{Email: "bob@example.com", Name: "Bob", Password: "hunter2", Active: true},
	)
	factory.SetLocalUserStore(users)

	store := memory.NewSessionStore(nil)
	sessions := NewSessionManager(SessionManagerOptions{
		Sessions: service.NewSessionService(service.SessionServiceOptions{Store: store, TTL: time.Hour}),
		Logger:   logger,
	})
	enhancer := mocks.NewMockTokenEnhancer(ctrl)
	hooks := &mockauth.RecordingHooks{}
	idp := mocks.NewMockIDPClient(ctrl)

	auth := &AuthHandlers{
		Providers: factory,
		Sessions:  sessions,
		Routes: AuthRoutes{
			URLs:            urls,
			DefaultRedirect: "/home",
			SupportEmail:    "help@example.com",
		},
		IDP:   idp,
		Hooks: hooks,
		Tokens: service.NewTokenManager(service.TokenManagerOptions{
			Enhancer: enhancer,
			Policy:   service.TokenPolicy{UsableBuffer: time.Minute},
			Logger:   logger,
		}),
		TokenTarget: service.TokenTarget{
			AppID:     testAppID,
			IDPURL:    testIDPURL,
			Directory: users,
			Roles: mockauth.StaticRoleMapper{
				Roles:   map[int][]string{1: {"user", "admin"}},
				Default: []string{"user"},
			},
		},
		NewState: func() (string, error) { return "state-123", nil },
		Logger:   logger,
	}

	return &harness{
		t:        t,
		store:    store,
		factory:  factory,
		auth:     auth,
		hooks:    hooks,
		idp:      idp,
		enhancer: enhancer,
		users:    users,
		router:   NewRouter(RouterServices{Auth: auth, Sessions: sessions, Logger: logger}),
	}
}

// seed stores a session and returns its cookie. A non-empty email makes it logged in.
func (h *harness) seed(email string, roles ...string) (*http.Cookie, domainauth.Session) {
	h.t.Helper()
	sess := domainauth.Session{
		ID:        "sid-" + strings.ReplaceAll(email, "@", "-"),
		ExpiresAt: time.Now().Add(time.Hour),
		CSRFToken: "csrf-token",
	}
	if email != "" {
		sess.Establish(domainauth.UserInfo{Email: email, UserID: email, Roles: roles}, time.Now())
	}
	require.NoError(h.t, h.store.Save(context.Background(), sess))
	return &http.Cookie{Name: DefaultSessionCookieName, Value: sess.ID}, sess
}

func (h *harness) update(sess domainauth.Session) {
	h.t.Helper()
	require.NoError(h.t, h.store.Save(context.Background(), sess))
}

func (h *harness) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	h.t.Helper()
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func (h *harness) get(target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	h.t.Helper()
	return h.do(httptest.NewRequest(http.MethodGet, target, nil), cookies...)
}

// stored loads the session named by the response cookie.
func (h *harness) stored(rec *httptest.ResponseRecorder) domainauth.Session {
	h.t.Helper()
	c := sessionCookie(rec)
	require.NotNil(h.t, c, "response set no session cookie")
	sess, err := h.store.Get(context.Background(), c.Value)
	require.NoError(h.t, err)
	return sess
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == DefaultSessionCookieName {
			return c
		}
	}
	return nil
}

// location parses the Location header.
func location(t *testing.T, rec *httptest.ResponseRecorder) *url.URL {
	t.Helper()
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	return loc
}

func userToken(t *testing.T, email string, roles []string, ttl time.Duration) string {
	t.Helper()
	return testutil.MintToken(t, testutil.TokenClaims{
		Subject:   email,
		Name:      "Test User",
		Roles:     roles,
		ExpiresAt: time.Now().Add(ttl).Unix(),
	})
}

func postForm(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func postJSON(target, body, csrf string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if csrf != "" {
		req.Header.Set(DefaultCSRFHeaderName, csrf)
	}
	return req
}
