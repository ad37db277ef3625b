package httpx

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainauth "github.com/avisitor/idp-client/internal/domain/auth"
	"github.com/avisitor/idp-client/internal/mocks"
	"github.com/avisitor/idp-client/internal/service"
)

func newMockedSessionManager(t *testing.T) (*SessionManager, *mocks.MockSessionStore) {
	t.Helper()
	store := mocks.NewMockSessionStore(gomock.NewController(t))
	m := NewSessionManager(SessionManagerOptions{
		Sessions: service.NewSessionService(service.SessionServiceOptions{Store: store, TTL: time.Hour}),
		Cookie:   CookieOptions{Name: "sid", Domain: "app.example.com"},
		Logger:   quietLogger(),
	})
	return m, store
}

func TestNewSessionManager_PanicsWithoutSessions(t *testing.T) {
	assert.Panics(t, func() { NewSessionManager(SessionManagerOptions{}) })
}

func TestSessionManager_SaveSetsCookie(t *testing.T) {
	m, store := newMockedSessionManager(t)
	sess := &domainauth.Session{ID: "abc", ExpiresAt: time.Now().Add(time.Hour)}
	store.EXPECT().Save(gomock.Any(), *sess).Return(nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-Proto", "http, https")
	rec := httptest.NewRecorder()
	require.NoError(t, m.Save(rec, req, sess))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, "sid", c.Name)
	assert.Equal(t, "abc", c.Value)
	assert.Equal(t, "app.example.com", c.Domain)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.InDelta(t, 3600, c.MaxAge, 5)
}

func TestSessionManager_SaveError(t *testing.T) {
	m, store := newMockedSessionManager(t)
	store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("redis down"))

	rec := httptest.NewRecorder()
	err := m.Save(rec, httptest.NewRequest(http.MethodGet, "/", nil), &domainauth.Session{ID: "abc"})

	require.Error(t, err)
	assert.Empty(t, rec.Result().Cookies())
}

func TestSessionManager_Middleware(t *testing.T) {
	var got *domainauth.Session
	capture := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = GetSessionFromContext(r.Context())
	})

	t.Run("loads stored session", func(t *testing.T) {
		m, store := newMockedSessionManager(t)
		stored := domainauth.Session{ID: "abc", ExpiresAt: time.Now().Add(time.Hour), Email: "ann@example.com", Authenticated: true}
		store.EXPECT().Get(gomock.Any(), "abc").Return(stored, nil)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "sid", Value: "abc"})
		m.Middleware(capture).ServeHTTP(httptest.NewRecorder(), req)

		require.NotNil(t, got)
		assert.True(t, got.IsLoggedIn())
	})

	t.Run("store failure falls back to a fresh session", func(t *testing.T) {
		m, store := newMockedSessionManager(t)
		store.EXPECT().Get(gomock.Any(), "abc").Return(domainauth.Session{}, errors.New("redis down"))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "sid", Value: "abc"})
		m.Middleware(capture).ServeHTTP(httptest.NewRecorder(), req)

		require.NotNil(t, got)
		assert.False(t, got.IsLoggedIn())
		assert.NotEqual(t, "abc", got.ID)
		assert.NotEmpty(t, got.CSRFToken)
	})

	t.Run("no cookie", func(t *testing.T) {
		m, _ := newMockedSessionManager(t)
		m.Middleware(capture).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		require.NotNil(t, got)
		assert.NotEmpty(t, got.ID)
	})
}

func TestSessionManager_ClearCookie(t *testing.T) {
	m, _ := newMockedSessionManager(t)
	rec := httptest.NewRecorder()
	m.ClearCookie(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "sid", cookies[0].Name)
	assert.Equal(t, -1, cookies[0].MaxAge)
}
