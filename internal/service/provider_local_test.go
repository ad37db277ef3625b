package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/avisitor/idp-client/internal/domain/auth"
	mockauth "github.com/avisitor/idp-client/internal/mocks/auth"
	"github.com/avisitor/idp-client/internal/ports"
)

// readOnlyStore hides the account-management methods of MemoryUserStore.
type readOnlyStore struct {
	ports.LocalUserStore
}

func newLocal(store ports.LocalUserStore) *LocalAuthProvider {
	p := NewLocalAuthProvider(LocalProviderOptions{Store: store})
	p.now = fixedClock
	return p
}

func testUsers() *mockauth.MemoryUserStore {
	return mockauth.NewMemoryUserStore(
		mockauth.MemoryUser{
			Email: "ann@example.com", Name: "Ann", Password: "correct-horse", Admin: 1, Active: true,
			Data: map[string]any{"roles": []any{"user", "admin"}, "team": "ops"},
		},
		mockauth.MemoryUser{Email: "new@example.com", Password: "pending-pass"},
	)
}

func TestNewLocalAuthProvider_RequiresStore(t *testing.T) {
	assert.Panics(t, func() { NewLocalAuthProvider(LocalProviderOptions{}) })
}

func TestLocalAuthProvider_Login(t *testing.T) {
	p := newLocal(testUsers())
	sess := &domainauth.Session{ID: "s1"}

	res := p.Login(context.Background(), sess, domainauth.Credentials{
		Username: " ann@example.com ", Password: "correct-horse", Redirect: "/home",
	})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "/home", res.Redirect)
	require.NotNil(t, res.User)
	assert.Equal(t, []string{"user", "admin"}, res.User.Roles)

	assert.True(t, p.IsAuthenticated(sess))
	assert.Equal(t, "ann@example.com", sess.Username)
	assert.Equal(t, 1, sess.Admin)
	assert.True(t, sess.IsAdmin)
	assert.Equal(t, fixedNow, sess.AuthenticatedAt)
	assert.Equal(t, "ops", sess.Data["team"])
}

func TestLocalAuthProvider_LoginFailures(t *testing.T) {
	broken := mockauth.NewMemoryUserStore()
	broken.Err = errors.New("connection refused")

	tests := []struct {
		name  string
		store ports.LocalUserStore
		creds domainauth.Credentials
		want  string
	}{
		{"missing username", testUsers(), domainauth.Credentials{Password: "x"}, msgEnterEmail},
		{"missing password", testUsers(), domainauth.Credentials{Username: "ann@example.com", Password: "  "}, msgEnterPassword},
		{"unknown user", testUsers(), domainauth.Credentials{Username: "bob@example.com", Password: "x"}, msgInvalidCredentials},
		{"wrong password", testUsers(), domainauth.Credentials{Username: "ann@example.com", Password: "nope"}, msgInvalidCredentials},
		{"inactive account", testUsers(), domainauth.Credentials{Username: "new@example.com", Password: "pending-pass"}, msgInactiveAccount},
		{"store error", broken, domainauth.Credentials{Username: "ann@example.com", Password: "x"}, msgLoginSystemError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := &domainauth.Session{}
			res := newLocal(tt.store).Login(context.Background(), sess, tt.creds)
			assert.False(t, res.Success)
			assert.Equal(t, tt.want, res.Error)
			assert.False(t, sess.Authenticated)
		})
	}
}

func TestLocalAuthProvider_LoginDefaultsToUserRole(t *testing.T) {
	store := mockauth.NewMemoryUserStore(mockauth.MemoryUser{Email: "c@example.com", Password: "pw-123456", Active: true})
	sess := &domainauth.Session{}

	res := newLocal(store).Login(context.Background(), sess, domainauth.Credentials{Username: "c@example.com", Password: "pw-123456"})
	require.True(t, res.Success)
	assert.Equal(t, []string{"user"}, sess.Roles)
	assert.False(t, sess.IsAdmin)
}

func TestLocalAuthProvider_Logout(t *testing.T) {
	p := newLocal(testUsers())
	sess := &domainauth.Session{Authenticated: true, Username: "ann@example.com", CSRFToken: "csrf"}

	res := p.Logout(context.Background(), sess, "")
	assert.True(t, res.Success)
	assert.Equal(t, "/auth/login", res.Redirect)
	assert.False(t, p.IsAuthenticated(sess))
	assert.Equal(t, "csrf", sess.CSRFToken)

	res = p.Logout(context.Background(), &domainauth.Session{}, "/bye")
	assert.Equal(t, "/bye", res.Redirect)
}

func TestLocalAuthProvider_RegisterAndChangePassword(t *testing.T) {
	store := testUsers()
	p := newLocal(store)
	ctx := context.Background()

	res := p.Register(ctx, nil, domainauth.Registration{Email: "bob@example.com", Password: "bob-pass-1", Redirect: "/welcome"})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "/welcome", res.Redirect)

	res = p.Register(ctx, nil, domainauth.Registration{Email: "bob@example.com", Password: "bob-pass-1"})
	assert.False(t, res.Success)
	assert.Equal(t, "An account with that email already exists.", res.Error)

	res = p.ChangePassword(ctx, &domainauth.Session{}, "a", "b")
	assert.Equal(t, msgNotLoggedIn, res.Error)

	sess := &domainauth.Session{Authenticated: true, Username: "bob@example.com"}
	res = p.ChangePassword(ctx, sess, "wrong", "bob-pass-2")
	assert.False(t, res.Success)
	assert.Equal(t, "Current password is incorrect.", res.Error)

	res = p.ChangePassword(ctx, sess, "bob-pass-1", "bob-pass-2")
	assert.True(t, res.Success)
	login := p.Login(ctx, &domainauth.Session{}, domainauth.Credentials{Username: "bob@example.com", Password: "bob-pass-2"})
	assert.True(t, login.Success)
}

func TestLocalAuthProvider_NotImplemented(t *testing.T) {
	p := newLocal(readOnlyStore{testUsers()})
	ctx := context.Background()

	res := p.Register(ctx, nil, domainauth.Registration{Email: "x@example.com", Password: "p"})
	assert.False(t, res.Success)
	assert.Equal(t, msgRegisterNotImpl, res.Error)
	assert.True(t, res.VerificationRequired)

	assert.Equal(t, msgChangeNotImpl, p.ChangePassword(ctx, nil, "a", "b").Error)
	assert.Equal(t, msgResetNotImpl, p.ResetPassword(ctx, "x@example.com").Error)
	assert.Equal(t, msgVerifyNotImpl, p.VerifyAccount(ctx, "tok").Error)
}

func TestLocalAuthProvider_URLs(t *testing.T) {
	relative := newLocal(testUsers())
	u, err := relative.LoginURL("/reports")
	require.NoError(t, err)
	assert.Equal(t, "/auth/login?from=%2Freports", u)

	u, err = relative.RegistrationURL("/a", "st")
	require.NoError(t, err)
	assert.Equal(t, "/auth/register?from=%2Fa&state=st", u)

	absolute := NewLocalAuthProvider(LocalProviderOptions{
		URLs:  AppURLs{BaseURL: "https://app.example.com/", AuthPath: "/account/"},
		Store: testUsers(),
	})
	u, err = absolute.ResetPasswordURL("ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, "https://app.example.com/account/reset?email=ann%40example.com", u)

	u, err = absolute.ChangePasswordURL()
	require.NoError(t, err)
	assert.Equal(t, "https://app.example.com/account/change", u)
	assert.False(t, absolute.IsExternalAuth())
}

func TestLocalAuthProvider_InitializeSessionKeepsExistingValues(t *testing.T) {
	p := newLocal(testUsers())
	sess := &domainauth.Session{
		Authenticated: true,
		Username:      "ann@example.com",
		Data:          map[string]any{"team": "custom"},
	}
	p.InitializeSession(sess)
	assert.Equal(t, "custom", sess.Data["team"])
	assert.Equal(t, "Ann", sess.Data["name"])

	u := p.CurrentUser(sess)
	require.NotNil(t, u)
	assert.Equal(t, "ann@example.com", u.Email)
	assert.Nil(t, p.CurrentUser(&domainauth.Session{}))
}
