package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainauth "github.com/avisitor/idp-client/internal/domain/auth"
	apperrors "github.com/avisitor/idp-client/internal/errors"
	"github.com/avisitor/idp-client/internal/mocks"
	mockauth "github.com/avisitor/idp-client/internal/mocks/auth"
	"github.com/avisitor/idp-client/internal/ports"
	"github.com/avisitor/idp-client/internal/testutil"
)

var fixedNow = time.Unix(1_700_000_000, 0)

func fixedClock() time.Time { return fixedNow }

func freshToken(t *testing.T, roles ...string) string {
	t.Helper()
	return testutil.MintToken(t, testutil.TokenClaims{
		Subject:   "ann@example.com",
		Roles:     roles,
		ExpiresAt: fixedNow.Add(time.Hour).Unix(),
	})
}

func staleToken(t *testing.T) string {
	t.Helper()
	return testutil.MintToken(t, testutil.TokenClaims{
		Subject:   "ann@example.com",
		Roles:     []string{"user"},
		ExpiresAt: fixedNow.Add(-time.Hour).Unix(),
	})
}

func defaultRoles() mockauth.StaticRoleMapper {
	return mockauth.StaticRoleMapper{
		Roles:   map[int][]string{1: {"user", "admin"}},
		Default: []string{"user"},
	}
}

func newTestTokenManager(enhancer ports.TokenEnhancer) *TokenManager {
	return NewTokenManager(TokenManagerOptions{
		Enhancer: enhancer,
		Policy:   TokenPolicy{UsableBuffer: time.Minute, Now: fixedClock},
	})
}

func TestNewTokenManager_RequiresEnhancer(t *testing.T) {
	assert.Panics(t, func() { NewTokenManager(TokenManagerOptions{}) })
}

func TestNewTokenManager_Defaults(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := NewTokenManager(TokenManagerOptions{
		Enhancer: mocks.NewMockTokenEnhancer(ctrl),
		Policy:   TokenPolicy{UsableBuffer: -time.Second},
	})
	assert.Equal(t, DefaultMaxRefreshAttempts, m.policy.MaxRefreshAttempts)
	assert.Equal(t, time.Duration(0), m.UsableBuffer())
	assert.WithinDuration(t, time.Now(), m.Now(), time.Second)
}

func TestTokenManager_GetValidToken_ValidationErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := newTestTokenManager(mocks.NewMockTokenEnhancer(ctrl))
	dir := mocks.NewMockUserDirectory(ctrl)

	base := GetTokenRequest{
		UserEmail: "ann@example.com",
		AppID:     "app-1",
		IDPURL:    "https://idp.example.com",
		Directory: dir,
		Roles:     defaultRoles(),
	}

	tests := []struct {
		name   string
		mutate func(*GetTokenRequest)
		check  func(error) bool
		field  string
	}{
		{"missing email", func(r *GetTokenRequest) { r.UserEmail = "" }, apperrors.IsValidation, "userEmail"},
		{"missing app id", func(r *GetTokenRequest) { r.AppID = "" }, apperrors.IsConfiguration, "IDP_APP_ID"},
		{"missing idp url", func(r *GetTokenRequest) { r.IDPURL = "" }, apperrors.IsConfiguration, "IDP_URL"},
		{"missing directory", func(r *GetTokenRequest) { r.Directory = nil }, apperrors.IsConfiguration, ""},
		{"missing role mapper", func(r *GetTokenRequest) { r.Roles = nil }, apperrors.IsConfiguration, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base
			tt.mutate(&req)
			tok, err := m.GetValidToken(context.Background(), req)
			require.Error(t, err)
			assert.Empty(t, tok)
			assert.True(t, tt.check(err), "unexpected error kind: %v", err)
			assert.Equal(t, tt.field, apperrors.GetField(err))
		})
	}
}

func TestTokenManager_GetValidToken_UsableTokenSkipsNetwork(t *testing.T) {
	ctrl := gomock.NewController(t)
	enhancer := mocks.NewMockTokenEnhancer(ctrl)
	dir := mocks.NewMockUserDirectory(ctrl)
	m := newTestTokenManager(enhancer)

	current := freshToken(t, "user")
	tok, err := m.GetValidToken(context.Background(), GetTokenRequest{
		UserEmail:    "ann@example.com",
		AppID:        "app-1",
		IDPURL:       "https://idp.example.com",
		CurrentToken: current,
		Directory:    dir,
		Roles:        defaultRoles(),
	})
	require.NoError(t, err)
	assert.Equal(t, current, tok)
}

func TestTokenManager_GetValidToken_Enhances(t *testing.T) {
	tests := []struct {
		name    string
		current string
		force   bool
	}{
		{"empty token", "", false},
		{"expired token", "stale", false},
		{"token without roles", "noroles", false},
		{"forced refresh", "fresh", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			enhancer := mocks.NewMockTokenEnhancer(ctrl)
			dir := mocks.NewMockUserDirectory(ctrl)
			m := newTestTokenManager(enhancer)

			current := tt.current
			switch current {
			case "stale":
				current = staleToken(t)
			case "noroles":
				current = freshToken(t)
			case "fresh":
				current = freshToken(t, "user")
			}
			enhanced := freshToken(t, "user", "admin")

			ctx := context.Background()
			dir.EXPECT().LookupUser(ctx, "ann@example.com").
				Return(&ports.UserRecord{Email: "ann@example.com", Admin: 1}, nil)
			enhancer.EXPECT().Enhance(ctx, ports.EnhanceRequest{
				Token:     current,
				UserEmail: "ann@example.com",
				Roles:     []string{"user", "admin"},
				AppID:     "app-1",
				IDPURL:    "https://idp.example.com",
			}).Return(enhanced, nil).Times(1)

			sess := &domainauth.Session{ID: "s1"}
			tok, err := m.GetValidToken(ctx, GetTokenRequest{
				UserEmail:    "ann@example.com",
				AppID:        "app-1",
				IDPURL:       "https://idp.example.com",
				CurrentToken: current,
				Directory:    dir,
				Roles:        defaultRoles(),
				Session:      sess,
				ForceRefresh: tt.force,
			})
			require.NoError(t, err)
			assert.Equal(t, enhanced, tok)
			assert.Equal(t, enhanced, sess.JWTToken)
			assert.Equal(t, 1, sess.Admin)
			assert.Equal(t, []string{"user", "admin"}, sess.Roles)
			assert.True(t, sess.IsAdmin)
		})
	}
}

func TestTokenManager_GetValidToken_FallsBackToCurrent(t *testing.T) {
	lookupErr := errors.New("db down")

	tests := []struct {
		name  string
		setup func(dir *mocks.MockUserDirectory, enh *mocks.MockTokenEnhancer)
	}{
		{
			name: "lookup error",
			setup: func(dir *mocks.MockUserDirectory, _ *mocks.MockTokenEnhancer) {
				dir.EXPECT().LookupUser(gomock.Any(), gomock.Any()).Return(nil, lookupErr)
			},
		},
		{
			name: "unknown user",
			setup: func(dir *mocks.MockUserDirectory, _ *mocks.MockTokenEnhancer) {
				dir.EXPECT().LookupUser(gomock.Any(), gomock.Any()).Return(nil, nil)
			},
		},
		{
			name: "enhance error",
			setup: func(dir *mocks.MockUserDirectory, enh *mocks.MockTokenEnhancer) {
				dir.EXPECT().LookupUser(gomock.Any(), gomock.Any()).Return(&ports.UserRecord{Admin: 0}, nil)
				enh.EXPECT().Enhance(gomock.Any(), gomock.Any()).Return("", apperrors.Networkf("token enhancement failed: HTTP 500"))
			},
		},
		{
			name: "empty enhanced token",
			setup: func(dir *mocks.MockUserDirectory, enh *mocks.MockTokenEnhancer) {
				dir.EXPECT().LookupUser(gomock.Any(), gomock.Any()).Return(&ports.UserRecord{Admin: 0}, nil)
				enh.EXPECT().Enhance(gomock.Any(), gomock.Any()).Return("", nil)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			enhancer := mocks.NewMockTokenEnhancer(ctrl)
			dir := mocks.NewMockUserDirectory(ctrl)
			tt.setup(dir, enhancer)
			m := newTestTokenManager(enhancer)

			current := staleToken(t)
			sess := &domainauth.Session{JWTToken: current}
			tok, err := m.GetValidToken(context.Background(), GetTokenRequest{
				UserEmail:    "ann@example.com",
				AppID:        "app-1",
				IDPURL:       "https://idp.example.com",
				CurrentToken: current,
				Directory:    dir,
				Roles:        defaultRoles(),
				Session:      sess,
			})
			require.NoError(t, err)
			assert.Equal(t, current, tok)
			assert.Equal(t, current, sess.JWTToken)
			assert.Nil(t, sess.Roles)
		})
	}
}

func TestTokenManager_GetValidToken_NilRolesSendsEmptyList(t *testing.T) {
	ctrl := gomock.NewController(t)
	enhancer := mocks.NewMockTokenEnhancer(ctrl)
	dir := mocks.NewMockUserDirectory(ctrl)
	m := newTestTokenManager(enhancer)

	dir.EXPECT().LookupUser(gomock.Any(), "ann@example.com").Return(&ports.UserRecord{Admin: 7}, nil)
	enhancer.EXPECT().Enhance(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req ports.EnhanceRequest) (string, error) {
			assert.NotNil(t, req.Roles)
			assert.Empty(t, req.Roles)
			return "enhanced", nil
		})

	tok, err := m.GetValidToken(context.Background(), GetTokenRequest{
		UserEmail: "ann@example.com",
		AppID:     "app-1",
		IDPURL:    "https://idp.example.com",
		Directory: dir,
		Roles:     mockauth.StaticRoleMapper{},
	})
	require.NoError(t, err)
	assert.Equal(t, "enhanced", tok)
}
