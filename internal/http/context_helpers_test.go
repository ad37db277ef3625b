package httpx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	domainauth "github.com/avisitor/idp-client/internal/domain/auth"
)

func TestGetUserSessionFromContext(t *testing.T) {
	// No session
	if s, ok := GetUserSessionFromContext(context.Background()); assert.False(t, ok) {
		assert.Nil(t, s)
	}
	assert.Nil(t, GetSessionFromContext(context.Background()))

	// With session
	sess := &domainauth.Session{ID: "abc"}
	ctx := SetSessionInContext(context.Background(), sess)
	s, ok := GetUserSessionFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, sess, s)

	// nil leaves the context untouched
	assert.Equal(t, ctx, SetSessionInContext(ctx, nil))
}

func TestIsGuestUser(t *testing.T) {
	// No session => guest
	assert.True(t, IsGuestUser(context.Background()))

	// Anonymous session => guest
	anon := &domainauth.Session{ID: "g"}
	assert.True(t, IsGuestUser(SetSessionInContext(context.Background(), anon)))

	// Logged in => not guest
	user := &domainauth.Session{ID: "u", Authenticated: true, Email: "ann@example.com"}
	assert.False(t, IsGuestUser(SetSessionInContext(context.Background(), user)))
}
