package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	domainauth "github.com/avisitor/idp-client/internal/domain/auth"
)

func TestDefaultLoginHooks_KeepsDestinations(t *testing.T) {
	h := DefaultLoginHooks{}
	ctx := context.Background()

	h.OnPreLogin(ctx, "https://idp.example.com/login")
	h.OnLogout(ctx, nil)
	h.OnLogout(ctx, &domainauth.Session{Email: "ann@example.com"})
	assert.Equal(t, "/home", h.OnSuccessfulLogin(ctx, domainauth.UserInfo{Email: "ann@example.com"}, "/home"))
	assert.Equal(t, "/auth/login", h.OnLogoutRedirect(ctx, "/auth/login"))
}
