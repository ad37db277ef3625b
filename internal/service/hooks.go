package service

import (
	"context"
	"log/slog"

	domainauth "github.com/avisitor/idp-client/internal/domain/auth"
	"github.com/avisitor/idp-client/internal/ports"
)

// DefaultLoginHooks logs auth events and keeps every default destination.
// Hosts embed it and override only the hooks they need.
type DefaultLoginHooks struct {
	Logger *slog.Logger
}

var _ ports.LoginHooks = DefaultLoginHooks{}

func (h DefaultLoginHooks) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h DefaultLoginHooks) OnPreLogin(ctx context.Context, loginURL string) {
	h.logger().DebugContext(ctx, "redirecting to login", "url", loginURL)
}

func (h DefaultLoginHooks) OnSuccessfulLogin(ctx context.Context, user domainauth.UserInfo, redirect string) string {
	h.logger().InfoContext(ctx, "login successful", "user", user.Email, "roles", user.Roles)
	return redirect
}

func (h DefaultLoginHooks) OnLogout(ctx context.Context, sess *domainauth.Session) {
	if sess != nil {
		h.logger().InfoContext(ctx, "logging out", "user", sess.Email)
	}
}

func (h DefaultLoginHooks) OnLogoutRedirect(_ context.Context, defaultURL string) string {
	return defaultURL
}
