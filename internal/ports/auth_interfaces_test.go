package ports_test

import (
	"testing"

	"github.com/avisitor/idp-client/internal/mocks"
	mockauth "github.com/avisitor/idp-client/internal/mocks/auth"
	"github.com/avisitor/idp-client/internal/ports"
)

// This test only verifies that our mocks conform to the ports at compile time.
func TestMocksImplementPorts(t *testing.T) {
	t.Helper()

	var _ ports.TokenEnhancer = (*mocks.MockTokenEnhancer)(nil)
	var _ ports.UserDirectory = (*mocks.MockUserDirectory)(nil)
	var _ ports.TokenVerifier = (*mocks.MockTokenVerifier)(nil)
	var _ ports.IDPClient = (*mocks.MockIDPClient)(nil)
	var _ ports.SessionStore = (*mocks.MockSessionStore)(nil)

	var _ ports.LoginHooks = (*mockauth.RecordingHooks)(nil)
	var _ ports.LocalUserStore = (*mockauth.MemoryUserStore)(nil)
	var _ ports.LocalAccountManager = (*mockauth.MemoryUserStore)(nil)
	var _ ports.RoleMapper = mockauth.StaticRoleMapper{}
	var _ ports.IDPPages = (*mockauth.StaticPages)(nil)
}
