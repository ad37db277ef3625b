package bootstrap

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avisitor/idp-client/config"
	apperrors "github.com/avisitor/idp-client/internal/errors"
)

func TestInitLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	t.Run("text at debug", func(t *testing.T) {
		var buf bytes.Buffer
		logger := initLogger(&buf, config.LogConfig{Level: "debug", Format: "text"})
		logger.Debug("probe", "user", "ann@example.com")
		assert.Contains(t, buf.String(), "level=DEBUG")
		assert.Contains(t, buf.String(), "user=ann@example.com")
		assert.Same(t, logger, slog.Default())
	})

	t.Run("json at warn drops info", func(t *testing.T) {
		var buf bytes.Buffer
		logger := initLogger(&buf, config.LogConfig{Level: "warn", Format: "json"})
		logger.Info("hidden")
		logger.Warn("shown")
		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), `"level":"WARN"`)
	})
}

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_BASE_URL", "https://app.example.com/")
	t.Setenv("SUPPORT_EMAIL", "help@example.com")
	t.Setenv("IDP_URL", "https://idp.example.com/")
	t.Setenv("IDP_APP_ID", "app-1")
}

func TestLoadConfig(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DEV_AUTH_USERS", "ann@example.com=2;bob@example.com=0")
	t.Setenv("AUTH_ROLE_LEVELS", "0:user;2:user,admin")
	t.Setenv("SESSION_STORE", "redis")
	t.Setenv("LOG_FORMAT", "TEXT")

	cfg, err := LoadValidConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://app.example.com", cfg.App.BaseURL)
	assert.Equal(t, "/auth", cfg.App.AuthPath)
	assert.Equal(t, "https://idp.example.com/.well-known/jwks.json", cfg.IDP.JWKSURL)
	assert.True(t, cfg.IDP.VerifySignature)
	assert.True(t, cfg.Auth.UseExternalAuth)
	assert.Equal(t, 2, cfg.Auth.MaxRefreshAttempts)
	assert.Equal(t, map[string]int{"ann@example.com": 2, "bob@example.com": 0}, cfg.Auth.DevUsers)
	assert.Equal(t, config.RoleLevels{0: {"user"}, 2: {"user", "admin"}}, cfg.Auth.RoleLevels)
	assert.Equal(t, config.SessionStoreRedis, cfg.Session.Store)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadValidConfigRejectsMissingSettings(t *testing.T) {
	t.Setenv("APP_BASE_URL", "")
	t.Setenv("SUPPORT_EMAIL", "not-an-email")
	t.Setenv("IDP_URL", "")
	t.Setenv("IDP_APP_ID", "")

	_, err := LoadValidConfig()
	require.Error(t, err)
	assert.True(t, apperrors.IsConfiguration(err))
	assert.Contains(t, err.Error(), "APP_BASE_URL is required")
	assert.Contains(t, err.Error(), "IDP_APP_ID is required")

	// Sanitized but unvalidated configuration is still returned for diagnostics.
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "/auth", cfg.App.AuthPath)
}

func TestLoadConfigRejectsBadEnum(t *testing.T) {
	t.Setenv("SESSION_STORE", "memcached")
	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}
