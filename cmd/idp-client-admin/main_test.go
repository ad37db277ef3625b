package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avisitor/idp-client/config"
	"github.com/avisitor/idp-client/internal/testutil"
)

type testCLI struct {
	ctx *commandContext
	out *bytes.Buffer
}

func newTestCLI(cfg config.AppConfig, stdin string) *testCLI {
	out := &bytes.Buffer{}
	return &testCLI{
		out: out,
		ctx: &commandContext{
			Ctx:    context.Background(),
			Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
			Config: cfg,
			Out:    out,
			In:     strings.NewReader(stdin),
		},
	}
}

func localConfig() config.AppConfig {
	cfg := config.AppConfig{
		App: config.AppDetailsConfig{
			BaseURL:      "https://app.example.com",
			SupportEmail: "help@example.com",
		},
		Auth: config.AuthConfig{
			DevUsers: map[string]int{"ann@example.com": 1, "bob@example.com": 0},
		},
	}
	cfg.Sanitize()
	return cfg
}

func externalConfig(idpURL string) config.AppConfig {
	cfg := localConfig()
	cfg.Auth.UseExternalAuth = true
	cfg.IDP.URL = idpURL
	cfg.IDP.AppID = "app-1"
	cfg.Sanitize()
	return cfg
}

func TestExecuteUsage(t *testing.T) {
	var out, errOut bytes.Buffer
	code := execute(context.Background(), nil, strings.NewReader(""), &out, &errOut)
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut.String(), "Usage: idp-client-admin")
	assert.Contains(t, errOut.String(), "enhance-token")

	errOut.Reset()
	code = execute(context.Background(), []string{"bogus"}, strings.NewReader(""), &out, &errOut)
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut.String(), `unknown command "bogus"`)
}

func TestDecodeToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()
	raw := testutil.MintToken(t, testutil.TokenClaims{
		Subject:   "ann@example.com",
		Name:      "Ann",
		Roles:     []string{"user", "admin"},
		ExpiresAt: exp,
	})

	tests := []struct {
		name  string
		args  []string
		stdin string
	}{
		{name: "flag", args: []string{"-token", raw}},
		{name: "positional", args: []string{raw}},
		{name: "stdin", args: []string{"-"}, stdin: raw + "\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli := newTestCLI(localConfig(), tt.stdin)
			require.NoError(t, runDecodeToken(cli.ctx, tt.args))

			var got decodedToken
			require.NoError(t, json.Unmarshal(cli.out.Bytes(), &got))
			assert.Equal(t, "ann@example.com", got.Identity)
			assert.Equal(t, []string{"user", "admin"}, got.Roles)
			assert.False(t, got.Expired)
			assert.Greater(t, got.ExpiresIn, int64(3500))
			assert.Equal(t, time.Unix(exp, 0).UTC().Format(time.RFC3339), got.ExpiresAt)
			assert.Equal(t, "Ann", got.Claims["name"])
		})
	}
}

func TestDecodeTokenErrors(t *testing.T) {
	cli := newTestCLI(localConfig(), "")
	assert.ErrorIs(t, runDecodeToken(cli.ctx, nil), errTokenRequired)
	assert.ErrorContains(t, runDecodeToken(cli.ctx, []string{"not-a-token"}), "malformed token")
}

func TestTokenStatus(t *testing.T) {
	raw := testutil.MintToken(t, testutil.TokenClaims{
		Subject:   "ann@example.com",
		Roles:     []string{"admin", "user"},
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	})
	cli := newTestCLI(localConfig(), "")
	require.NoError(t, runTokenStatus(cli.ctx, []string{"-resource", "mail-service", raw}))

	out := cli.out.String()
	assert.Contains(t, out, "Identity")
	assert.Contains(t, out, "ann@example.com")
	assert.Regexp(t, `Roles for mail-service\s+superadmin,editor`, out)
	assert.Regexp(t, `Expired\s+false`, out)
	assert.Regexp(t, `Usable\s+true`, out)
}

func TestTokenStatusExpiredWithoutRoles(t *testing.T) {
	raw := testutil.MintToken(t, testutil.TokenClaims{
		Subject:   "bob@example.com",
		ExpiresAt: time.Now().Add(time.Minute).Unix(),
	})
	cli := newTestCLI(localConfig(), "")
	require.NoError(t, runTokenStatus(cli.ctx, []string{"-buffer", "5m", "-token", raw}))

	assert.Regexp(t, `Expired\s+true`, cli.out.String())
	assert.Regexp(t, `Usable\s+false`, cli.out.String())
}

func TestTokenStatusValidate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/validate-token", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"valid":true}`))
	}))
	t.Cleanup(srv.Close)

	raw := testutil.MintToken(t, testutil.TokenClaims{Subject: "ann@example.com"})
	cli := newTestCLI(externalConfig(srv.URL), "")
	require.NoError(t, runTokenStatus(cli.ctx, []string{"-validate", raw}))
	assert.Regexp(t, `IDP valid\s+true`, cli.out.String())
}

func TestCheckConfig(t *testing.T) {
	cli := newTestCLI(localConfig(), "")
	require.NoError(t, runCheckConfig(cli.ctx, []string{"-json"}))

	var report struct {
		ProviderType string `json:"provider_type"`
		Tests        map[string]struct {
			Success bool `json:"success"`
		} `json:"tests"`
	}
	require.NoError(t, json.Unmarshal(cli.out.Bytes(), &report))
	assert.Equal(t, "local", report.ProviderType)
	for _, name := range []string{"config", "stores", "provider_creation", "local_config", "url_generation"} {
		require.Contains(t, report.Tests, name)
		assert.True(t, report.Tests[name].Success, name)
	}
}

func TestCheckConfigReportsFailures(t *testing.T) {
	cfg := externalConfig("")
	cfg.IDP.AppID = ""
	cli := newTestCLI(cfg, "")

	err := runCheckConfig(cli.ctx, []string{"-connect=false"})
	require.ErrorIs(t, err, errChecksFailed)

	out := cli.out.String()
	assert.Regexp(t, `config:IDP_URL\s+FAIL`, out)
	assert.Regexp(t, `config:IDP_APP_ID\s+FAIL`, out)
	assert.NotContains(t, out, "stores")
}

func TestEnhanceToken(t *testing.T) {
	enhanced := testutil.MintToken(t, testutil.TokenClaims{
		Subject:   "ann@example.com",
		Roles:     []string{"user", "admin"},
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	})
	var gotRoles []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/enhance-token.php", r.URL.Path)
		var body struct {
			AppID  string `json:"appId"`
			Claims struct {
				Roles []string `json:"roles"`
			} `json:"claims"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "app-1", body.AppID)
		gotRoles = body.Claims.Roles
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"token": enhanced})
	}))
	t.Cleanup(srv.Close)

	raw := testutil.MintToken(t, testutil.TokenClaims{Subject: "ann@example.com"})
	cli := newTestCLI(externalConfig(srv.URL), "")
	require.NoError(t, runEnhanceToken(cli.ctx, []string{"-token", raw}))

	assert.Equal(t, enhanced, strings.TrimSpace(cli.out.String()))
	assert.Equal(t, []string{"user", "admin"}, gotRoles)
}

func TestEnhanceTokenReportsRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"unknown app"}`))
	}))
	t.Cleanup(srv.Close)

	raw := testutil.MintToken(t, testutil.TokenClaims{Subject: "ann@example.com"})
	cli := newTestCLI(externalConfig(srv.URL), "")
	err := runEnhanceToken(cli.ctx, []string{raw})
	require.ErrorContains(t, err, "did not issue a new token")
	assert.Empty(t, cli.out.String())
}

func TestParseCreateUserFlags(t *testing.T) {
	cli := newTestCLI(localConfig(), "s3cret\n")
	opts, err := parseCreateUserFlags(cli.ctx, []string{"-email", " Ann@Example.com ", "-admin", "2"})
	require.NoError(t, err)
	assert.Equal(t, "Ann@Example.com", opts.Email)
	assert.Equal(t, "s3cret", opts.Password)
	assert.Equal(t, 2, opts.Admin)

	_, err = parseCreateUserFlags(newTestCLI(localConfig(), "").ctx, []string{"-password", "x"})
	require.ErrorContains(t, err, "-email is required")

	_, err = parseCreateUserFlags(newTestCLI(localConfig(), "").ctx, []string{"-email", "a@example.com"})
	require.ErrorContains(t, err, "read password")

	_, err = parseCreateUserFlags(newTestCLI(localConfig(), "").ctx, []string{"-email", "a@example.com", "-admin", "-1", "-password", "x"})
	require.ErrorContains(t, err, "must not be negative")
}

func TestCreateUserAgainstDatabase(t *testing.T) {
	testutil.SetupTestDB(t)

	tc := testutil.DefaultTestDBConfig()
	port, err := strconv.Atoi(tc.Port)
	require.NoError(t, err)
	cfg := localConfig()
	cfg.Postgres = config.DBConfig{
		Host:     tc.Host,
		Port:     port,
		User:     tc.User,
		Password: tc.Password,
		Name:     tc.DBName,
		SSLMode:  "disable",
	}

	cli := newTestCLI(cfg, "")
	require.NoError(t, runCreateUser(cli.ctx, []string{"-email", "Carol@Example.com", "-name", "Carol", "-admin", "1", "-password", "pw"}))
	assert.Contains(t, cli.out.String(), "Created user carol@example.com")

	err = runCreateUser(newTestCLI(cfg, "").ctx, []string{"-email", "carol@example.com", "-password", "pw"})
	require.Error(t, err)
}

func TestParseMigrateFlags(t *testing.T) {
	cli := newTestCLI(localConfig(), "")
	opts, err := parseMigrateFlags(cli.ctx, []string{"-status"})
	require.NoError(t, err)
	assert.True(t, opts.Status)
	assert.Equal(t, defaultMigrationTimeout, opts.Timeout)

	_, err = parseMigrateFlags(cli.ctx, []string{"-timeout", "0s"})
	require.ErrorContains(t, err, "timeout must be positive")
}
