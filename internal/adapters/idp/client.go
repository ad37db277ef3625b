// Package idp talks to the external identity provider over HTTP.
package idp

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	domainauth "github.com/avisitor/idp-client/internal/domain/auth"
	apperrors "github.com/avisitor/idp-client/internal/errors"
	"github.com/avisitor/idp-client/internal/ports"
)

const (
	defaultEnhanceTimeout = 10 * time.Second
	defaultAPITimeout     = 30 * time.Second
	// maxResponseBytes caps how much of an IDP response is read.
	maxResponseBytes = 1 << 20
)

// Config holds configuration for the IDP client.
type Config struct {
	BaseURL      string
	AppID        string
	ClientSecret string

	EnhanceTimeout time.Duration
	APITimeout     time.Duration

	// InsecureSkipVerify disables TLS certificate checks. Compatibility only.
	InsecureSkipVerify bool

	HTTPClient *http.Client // Optional, defaults to a client built from http.DefaultTransport
	Logger     *slog.Logger
}

// Client implements ports.TokenEnhancer and ports.IDPClient.
type Client struct {
	baseURL        string
	appID          string
	clientSecret   string
	enhanceTimeout time.Duration
	apiTimeout     time.Duration
	httpClient     *http.Client
	logger         *slog.Logger
}

var (
	_ ports.TokenEnhancer = (*Client)(nil)
	_ ports.IDPClient     = (*Client)(nil)
)

// NewClient creates a new IDP client.
func NewClient(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "idp_client")

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if cfg.InsecureSkipVerify {
			logger.Warn("TLS certificate verification for IDP calls is disabled")
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // explicit opt-in for legacy IDPs
		}
		httpClient = &http.Client{Transport: transport}
	}

	c := &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		appID:          cfg.AppID,
		clientSecret:   cfg.ClientSecret,
		enhanceTimeout: cfg.EnhanceTimeout,
		apiTimeout:     cfg.APITimeout,
		httpClient:     httpClient,
		logger:         logger,
	}
	if c.enhanceTimeout <= 0 {
		c.enhanceTimeout = defaultEnhanceTimeout
	}
	if c.apiTimeout <= 0 {
		c.apiTimeout = defaultAPITimeout
	}
	return c
}

type enhanceBody struct {
	Token  string        `json:"token"`
	AppID  string        `json:"appId"`
	Claims enhanceClaims `json:"claims"`
}

type enhanceClaims struct {
	Roles []string `json:"roles"`
}

// Enhance requests a replacement token carrying req.Roles. It makes exactly
// one HTTP call and never retries.
func (c *Client) Enhance(ctx context.Context, req ports.EnhanceRequest) (string, error) {
	base := c.baseURL
	if req.IDPURL != "" {
		base = strings.TrimRight(req.IDPURL, "/")
	}
	appID := req.AppID
	if appID == "" {
		appID = c.appID
	}
	if base == "" {
		return "", apperrors.Configuration("IDP_URL", "IDP URL is required for token enhancement")
	}
	if appID == "" {
		return "", apperrors.Configuration("IDP_APP_ID", "application id is required for token enhancement")
	}

	body := enhanceBody{
		Token:  req.Token,
		AppID:  appID,
		Claims: enhanceClaims{Roles: uniqueRoles(req.Roles)},
	}

	ctx, cancel := context.WithTimeout(ctx, c.enhanceTimeout)
	defer cancel()

	var out struct {
		Token string `json:"token"`
		Error string `json:"error"`
	}
	status, err := c.postJSON(ctx, base+"/enhance-token.php", body, &out)
	log := c.logger.With("user", req.UserEmail, "app_id", appID)
	switch {
	case err != nil && status == 0:
		log.WarnContext(ctx, "token enhancement request failed", "error", err)
		return "", apperrors.Wrap(err, apperrors.ErrCodeNetwork, "token enhancement request failed")
	case status >= http.StatusBadRequest:
		log.WarnContext(ctx, "token enhancement rejected", "status", status, "error", out.Error)
		return "", apperrors.Networkf("token enhancement failed: HTTP %d", status)
	case err != nil:
		log.WarnContext(ctx, "token enhancement response unreadable", "status", status, "error", err)
		return "", apperrors.Wrap(err, apperrors.ErrCodeToken, "token enhancement response is not JSON")
	case out.Token == "":
		log.WarnContext(ctx, "token enhancement response has no token", "status", status)
		return "", apperrors.Tokenf("token enhancement response has no token")
	}

	log.DebugContext(ctx, "token enhanced", "roles", body.Claims.Roles)
	return out.Token, nil
}

// Register creates an account at the IDP.
func (c *Client) Register(ctx context.Context, reg domainauth.Registration) (ports.IDPResponse, error) {
	userData := map[string]any{}
	for k, v := range reg.Extra {
		userData[k] = v
	}
	if reg.Name != "" {
		userData["name"] = reg.Name
	}
	return c.call(ctx, "/api/register", map[string]any{
		"app":       c.appID,
		"email":     reg.Email,
		"password":  reg.Password,
		"user_data": userData,
	})
}

// VerifyEmail confirms an email-verification token.
func (c *Client) VerifyEmail(ctx context.Context, token string) (ports.IDPResponse, error) {
	return c.call(ctx, "/api/verify", map[string]any{"app": c.appID, "token": token})
}

// RequestPasswordReset asks the IDP to send a reset email.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) (ports.IDPResponse, error) {
	return c.call(ctx, "/api/password-reset", map[string]any{"app": c.appID, "email": email})
}

// ValidateToken asks the IDP whether token is still valid.
func (c *Client) ValidateToken(ctx context.Context, token string) (ports.IDPResponse, error) {
	return c.call(ctx, "/api/validate-token", map[string]any{"app": c.appID, "token": token})
}

// ExchangeCode trades an OAuth authorization code for a token at /oauth/token.
// The id_token is preferred when the IDP returns one.
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI string) (string, error) {
	if c.baseURL == "" || c.appID == "" {
		return "", apperrors.Configurationf("IDP URL and application id are required for code exchange")
	}
	if code == "" {
		return "", apperrors.Authentication("authorization code is required")
	}

	conf := &oauth2.Config{
		ClientID:     c.appID,
		ClientSecret: c.clientSecret,
		RedirectURL:  redirectURI,
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.baseURL + "/oauth/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	ctx, cancel := context.WithTimeout(ctx, c.apiTimeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		c.logger.WarnContext(ctx, "authorization code exchange failed", "error", err)
		return "", apperrors.Wrap(err, apperrors.ErrCodeNetwork, "authorization code exchange failed")
	}
	if idToken, ok := tok.Extra("id_token").(string); ok && idToken != "" {
		return idToken, nil
	}
	if tok.AccessToken == "" {
		return "", apperrors.Tokenf("authorization code exchange returned no token")
	}
	return tok.AccessToken, nil
}

// call POSTs to an /api endpoint. Non-2xx answers produce a network error whose
// message comes from the response error or message field, or "HTTP <code>".
func (c *Client) call(ctx context.Context, endpoint string, body any) (ports.IDPResponse, error) {
	if c.baseURL == "" {
		return ports.IDPResponse{}, apperrors.Configuration("IDP_URL", "IDP URL is not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, c.apiTimeout)
	defer cancel()

	var resp ports.IDPResponse
	status, err := c.postJSON(ctx, c.baseURL+endpoint, body, &resp)
	if status == 0 && err != nil {
		c.logger.WarnContext(ctx, "IDP request failed", "endpoint", endpoint, "error", err)
		return ports.IDPResponse{Error: "Could not reach the identity provider."},
			apperrors.Wrap(err, apperrors.ErrCodeNetwork, "Could not reach the identity provider.")
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		msg := resp.Error
		if msg == "" {
			msg = resp.Message
		}
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d", status)
		}
		c.logger.WarnContext(ctx, "IDP request rejected", "endpoint", endpoint, "status", status, "error", msg)
		resp.Success = false
		resp.Error = msg
		return resp, apperrors.Networkf("%s", msg)
	}
	if err != nil {
		c.logger.WarnContext(ctx, "IDP response unreadable", "endpoint", endpoint, "error", err)
		return ports.IDPResponse{Error: "Invalid response from the identity provider."},
			apperrors.Wrap(err, apperrors.ErrCodeNetwork, "Invalid response from the identity provider.")
	}
	return resp, nil
}

// postJSON sends body and decodes the response into out. status is 0 when no
// response was received.
func (c *Client) postJSON(ctx context.Context, url string, body, out any) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.DebugContext(ctx, "close IDP response body", "error", cerr)
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return resp.StatusCode, errors.New("empty response body")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}

// uniqueRoles removes duplicates while keeping first-seen order. Never nil.
func uniqueRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	seen := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
