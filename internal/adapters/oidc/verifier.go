// Package oidc verifies IDP token signatures against the IDP's published key set.
package oidc

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	apperrors "github.com/avisitor/idp-client/internal/errors"
	"github.com/avisitor/idp-client/internal/ports"
)

// VerifierConfig holds configuration for the signature verifier.
type VerifierConfig struct {
	JWKSURL string
	// Issuer is checked against the iss claim when non-empty.
	Issuer string
	// Algorithms restricts accepted signing algorithms. Defaults to RS256.
	Algorithms []string
	HTTPClient *http.Client // Optional, defaults to a 30s client
}

// Verifier implements ports.TokenVerifier using go-oidc's remote key set.
// Expiry is not checked here; callers apply the token validity policy.
type Verifier struct {
	verifier *gooidc.IDTokenVerifier
}

var _ ports.TokenVerifier = (*Verifier)(nil)

// NewVerifier builds a verifier. Keys are fetched lazily on first use and
// refreshed when an unknown kid is seen.
func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	if cfg.JWKSURL == "" {
		return nil, apperrors.Configuration("IDP_JWKS_URL", "JWKS URL is required for signature verification")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	// The key set keeps this context for every later fetch.
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
	keySet := gooidc.NewRemoteKeySet(ctx, cfg.JWKSURL)

	algs := cfg.Algorithms
	if len(algs) == 0 {
		algs = []string{gooidc.RS256}
	}

	v := gooidc.NewVerifier(cfg.Issuer, keySet, &gooidc.Config{
		SkipClientIDCheck:    true,
		SkipExpiryCheck:      true,
		SkipIssuerCheck:      cfg.Issuer == "",
		SupportedSigningAlgs: algs,
	})
	return &Verifier{verifier: v}, nil
}

// Verify checks the token signature and, when configured, its issuer.
func (v *Verifier) Verify(ctx context.Context, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return apperrors.Tokenf("token is empty")
	}
	if _, err := v.verifier.Verify(ctx, raw); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeToken, "token signature verification failed")
	}
	return nil
}

// GenerateState returns a URL-safe random string of exactly length characters,
// used for OAuth state and CSRF values.
func GenerateState(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("length must be positive")
	}
	b := make([]byte, (length*3+3)/4)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	s := base64.RawURLEncoding.EncodeToString(b)
	for len(s) < length {
		extra := make([]byte, 3)
		if _, err := rand.Read(extra); err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		s += base64.RawURLEncoding.EncodeToString(extra)
	}
	return s[:length], nil
}
