package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims describes the payload of a test token. Zero values are omitted,
// except Roles which is included whenever it is non-nil.
type TokenClaims struct {
	Subject   string
	Email     string
	UserID    string
	Name      string
	Roles     []string
	ExpiresAt int64
	Issuer    string
	Audience  string
	Extra     map[string]any
}

func (c TokenClaims) mapClaims() jwt.MapClaims {
	m := jwt.MapClaims{}
	set := func(k, v string) {
		if v != "" {
			m[k] = v
		}
	}
	set("sub", c.Subject)
	set("email", c.Email)
	set("user_id", c.UserID)
	set("name", c.Name)
	set("iss", c.Issuer)
	set("aud", c.Audience)
	if c.Roles != nil {
		m["roles"] = c.Roles
	}
	if c.ExpiresAt != 0 {
		m["exp"] = c.ExpiresAt
	}
	for k, v := range c.Extra {
		m[k] = v
	}
	return m
}

const hmacSecret = "idp-client-test-secret"

// MintToken returns an HS256-signed token. Useful wherever the signature is not checked.
func MintToken(t TestingTB, c TokenClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c.mapClaims()).SignedString([]byte(hmacSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

// Signer mints RS256 tokens and publishes the matching key set.
type Signer struct {
	Key   *rsa.PrivateKey
	KeyID string
}

// NewSigner generates a fresh RSA key.
func NewSigner(t TestingTB) *Signer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	return &Signer{Key: key, KeyID: "test-key"}
}

// Mint returns an RS256 token with the signer's kid header.
func (s *Signer) Mint(t TestingTB, c TokenClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, c.mapClaims())
	tok.Header["kid"] = s.KeyID
	out, err := tok.SignedString(s.Key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return out
}

// JWKS returns the public key set as JSON.
func (s *Signer) JWKS(t TestingTB) []byte {
	t.Helper()
	set := jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{
		Key:       &s.Key.PublicKey,
		KeyID:     s.KeyID,
		Algorithm: string(jose.RS256),
		Use:       "sig",
	}}}
	raw, err := json.Marshal(set)
	if err != nil {
		t.Fatalf("marshal jwks: %v", err)
	}
	return raw
}

// ServeJWKS starts a server publishing the key set at every path.
func (s *Signer) ServeJWKS(t TestingTB) *httptest.Server {
	t.Helper()
	body := s.JWKS(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}
