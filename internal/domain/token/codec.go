// Package token decodes IDP-issued JWTs and decides whether a cached token
// can be reused. Nothing here verifies signatures; see adapters/oidc for that.
package token

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

var (
	// ErrMalformedToken means the value is not three dot-separated segments.
	ErrMalformedToken = errors.New("malformed token")
	// ErrInvalidPayload means the middle segment is not base64 JSON object text.
	ErrInvalidPayload = errors.New("invalid token payload")
)

// Claims is the decoded payload of a token.
type Claims struct {
	Subject string
	Email   string
	UserID  string
	Name    string
	// Roles is nil unless the roles claim is an array made only of strings.
	Roles []string
	// ExpiresAt is the exp claim in Unix seconds; zero or negative means none.
	ExpiresAt int64

	// Raw holds every claim as decoded.
	Raw map[string]any

	badExpiry bool
}

// Identity returns the login identifier: sub, falling back to the email claim.
func (c Claims) Identity() string {
	if c.Subject != "" {
		return c.Subject
	}
	return c.Email
}

// HasExpiry reports whether a usable exp claim is present.
func (c Claims) HasExpiry() bool { return c.ExpiresAt > 0 || c.badExpiry }

// Decode splits raw into header, payload and signature and parses the payload.
// It never checks the signature.
func Decode(raw string) (Claims, error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return Claims{}, fmt.Errorf("%w: %d segments", ErrMalformedToken, len(parts))
	}

	payload, err := decodeSegment(parts[1])
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || obj == nil {
		if err == nil {
			err = errors.New("payload is not a JSON object")
		}
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Claims{}, fmt.Errorf("%w: trailing data after JSON object", ErrInvalidPayload)
	}

	return claimsFrom(obj), nil
}

// decodeSegment accepts base64url with or without padding and tolerates
// standard-alphabet input from older IDP builds.
func decodeSegment(seg string) ([]byte, error) {
	seg = strings.TrimRight(seg, "=")
	seg = strings.NewReplacer("+", "-", "/", "_").Replace(seg)
	if seg == "" {
		return nil, errors.New("empty segment")
	}
	return base64.RawURLEncoding.DecodeString(seg)
}

func claimsFrom(obj map[string]any) Claims {
	c := Claims{
		Subject: stringClaim(obj["sub"]),
		Email:   stringClaim(obj["email"]),
		UserID:  stringClaim(obj["user_id"]),
		Name:    stringClaim(obj["name"]),
		Raw:     obj,
	}
	if c.UserID == "" {
		c.UserID = c.Subject
	}

	if arr, ok := obj["roles"].([]any); ok {
		roles := make([]string, 0, len(arr))
		for _, r := range arr {
			s, isStr := r.(string)
			if !isStr {
				roles = nil
				break
			}
			roles = append(roles, s)
		}
		c.Roles = roles
	}

	if v, ok := obj["exp"]; ok && v != nil {
		exp, valid := numericClaim(v)
		switch {
		case !valid:
			c.badExpiry = true
		case exp > 0:
			c.ExpiresAt = exp
		}
	}
	return c
}

func stringClaim(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

func numericClaim(v any) (int64, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	if i, err := n.Int64(); err == nil {
		return i, true
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int64(f), true
}
