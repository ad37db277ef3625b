package service

import (
	"net/url"
	"strings"

	apperrors "github.com/avisitor/idp-client/internal/errors"
)

// AppURLs locates the host application's auth handlers.
type AppURLs struct {
	// BaseURL is the public application URL, e.g. "https://app.example.com".
	BaseURL string
	// AuthPath is where the auth handlers are mounted. Defaults to "/auth".
	AuthPath string
}

func (u AppURLs) authPath() string {
	p := "/" + strings.Trim(u.AuthPath, "/")
	if p == "/" {
		return "/auth"
	}
	return p
}

// LocalPath returns the relative path of an auth handler.
func (u AppURLs) LocalPath(page string, query url.Values) string {
	p := u.authPath() + "/" + strings.TrimLeft(page, "/")
	if len(query) > 0 {
		p += "?" + query.Encode()
	}
	return p
}

// Absolute returns the absolute URL of an auth handler. It fails when BaseURL is unset.
func (u AppURLs) Absolute(page string, query url.Values) (string, error) {
	base := strings.TrimRight(u.BaseURL, "/")
	if base == "" {
		return "", apperrors.Configuration("APP_BASE_URL", "APP_BASE_URL not configured")
	}
	return base + u.LocalPath(page, query), nil
}

// callbackURL is the absolute callback address with an optional redirect.
func (u AppURLs) callbackURL(redirect string) (string, error) {
	var q url.Values
	if redirect != "" {
		q = url.Values{"redirect": {redirect}}
	}
	return u.Absolute("callback", q)
}
