package idp

import (
	"net/url"
	"strings"

	apperrors "github.com/avisitor/idp-client/internal/errors"
	"github.com/avisitor/idp-client/internal/ports"
)

// Pages builds the browser-facing IDP URLs.
type Pages struct {
	BaseURL string
	AppID   string
}

var _ ports.IDPPages = Pages{}

// NewPages returns a page builder for the IDP at baseURL.
func NewPages(baseURL, appID string) Pages {
	return Pages{BaseURL: strings.TrimRight(baseURL, "/"), AppID: appID}
}

func (p Pages) build(path string, q url.Values) (string, error) {
	if p.BaseURL == "" {
		return "", apperrors.Configuration("IDP_URL", "IDP URL is not configured")
	}
	if p.AppID == "" {
		return "", apperrors.Configuration("IDP_APP_ID", "IDP application id is not configured")
	}
	return strings.TrimRight(p.BaseURL, "/") + path + "?" + q.Encode(), nil
}

// LoginURL is the IDP login entry point: {idp}/?app=<id>&return=<url>.
func (p Pages) LoginURL(returnURL string) (string, error) {
	return p.build("/", url.Values{"app": {p.AppID}, "return": {returnURL}})
}

// LogoutURL ends the IDP session and sends the browser to redirectURI.
func (p Pages) LogoutURL(redirectURI string) (string, error) {
	return p.build("/logout", url.Values{"app_id": {p.AppID}, "redirect_uri": {redirectURI}})
}

// RegisterURL opens the IDP sign-up page. state is omitted when empty.
func (p Pages) RegisterURL(callbackURL, state string) (string, error) {
	q := url.Values{"app_id": {p.AppID}, "callback_url": {callbackURL}}
	if state != "" {
		q.Set("state", state)
	}
	return p.build("/register", q)
}

// ResetPasswordURL opens the IDP reset page, prefilled with email when given.
func (p Pages) ResetPasswordURL(email string) (string, error) {
	q := url.Values{"app_id": {p.AppID}}
	if email != "" {
		q.Set("email", email)
	}
	return p.build("/reset-password", q)
}

// ChangePasswordURL opens the IDP change-password page.
func (p Pages) ChangePasswordURL() (string, error) {
	return p.build("/change-password", url.Values{"app_id": {p.AppID}})
}
