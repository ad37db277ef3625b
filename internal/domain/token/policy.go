package token

import "time"

// DefaultRefreshBuffer is how early a browser watchdog refreshes before expiry.
const DefaultRefreshBuffer = 5 * time.Minute

// IsUsable reports whether a cached token can be returned without a refresh.
// The token must expire strictly after now+buffer (or carry no exp) and hold a non-empty
// roles claim; a token without roles has never been enhanced for this app.
func IsUsable(c Claims, buffer time.Duration, now time.Time) bool {
	if len(c.Roles) == 0 {
		return false
	}
	if c.badExpiry {
		return false
	}
	if c.ExpiresAt <= 0 {
		return true
	}
	return c.ExpiresAt > now.Add(buffer).Unix()
}

// IsExpired reports whether the token expires before now+buffer. Roles are
// ignored. A token with no exp claim counts as expired so watchdogs always
// swap it for one with a known lifetime.
func IsExpired(c Claims, buffer time.Duration, now time.Time) bool {
	if c.ExpiresAt <= 0 {
		return true
	}
	return c.ExpiresAt < now.Add(buffer).Unix()
}

// RawIsUsable decodes raw and applies IsUsable. Undecodable tokens are never usable.
func RawIsUsable(raw string, buffer time.Duration, now time.Time) bool {
	if raw == "" {
		return false
	}
	c, err := Decode(raw)
	if err != nil {
		return false
	}
	return IsUsable(c, buffer, now)
}

// RawIsExpired decodes raw and applies IsExpired. Undecodable tokens are expired.
func RawIsExpired(raw string, buffer time.Duration, now time.Time) bool {
	c, err := Decode(raw)
	if err != nil {
		return true
	}
	return IsExpired(c, buffer, now)
}

// ExpiresIn returns the time left before exp, zero when expired or unknown.
func ExpiresIn(c Claims, now time.Time) time.Duration {
	if c.ExpiresAt <= 0 {
		return 0
	}
	d := time.Unix(c.ExpiresAt, 0).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
