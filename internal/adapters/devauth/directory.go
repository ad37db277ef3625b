// Package devauth provides a config-driven user directory for local development
// and for running the library without a database.
package devauth

import (
	"context"
	"errors"
	"maps"
	"slices"
	"strings"

	"golang.org/x/crypto/bcrypt"

	domainauth "github.com/avisitor/idp-client/internal/domain/auth"
	"github.com/avisitor/idp-client/internal/ports"
)

// DefaultPassword is accepted for every static user by the local provider.
const DefaultPassword = "password"

// Directory maps email addresses to admin levels.
// It serves as a UserDirectory for token enhancement and as a LocalUserStore
// whose users all share DefaultPassword.
type Directory struct {
	users map[string]int
	hash  string
}

var (
	_ ports.UserDirectory  = (*Directory)(nil)
	_ ports.LocalUserStore = (*Directory)(nil)
)

// NewDirectory builds a directory from email=level pairs. Emails are matched
// case-insensitively.
func NewDirectory(users map[string]int) (*Directory, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}
	d := &Directory{users: make(map[string]int, len(users)), hash: string(hash)}
	for email, level := range users {
		email = normalize(email)
		if email == "" {
			return nil, errors.New("dev auth: empty email in user list")
		}
		d.users[email] = level
	}
	return d, nil
}

func normalize(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// Emails returns the known users in sorted order.
func (d *Directory) Emails() []string {
	return slices.Sorted(maps.Keys(d.users))
}

// LookupUser returns nil, nil for unknown users.
func (d *Directory) LookupUser(_ context.Context, email string) (*ports.UserRecord, error) {
	email = normalize(email)
	level, ok := d.users[email]
	if !ok {
		return nil, nil
	}
	return &ports.UserRecord{Email: email, Name: displayName(email), Admin: level}, nil
}

// FindCredentials returns nil, nil for unknown users.
func (d *Directory) FindCredentials(_ context.Context, username string) (*ports.LocalCredentials, error) {
	email := normalize(username)
	level, ok := d.users[email]
	if !ok {
		return nil, nil
	}
	return &ports.LocalCredentials{
		ID:           email,
		Username:     email,
		PasswordHash: d.hash,
		Name:         displayName(email),
		Active:       true,
		Admin:        level,
	}, nil
}

// LoadUserData returns the static user's profile.
func (d *Directory) LoadUserData(_ context.Context, username string) (map[string]any, error) {
	email := normalize(username)
	level, ok := d.users[email]
	if !ok {
		return nil, nil
	}
	return map[string]any{
		"email":   email,
		"name":    displayName(email),
		"admin":   level,
		"isAdmin": level > 0,
		"roles":   rolesFor(level),
	}, nil
}

func rolesFor(level int) []string {
	if level > 0 {
		return []string{domainauth.RoleUser, domainauth.RoleAdmin}
	}
	return domainauth.DefaultRoles()
}

func displayName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}
