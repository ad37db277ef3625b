// Package data holds the Postgres-backed local user store.
package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/avisitor/idp-client/internal/data/pgxutil"
	domainauth "github.com/avisitor/idp-client/internal/domain/auth"
	apperrors "github.com/avisitor/idp-client/internal/errors"
	"github.com/avisitor/idp-client/internal/ports"
)

// MinPasswordLength is enforced by Register and ChangePassword.
const MinPasswordLength = 8

// UserRepo reads and writes the users table.
type UserRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	cost         int
}

var (
	_ ports.LocalUserStore      = (*UserRepo)(nil)
	_ ports.UserDirectory       = (*UserRepo)(nil)
	_ ports.LocalAccountManager = (*UserRepo)(nil)
)

// NewUserRepo creates a UserRepo using the system clock and bcrypt.DefaultCost.
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{DB: db, timeProvider: RealTimeProvider{}, cost: bcrypt.DefaultCost}
}

// NewUserRepoWithTimeProvider is NewUserRepo with an injected clock and the
// cheapest bcrypt cost. Test use.
func NewUserRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *UserRepo {
	return &UserRepo{DB: db, timeProvider: tp, cost: bcrypt.MinCost}
}

func normalizeUsername(u string) string { return strings.ToLower(strings.TrimSpace(u)) }

const credentialsQuery = `
	SELECT id, username, password, name, active, admin
	FROM users
	WHERE username = $1`

// FindCredentials returns nil, nil when username is unknown.
func (r *UserRepo) FindCredentials(ctx context.Context, username string) (*ports.LocalCredentials, error) {
	username = normalizeUsername(username)
	if username == "" {
		return nil, nil
	}

	var (
		id    int64
		creds ports.LocalCredentials
	)
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx, credentialsQuery, username).
			Scan(&id, &creds.Username, &creds.PasswordHash, &creds.Name, &creds.Active, &creds.Admin)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	creds.ID = strconv.FormatInt(id, 10)
	return &creds, nil
}

// LookupUser returns nil, nil when email is unknown.
func (r *UserRepo) LookupUser(ctx context.Context, email string) (*ports.UserRecord, error) {
	creds, err := r.FindCredentials(ctx, email)
	if err != nil || creds == nil {
		return nil, err
	}
	return &ports.UserRecord{Email: creds.Username, Name: creds.Name, Admin: creds.Admin}, nil
}

// LoadUserData returns the stored profile merged with the account columns.
func (r *UserRepo) LoadUserData(ctx context.Context, username string) (map[string]any, error) {
	username = normalizeUsername(username)

	var (
		name    string
		admin   int
		profile []byte
	)
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx, `SELECT name, admin, profile FROM users WHERE username = $1`, username).
			Scan(&name, &admin, &profile)
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}

	out := map[string]any{}
	if len(profile) > 0 {
		if err := json.Unmarshal(profile, &out); err != nil {
			return nil, fmt.Errorf("decode profile: %w", err)
		}
	}
	out["email"] = username
	out["name"] = name
	out["admin"] = admin
	out["isAdmin"] = admin > 0
	return out, nil
}

// Register creates an active account with admin level 0.
func (r *UserRepo) Register(ctx context.Context, reg domainauth.Registration) error {
	email := normalizeUsername(reg.Email)
	if email == "" {
		return apperrors.ValidationField("email", "Please enter email.")
	}
	if len(reg.Password) < MinPasswordLength {
		return apperrors.ValidationField("password",
			fmt.Sprintf("Password must be at least %d characters.", MinPasswordLength))
	}
	_, err := r.CreateUser(ctx, CreateUserRequest{
		Username: email,
		Password: reg.Password,
		Name:     reg.Name,
		Active:   true,
		Profile:  reg.Extra,
	})
	return err
}

// CreateUserRequest describes a new row in users.
type CreateUserRequest struct {
	Username string
	Password string
	Name     string
	Active   bool
	Admin    int
	Profile  map[string]any
}

// CreateUser hashes the password and inserts the row, returning its id.
func (r *UserRepo) CreateUser(ctx context.Context, req CreateUserRequest) (int64, error) {
	username := normalizeUsername(req.Username)
	if username == "" {
		return 0, apperrors.ValidationField("username", "username is required")
	}
	if req.Password == "" {
		return 0, apperrors.ValidationField("password", "password is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), r.cost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}
	profile := req.Profile
	if profile == nil {
		profile = map[string]any{}
	}
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return 0, fmt.Errorf("encode profile: %w", err)
	}

	now := r.timeProvider.Now()
	var id int64
	err = pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx, `
			INSERT INTO users (username, password, name, active, admin, profile, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
			RETURNING id`,
			username, string(hash), strings.TrimSpace(req.Name), req.Active, req.Admin, profileJSON, now,
		).Scan(&id)
	})
	if err != nil {
		return 0, apperrors.MapDBError(err)
	}
	return id, nil
}

// ChangePassword verifies oldPassword and stores a hash of newPassword.
func (r *UserRepo) ChangePassword(ctx context.Context, username, oldPassword, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return apperrors.ValidationField("password",
			fmt.Sprintf("Password must be at least %d characters.", MinPasswordLength))
	}

	creds, err := r.FindCredentials(ctx, username)
	if err != nil {
		return err
	}
	if creds == nil {
		return apperrors.NotFound("User not found")
	}
	if bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(oldPassword)) != nil {
		return apperrors.Authentication("Current password is incorrect.")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), r.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{Fn: func(tx pgx.Tx) error {
		tag, execErr := tx.Exec(ctx,
			`UPDATE users SET password = $1, updated_at = $2 WHERE username = $3`,
			string(hash), r.timeProvider.Now(), creds.Username)
		if execErr != nil {
			return apperrors.MapDBError(execErr)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.NotFound("User not found")
		}
		return nil
	}})
}

// SetActive flips the active flag, e.g. after email verification.
func (r *UserRepo) SetActive(ctx context.Context, username string, active bool) error {
	return pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		tag, err := conn.Exec(ctx,
			`UPDATE users SET active = $1, updated_at = $2 WHERE username = $3`,
			active, r.timeProvider.Now(), normalizeUsername(username))
		if err != nil {
			return apperrors.MapDBError(err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.NotFound("User not found")
		}
		return nil
	})
}
