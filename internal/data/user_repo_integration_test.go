package data

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	domainauth "github.com/avisitor/idp-client/internal/domain/auth"
	apperrors "github.com/avisitor/idp-client/internal/errors"
	"github.com/avisitor/idp-client/internal/testutil"
)

func newTestUserRepo(t *testing.T) *UserRepo {
	t.Helper()
	db := testutil.SetupTestDB(t)
	return NewUserRepoWithTimeProvider(db, &FixedTimeProvider{T: testutil.TestTime()})
}

func TestUserRepo_CreateAndFind(t *testing.T) {
	repo := newTestUserRepo(t)
	ctx := context.Background()

	id, err := repo.CreateUser(ctx, CreateUserRequest{
		Username: " Admin@Example.com",
		Password: "correct-horse",
		Name:     "Admin",
		Active:   true,
		Admin:    2,
		Profile:  map[string]any{"theme": "dark"},
	})
	require.NoError(t, err)
	assert.Positive(t, id)

	creds, err := repo.FindCredentials(ctx, "admin@example.com")
	require.NoError(t, err)
	require.NotNil(t, creds)
	assert.Equal(t, "admin@example.com", creds.Username)
	assert.True(t, creds.Active)
	assert.Equal(t, 2, creds.Admin)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte("correct-horse")))

	rec, err := repo.LookupUser(ctx, "ADMIN@example.com")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 2, rec.Admin)

	data, err := repo.LoadUserData(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, "dark", data["theme"])
	assert.Equal(t, true, data["isAdmin"])
}

func TestUserRepo_UnknownUser(t *testing.T) {
	repo := newTestUserRepo(t)
	ctx := context.Background()

	creds, err := repo.FindCredentials(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, creds)

	rec, err := repo.LookupUser(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, rec)

	_, err = repo.LoadUserData(ctx, "nobody@example.com")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestUserRepo_RegisterDuplicate(t *testing.T) {
	repo := newTestUserRepo(t)
	ctx := context.Background()

	reg := domainauth.Registration{Email: "dup@example.com", Password: "long-enough", Name: "Dup"}
	require.NoError(t, repo.Register(ctx, reg))

	err := repo.Register(ctx, reg)
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
	assert.Equal(t, "An account with this email already exists.", apperrors.UserMessage(err))
	assert.Equal(t, "username", apperrors.GetField(err))
}

func TestUserRepo_RegisterValidation(t *testing.T) {
	repo := newTestUserRepo(t)
	ctx := context.Background()

	err := repo.Register(ctx, domainauth.Registration{Email: "", Password: "long-enough"})
	assert.True(t, apperrors.IsValidation(err))

	err = repo.Register(ctx, domainauth.Registration{Email: "a@example.com", Password: "short"})
	assert.True(t, apperrors.IsValidation(err))
}

func TestUserRepo_ChangePassword(t *testing.T) {
	repo := newTestUserRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Register(ctx, domainauth.Registration{Email: "c@example.com", Password: "first-pass"}))

	err := repo.ChangePassword(ctx, "c@example.com", "wrong-pass", "second-pass")
	assert.True(t, apperrors.IsAuthentication(err))

	require.NoError(t, repo.ChangePassword(ctx, "c@example.com", "first-pass", "second-pass"))
	creds, err := repo.FindCredentials(ctx, "c@example.com")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte("second-pass")))

	err = repo.ChangePassword(ctx, "missing@example.com", "x", "second-pass")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestUserRepo_SetActive(t *testing.T) {
	repo := newTestUserRepo(t)
	ctx := context.Background()

	_, err := repo.CreateUser(ctx, CreateUserRequest{Username: "p@example.com", Password: "pending-pass"})
	require.NoError(t, err)

	creds, err := repo.FindCredentials(ctx, "p@example.com")
	require.NoError(t, err)
	assert.False(t, creds.Active)

	require.NoError(t, repo.SetActive(ctx, "p@example.com", true))
	creds, err = repo.FindCredentials(ctx, "p@example.com")
	require.NoError(t, err)
	assert.True(t, creds.Active)

	assert.True(t, apperrors.IsNotFound(repo.SetActive(ctx, "none@example.com", true)))
}
