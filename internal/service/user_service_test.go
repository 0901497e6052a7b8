package service

import (
	"context"
	"testing"
	"time"
	"tutor-smart-go/internal/model"
	"tutor-smart-go/pkg/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserFixture() (UserService, *memUserRepo, *memTokenRepo) {
	users := newMemUserRepo()
	tokens := &memTokenRepo{revoked: map[string]time.Duration{}}
	return NewUserService(users, tokens, token.NewJWTManager("test-secret", 1, 7)), users, tokens
}

func TestRegisterAndLogin(t *testing.T) {
	svc, users, _ := newUserFixture()
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterRequest{Username: "minh", Password: "secret1", Level: "B1"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleStudent, user.Role)
	assert.NotEqual(t, "secret1", users.users[user.ID].Password)

	_, err = svc.Register(ctx, RegisterRequest{Username: "minh", Password: "other12"})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	access, refresh, err := svc.Login(ctx, "minh", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, access)
	assert.NotEmpty(t, refresh)

	_, _, err = svc.Login(ctx, "minh", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "nobody", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateAndLogout(t *testing.T) {
	svc, _, tokens := newUserFixture()
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterRequest{Username: "lan", Password: "secret1"})
	require.NoError(t, err)
	access, refresh, err := svc.Login(ctx, "lan", "secret1")
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, access)
	require.NoError(t, err)
	assert.Equal(t, "lan", user.Username)

	_, err = svc.Authenticate(ctx, refresh)
	assert.ErrorIs(t, err, token.ErrWrongKind)

	require.NoError(t, svc.Logout(ctx, access))
	assert.Greater(t, tokens.revoked[access], 59*time.Minute)
	_, err = svc.Authenticate(ctx, access)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestRefreshToken(t *testing.T) {
	svc, _, _ := newUserFixture()
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterRequest{Username: "an", Password: "secret1"})
	require.NoError(t, err)
	access, refresh, err := svc.Login(ctx, "an", "secret1")
	require.NoError(t, err)

	newAccess, newRefresh, err := svc.RefreshToken(ctx, refresh)
	require.NoError(t, err)
	assert.NotEmpty(t, newAccess)
	assert.NotEmpty(t, newRefresh)

	_, _, err = svc.RefreshToken(ctx, access)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUpdateProfileAndRoles(t *testing.T) {
	svc, users, _ := newUserFixture()
	ctx := context.Background()
	user, err := svc.Register(ctx, RegisterRequest{Username: "hoa", Password: "secret1"})
	require.NoError(t, err)

	level := "IELTS 7.0"
	updated, err := svc.UpdateProfile(ctx, user.ID, UpdateProfileRequest{Level: &level})
	require.NoError(t, err)
	assert.Equal(t, "IELTS 7.0", updated.Level)

	require.NoError(t, svc.SetRole(ctx, user.ID, model.RoleTeacher))
	assert.Equal(t, model.RoleTeacher, users.users[user.ID].Role)
	assert.ErrorIs(t, svc.SetRole(ctx, user.ID, "ROOT"), ErrInvalidRole)

	list, err := svc.ListUsers(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.TotalElements)
	assert.Equal(t, 1, list.TotalPages)
	assert.Equal(t, "hoa", list.Content[0].Username)
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	svc, users, _ := newUserFixture()
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, "admin", "root-pass"))
	require.NoError(t, svc.EnsureAdmin(ctx, "admin", "other-pass"))
	require.Len(t, users.users, 1)
	assert.Equal(t, model.RoleAdmin, users.users[1].Role)

	_, _, err := svc.Login(ctx, "admin", "root-pass")
	assert.NoError(t, err)
	assert.NoError(t, svc.EnsureAdmin(ctx, "", ""))
}
