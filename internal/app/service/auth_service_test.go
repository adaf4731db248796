package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge_platform/internal/common"
	"knowledge_platform/internal/common/security"
	"knowledge_platform/internal/domain/model"
	"knowledge_platform/internal/platform/config"
)

func authTestSetup(t *testing.T) (*AuthService, *memUserRepo) {
	t.Helper()
	config.AppConfig = &config.Config{
		JWTKey: []byte("test-secret"),
		JWTExp: time.Hour,
	}
	security.InitJWT()
	repo := newMemUserRepo()
	return NewAuthService(repo), repo
}

func TestRegister(t *testing.T) {
	svc, repo := authTestSetup(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "hunter22"})
	require.NoError(t, err)

	assert.Equal(t, model.RoleStudent, user.Role)
	assert.Empty(t, user.HashedPassword)

	stored := repo.users[user.ID]
	require.NotNil(t, stored)
	assert.NotEqual(t, "hunter22", stored.HashedPassword)
	assert.True(t, security.CheckPasswordHash("hunter22", stored.HashedPassword))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _ := authTestSetup(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{Email: "ada@example.com", Password: "hunter22"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterRequest{Email: "ada@example.com", Password: "other123"})
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := authTestSetup(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{Email: "not-an-email", Password: "hunter22"})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = svc.Register(ctx, RegisterRequest{Email: "ada@example.com", Password: "short"})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestLogin(t *testing.T) {
	svc, _ := authTestSetup(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "hunter22"})
	require.NoError(t, err)

	resp, err := svc.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "hunter22"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "ada@example.com", resp.User.Email)
	assert.Empty(t, resp.User.HashedPassword)
}

func TestLogin_BadCredentials(t *testing.T) {
	svc, _ := authTestSetup(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{Email: "ada@example.com", Password: "hunter22"})
	require.NoError(t, err)

	// wrong password and unknown email fail the same way
	_, err = svc.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "wrong-pass"})
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	_, err = svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "hunter22"})
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}
