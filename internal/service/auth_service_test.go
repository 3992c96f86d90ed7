package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

type authServiceFixture struct {
	service    *AuthService
	users      *fakeUserRepo
	tokens     *fakeAuthTokenRepo
	resets     *fakeResetRepo
	dispatcher *fakeDispatcher
}

func newAuthServiceFixture(t *testing.T) *authServiceFixture {
	t.Helper()
	users := newFakeUserRepo()
	tokens := newFakeAuthTokenRepo()
	resets := &fakeResetRepo{}
	dispatcher := &fakeDispatcher{}

	cfg := config.Config{
		Auth: config.AuthConfig{
			JWTSecret:             "test-secret",
			AccessTokenTTLMinutes: 60,
			ResetCodeTTLMinutes:   30,
			BcryptCost:            4,
		},
	}
	svc := NewAuthService(cfg, AuthDependencies{
		UserRepo:          users,
		AuthTokenRepo:     tokens,
		PasswordResetRepo: resets,
		Dispatcher:        dispatcher,
	})
	return &authServiceFixture{service: svc, users: users, tokens: tokens, resets: resets, dispatcher: dispatcher}
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("creates customer and issues token", func(t *testing.T) {
		f := newAuthServiceFixture(t)
		result, err := f.service.Register(ctx, RegisterInput{
			FirstName: "Jane",
			LastName:  "Doe",
			Email:     "Jane@Example.com",
			Password:  "supersecret",
		})
		require.NoError(t, err)
		assert.Equal(t, "jane@example.com", result.User.Email)
		assert.Equal(t, domain.RoleCustomer, result.User.Role)
		assert.NotEmpty(t, result.Token)
		assert.NotEqual(t, "supersecret", result.User.PasswordHash)

		row, err := f.tokens.GetByToken(ctx, result.Token)
		require.NoError(t, err)
		assert.Equal(t, result.User.ID, row.UserID)
	})

	t.Run("rejects short password", func(t *testing.T) {
		f := newAuthServiceFixture(t)
		_, err := f.service.Register(ctx, RegisterInput{
			FirstName: "Jane", LastName: "Doe", Email: "jane@example.com", Password: "short",
		})
		require.Error(t, err)
	})

	t.Run("rejects duplicate email", func(t *testing.T) {
		f := newAuthServiceFixture(t)
		_, err := f.service.Register(ctx, RegisterInput{
			FirstName: "Jane", LastName: "Doe", Email: "jane@example.com", Password: "supersecret",
		})
		require.NoError(t, err)

		_, err = f.service.Register(ctx, RegisterInput{
			FirstName: "Janet", LastName: "Doe", Email: "JANE@example.com", Password: "supersecret",
		})
		require.Error(t, err)
		assert.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	register := func(t *testing.T, f *authServiceFixture) *AuthResult {
		t.Helper()
		result, err := f.service.Register(ctx, RegisterInput{
			FirstName: "Jane", LastName: "Doe", Email: "jane@example.com", Password: "supersecret",
		})
		require.NoError(t, err)
		return result
	}

	t.Run("valid credentials issue token and stamp login", func(t *testing.T) {
		f := newAuthServiceFixture(t)
		register(t, f)

		result, err := f.service.Login(ctx, "jane@example.com", "supersecret")
		require.NoError(t, err)
		assert.NotEmpty(t, result.Token)
		require.NotNil(t, result.User.LastLoginAt)
	})

	t.Run("wrong password is unauthorized", func(t *testing.T) {
		f := newAuthServiceFixture(t)
		register(t, f)

		_, err := f.service.Login(ctx, "jane@example.com", "wrongpass")
		require.Error(t, err)
		assert.Equal(t, "UNAUTHORIZED", apperrors.ToDomainError(err).Code)
	})

	t.Run("unknown email is unauthorized, not not-found", func(t *testing.T) {
		f := newAuthServiceFixture(t)
		_, err := f.service.Login(ctx, "ghost@example.com", "whatever")
		require.Error(t, err)
		assert.Equal(t, "UNAUTHORIZED", apperrors.ToDomainError(err).Code)
	})

	t.Run("suspended account is forbidden", func(t *testing.T) {
		f := newAuthServiceFixture(t)
		result := register(t, f)

		stored := f.users.users[result.User.ID]
		stored.Status = domain.UserStatusSuspended

		_, err := f.service.Login(ctx, "jane@example.com", "supersecret")
		require.Error(t, err)
		assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	f := newAuthServiceFixture(t)

	result, err := f.service.Register(ctx, RegisterInput{
		FirstName: "Jane", LastName: "Doe", Email: "jane@example.com", Password: "supersecret",
	})
	require.NoError(t, err)

	require.NoError(t, f.service.Logout(ctx, result.Token))
	row, err := f.tokens.GetByToken(ctx, result.Token)
	require.NoError(t, err)
	assert.NotNil(t, row.RevokedAt)
}

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()

	register := func(t *testing.T, f *authServiceFixture) {
		t.Helper()
		_, err := f.service.Register(ctx, RegisterInput{
			FirstName: "Jane", LastName: "Doe", Email: "jane@example.com", Password: "supersecret",
		})
		require.NoError(t, err)
	}

	t.Run("request stores six digit code and publishes event", func(t *testing.T) {
		f := newAuthServiceFixture(t)
		register(t, f)

		require.NoError(t, f.service.RequestPasswordReset(ctx, "jane@example.com"))
		require.Len(t, f.resets.codes, 1)
		assert.Len(t, f.resets.codes[0].Code, 6)
		assert.Len(t, f.dispatcher.ofType(events.EventPasswordResetRequested), 1)
	})

	t.Run("unknown email succeeds silently", func(t *testing.T) {
		f := newAuthServiceFixture(t)
		require.NoError(t, f.service.RequestPasswordReset(ctx, "ghost@example.com"))
		assert.Empty(t, f.resets.codes)
		assert.Empty(t, f.dispatcher.published)
	})

	t.Run("valid code updates password once", func(t *testing.T) {
		f := newAuthServiceFixture(t)
		register(t, f)
		require.NoError(t, f.service.RequestPasswordReset(ctx, "jane@example.com"))
		code := f.resets.codes[0].Code

		require.NoError(t, f.service.ResetPassword(ctx, "jane@example.com", code, "newpassword"))

		_, err := f.service.Login(ctx, "jane@example.com", "newpassword")
		require.NoError(t, err)
		_, err = f.service.Login(ctx, "jane@example.com", "supersecret")
		require.Error(t, err)

		// codes are single use
		err = f.service.ResetPassword(ctx, "jane@example.com", code, "anotherpass")
		require.Error(t, err)
	})

	t.Run("wrong code rejected", func(t *testing.T) {
		f := newAuthServiceFixture(t)
		register(t, f)
		require.NoError(t, f.service.RequestPasswordReset(ctx, "jane@example.com"))

		err := f.service.ResetPassword(ctx, "jane@example.com", "000000x", "newpassword")
		require.Error(t, err)
	})

	t.Run("expired code rejected", func(t *testing.T) {
		f := newAuthServiceFixture(t)
		register(t, f)
		require.NoError(t, f.service.RequestPasswordReset(ctx, "jane@example.com"))
		f.resets.codes[0].ExpiresAt = time.Now().Add(-time.Minute)

		err := f.service.ResetPassword(ctx, "jane@example.com", f.resets.codes[0].Code, "newpassword")
		require.Error(t, err)
	})
}
