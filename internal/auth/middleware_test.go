package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

type stubUserRepo struct {
	user *domain.User
}

func (s *stubUserRepo) Create(ctx context.Context, user *domain.User) error { return nil }
func (s *stubUserRepo) Update(ctx context.Context, user *domain.User) error { return nil }
func (s *stubUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, pgx.ErrNoRows
	}
	return s.user, nil
}
func (s *stubUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return nil, pgx.ErrNoRows
}
func (s *stubUserRepo) List(ctx context.Context, filter repository.UserFilter) ([]domain.User, error) {
	return nil, nil
}
func (s *stubUserRepo) Count(ctx context.Context, filter repository.UserFilter) (int, error) {
	return 0, nil
}
func (s *stubUserRepo) Delete(ctx context.Context, id string) error { return nil }

type stubTokenRepo struct {
	row *repository.AuthToken
}

func (s *stubTokenRepo) Create(ctx context.Context, token *repository.AuthToken) error { return nil }
func (s *stubTokenRepo) GetByToken(ctx context.Context, token string) (*repository.AuthToken, error) {
	if s.row == nil || s.row.Token != token {
		return nil, pgx.ErrNoRows
	}
	return s.row, nil
}
func (s *stubTokenRepo) Revoke(ctx context.Context, token string) error { return nil }

func (s *stubTokenRepo) DeleteExpired(ctx context.Context) (int64, error) { return 0, nil }

func newAuthTestApp(middleware *AuthMiddleware) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			domainErr := apperrors.ToDomainError(err)
			return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"error": domainErr.Code})
		},
	})
	app.Get("/protected", middleware.Handle, func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewInternalError(nil)
		}
		return c.JSON(fiber.Map{"user_id": principal.User.ID})
	})
	return app
}

func TestAuthMiddleware(t *testing.T) {
	tm := NewTokenManager("test-secret", 60)

	activeUser := &domain.User{ID: "user-1", Role: domain.RoleCustomer, Status: domain.UserStatusActive}

	issue := func(t *testing.T) (string, *repository.AuthToken) {
		t.Helper()
		token, expiresAt, err := tm.GenerateToken(activeUser.ID, activeUser.Role)
		require.NoError(t, err)
		return token, &repository.AuthToken{UserID: activeUser.ID, Token: token, ExpiresAt: expiresAt}
	}

	request := func(t *testing.T, app *fiber.App, authorization string) *http.Response {
		t.Helper()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		if authorization != "" {
			req.Header.Set("Authorization", authorization)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp
	}

	t.Run("valid token passes", func(t *testing.T) {
		token, row := issue(t)
		app := newAuthTestApp(NewAuthMiddleware(tm, &stubUserRepo{user: activeUser}, &stubTokenRepo{row: row}))

		resp := request(t, app, "Bearer "+token)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("missing header rejected", func(t *testing.T) {
		app := newAuthTestApp(NewAuthMiddleware(tm, &stubUserRepo{user: activeUser}, &stubTokenRepo{}))
		resp := request(t, app, "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("malformed header rejected", func(t *testing.T) {
		app := newAuthTestApp(NewAuthMiddleware(tm, &stubUserRepo{user: activeUser}, &stubTokenRepo{}))
		resp := request(t, app, "Token abc")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("unknown token row rejected", func(t *testing.T) {
		token, _ := issue(t)
		app := newAuthTestApp(NewAuthMiddleware(tm, &stubUserRepo{user: activeUser}, &stubTokenRepo{}))

		resp := request(t, app, "Bearer "+token)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("revoked token rejected", func(t *testing.T) {
		token, row := issue(t)
		now := time.Now()
		row.RevokedAt = &now
		app := newAuthTestApp(NewAuthMiddleware(tm, &stubUserRepo{user: activeUser}, &stubTokenRepo{row: row}))

		resp := request(t, app, "Bearer "+token)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("expired row rejected", func(t *testing.T) {
		token, row := issue(t)
		row.ExpiresAt = time.Now().Add(-time.Minute)
		app := newAuthTestApp(NewAuthMiddleware(tm, &stubUserRepo{user: activeUser}, &stubTokenRepo{row: row}))

		resp := request(t, app, "Bearer "+token)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("suspended user rejected", func(t *testing.T) {
		token, row := issue(t)
		suspended := &domain.User{ID: "user-1", Role: domain.RoleCustomer, Status: domain.UserStatusSuspended}
		app := newAuthTestApp(NewAuthMiddleware(tm, &stubUserRepo{user: suspended}, &stubTokenRepo{row: row}))

		resp := request(t, app, "Bearer "+token)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}
