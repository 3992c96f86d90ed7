package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-desk/internal/domain"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

type userServiceFixture struct {
	service *UserService
	users   *fakeUserRepo
	tickets *fakeTicketRepo
}

func newUserServiceFixture(t *testing.T) *userServiceFixture {
	t.Helper()
	users := newFakeUserRepo()
	tickets := newFakeTicketRepo()
	svc := NewUserService(UserDependencies{UserRepo: users, TicketRepo: tickets})
	return &userServiceFixture{service: svc, users: users, tickets: tickets}
}

func (f *userServiceFixture) customer(id, email string) *domain.User {
	user := &domain.User{
		ID:        id,
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     email,
		Role:      domain.RoleCustomer,
		Status:    domain.UserStatusActive,
	}
	f.users.add(user)
	return user
}

func TestGetUser(t *testing.T) {
	ctx := context.Background()
	f := newUserServiceFixture(t)
	f.customer("user-1", "jane@example.com")

	t.Run("self access allowed", func(t *testing.T) {
		user, err := f.service.GetUser(ctx, "user-1", "user-1", domain.RoleCustomer)
		require.NoError(t, err)
		assert.Equal(t, "user-1", user.ID)
	})

	t.Run("admin access allowed", func(t *testing.T) {
		_, err := f.service.GetUser(ctx, "user-1", "admin-1", domain.RoleAdmin)
		require.NoError(t, err)
	})

	t.Run("foreign customer forbidden", func(t *testing.T) {
		_, err := f.service.GetUser(ctx, "user-1", "user-2", domain.RoleCustomer)
		require.Error(t, err)
		assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)
	})

	t.Run("missing user not found", func(t *testing.T) {
		_, err := f.service.GetUser(ctx, "ghost", "ghost", domain.RoleCustomer)
		require.Error(t, err)
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("email change checked for conflicts", func(t *testing.T) {
		f := newUserServiceFixture(t)
		f.customer("user-1", "jane@example.com")
		f.customer("user-2", "taken@example.com")

		_, err := f.service.UpdateProfile(ctx, "user-1", "user-1", domain.RoleCustomer, ProfileUpdateInput{
			FirstName: "Jane", LastName: "Doe", Email: "taken@example.com",
		})
		require.Error(t, err)
		assert.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)
	})

	t.Run("valid update persists", func(t *testing.T) {
		f := newUserServiceFixture(t)
		f.customer("user-1", "jane@example.com")

		user, err := f.service.UpdateProfile(ctx, "user-1", "user-1", domain.RoleCustomer, ProfileUpdateInput{
			FirstName: "Janet", LastName: "Doe", Email: "janet@example.com",
		})
		require.NoError(t, err)
		assert.Equal(t, "Janet", user.FirstName)
		assert.Equal(t, "janet@example.com", user.Email)

		stored, err := f.users.GetByID(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, "janet@example.com", stored.Email)
	})
}

func TestAdminUserManagement(t *testing.T) {
	ctx := context.Background()

	t.Run("role update admin only", func(t *testing.T) {
		f := newUserServiceFixture(t)
		f.customer("user-1", "jane@example.com")

		user, err := f.service.UpdateUserRole(ctx, "user-1", domain.RoleAdmin, domain.RoleAdmin)
		require.NoError(t, err)
		assert.True(t, user.IsAdmin())

		_, err = f.service.UpdateUserRole(ctx, "user-1", domain.RoleCustomer, domain.RoleAdmin)
		require.Error(t, err)
	})

	t.Run("status update admin only", func(t *testing.T) {
		f := newUserServiceFixture(t)
		f.customer("user-1", "jane@example.com")

		user, err := f.service.UpdateUserStatus(ctx, "user-1", domain.RoleAdmin, domain.UserStatusSuspended)
		require.NoError(t, err)
		assert.Equal(t, domain.UserStatusSuspended, user.Status)

		_, err = f.service.UpdateUserStatus(ctx, "user-1", domain.RoleCustomer, domain.UserStatusActive)
		require.Error(t, err)
	})

	t.Run("listing admin only", func(t *testing.T) {
		f := newUserServiceFixture(t)
		f.customer("user-1", "jane@example.com")
		f.customer("user-2", "john@example.com")

		page, err := f.service.ListUsers(ctx, domain.RoleAdmin, UserListOptions{})
		require.NoError(t, err)
		assert.Equal(t, 2, page.Total)

		_, err = f.service.ListUsers(ctx, domain.RoleCustomer, UserListOptions{})
		require.Error(t, err)
	})
}

func TestDeleteUser(t *testing.T) {
	ctx := context.Background()

	t.Run("hard deletes account without tickets", func(t *testing.T) {
		f := newUserServiceFixture(t)
		f.customer("user-1", "jane@example.com")

		deleted, err := f.service.DeleteUser(ctx, "user-1", domain.RoleAdmin)
		require.NoError(t, err)
		assert.True(t, deleted)
		_, err = f.users.GetByID(ctx, "user-1")
		require.Error(t, err)
	})

	t.Run("deactivates account that owns tickets", func(t *testing.T) {
		f := newUserServiceFixture(t)
		f.customer("user-1", "jane@example.com")
		f.tickets.add(&domain.Ticket{UserID: "user-1", Subject: "Login broken", Status: domain.TicketStatusOpen})

		deleted, err := f.service.DeleteUser(ctx, "user-1", domain.RoleAdmin)
		require.NoError(t, err)
		assert.False(t, deleted)

		stored, err := f.users.GetByID(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, domain.UserStatusInactive, stored.Status)
	})

	t.Run("admin only", func(t *testing.T) {
		f := newUserServiceFixture(t)
		f.customer("user-1", "jane@example.com")

		_, err := f.service.DeleteUser(ctx, "user-1", domain.RoleCustomer)
		require.Error(t, err)
	})
}
