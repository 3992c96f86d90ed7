package service

import (
	"context"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// UserService handles account reads and mutations with self-vs-admin gating.
type UserService struct {
	users   repository.UserRepository
	tickets repository.TicketRepository
}

// UserDependencies bundles repositories for user service.
type UserDependencies struct {
	UserRepo   repository.UserRepository
	TicketRepo repository.TicketRepository
}

// ProfileUpdateInput carries profile mutation fields.
type ProfileUpdateInput struct {
	FirstName string
	LastName  string
	Email     string
	Phone     *string
}

// UserListOptions describes admin listing parameters.
type UserListOptions struct {
	Role       *domain.Role
	Status     *domain.UserStatus
	SearchTerm *string
	Page       int
	PageSize   int
}

// UserPage is a paginated user listing.
type UserPage struct {
	Users    []domain.User
	Total    int
	Page     int
	PageSize int
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
	return &UserService{users: deps.UserRepo, tickets: deps.TicketRepo}
}

// GetUser returns the target account for the owner or an admin.
func (s *UserService) GetUser(ctx context.Context, targetID, callerID string, role domain.Role) (*domain.User, error) {
	if role != domain.RoleAdmin && targetID != callerID {
		return nil, apperrors.NewForbidden("access denied")
	}
	user, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("user", nil)
		}
		return nil, err
	}
	return user, nil
}

// UpdateProfile applies validated profile changes for the owner or an admin.
// A changed email must not collide with another account.
func (s *UserService) UpdateProfile(ctx context.Context, targetID, callerID string, role domain.Role, input ProfileUpdateInput) (*domain.User, error) {
	user, err := s.GetUser(ctx, targetID, callerID, role)
	if err != nil {
		return nil, err
	}

	previousEmail := user.Email
	if err := user.UpdateProfile(input.FirstName, input.LastName, input.Email, input.Phone); err != nil {
		return nil, err
	}

	if user.Email != previousEmail {
		existing, err := s.users.GetByEmail(ctx, user.Email)
		if err == nil && existing.ID != user.ID {
			return nil, apperrors.NewConflict("email already registered", map[string]any{"email": user.Email})
		}
		if err != nil && !apperrors.IsNotFound(err) {
			return nil, err
		}
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ListUsers pages through accounts, admin-only.
func (s *UserService) ListUsers(ctx context.Context, role domain.Role, opts UserListOptions) (*UserPage, error) {
	if role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("admin role required")
	}

	page := opts.Page
	if page <= 0 {
		page = 1
	}
	size := opts.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}

	filter := repository.UserFilter{
		Role:       opts.Role,
		Status:     opts.Status,
		SearchTerm: opts.SearchTerm,
		Limit:      size,
		Offset:     (page - 1) * size,
	}

	users, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.users.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &UserPage{Users: users, Total: total, Page: page, PageSize: size}, nil
}

// UpdateUserRole promotes or demotes an account, admin-only.
func (s *UserService) UpdateUserRole(ctx context.Context, targetID string, role domain.Role, newRole domain.Role) (*domain.User, error) {
	if role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("admin role required")
	}
	user, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("user", nil)
		}
		return nil, err
	}
	if err := user.UpdateRole(newRole); err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateUserStatus toggles the account lifecycle state, admin-only.
func (s *UserService) UpdateUserStatus(ctx context.Context, targetID string, role domain.Role, status domain.UserStatus) (*domain.User, error) {
	if role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("admin role required")
	}
	user, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("user", nil)
		}
		return nil, err
	}
	if err := user.UpdateStatus(status); err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser removes an account, admin-only. Accounts that own tickets are
// soft-deactivated instead of hard-deleted so ticket history stays intact.
func (s *UserService) DeleteUser(ctx context.Context, targetID string, role domain.Role) (deleted bool, err error) {
	if role != domain.RoleAdmin {
		return false, apperrors.NewForbidden("admin role required")
	}
	user, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return false, apperrors.NewNotFound("user", nil)
		}
		return false, err
	}

	owned, err := s.tickets.CountByUser(ctx, user.ID)
	if err != nil {
		return false, err
	}
	if owned > 0 {
		if err := user.UpdateStatus(domain.UserStatusInactive); err != nil {
			return false, err
		}
		if err := s.users.Update(ctx, user); err != nil {
			return false, err
		}
		return false, nil
	}

	if err := s.users.Delete(ctx, user.ID); err != nil {
		return false, err
	}
	return true, nil
}
