package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/service"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// AdminUsersHandler serves account administration endpoints.
type AdminUsersHandler struct {
	userService *service.UserService
}

// NewAdminUsersHandler returns a new handler instance.
func NewAdminUsersHandler(userService *service.UserService) *AdminUsersHandler {
	return &AdminUsersHandler{userService: userService}
}

// ListUsers pages through accounts with optional role/status/search filters.
func (h *AdminUsersHandler) ListUsers(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	opts := service.UserListOptions{
		Page:     parseIntQuery(c, "page", 1),
		PageSize: parseIntQuery(c, "page_size", 20),
	}
	if raw := c.Query("role"); raw != "" {
		role := domain.Role(raw)
		opts.Role = &role
	}
	if raw := c.Query("status"); raw != "" {
		status := domain.UserStatus(raw)
		opts.Status = &status
	}
	if raw := c.Query("search"); raw != "" {
		opts.SearchTerm = &raw
	}

	page, err := h.userService.ListUsers(c.UserContext(), principal.User.Role, opts)
	if err != nil {
		return err
	}

	users := make([]dto.UserResponse, 0, len(page.Users))
	for i := range page.Users {
		users = append(users, userResponse(&page.Users[i]))
	}
	return c.JSON(dto.UserListResponse{
		Users:    users,
		Total:    page.Total,
		Page:     page.Page,
		PageSize: page.PageSize,
	})
}

// GetUser returns one account.
func (h *AdminUsersHandler) GetUser(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	user, err := h.userService.GetUser(c.UserContext(), c.Params("id"), principal.User.ID, principal.User.Role)
	if err != nil {
		return err
	}
	return c.JSON(userResponse(user))
}

// UpdateRole promotes or demotes an account.
func (h *AdminUsersHandler) UpdateRole(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.UpdateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}

	user, err := h.userService.UpdateUserRole(c.UserContext(), c.Params("id"), principal.User.Role, req.Role)
	if err != nil {
		return err
	}
	return c.JSON(userResponse(user))
}

// UpdateStatus toggles an account lifecycle state.
func (h *AdminUsersHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.UpdateUserStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}

	user, err := h.userService.UpdateUserStatus(c.UserContext(), c.Params("id"), principal.User.Role, req.Status)
	if err != nil {
		return err
	}
	return c.JSON(userResponse(user))
}

// DeleteUser removes an account, or deactivates it when it still owns tickets.
func (h *AdminUsersHandler) DeleteUser(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	deleted, err := h.userService.DeleteUser(c.UserContext(), c.Params("id"), principal.User.Role)
	if err != nil {
		return err
	}
	if deleted {
		return c.JSON(fiber.Map{"message": "user deleted"})
	}
	return c.JSON(fiber.Map{"message": "user deactivated, owns existing tickets"})
}
