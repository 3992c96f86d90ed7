package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/service"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// ProfileHandler serves the authenticated user's own account.
type ProfileHandler struct {
	userService *service.UserService
}

// NewProfileHandler returns a new handler instance.
func NewProfileHandler(userService *service.UserService) *ProfileHandler {
	return &ProfileHandler{userService: userService}
}

// Me returns the caller's account.
func (h *ProfileHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	user, err := h.userService.GetUser(c.UserContext(), principal.User.ID, principal.User.ID, principal.User.Role)
	if err != nil {
		return err
	}
	return c.JSON(userResponse(user))
}

// UpdateMe applies profile changes to the caller's account.
func (h *ProfileHandler) UpdateMe(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}

	user, err := h.userService.UpdateProfile(c.UserContext(), principal.User.ID, principal.User.ID, principal.User.Role, service.ProfileUpdateInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
	})
	if err != nil {
		return err
	}
	return c.JSON(userResponse(user))
}
