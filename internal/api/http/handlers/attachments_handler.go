package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/service"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// AttachmentsHandler serves attachment access endpoints. Storage keys contain
// slashes, so routes bind them with a wildcard segment.
type AttachmentsHandler struct {
	ticketService *service.TicketService
}

// NewAttachmentsHandler returns a new handler instance.
func NewAttachmentsHandler(ticketService *service.TicketService) *AttachmentsHandler {
	return &AttachmentsHandler{ticketService: ticketService}
}

// SignedURL issues a short-lived download URL for an attachment the caller is
// allowed to see.
func (h *AttachmentsHandler) SignedURL(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	key := c.Params("*")
	if key == "" {
		return apperrors.NewValidationError("storage key required", nil)
	}

	url, err := h.ticketService.GetAttachmentURL(c.UserContext(), key, principal.User.ID, principal.User.Role)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"url": url})
}

// Stream proxies the attachment bytes inline.
func (h *AttachmentsHandler) Stream(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	key := c.Params("*")
	if key == "" {
		return apperrors.NewValidationError("storage key required", nil)
	}

	attachment, stream, err := h.ticketService.StreamAttachment(c.UserContext(), key, principal.User.ID, principal.User.Role)
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, attachment.ContentType)
	c.Set(fiber.HeaderContentDisposition, `inline; filename="`+attachment.FileName+`"`)
	return c.SendStream(stream)
}
