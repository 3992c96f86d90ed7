package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/service"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// AdminTicketsHandler serves the support-agent side of the ticket desk. All
// routes behind it are gated by the admin role middleware.
type AdminTicketsHandler struct {
	ticketService *service.TicketService
}

// NewAdminTicketsHandler returns a new handler instance.
func NewAdminTicketsHandler(ticketService *service.TicketService) *AdminTicketsHandler {
	return &AdminTicketsHandler{ticketService: ticketService}
}

// ListTickets pages through all tickets with optional filters.
func (h *AdminTicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	opts, err := parseTicketListOptions(c)
	if err != nil {
		return err
	}
	if raw := c.Query("user_id"); raw != "" {
		opts.UserID = &raw
	}

	page, err := h.ticketService.ListAllTickets(c.UserContext(), principal.User.ID, principal.User.Role, opts)
	if err != nil {
		return err
	}
	return c.JSON(ticketListResponse(page))
}

// GetTicket returns one ticket including the requester's contact details.
func (h *AdminTicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	ticket, err := h.ticketService.GetTicketByID(c.UserContext(), c.Params("id"), principal.User.ID, principal.User.Role)
	if err != nil {
		return err
	}
	return c.JSON(ticketDetail(ticket))
}

// UpdateStatus transitions a ticket through its lifecycle.
func (h *AdminTicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}

	ticket, err := h.ticketService.UpdateTicketStatus(c.UserContext(), c.Params("id"), principal.User.ID, principal.User.Role, req.Status)
	if err != nil {
		return err
	}
	return c.JSON(ticketSummary(ticket))
}

// Assign hands a ticket to a support agent.
func (h *AdminTicketsHandler) Assign(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.AssignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	if req.AssigneeID == "" {
		return apperrors.NewValidationError("assignee_id is required", nil)
	}

	ticket, err := h.ticketService.AssignTicket(c.UserContext(), c.Params("id"), principal.User.ID, principal.User.Role, req.AssigneeID)
	if err != nil {
		return err
	}
	return c.JSON(ticketSummary(ticket))
}

// AddComment posts an agent reply on any ticket.
func (h *AdminTicketsHandler) AddComment(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.AddCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}

	comment, err := h.ticketService.AddComment(c.UserContext(), c.Params("id"), principal.User.ID, principal.User.Role, req.Comment)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.CommentResponse{
		ID:          comment.ID,
		DisplayName: comment.DisplayName,
		Comment:     comment.Comment,
		CreatedAt:   comment.CreatedAt,
	})
}

// DeleteTicket removes a ticket with its comments and attachments.
func (h *AdminTicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	if err := h.ticketService.DeleteTicket(c.UserContext(), c.Params("id"), principal.User.ID, principal.User.Role); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "ticket deleted"})
}

// Statistics reports ticket counts by status.
func (h *AdminTicketsHandler) Statistics(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	stats, err := h.ticketService.GetStatistics(c.UserContext(), principal.User.Role)
	if err != nil {
		return err
	}
	return c.JSON(dto.StatisticsResponse{
		Total:      stats.Total,
		Open:       stats.Open,
		InProgress: stats.InProgress,
		Resolved:   stats.Resolved,
		Closed:     stats.Closed,
	})
}
