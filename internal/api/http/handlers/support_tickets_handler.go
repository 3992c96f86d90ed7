package handlers

import (
	"io"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/service"
	"github.com/spec-kit/support-desk/internal/storage"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// SupportTicketsHandler serves the customer-facing ticket endpoints.
type SupportTicketsHandler struct {
	ticketService *service.TicketService
}

// NewSupportTicketsHandler returns a new handler instance.
func NewSupportTicketsHandler(ticketService *service.TicketService) *SupportTicketsHandler {
	return &SupportTicketsHandler{ticketService: ticketService}
}

// MakeEnquiry opens a ticket from a multipart form with up to the configured
// number of attachments under the "attachments" field.
func (h *SupportTicketsHandler) MakeEnquiry(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}

	files, err := readUploads(c)
	if err != nil {
		return err
	}

	ticket, err := h.ticketService.CreateTicket(c.UserContext(), principal.User.ID, req.Subject, req.Description, files)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(ticketSummary(ticket))
}

// ListMyTickets pages through the caller's own tickets.
func (h *SupportTicketsHandler) ListMyTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	opts, err := parseTicketListOptions(c)
	if err != nil {
		return err
	}
	page, err := h.ticketService.ListUserTickets(c.UserContext(), principal.User.ID, opts)
	if err != nil {
		return err
	}
	return c.JSON(ticketListResponse(page))
}

// GetTicket returns one ticket with its comment thread and attachments.
func (h *SupportTicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	ticketID := c.Params("id")
	ticket, err := h.ticketService.GetTicketByID(c.UserContext(), ticketID, principal.User.ID, principal.User.Role)
	if err != nil {
		return err
	}
	return c.JSON(ticketDetail(ticket))
}

// AddComment appends a comment to the caller's ticket.
func (h *SupportTicketsHandler) AddComment(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.AddCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}

	ticketID := c.Params("id")
	comment, err := h.ticketService.AddComment(c.UserContext(), ticketID, principal.User.ID, principal.User.Role, req.Comment)
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

// readUploads drains the multipart "attachments" field into memory buffers.
// Size and type limits are enforced by the storage layer before any upload.
func readUploads(c *fiber.Ctx) ([]storage.UploadInput, error) {
	form, err := c.MultipartForm()
	if err != nil {
		// plain json bodies carry no files
		return nil, nil
	}
	headers := form.File["attachments"]
	if len(headers) == 0 {
		return nil, nil
	}

	files := make([]storage.UploadInput, 0, len(headers))
	for _, header := range headers {
		file, err := readUpload(header)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, nil
}

func readUpload(header *multipart.FileHeader) (storage.UploadInput, error) {
	src, err := header.Open()
	if err != nil {
		return storage.UploadInput{}, apperrors.NewValidationError("unreadable attachment", map[string]any{"file": header.Filename})
	}
	defer src.Close()

	body, err := io.ReadAll(src)
	if err != nil {
		return storage.UploadInput{}, apperrors.NewValidationError("unreadable attachment", map[string]any{"file": header.Filename})
	}
	return storage.UploadInput{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
