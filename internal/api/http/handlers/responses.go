package handlers

import (
	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/service"
)

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:             ticket.ID,
		UserID:         ticket.UserID,
		Subject:        ticket.Subject,
		Status:         ticket.Status,
		AssignedTo:     ticket.AssignedTo,
		CreatedAt:      ticket.CreatedAt,
		UpdatedAt:      ticket.UpdatedAt,
		ResolutionTime: ticket.ResolutionTime,
	}
}

func ticketDetail(ticket *domain.Ticket) dto.TicketDetailResponse {
	comments := make([]dto.CommentResponse, 0, len(ticket.Comments))
	for _, comment := range ticket.Comments {
		comments = append(comments, dto.CommentResponse{
			ID:          comment.ID,
			DisplayName: comment.DisplayName,
			Comment:     comment.Comment,
			CreatedAt:   comment.CreatedAt,
		})
	}
	attachments := make([]dto.AttachmentResponse, 0, len(ticket.Attachments))
	for _, attachment := range ticket.Attachments {
		attachments = append(attachments, dto.AttachmentResponse{
			ID:          attachment.ID,
			StorageKey:  attachment.StorageKey,
			FileName:    attachment.FileName,
			ContentType: attachment.ContentType,
			CreatedAt:   attachment.CreatedAt,
		})
	}

	detail := dto.TicketDetailResponse{
		ID:             ticket.ID,
		UserID:         ticket.UserID,
		Subject:        ticket.Subject,
		Description:    ticket.Description,
		Status:         ticket.Status,
		AssignedTo:     ticket.AssignedTo,
		CreatedAt:      ticket.CreatedAt,
		UpdatedAt:      ticket.UpdatedAt,
		ResolutionTime: ticket.ResolutionTime,
		Comments:       comments,
		Attachments:    attachments,
	}
	if ticket.Customer != nil {
		detail.Customer = &dto.CustomerResponse{
			UserID:    ticket.Customer.UserID,
			FirstName: ticket.Customer.FirstName,
			LastName:  ticket.Customer.LastName,
			Email:     ticket.Customer.Email,
			Phone:     ticket.Customer.Phone,
		}
	}
	return detail
}

func ticketListResponse(page *service.TicketPage) dto.TicketListResponse {
	items := make([]dto.TicketSummary, 0, len(page.Tickets))
	for i := range page.Tickets {
		items = append(items, ticketSummary(&page.Tickets[i]))
	}
	return dto.TicketListResponse{
		Tickets:  items,
		Total:    page.Total,
		Page:     page.Page,
		PageSize: page.PageSize,
	}
}

func userResponse(user *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:            user.ID,
		FirstName:     user.FirstName,
		LastName:      user.LastName,
		Email:         user.Email,
		Phone:         user.Phone,
		Role:          user.Role,
		Status:        user.Status,
		EmailVerified: user.EmailVerified,
		CreatedAt:     user.CreatedAt,
		LastLoginAt:   user.LastLoginAt,
	}
}
