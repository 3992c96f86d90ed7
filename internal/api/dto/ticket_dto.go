package dto

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// CreateTicketRequest payload for the multipart enquiry form fields.
type CreateTicketRequest struct {
	Subject     string `json:"subject" form:"subject"`
	Description string `json:"description" form:"description"`
}

// AddCommentRequest payload.
type AddCommentRequest struct {
	Comment string `json:"comment"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	AssigneeID string `json:"assignee_id"`
}

// TicketSummary response.
type TicketSummary struct {
	ID             string              `json:"ticket_id"`
	UserID         string              `json:"user_id"`
	Subject        string              `json:"subject"`
	Status         domain.TicketStatus `json:"status"`
	AssignedTo     *string             `json:"assigned_to,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	ResolutionTime *time.Time          `json:"resolution_time,omitempty"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	ID             string               `json:"ticket_id"`
	UserID         string               `json:"user_id"`
	Subject        string               `json:"subject"`
	Description    string               `json:"description"`
	Status         domain.TicketStatus  `json:"status"`
	AssignedTo     *string              `json:"assigned_to,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
	ResolutionTime *time.Time           `json:"resolution_time,omitempty"`
	Comments       []CommentResponse    `json:"comments"`
	Attachments    []AttachmentResponse `json:"attachments"`
	Customer       *CustomerResponse    `json:"customer,omitempty"`
}

// CommentResponse represents a thread entry.
type CommentResponse struct {
	ID          string    `json:"comment_id"`
	DisplayName string    `json:"display_name"`
	Comment     string    `json:"comment"`
	CreatedAt   time.Time `json:"created_at"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID          string    `json:"attachment_id"`
	StorageKey  string    `json:"storage_key"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
}

// CustomerResponse is the requester view on admin responses.
type CustomerResponse struct {
	UserID    string  `json:"user_id"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Email     string  `json:"email"`
	Phone     *string `json:"phone,omitempty"`
}

// TicketListResponse wraps a paginated listing.
type TicketListResponse struct {
	Tickets  []TicketSummary `json:"tickets"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

// StatisticsResponse reports ticket counts by status.
type StatisticsResponse struct {
	Total      int `json:"total"`
	Open       int `json:"open"`
	InProgress int `json:"in_progress"`
	Resolved   int `json:"resolved"`
	Closed     int `json:"closed"`
}
