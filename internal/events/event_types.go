package events

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated          EventType = "ticket_created"
	EventTicketStatusChanged    EventType = "ticket_status_changed"
	EventTicketAssigned         EventType = "ticket_assigned"
	EventTicketCommentAdded     EventType = "ticket_comment_added"
	EventTicketDeleted          EventType = "ticket_deleted"
	EventPasswordResetRequested EventType = "password_reset_requested"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
}

// Event is the envelope dispatched to subscribers.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id,omitempty"`
	Actor     Actor     `json:"actor"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// TicketCreatedPayload accompanies EventTicketCreated.
type TicketCreatedPayload struct {
	Subject         string `json:"subject"`
	AttachmentCount int    `json:"attachment_count"`
}

// TicketStatusChangedPayload accompanies EventTicketStatusChanged.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketAssignedPayload accompanies EventTicketAssigned.
type TicketAssignedPayload struct {
	AssigneeID string `json:"assignee_id"`
}

// TicketCommentAddedPayload accompanies EventTicketCommentAdded.
type TicketCommentAddedPayload struct {
	CommentID   string `json:"comment_id"`
	BodyPreview string `json:"body_preview"`
	Reopened    bool   `json:"reopened"`
}

// TicketDeletedPayload accompanies EventTicketDeleted.
type TicketDeletedPayload struct {
	AttachmentKeys []string `json:"attachment_keys"`
}

// PasswordResetRequestedPayload accompanies EventPasswordResetRequested.
type PasswordResetRequestedPayload struct {
	Email string `json:"email"`
}
