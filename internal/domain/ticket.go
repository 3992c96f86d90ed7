package domain

import (
	"strings"
	"time"

	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

const (
	subjectMinLen     = 5
	subjectMaxLen     = 200
	descriptionMinLen = 10
	descriptionMaxLen = 2000
)

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID             string
	UserID         string
	Subject        string
	Description    string
	Status         TicketStatus
	AssignedTo     *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ResolutionTime *time.Time
	Comments       []Comment
	Attachments    []Attachment
	Customer       *CustomerInfo
}

// Comment is an immutable entry in a ticket thread.
type Comment struct {
	ID          string
	TicketID    string
	UserID      string
	Comment     string
	DisplayName string
	CreatedAt   time.Time
}

// Attachment stores metadata for a file held in object storage.
type Attachment struct {
	ID          string
	TicketID    string
	StorageKey  string
	ContentType string
	FileName    string
	CreatedAt   time.Time
}

// CustomerInfo is the requester view denormalized onto admin responses.
type CustomerInfo struct {
	UserID    string
	FirstName string
	LastName  string
	Email     string
	Phone     *string
}

// NewTicket validates subject/description bounds and returns an open ticket.
func NewTicket(userID, subject, description string) (*Ticket, error) {
	subject = strings.TrimSpace(subject)
	description = strings.TrimSpace(description)

	if len(subject) < subjectMinLen || len(subject) > subjectMaxLen {
		return nil, apperrors.NewValidationError("subject must be 5-200 characters", map[string]any{"field": "subject"})
	}
	if len(description) < descriptionMinLen || len(description) > descriptionMaxLen {
		return nil, apperrors.NewValidationError("description must be 10-2000 characters", map[string]any{"field": "description"})
	}
	if userID == "" {
		return nil, apperrors.NewValidationError("user id required", nil)
	}

	return &Ticket{
		UserID:      userID,
		Subject:     subject,
		Description: description,
		Status:      TicketStatusOpen,
	}, nil
}

// ValidStatus reports whether s belongs to the declared status set.
func ValidStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// UpdateStatus transitions the ticket. Entering resolved or closed stamps the
// resolution time; reopening does not clear it.
func (t *Ticket) UpdateStatus(status TicketStatus) error {
	if !ValidStatus(status) {
		return apperrors.NewValidationError("invalid status", map[string]any{"status": status})
	}
	if status == TicketStatusResolved || status == TicketStatusClosed {
		now := time.Now()
		t.ResolutionTime = &now
	}
	t.Status = status
	t.UpdatedAt = time.Now()
	return nil
}

// AddComment validates and appends a comment. Commenting on a resolved ticket
// reopens it to in_progress; closed tickets reject comments.
func (t *Ticket) AddComment(userID, text string) (*Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("comment cannot be empty", nil)
	}
	if t.Status == TicketStatusClosed {
		return nil, apperrors.NewValidationError("cannot comment on a closed ticket", nil)
	}
	if t.Status == TicketStatusResolved {
		t.Status = TicketStatusInProgress
	}
	comment := &Comment{
		TicketID: t.ID,
		UserID:   userID,
		Comment:  text,
	}
	t.Comments = append(t.Comments, *comment)
	t.UpdatedAt = time.Now()
	return comment, nil
}

// CanBeAccessedBy is the single authorization predicate for ticket reads.
func (t *Ticket) CanBeAccessedBy(userID string, role Role) bool {
	return role == RoleAdmin || t.UserID == userID
}

// CanBeUpdatedBy mirrors the read predicate for mutations.
func (t *Ticket) CanBeUpdatedBy(userID string, role Role) bool {
	return t.CanBeAccessedBy(userID, role)
}
