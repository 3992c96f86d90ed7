package service

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/storage"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// TicketService coordinates ticket workflows and enforces authorization.
type TicketService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	store      storage.ObjectStore
	dispatcher events.Dispatcher
	storageCfg config.StorageConfig
}

// TicketDependencies bundles collaborators for ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	UserRepo   repository.UserRepository
	Store      storage.ObjectStore
	Dispatcher events.Dispatcher
	StorageCfg config.StorageConfig
}

// TicketListOptions describes listing parameters.
type TicketListOptions struct {
	Status      *domain.TicketStatus
	UserID      *string
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	SortBy      string
	SortOrder   string
	Page        int
	PageSize    int
}

// TicketPage is a paginated ticket listing.
type TicketPage struct {
	Tickets  []domain.Ticket
	Total    int
	Page     int
	PageSize int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		storageCfg: deps.StorageCfg,
	}
}

// CreateTicket validates input, uploads attachments and persists the ticket
// with its attachment rows in one transaction. When any upload fails, objects
// already written to storage are deleted before the error returns so no
// orphans remain.
func (s *TicketService) CreateTicket(ctx context.Context, userID, subject, description string, files []storage.UploadInput) (*domain.Ticket, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("user", nil)
		}
		return nil, err
	}
	if user.Status != domain.UserStatusActive {
		return nil, apperrors.NewForbidden("user account is not active")
	}

	ticket, err := domain.NewTicket(userID, subject, description)
	if err != nil {
		return nil, err
	}
	if max := s.storageCfg.MaxFilesPerTicket; max > 0 && len(files) > max {
		return nil, apperrors.NewValidationError("too many attachments", map[string]any{"max": max})
	}

	// Storage keys are namespaced by ticket, so the id is assigned before
	// the uploads and the insert.
	ticket.ID = uuid.NewString()

	uploaded := make([]domain.Attachment, 0, len(files))
	for _, file := range files {
		object, err := s.store.UploadFile(ctx, file, userID, ticket.ID)
		if err != nil {
			s.compensateUploads(ctx, uploaded)
			return nil, err
		}
		uploaded = append(uploaded, domain.Attachment{
			TicketID:    ticket.ID,
			StorageKey:  object.Key,
			ContentType: object.ContentType,
			FileName:    object.FileName,
		})
	}

	if err := s.tickets.CreateWithAttachments(ctx, ticket, uploaded); err != nil {
		s.compensateUploads(ctx, uploaded)
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    events.Actor{UserID: userID, Role: user.Role},
		Payload: events.TicketCreatedPayload{
			Subject:         ticket.Subject,
			AttachmentCount: len(uploaded),
		},
	})
	return ticket, nil
}

// GetTicketByID loads a ticket with comments, attachments and, for admins,
// the requester's contact details.
func (s *TicketService) GetTicketByID(ctx context.Context, ticketID, callerID string, role domain.Role) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("ticket", nil)
		}
		return nil, err
	}
	if !ticket.CanBeAccessedBy(callerID, role) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return s.tickets.GetByIDWithDetails(ctx, ticketID, viewerScope(callerID, role))
}

// ListUserTickets returns the caller's tickets, paginated.
func (s *TicketService) ListUserTickets(ctx context.Context, userID string, opts TicketListOptions) (*TicketPage, error) {
	filter := listOptionsToFilter(opts)
	filter.UserID = &userID

	tickets, err := s.tickets.ListByUser(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.tickets.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &TicketPage{Tickets: tickets, Total: total, Page: pageOf(opts), PageSize: sizeOf(opts)}, nil
}

// ListAllTickets is the admin listing across all requesters.
func (s *TicketService) ListAllTickets(ctx context.Context, callerID string, role domain.Role, opts TicketListOptions) (*TicketPage, error) {
	if role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("admin role required")
	}
	filter := listOptionsToFilter(opts)

	tickets, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.tickets.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &TicketPage{Tickets: tickets, Total: total, Page: pageOf(opts), PageSize: sizeOf(opts)}, nil
}

// GetStatistics returns status counts, admin-only.
func (s *TicketService) GetStatistics(ctx context.Context, role domain.Role) (*repository.TicketStatistics, error) {
	if role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("admin role required")
	}
	return s.tickets.GetStatistics(ctx)
}

// AddComment appends a comment, reopening a resolved ticket as a side effect.
// The returned comment carries the display name resolved for the caller's
// counterparty view.
func (s *TicketService) AddComment(ctx context.Context, ticketID, callerID string, role domain.Role, text string) (*domain.Comment, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("ticket", nil)
		}
		return nil, err
	}
	if !ticket.CanBeUpdatedBy(callerID, role) {
		return nil, apperrors.NewForbidden("access denied")
	}

	statusBefore := ticket.Status
	comment, err := ticket.AddComment(callerID, text)
	if err != nil {
		return nil, err
	}

	if err := s.tickets.AddComment(ctx, comment); err != nil {
		return nil, err
	}
	reopened := ticket.Status != statusBefore
	if reopened {
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return nil, err
		}
	}

	comment.DisplayName = commentDisplayName(callerID, role, ticket.UserID)

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCommentAdded,
		TicketID: ticket.ID,
		Actor:    events.Actor{UserID: callerID, Role: role},
		Payload: events.TicketCommentAddedPayload{
			CommentID:   comment.ID,
			BodyPreview: preview(comment.Comment, 120),
			Reopened:    reopened,
		},
	})
	return comment, nil
}

// UpdateTicketStatus transitions a ticket, admin-only.
func (s *TicketService) UpdateTicketStatus(ctx context.Context, ticketID, callerID string, role domain.Role, status domain.TicketStatus) (*domain.Ticket, error) {
	if role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("admin role required")
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("ticket", nil)
		}
		return nil, err
	}

	oldStatus := ticket.Status
	if err := ticket.UpdateStatus(status); err != nil {
		return nil, err
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    events.Actor{UserID: callerID, Role: role},
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: ticket.Status,
		},
	})
	return ticket, nil
}

// AssignTicket assigns the ticket to an admin, admin-only.
func (s *TicketService) AssignTicket(ctx context.Context, ticketID, callerID string, role domain.Role, assigneeID string) (*domain.Ticket, error) {
	if role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("admin role required")
	}
	assignee, err := s.users.GetByID(ctx, assigneeID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("assignee", nil)
		}
		return nil, err
	}
	if assignee.Role != domain.RoleAdmin {
		return nil, apperrors.NewValidationError("assignee must be an admin", map[string]any{"assignee_id": assigneeID})
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("ticket", nil)
		}
		return nil, err
	}
	ticket.AssignedTo = &assigneeID
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		Actor:    events.Actor{UserID: callerID, Role: role},
		Payload:  events.TicketAssignedPayload{AssigneeID: assigneeID},
	})
	return ticket, nil
}

// DeleteTicket removes the ticket with its comments and attachment rows in a
// transaction, then deletes the storage objects best-effort; a storage
// failure never undoes the database deletion.
func (s *TicketService) DeleteTicket(ctx context.Context, ticketID, callerID string, role domain.Role) error {
	if role != domain.RoleAdmin {
		return apperrors.NewForbidden("admin role required")
	}

	attachments, err := s.tickets.ListAttachments(ctx, ticketID)
	if err != nil {
		return err
	}

	if err := s.tickets.Delete(ctx, ticketID); err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewNotFound("ticket", nil)
		}
		return err
	}

	keys := make([]string, 0, len(attachments))
	for _, att := range attachments {
		keys = append(keys, att.StorageKey)
	}
	s.store.DeleteFiles(ctx, keys)

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: ticketID,
		Actor:    events.Actor{UserID: callerID, Role: role},
		Payload:  events.TicketDeletedPayload{AttachmentKeys: keys},
	})
	return nil
}

// GetAttachmentURL resolves the attachment for the caller and issues a signed
// URL. Missing and foreign attachments are reported identically so ticket
// existence never leaks across tenants.
func (s *TicketService) GetAttachmentURL(ctx context.Context, storageKey, callerID string, role domain.Role) (string, error) {
	attachment, err := s.resolveAttachment(ctx, storageKey, callerID, role)
	if err != nil {
		return "", err
	}
	return s.store.GetSignedURL(ctx, attachment.StorageKey, s.storageCfg.SignedURLTTL())
}

// StreamAttachment resolves the attachment for the caller and opens a byte
// stream for inline proxying.
func (s *TicketService) StreamAttachment(ctx context.Context, storageKey, callerID string, role domain.Role) (*domain.Attachment, io.ReadCloser, error) {
	attachment, err := s.resolveAttachment(ctx, storageKey, callerID, role)
	if err != nil {
		return nil, nil, err
	}
	stream, _, err := s.store.GetFileStream(ctx, attachment.StorageKey)
	if err != nil {
		return nil, nil, err
	}
	return attachment, stream, nil
}

func (s *TicketService) resolveAttachment(ctx context.Context, storageKey, callerID string, role domain.Role) (*domain.Attachment, error) {
	attachment, err := s.tickets.GetAttachmentByKey(ctx, storageKey, viewerScope(callerID, role))
	if err != nil {
		if apperrors.IsNotFound(err) {
			// deliberately identical for absent and foreign attachments
			return nil, apperrors.NewNotFound("attachment", nil)
		}
		return nil, err
	}
	return attachment, nil
}

func (s *TicketService) compensateUploads(ctx context.Context, uploaded []domain.Attachment) {
	if len(uploaded) == 0 {
		return
	}
	keys := make([]string, 0, len(uploaded))
	for _, att := range uploaded {
		keys = append(keys, att.StorageKey)
	}
	s.store.DeleteFiles(ctx, keys)
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func viewerScope(callerID string, role domain.Role) repository.ViewerScope {
	return repository.ViewerScope{CallerID: callerID, IsAdmin: role == domain.RoleAdmin}
}

// commentDisplayName mirrors the repository CASE expression for freshly
// created comments: commenting on one's own ticket reads "You", an admin on
// someone else's ticket reads "Support Agent".
func commentDisplayName(authorID string, authorRole domain.Role, ticketOwnerID string) string {
	if authorID == ticketOwnerID {
		return "You"
	}
	if authorRole == domain.RoleAdmin {
		return "Support Agent"
	}
	return "You"
}

func listOptionsToFilter(opts TicketListOptions) repository.TicketFilter {
	page := pageOf(opts)
	size := sizeOf(opts)
	return repository.TicketFilter{
		UserID:      opts.UserID,
		Status:      opts.Status,
		SearchTerm:  opts.SearchTerm,
		CreatedFrom: opts.CreatedFrom,
		CreatedTo:   opts.CreatedTo,
		SortBy:      opts.SortBy,
		SortOrder:   opts.SortOrder,
		Limit:       size,
		Offset:      (page - 1) * size,
	}
}

func pageOf(opts TicketListOptions) int {
	if opts.Page <= 0 {
		return 1
	}
	return opts.Page
}

func sizeOf(opts TicketListOptions) int {
	if opts.PageSize <= 0 || opts.PageSize > 100 {
		return 20
	}
	return opts.PageSize
}

func preview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
