package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/domain"
)

// ViewerScope identifies the caller for access-scoped queries. It is resolved
// once at the repository boundary instead of re-branching per method.
type ViewerScope struct {
	CallerID string
	IsAdmin  bool
}

// TicketFilter captures admin search parameters.
type TicketFilter struct {
	UserID      *string
	Status      *domain.TicketStatus
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	SortBy      string
	SortOrder   string
	Limit       int
	Offset      int
}

// TicketStatistics aggregates ticket counts by status.
type TicketStatistics struct {
	Total      int
	Open       int
	InProgress int
	Resolved   int
	Closed     int
}

// TicketRepository encapsulates ticket, comment and attachment persistence.
type TicketRepository interface {
	CreateWithAttachments(ctx context.Context, ticket *domain.Ticket, attachments []domain.Attachment) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByIDWithDetails(ctx context.Context, id string, scope ViewerScope) (*domain.Ticket, error)
	ListByUser(ctx context.Context, userID string, filter TicketFilter) ([]domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	Count(ctx context.Context, filter TicketFilter) (int, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	GetStatistics(ctx context.Context) (*TicketStatistics, error)
	AddComment(ctx context.Context, comment *domain.Comment) error
	ListComments(ctx context.Context, ticketID string, scope ViewerScope) ([]domain.Comment, error)
	AddAttachment(ctx context.Context, attachment *domain.Attachment) error
	ListAttachments(ctx context.Context, ticketID string) ([]domain.Attachment, error)
	GetAttachmentByKey(ctx context.Context, storageKey string, scope ViewerScope) (*domain.Attachment, error)
	Delete(ctx context.Context, id string) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

// sortColumns whitelists user-supplied sort keys against real columns.
var sortColumns = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"status":     "status",
	"subject":    "subject",
}

func resolveSort(sortBy, sortOrder string) string {
	column, ok := sortColumns[strings.ToLower(strings.TrimSpace(sortBy))]
	if !ok {
		column = "created_at"
	}
	order := "DESC"
	if strings.EqualFold(strings.TrimSpace(sortOrder), "asc") {
		order = "ASC"
	}
	return column + " " + order
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

const ticketColumns = `ticket_id, user_id, subject, description, status, assigned_to, created_at, updated_at, resolution_time`

func (r *ticketRepository) CreateWithAttachments(ctx context.Context, ticket *domain.Ticket, attachments []domain.Attachment) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const insertTicket = `
        INSERT INTO tickets (ticket_id, user_id, subject, description, status)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING created_at, updated_at`
	if err := tx.QueryRow(ctx, insertTicket,
		ticket.ID,
		ticket.UserID,
		ticket.Subject,
		ticket.Description,
		ticket.Status,
	).Scan(&ticket.CreatedAt, &ticket.UpdatedAt); err != nil {
		return err
	}

	const insertAttachment = `
        INSERT INTO ticket_attachments (ticket_id, storage_key, content_type, file_name)
        VALUES ($1,$2,$3,$4)
        RETURNING attachment_id, created_at`
	for i := range attachments {
		attachments[i].TicketID = ticket.ID
		if err := tx.QueryRow(ctx, insertAttachment,
			ticket.ID,
			attachments[i].StorageKey,
			attachments[i].ContentType,
			attachments[i].FileName,
		).Scan(&attachments[i].ID, &attachments[i].CreatedAt); err != nil {
			return err
		}
	}
	ticket.Attachments = attachments

	return tx.Commit(ctx)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET subject=$1, description=$2, status=$3, assigned_to=$4,
            resolution_time=$5, updated_at=NOW()
        WHERE ticket_id=$6`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Subject,
		ticket.Description,
		ticket.Status,
		ticket.AssignedTo,
		ticket.ResolutionTime,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE ticket_id=$1`
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.UserID,
		&ticket.Subject,
		&ticket.Description,
		&ticket.Status,
		&ticket.AssignedTo,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ResolutionTime,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// GetByIDWithDetails loads the ticket with comments and attachments. Admin
// viewers additionally receive the requester's contact details; non-admin
// viewers are restricted to their own tickets by the scope join.
func (r *ticketRepository) GetByIDWithDetails(ctx context.Context, id string, scope ViewerScope) (*domain.Ticket, error) {
	var (
		ticket domain.Ticket
		err    error
	)
	if scope.IsAdmin {
		const query = `
            SELECT t.ticket_id, t.user_id, t.subject, t.description, t.status, t.assigned_to,
                   t.created_at, t.updated_at, t.resolution_time,
                   u.first_name, u.last_name, u.email, u.phone
            FROM tickets t
            JOIN users u ON u.user_id = t.user_id
            WHERE t.ticket_id=$1`
		var customer domain.CustomerInfo
		err = r.pool.QueryRow(ctx, query, id).Scan(
			&ticket.ID,
			&ticket.UserID,
			&ticket.Subject,
			&ticket.Description,
			&ticket.Status,
			&ticket.AssignedTo,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
			&ticket.ResolutionTime,
			&customer.FirstName,
			&customer.LastName,
			&customer.Email,
			&customer.Phone,
		)
		if err == nil {
			customer.UserID = ticket.UserID
			ticket.Customer = &customer
		}
	} else {
		const query = `
            SELECT ` + ticketColumns + `
            FROM tickets WHERE ticket_id=$1 AND user_id=$2`
		err = r.pool.QueryRow(ctx, query, id, scope.CallerID).Scan(
			&ticket.ID,
			&ticket.UserID,
			&ticket.Subject,
			&ticket.Description,
			&ticket.Status,
			&ticket.AssignedTo,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
			&ticket.ResolutionTime,
		)
	}
	if err != nil {
		return nil, err
	}

	comments, err := r.ListComments(ctx, ticket.ID, scope)
	if err != nil {
		return nil, err
	}
	ticket.Comments = comments

	attachments, err := r.ListAttachments(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	ticket.Attachments = attachments

	return &ticket, nil
}

func (r *ticketRepository) ListByUser(ctx context.Context, userID string, filter TicketFilter) ([]domain.Ticket, error) {
	filter.UserID = &userID
	return r.List(ctx, filter)
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	where, args := buildTicketWhere(filter)
	limit, offset := normalizePage(filter.Limit, filter.Offset)
	args = append(args, limit)
	limitArg := len(args)
	args = append(args, offset)
	offsetArg := len(args)

	query := fmt.Sprintf(`SELECT t.ticket_id, t.user_id, t.subject, t.description, t.status, t.assigned_to,
               t.created_at, t.updated_at, t.resolution_time
        FROM tickets t
        JOIN users u ON u.user_id = t.user_id
        WHERE %s ORDER BY t.%s LIMIT $%d OFFSET $%d`,
		where, resolveSort(filter.SortBy, filter.SortOrder), limitArg, offsetArg)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) Count(ctx context.Context, filter TicketFilter) (int, error) {
	where, args := buildTicketWhere(filter)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM tickets t JOIN users u ON u.user_id = t.user_id WHERE %s`, where)

	var count int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ticketRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM tickets WHERE user_id=$1`
	var count int
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// buildTicketWhere combines status, owner, free-text search and date range
// into a parameterized WHERE clause shared by List and Count.
func buildTicketWhere(filter TicketFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		clauses = append(clauses, fmt.Sprintf("t.user_id=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("t.status=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("t.created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("t.created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(LOWER(t.subject) LIKE %s OR LOWER(t.description) LIKE %s OR LOWER(u.first_name || ' ' || u.last_name) LIKE %s OR LOWER(u.email) LIKE %s)",
			placeholder, placeholder, placeholder, placeholder))
	}

	return strings.Join(clauses, " AND "), args
}

func (r *ticketRepository) GetStatistics(ctx context.Context) (*TicketStatistics, error) {
	const query = `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE status='open'),
               COUNT(*) FILTER (WHERE status='in_progress'),
               COUNT(*) FILTER (WHERE status='resolved'),
               COUNT(*) FILTER (WHERE status='closed')
        FROM tickets`
	var stats TicketStatistics
	if err := r.pool.QueryRow(ctx, query).Scan(
		&stats.Total,
		&stats.Open,
		&stats.InProgress,
		&stats.Resolved,
		&stats.Closed,
	); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *ticketRepository) AddComment(ctx context.Context, comment *domain.Comment) error {
	const query = `
        INSERT INTO ticket_comments (ticket_id, user_id, comment)
        VALUES ($1,$2,$3)
        RETURNING comment_id, created_at`
	return r.pool.QueryRow(ctx, query,
		comment.TicketID,
		comment.UserID,
		comment.Comment,
	).Scan(&comment.ID, &comment.CreatedAt)
}

// ListComments resolves commenter display names server-side: the viewer's own
// comments render as "You", admin authors as "Support Agent", anyone else by
// full name.
func (r *ticketRepository) ListComments(ctx context.Context, ticketID string, scope ViewerScope) ([]domain.Comment, error) {
	const query = `
        SELECT c.comment_id, c.ticket_id, c.user_id, c.comment, c.created_at,
               CASE WHEN c.user_id = $2 THEN 'You'
                    WHEN u.role = 'admin' THEN 'Support Agent'
                    ELSE u.first_name || ' ' || u.last_name
               END AS display_name
        FROM ticket_comments c
        JOIN users u ON u.user_id = c.user_id
        WHERE c.ticket_id=$1
        ORDER BY c.created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID, scope.CallerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Comment
	for rows.Next() {
		var comment domain.Comment
		if err := rows.Scan(
			&comment.ID,
			&comment.TicketID,
			&comment.UserID,
			&comment.Comment,
			&comment.CreatedAt,
			&comment.DisplayName,
		); err != nil {
			return nil, err
		}
		result = append(result, comment)
	}
	return result, rows.Err()
}

func (r *ticketRepository) AddAttachment(ctx context.Context, attachment *domain.Attachment) error {
	const query = `
        INSERT INTO ticket_attachments (ticket_id, storage_key, content_type, file_name)
        VALUES ($1,$2,$3,$4)
        RETURNING attachment_id, created_at`
	return r.pool.QueryRow(ctx, query,
		attachment.TicketID,
		attachment.StorageKey,
		attachment.ContentType,
		attachment.FileName,
	).Scan(&attachment.ID, &attachment.CreatedAt)
}

func (r *ticketRepository) ListAttachments(ctx context.Context, ticketID string) ([]domain.Attachment, error) {
	const query = `
        SELECT attachment_id, ticket_id, storage_key, content_type, file_name, created_at
        FROM ticket_attachments WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Attachment
	for rows.Next() {
		var attachment domain.Attachment
		if err := rows.Scan(
			&attachment.ID,
			&attachment.TicketID,
			&attachment.StorageKey,
			&attachment.ContentType,
			&attachment.FileName,
			&attachment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, attachment)
	}
	return result, rows.Err()
}

// GetAttachmentByKey restricts non-admin viewers to attachments on their own
// tickets via the ownership join; admins resolve any key.
func (r *ticketRepository) GetAttachmentByKey(ctx context.Context, storageKey string, scope ViewerScope) (*domain.Attachment, error) {
	var (
		attachment domain.Attachment
		err        error
	)
	if scope.IsAdmin {
		const query = `
            SELECT attachment_id, ticket_id, storage_key, content_type, file_name, created_at
            FROM ticket_attachments WHERE storage_key=$1`
		err = r.pool.QueryRow(ctx, query, storageKey).Scan(
			&attachment.ID,
			&attachment.TicketID,
			&attachment.StorageKey,
			&attachment.ContentType,
			&attachment.FileName,
			&attachment.CreatedAt,
		)
	} else {
		const query = `
            SELECT a.attachment_id, a.ticket_id, a.storage_key, a.content_type, a.file_name, a.created_at
            FROM ticket_attachments a
            JOIN tickets t ON t.ticket_id = a.ticket_id
            WHERE a.storage_key=$1 AND t.user_id=$2`
		err = r.pool.QueryRow(ctx, query, storageKey, scope.CallerID).Scan(
			&attachment.ID,
			&attachment.TicketID,
			&attachment.StorageKey,
			&attachment.ContentType,
			&attachment.FileName,
			&attachment.CreatedAt,
		)
	}
	if err != nil {
		return nil, err
	}
	return &attachment, nil
}

// Delete removes attachments, comments, then the ticket row in one
// transaction; any failure rolls back the whole cascade.
func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM ticket_attachments WHERE ticket_id=$1`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM ticket_comments WHERE ticket_id=$1`, id); err != nil {
		return err
	}
	cmd, err := tx.Exec(ctx, `DELETE FROM tickets WHERE ticket_id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	return tx.Commit(ctx)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.UserID,
			&ticket.Subject,
			&ticket.Description,
			&ticket.Status,
			&ticket.AssignedTo,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
			&ticket.ResolutionTime,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
