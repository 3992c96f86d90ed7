package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/storage"
)

func nowPtr() *time.Time {
	now := time.Now()
	return &now
}

// fakeUserRepo is an in-memory UserRepository.
type fakeUserRepo struct {
	users   map[string]*domain.User
	nextID  int
	updates int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*domain.User{}}
}

func (f *fakeUserRepo) add(user *domain.User) *domain.User {
	if user.ID == "" {
		f.nextID++
		user.ID = fmt.Sprintf("user-%d", f.nextID)
	}
	clone := *user
	f.users[user.ID] = &clone
	return user
}

func (f *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeUserRepo) Update(ctx context.Context, user *domain.User) error {
	if _, ok := f.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	f.updates++
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, user := range f.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserRepo) List(ctx context.Context, filter repository.UserFilter) ([]domain.User, error) {
	var result []domain.User
	for _, user := range f.users {
		if filter.Role != nil && user.Role != *filter.Role {
			continue
		}
		if filter.Status != nil && user.Status != *filter.Status {
			continue
		}
		result = append(result, *user)
	}
	return result, nil
}

func (f *fakeUserRepo) Count(ctx context.Context, filter repository.UserFilter) (int, error) {
	users, _ := f.List(ctx, filter)
	return len(users), nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.users[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.users, id)
	return nil
}

// fakeTicketRepo is an in-memory TicketRepository.
type fakeTicketRepo struct {
	tickets     map[string]*domain.Ticket
	comments    map[string][]domain.Comment
	attachments map[string][]domain.Attachment
	nextID      int

	createErr error
	deleted   []string
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{
		tickets:     map[string]*domain.Ticket{},
		comments:    map[string][]domain.Comment{},
		attachments: map[string][]domain.Attachment{},
	}
}

func (f *fakeTicketRepo) add(ticket *domain.Ticket) *domain.Ticket {
	if ticket.ID == "" {
		f.nextID++
		ticket.ID = fmt.Sprintf("ticket-%d", f.nextID)
	}
	clone := *ticket
	f.tickets[ticket.ID] = &clone
	return ticket
}

func (f *fakeTicketRepo) CreateWithAttachments(ctx context.Context, ticket *domain.Ticket, attachments []domain.Attachment) error {
	if f.createErr != nil {
		return f.createErr
	}
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	clone := *ticket
	f.tickets[ticket.ID] = &clone
	f.attachments[ticket.ID] = attachments
	return nil
}

func (f *fakeTicketRepo) Update(ctx context.Context, ticket *domain.Ticket) error {
	if _, ok := f.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	clone := *ticket
	f.tickets[ticket.ID] = &clone
	return nil
}

func (f *fakeTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, ok := f.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *ticket
	return &clone, nil
}

func (f *fakeTicketRepo) GetByIDWithDetails(ctx context.Context, id string, scope repository.ViewerScope) (*domain.Ticket, error) {
	ticket, ok := f.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if !scope.IsAdmin && ticket.UserID != scope.CallerID {
		return nil, pgx.ErrNoRows
	}
	clone := *ticket
	clone.Comments = f.comments[id]
	clone.Attachments = f.attachments[id]
	return &clone, nil
}

func (f *fakeTicketRepo) ListByUser(ctx context.Context, userID string, filter repository.TicketFilter) ([]domain.Ticket, error) {
	filter.UserID = &userID
	return f.List(ctx, filter)
}

func (f *fakeTicketRepo) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for _, ticket := range f.tickets {
		if filter.UserID != nil && ticket.UserID != *filter.UserID {
			continue
		}
		if filter.Status != nil && ticket.Status != *filter.Status {
			continue
		}
		result = append(result, *ticket)
	}
	return result, nil
}

func (f *fakeTicketRepo) Count(ctx context.Context, filter repository.TicketFilter) (int, error) {
	tickets, _ := f.List(ctx, filter)
	return len(tickets), nil
}

func (f *fakeTicketRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	return f.Count(ctx, repository.TicketFilter{UserID: &userID})
}

func (f *fakeTicketRepo) GetStatistics(ctx context.Context) (*repository.TicketStatistics, error) {
	stats := repository.TicketStatistics{}
	for _, ticket := range f.tickets {
		stats.Total++
		switch ticket.Status {
		case domain.TicketStatusOpen:
			stats.Open++
		case domain.TicketStatusInProgress:
			stats.InProgress++
		case domain.TicketStatusResolved:
			stats.Resolved++
		case domain.TicketStatusClosed:
			stats.Closed++
		}
	}
	return &stats, nil
}

func (f *fakeTicketRepo) AddComment(ctx context.Context, comment *domain.Comment) error {
	f.nextID++
	comment.ID = fmt.Sprintf("comment-%d", f.nextID)
	comment.CreatedAt = time.Now()
	f.comments[comment.TicketID] = append(f.comments[comment.TicketID], *comment)
	return nil
}

func (f *fakeTicketRepo) ListComments(ctx context.Context, ticketID string, scope repository.ViewerScope) ([]domain.Comment, error) {
	return f.comments[ticketID], nil
}

func (f *fakeTicketRepo) AddAttachment(ctx context.Context, attachment *domain.Attachment) error {
	f.nextID++
	attachment.ID = fmt.Sprintf("attachment-%d", f.nextID)
	f.attachments[attachment.TicketID] = append(f.attachments[attachment.TicketID], *attachment)
	return nil
}

func (f *fakeTicketRepo) ListAttachments(ctx context.Context, ticketID string) ([]domain.Attachment, error) {
	return f.attachments[ticketID], nil
}

func (f *fakeTicketRepo) GetAttachmentByKey(ctx context.Context, storageKey string, scope repository.ViewerScope) (*domain.Attachment, error) {
	for ticketID, attachments := range f.attachments {
		ticket := f.tickets[ticketID]
		for _, attachment := range attachments {
			if attachment.StorageKey != storageKey {
				continue
			}
			if !scope.IsAdmin && (ticket == nil || ticket.UserID != scope.CallerID) {
				return nil, pgx.ErrNoRows
			}
			clone := attachment
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeTicketRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.tickets, id)
	delete(f.comments, id)
	delete(f.attachments, id)
	f.deleted = append(f.deleted, id)
	return nil
}

// fakeObjectStore records uploads and deletions without touching a network.
type fakeObjectStore struct {
	uploads   []string
	deletions []string
	failAfter int
	uploadErr error
	streamErr error
	content   map[string][]byte
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{failAfter: -1, content: map[string][]byte{}}
}

func (f *fakeObjectStore) UploadFile(ctx context.Context, file storage.UploadInput, userID, ticketID string) (*storage.StoredObject, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	if f.failAfter >= 0 && len(f.uploads) >= f.failAfter {
		return nil, fmt.Errorf("upload refused")
	}
	key := fmt.Sprintf("tickets/%s/%s/%s", ticketID, userID, file.FileName)
	f.uploads = append(f.uploads, key)
	f.content[key] = file.Body
	return &storage.StoredObject{
		Key:         key,
		FileName:    file.FileName,
		ContentType: file.ContentType,
		SizeBytes:   int64(len(file.Body)),
	}, nil
}

func (f *fakeObjectStore) GetSignedURL(ctx context.Context, key string, expiresIn time.Duration) (string, error) {
	return "https://signed.example.com/" + key, nil
}

func (f *fakeObjectStore) GetFileStream(ctx context.Context, key string) (io.ReadCloser, string, error) {
	if f.streamErr != nil {
		return nil, "", f.streamErr
	}
	body, ok := f.content[key]
	if !ok {
		body = []byte("bytes")
	}
	return io.NopCloser(strings.NewReader(string(body))), "application/octet-stream", nil
}

func (f *fakeObjectStore) DeleteFile(ctx context.Context, key string) error {
	f.deletions = append(f.deletions, key)
	return nil
}

func (f *fakeObjectStore) DeleteFiles(ctx context.Context, keys []string) []string {
	f.deletions = append(f.deletions, keys...)
	return nil
}

func (f *fakeObjectStore) GetFileMetadata(ctx context.Context, key string) (*storage.FileMetadata, error) {
	return &storage.FileMetadata{Key: key}, nil
}

func (f *fakeObjectStore) CheckFileExists(ctx context.Context, key string) (bool, error) {
	_, ok := f.content[key]
	return ok, nil
}

// fakeDispatcher records published events.
type fakeDispatcher struct {
	published []events.Event
}

func (f *fakeDispatcher) Publish(ctx context.Context, event events.Event) error {
	f.published = append(f.published, event)
	return nil
}

func (f *fakeDispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {}

func (f *fakeDispatcher) ofType(t events.EventType) []events.Event {
	var result []events.Event
	for _, event := range f.published {
		if event.Type == t {
			result = append(result, event)
		}
	}
	return result
}

// fakeAuthTokenRepo stores issued tokens in memory.
type fakeAuthTokenRepo struct {
	tokens map[string]*repository.AuthToken
	nextID int
}

func newFakeAuthTokenRepo() *fakeAuthTokenRepo {
	return &fakeAuthTokenRepo{tokens: map[string]*repository.AuthToken{}}
}

func (f *fakeAuthTokenRepo) Create(ctx context.Context, token *repository.AuthToken) error {
	f.nextID++
	token.ID = fmt.Sprintf("token-%d", f.nextID)
	token.CreatedAt = time.Now()
	clone := *token
	f.tokens[token.Token] = &clone
	return nil
}

func (f *fakeAuthTokenRepo) GetByToken(ctx context.Context, token string) (*repository.AuthToken, error) {
	row, ok := f.tokens[token]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *row
	return &clone, nil
}

func (f *fakeAuthTokenRepo) Revoke(ctx context.Context, token string) error {
	if row, ok := f.tokens[token]; ok && row.RevokedAt == nil {
		now := time.Now()
		row.RevokedAt = &now
	}
	return nil
}

func (f *fakeAuthTokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

// fakeResetRepo stores password reset codes in memory.
type fakeResetRepo struct {
	codes  []*repository.PasswordResetCode
	nextID int
}

func (f *fakeResetRepo) Create(ctx context.Context, code *repository.PasswordResetCode) error {
	f.nextID++
	code.ID = fmt.Sprintf("code-%d", f.nextID)
	code.CreatedAt = time.Now()
	clone := *code
	f.codes = append(f.codes, &clone)
	return nil
}

func (f *fakeResetRepo) GetByUserAndCode(ctx context.Context, userID, code string) (*repository.PasswordResetCode, error) {
	for i := len(f.codes) - 1; i >= 0; i-- {
		if f.codes[i].UserID == userID && f.codes[i].Code == code {
			clone := *f.codes[i]
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeResetRepo) MarkUsed(ctx context.Context, id string) error {
	for _, code := range f.codes {
		if code.ID == id {
			now := time.Now()
			code.UsedAt = &now
		}
	}
	return nil
}
