package domain

import (
	"regexp"
	"strings"
	"time"

	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// Role classifies callers for authorization decisions.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
)

// UserStatus represents lifecycle states for an account.
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusInactive  UserStatus = "inactive"
	UserStatusSuspended UserStatus = "suspended"
)

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	namePattern  = regexp.MustCompile(`^[a-zA-Z ]+$`)
	nonDigits    = regexp.MustCompile(`\D`)
)

// User is the domain model for accounts that own tickets.
type User struct {
	ID            string
	FirstName     string
	LastName      string
	Email         string
	Phone         *string
	Role          Role
	Status        UserStatus
	EmailVerified bool
	PasswordHash  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	LastLoginAt   *time.Time
}

// NewUserInput carries raw registration or admin-creation data.
type NewUserInput struct {
	FirstName string
	LastName  string
	Email     string
	Phone     *string
	Role      Role
}

// NewUser validates and normalizes input into a User. New accounts start
// active with an unverified email.
func NewUser(input NewUserInput) (*User, error) {
	first := strings.TrimSpace(input.FirstName)
	last := strings.TrimSpace(input.LastName)
	email := strings.ToLower(strings.TrimSpace(input.Email))

	if err := validateName("first_name", first); err != nil {
		return nil, err
	}
	if err := validateName("last_name", last); err != nil {
		return nil, err
	}
	if !emailPattern.MatchString(email) {
		return nil, apperrors.NewValidationError("invalid email address", map[string]any{"field": "email"})
	}

	phone, err := normalizePhone(input.Phone)
	if err != nil {
		return nil, err
	}

	role := input.Role
	if role == "" {
		role = RoleCustomer
	}
	if role != RoleAdmin && role != RoleCustomer {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"field": "role"})
	}

	return &User{
		FirstName:     first,
		LastName:      last,
		Email:         email,
		Phone:         phone,
		Role:          role,
		Status:        UserStatusActive,
		EmailVerified: false,
	}, nil
}

// UpdateProfile applies name/email/phone changes. Changing the email resets
// the verified flag.
func (u *User) UpdateProfile(firstName, lastName, email string, phone *string) error {
	first := strings.TrimSpace(firstName)
	last := strings.TrimSpace(lastName)
	normalized := strings.ToLower(strings.TrimSpace(email))

	if err := validateName("first_name", first); err != nil {
		return err
	}
	if err := validateName("last_name", last); err != nil {
		return err
	}
	if !emailPattern.MatchString(normalized) {
		return apperrors.NewValidationError("invalid email address", map[string]any{"field": "email"})
	}
	normalizedPhone, err := normalizePhone(phone)
	if err != nil {
		return err
	}

	if normalized != u.Email {
		u.EmailVerified = false
	}
	u.FirstName = first
	u.LastName = last
	u.Email = normalized
	u.Phone = normalizedPhone
	u.UpdatedAt = time.Now()
	return nil
}

// UpdateRole promotes or demotes the account.
func (u *User) UpdateRole(role Role) error {
	if role != RoleAdmin && role != RoleCustomer {
		return apperrors.NewValidationError("invalid role", map[string]any{"role": role})
	}
	u.Role = role
	u.UpdatedAt = time.Now()
	return nil
}

// UpdateStatus toggles the account lifecycle state.
func (u *User) UpdateStatus(status UserStatus) error {
	switch status {
	case UserStatusActive, UserStatusInactive, UserStatusSuspended:
		u.Status = status
		u.UpdatedAt = time.Now()
		return nil
	default:
		return apperrors.NewValidationError("invalid status", map[string]any{"status": status})
	}
}

// VerifyEmail marks the current email as verified.
func (u *User) VerifyEmail() {
	u.EmailVerified = true
	u.UpdatedAt = time.Now()
}

// RecordLogin stamps the last successful login.
func (u *User) RecordLogin(at time.Time) {
	u.LastLoginAt = &at
	u.UpdatedAt = at
}

// FullName returns the display name.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// IsAdmin reports whether the user carries the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CanAccessTicket is true for admins or the ticket owner.
func (u *User) CanAccessTicket(ticketOwnerID string) bool {
	return u.Role == RoleAdmin || u.ID == ticketOwnerID
}

func validateName(field, value string) error {
	if len(value) < 2 || len(value) > 50 {
		return apperrors.NewValidationError(field+" must be 2-50 characters", map[string]any{"field": field})
	}
	if !namePattern.MatchString(value) {
		return apperrors.NewValidationError(field+" must contain only letters and spaces", map[string]any{"field": field})
	}
	return nil
}

func normalizePhone(phone *string) (*string, error) {
	if phone == nil || strings.TrimSpace(*phone) == "" {
		return nil, nil
	}
	digits := nonDigits.ReplaceAllString(*phone, "")
	if len(digits) < 10 || len(digits) > 15 {
		return nil, apperrors.NewValidationError("phone must contain 10-15 digits", map[string]any{"field": "phone"})
	}
	return &digits, nil
}
