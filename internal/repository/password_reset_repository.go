package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PasswordResetCode represents stored reset codes mailed to users.
type PasswordResetCode struct {
	ID        string
	UserID    string
	Code      string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// PasswordResetRepository manages password reset code persistence.
type PasswordResetRepository interface {
	Create(ctx context.Context, code *PasswordResetCode) error
	GetByUserAndCode(ctx context.Context, userID, code string) (*PasswordResetCode, error)
	MarkUsed(ctx context.Context, id string) error
}

type passwordResetRepository struct {
	pool *pgxpool.Pool
}

// NewPasswordResetRepository constructs repository.
func NewPasswordResetRepository(pool *pgxpool.Pool) PasswordResetRepository {
	return &passwordResetRepository{pool: pool}
}

func (r *passwordResetRepository) Create(ctx context.Context, code *PasswordResetCode) error {
	const query = `
        INSERT INTO password_reset_codes (user_id, code, expires_at)
        VALUES ($1,$2,$3)
        RETURNING code_id, created_at`
	return r.pool.QueryRow(ctx, query,
		code.UserID,
		code.Code,
		code.ExpiresAt,
	).Scan(&code.ID, &code.CreatedAt)
}

func (r *passwordResetRepository) GetByUserAndCode(ctx context.Context, userID, codeStr string) (*PasswordResetCode, error) {
	const query = `
        SELECT code_id, user_id, code, expires_at, used_at, created_at
        FROM password_reset_codes
        WHERE user_id=$1 AND code=$2
        ORDER BY created_at DESC LIMIT 1`
	var code PasswordResetCode
	if err := r.pool.QueryRow(ctx, query, userID, codeStr).Scan(
		&code.ID,
		&code.UserID,
		&code.Code,
		&code.ExpiresAt,
		&code.UsedAt,
		&code.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &code, nil
}

func (r *passwordResetRepository) MarkUsed(ctx context.Context, id string) error {
	const query = `
        UPDATE password_reset_codes SET used_at=NOW()
        WHERE code_id=$1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}
