package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuthToken represents an issued access token row. Tokens are checked against
// this table on every authenticated request so revocation takes effect
// immediately.
type AuthToken struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// AuthTokenRepository manages issued token persistence.
type AuthTokenRepository interface {
	Create(ctx context.Context, token *AuthToken) error
	GetByToken(ctx context.Context, token string) (*AuthToken, error)
	Revoke(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

type authTokenRepository struct {
	pool *pgxpool.Pool
}

// NewAuthTokenRepository constructs repository.
func NewAuthTokenRepository(pool *pgxpool.Pool) AuthTokenRepository {
	return &authTokenRepository{pool: pool}
}

func (r *authTokenRepository) Create(ctx context.Context, token *AuthToken) error {
	const query = `
        INSERT INTO auth_tokens (user_id, token, expires_at)
        VALUES ($1,$2,$3)
        RETURNING token_id, created_at`
	return r.pool.QueryRow(ctx, query,
		token.UserID,
		token.Token,
		token.ExpiresAt,
	).Scan(&token.ID, &token.CreatedAt)
}

func (r *authTokenRepository) GetByToken(ctx context.Context, tokenStr string) (*AuthToken, error) {
	const query = `
        SELECT token_id, user_id, token, expires_at, revoked_at, created_at
        FROM auth_tokens WHERE token=$1`
	var token AuthToken
	if err := r.pool.QueryRow(ctx, query, tokenStr).Scan(
		&token.ID,
		&token.UserID,
		&token.Token,
		&token.ExpiresAt,
		&token.RevokedAt,
		&token.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *authTokenRepository) Revoke(ctx context.Context, tokenStr string) error {
	const query = `
        UPDATE auth_tokens SET revoked_at=NOW()
        WHERE token=$1 AND revoked_at IS NULL`
	_, err := r.pool.Exec(ctx, query, tokenStr)
	return err
}

func (r *authTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	const query = `DELETE FROM auth_tokens WHERE expires_at < NOW()`
	cmd, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
