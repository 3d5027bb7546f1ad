package repository

import (
	"context"
	"database/sql"

	"github.com/kjarir/swordrobe-edge-shop/internal/domain"
)

const refreshTokenEntity = "refresh token"

// RefreshTokenRepository defines the interface for refresh token data access
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *domain.RefreshToken) error
	// FindByToken returns ErrRefreshTokenRevoked for revoked tokens.
	FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error)
	Revoke(ctx context.Context, token string) error
}

type refreshTokenRepository struct {
	db *sql.DB
}

// NewRefreshTokenRepository creates a new instance of RefreshTokenRepository
func NewRefreshTokenRepository(db *sql.DB) RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

func (r *refreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (user_id, token, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, revoked
	`

	err := r.db.QueryRowContext(ctx, query, token.UserID, token.Token, token.ExpiresAt).
		Scan(&token.ID, &token.CreatedAt, &token.Revoked)
	return classify(err, refreshTokenEntity, "create", ErrRefreshTokenNotFound)
}

func (r *refreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	query := `
		SELECT id, user_id, token, expires_at, created_at, revoked
		FROM refresh_tokens
		WHERE token = $1
	`

	refreshToken := &domain.RefreshToken{}
	err := r.db.QueryRowContext(ctx, query, token).Scan(
		&refreshToken.ID,
		&refreshToken.UserID,
		&refreshToken.Token,
		&refreshToken.ExpiresAt,
		&refreshToken.CreatedAt,
		&refreshToken.Revoked,
	)
	if err != nil {
		return nil, classify(err, refreshTokenEntity, "load", ErrRefreshTokenNotFound)
	}

	if refreshToken.Revoked {
		return nil, ErrRefreshTokenRevoked
	}
	return refreshToken, nil
}

func (r *refreshTokenRepository) Revoke(ctx context.Context, token string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = TRUE WHERE token = $1`, token)
	if err != nil {
		return classify(err, refreshTokenEntity, "revoke", ErrRefreshTokenNotFound)
	}
	return affected(result, refreshTokenEntity, "revoke", ErrRefreshTokenNotFound)
}
