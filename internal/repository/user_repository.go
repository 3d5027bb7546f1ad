package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/kjarir/swordrobe-edge-shop/internal/apperror"
	"github.com/kjarir/swordrobe-edge-shop/internal/domain"
)

const userEntity = "user"

// UserRepository defines the interface for user_profiles access. Emails are
// matched case-insensitively.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	UpdateRole(ctx context.Context, email, role string) (*domain.User, error)
}

type userRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new instance of UserRepository
func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, email, password_hash, full_name, avatar_url, role, created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO user_profiles (email, password_hash, full_name, avatar_url, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		user.Email,
		user.PasswordHash,
		user.FullName,
		user.AvatarURL,
		user.Role,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	err = classify(err, userEntity, "create", ErrUserNotFound)
	if apperror.CodeOf(err) == apperror.CodeUniqueViolation {
		return ErrUserAlreadyExists
	}
	return err
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM user_profiles WHERE LOWER(email) = LOWER($1)`
	return r.findOne(ctx, query, email)
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM user_profiles WHERE id = $1`
	return r.findOne(ctx, query, id)
}

// UpdateRole sets the role of the user with the given email.
func (r *userRepository) UpdateRole(ctx context.Context, email, role string) (*domain.User, error) {
	query := `
		UPDATE user_profiles
		SET role = $2
		WHERE LOWER(email) = LOWER($1)
		RETURNING ` + userColumns
	return r.findOne(ctx, query, email, role)
}

func (r *userRepository) findOne(ctx context.Context, query string, args ...any) (*domain.User, error) {
	user := &domain.User{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FullName,
		&user.AvatarURL,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, classify(err, userEntity, "load", ErrUserNotFound)
	}
	return user, nil
}
