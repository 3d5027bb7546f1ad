package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/kjarir/swordrobe-edge-shop/internal/domain"
)

const categoryEntity = "category"

// CategoryRepository defines the interface for category data access
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	Update(ctx context.Context, category *domain.Category) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error)
	// List returns categories alphabetically by name.
	List(ctx context.Context) ([]*domain.Category, error)
}

type categoryRepository struct {
	db *sql.DB
}

// NewCategoryRepository creates a new instance of CategoryRepository
func NewCategoryRepository(db *sql.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	query := `
		INSERT INTO categories (name, slug, description)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query, category.Name, category.Slug, category.Description).
		Scan(&category.ID, &category.CreatedAt)
	return classify(err, categoryEntity, "create", ErrCategoryNotFound)
}

func (r *categoryRepository) Update(ctx context.Context, category *domain.Category) error {
	query := `
		UPDATE categories
		SET name = $2, slug = $3, description = $4
		WHERE id = $1
		RETURNING created_at
	`

	err := r.db.QueryRowContext(ctx, query, category.ID, category.Name, category.Slug, category.Description).
		Scan(&category.CreatedAt)
	return classify(err, categoryEntity, "update", ErrCategoryNotFound)
}

func (r *categoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return classify(err, categoryEntity, "delete", ErrCategoryNotFound)
	}
	return affected(result, categoryEntity, "delete", ErrCategoryNotFound)
}

func (r *categoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	query := `
		SELECT id, name, slug, description, created_at
		FROM categories
		WHERE id = $1
	`

	category := &domain.Category{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&category.ID,
		&category.Name,
		&category.Slug,
		&category.Description,
		&category.CreatedAt,
	)
	if err != nil {
		return nil, classify(err, categoryEntity, "load", ErrCategoryNotFound)
	}
	return category, nil
}

func (r *categoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	query := `
		SELECT id, name, slug, description, created_at
		FROM categories
		ORDER BY name ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, classify(err, categoryEntity, "list", ErrCategoryNotFound)
	}
	defer rows.Close()

	categories := []*domain.Category{}
	for rows.Next() {
		category := &domain.Category{}
		if err := rows.Scan(
			&category.ID,
			&category.Name,
			&category.Slug,
			&category.Description,
			&category.CreatedAt,
		); err != nil {
			return nil, classify(err, categoryEntity, "list", ErrCategoryNotFound)
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, categoryEntity, "list", ErrCategoryNotFound)
	}
	return categories, nil
}
