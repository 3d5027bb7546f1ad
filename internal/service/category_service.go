package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kjarir/swordrobe-edge-shop/internal/apperror"
	"github.com/kjarir/swordrobe-edge-shop/internal/domain"
	"github.com/kjarir/swordrobe-edge-shop/internal/repository"
	"github.com/kjarir/swordrobe-edge-shop/internal/slug"
)

// ErrCategoryInUse is returned when a category is still referenced by at
// least one product.
var ErrCategoryInUse = apperror.New(apperror.KindConflict, apperror.CodeCategoryInUse,
	"Cannot delete category that is used by products")

// CategoryForm is the admin input for creating or editing a category. An
// empty Slug is derived from Name.
type CategoryForm struct {
	Name        string `json:"name" validate:"required,max=100"`
	Slug        string `json:"slug" validate:"omitempty,max=100"`
	Description string `json:"description" validate:"max=1000"`
}

// CategoryAdminService manages categories and guards deletes against
// categories products still point at.
type CategoryAdminService interface {
	Create(ctx context.Context, form CategoryForm) (*domain.Category, error)
	Update(ctx context.Context, id uuid.UUID, form CategoryForm) (*domain.Category, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*domain.Category, error)
}

type categoryAdminService struct {
	categories repository.CategoryRepository
	products   repository.ProductRepository
	logger     *zap.Logger
}

func NewCategoryAdminService(
	categories repository.CategoryRepository,
	products repository.ProductRepository,
	logger *zap.Logger,
) CategoryAdminService {
	return &categoryAdminService{
		categories: categories,
		products:   products,
		logger:     logger,
	}
}

// normalize trims the form, resolves the slug and maps an empty description
// to NULL.
func (f CategoryForm) normalize() (*domain.Category, error) {
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return nil, apperror.Validation(apperror.CodeRequiredField, "Category name is required")
	}

	s := slug.Make(f.Slug)
	if strings.TrimSpace(f.Slug) == "" {
		s = slug.Make(name)
	}
	if !slug.Valid(s) {
		return nil, apperror.Validation(apperror.CodeInvalidSlug,
			"Slug must contain only lowercase letters, numbers and hyphens")
	}

	category := &domain.Category{Name: name, Slug: s}
	if d := strings.TrimSpace(f.Description); d != "" {
		category.Description = &d
	}
	return category, nil
}

func (s *categoryAdminService) Create(ctx context.Context, form CategoryForm) (*domain.Category, error) {
	category, err := form.normalize()
	if err != nil {
		return nil, err
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, err
	}
	s.logger.Info("category created", zap.Stringer("category_id", category.ID), zap.String("slug", category.Slug))
	return category, nil
}

func (s *categoryAdminService) Update(ctx context.Context, id uuid.UUID, form CategoryForm) (*domain.Category, error) {
	category, err := form.normalize()
	if err != nil {
		return nil, err
	}
	existing, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	category.ID = existing.ID
	category.CreatedAt = existing.CreatedAt
	if err := s.categories.Update(ctx, category); err != nil {
		return nil, err
	}
	s.logger.Info("category updated", zap.Stringer("category_id", id), zap.String("slug", category.Slug))
	return category, nil
}

// Delete refuses while any product's category matches the category's slug or
// name, ignoring case.
func (s *categoryAdminService) Delete(ctx context.Context, id uuid.UUID) error {
	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return err
	}

	inUse, err := s.products.ExistsByCategory(ctx, category.Slug, category.Name)
	if err != nil {
		return err
	}
	if inUse {
		s.logger.Info("category delete refused, still referenced",
			zap.Stringer("category_id", id), zap.String("slug", category.Slug))
		return ErrCategoryInUse
	}

	if err := s.categories.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("category deleted", zap.Stringer("category_id", id), zap.String("slug", category.Slug))
	return nil
}

func (s *categoryAdminService) List(ctx context.Context) ([]*domain.Category, error) {
	return s.categories.List(ctx)
}
