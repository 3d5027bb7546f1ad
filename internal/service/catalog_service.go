package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kjarir/swordrobe-edge-shop/internal/domain"
	"github.com/kjarir/swordrobe-edge-shop/internal/repository"
)

// CatalogService serves the storefront's read-only product views. List
// operations never fail: backend errors are logged and an empty result is
// returned so pages render an empty state instead of an error.
type CatalogService interface {
	ListAll(ctx context.Context) []*domain.Product
	ListByCategory(ctx context.Context, category string) []*domain.Product
	ListFeatured(ctx context.Context) []*domain.Product
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	ListCategories(ctx context.Context) []*domain.Category
}

type catalogService struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	logger     *zap.Logger
}

func NewCatalogService(
	products repository.ProductRepository,
	categories repository.CategoryRepository,
	logger *zap.Logger,
) CatalogService {
	return &catalogService{
		products:   products,
		categories: categories,
		logger:     logger,
	}
}

func (s *catalogService) ListAll(ctx context.Context) []*domain.Product {
	return s.list(ctx, repository.ProductFilter{})
}

// ListByCategory filters by category; "all" or an empty value returns every
// product.
func (s *catalogService) ListByCategory(ctx context.Context, category string) []*domain.Product {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == domain.CategoryAll {
		category = ""
	}
	return s.list(ctx, repository.ProductFilter{Category: category})
}

func (s *catalogService) ListFeatured(ctx context.Context) []*domain.Product {
	return s.list(ctx, repository.ProductFilter{FeaturedOnly: true})
}

func (s *catalogService) list(ctx context.Context, filter repository.ProductFilter) []*domain.Product {
	products, err := s.products.List(ctx, filter)
	if err != nil {
		s.logger.Warn("failed to list products",
			zap.String("category", filter.Category),
			zap.Bool("featured_only", filter.FeaturedOnly),
			zap.Error(err),
		)
		return []*domain.Product{}
	}
	return products
}

// GetByID returns repository.ErrProductNotFound when the product is missing
// or the backend cannot be read.
func (s *catalogService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		if !errors.Is(err, repository.ErrProductNotFound) {
			s.logger.Warn("failed to load product", zap.Stringer("product_id", id), zap.Error(err))
		}
		return nil, repository.ErrProductNotFound
	}
	return product, nil
}

func (s *catalogService) ListCategories(ctx context.Context) []*domain.Category {
	categories, err := s.categories.List(ctx)
	if err != nil {
		s.logger.Warn("failed to list categories", zap.Error(err))
		return []*domain.Category{}
	}
	return categories
}
