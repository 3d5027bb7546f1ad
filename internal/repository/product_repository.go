package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/kjarir/swordrobe-edge-shop/internal/domain"
)

const productEntity = "product"

// ProductFilter narrows List. An empty Category or domain.CategoryAll means
// every category.
type ProductFilter struct {
	Category     string
	FeaturedOnly bool
}

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	// List returns products newest first.
	List(ctx context.Context, filter ProductFilter) ([]*domain.Product, error)
	// ExistsByCategory reports whether any product's category equals one of
	// values, ignoring case.
	ExistsByCategory(ctx context.Context, values ...string) (bool, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `id, name, price, original_price, category, images, sizes, description, material,
		in_stock, is_new, is_featured, created_at, updated_at`

// Create inserts product and fills in the generated id and timestamps.
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (name, price, original_price, category, images, sizes, description, material,
			in_stock, is_new, is_featured)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		product.Name,
		product.Price,
		nullDecimal(product.OriginalPrice),
		product.Category,
		nonNil(product.Images),
		nonNil(product.Sizes),
		product.Description,
		product.Material,
		product.InStock,
		product.IsNew,
		product.IsFeatured,
	).Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)

	return classify(err, productEntity, "create", ErrProductNotFound)
}

// Update overwrites every editable column of product.
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET name = $2, price = $3, original_price = $4, category = $5, images = $6, sizes = $7,
		    description = $8, material = $9, in_stock = $10, is_new = $11, is_featured = $12
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Price,
		nullDecimal(product.OriginalPrice),
		product.Category,
		nonNil(product.Images),
		nonNil(product.Sizes),
		product.Description,
		product.Material,
		product.InStock,
		product.IsNew,
		product.IsFeatured,
	).Scan(&product.UpdatedAt)

	return classify(err, productEntity, "update", ErrProductNotFound)
}

func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return classify(err, productEntity, "delete", ErrProductNotFound)
	}
	return affected(result, productEntity, "delete", ErrProductNotFound)
}

func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id), pgtype.NewMap())
	if err != nil {
		return nil, classify(err, productEntity, "load", ErrProductNotFound)
	}
	return product, nil
}

func (r *productRepository) List(ctx context.Context, filter ProductFilter) ([]*domain.Product, error) {
	var (
		where []string
		args  []any
	)
	if c := strings.TrimSpace(filter.Category); c != "" && c != domain.CategoryAll {
		args = append(args, c)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.FeaturedOnly {
		where = append(where, "is_featured = TRUE")
	}

	query := `SELECT ` + productColumns + ` FROM products`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err, productEntity, "list", ErrProductNotFound)
	}
	defer rows.Close()

	m := pgtype.NewMap()
	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows, m)
		if err != nil {
			return nil, classify(err, productEntity, "list", ErrProductNotFound)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, productEntity, "list", ErrProductNotFound)
	}
	return products, nil
}

func (r *productRepository) ExistsByCategory(ctx context.Context, values ...string) (bool, error) {
	lowered := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			lowered = append(lowered, v)
		}
	}
	if len(lowered) == 0 {
		return false, nil
	}

	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM products WHERE LOWER(category) = ANY($1))`,
		lowered,
	).Scan(&exists)
	if err != nil {
		return false, classify(err, productEntity, "check", ErrProductNotFound)
	}
	return exists, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanProduct maps one row. NULL optional columns become zero values so the
// returned product is always fully populated.
func scanProduct(row rowScanner, m *pgtype.Map) (*domain.Product, error) {
	var (
		p             domain.Product
		originalPrice decimal.NullDecimal
		isNew         sql.NullBool
		isFeatured    sql.NullBool
	)
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Price,
		&originalPrice,
		&p.Category,
		m.SQLScanner(&p.Images),
		m.SQLScanner(&p.Sizes),
		&p.Description,
		&p.Material,
		&p.InStock,
		&isNew,
		&isFeatured,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if originalPrice.Valid {
		op := originalPrice.Decimal
		p.OriginalPrice = &op
	}
	p.IsNew = isNew.Bool
	p.IsFeatured = isFeatured.Bool
	p.Images = nonNil(p.Images)
	p.Sizes = nonNil(p.Sizes)
	return &p, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
