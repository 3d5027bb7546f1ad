package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Brand product categories. Products store one of these values (or, in
// historical rows, a category name) in Product.Category.
const (
	CategoryDresses     = "dresses"
	CategoryTops        = "tops"
	CategoryBottoms     = "bottoms"
	CategoryOuterwear   = "outerwear"
	CategoryAccessories = "accessories"

	// CategoryAll is the storefront filter value meaning "no filter".
	CategoryAll = "all"
)

// ProductCategories lists the enumerated categories in display order.
var ProductCategories = []string{
	CategoryDresses,
	CategoryTops,
	CategoryBottoms,
	CategoryOuterwear,
	CategoryAccessories,
}

// IsProductCategory reports whether c is one of the enumerated categories.
func IsProductCategory(c string) bool {
	c = strings.ToLower(strings.TrimSpace(c))
	for _, known := range ProductCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Product represents a product in the catalog
type Product struct {
	ID            uuid.UUID        `json:"id" db:"id"`
	Name          string           `json:"name" db:"name"`
	Price         decimal.Decimal  `json:"price" db:"price"`
	OriginalPrice *decimal.Decimal `json:"original_price,omitempty" db:"original_price"`
	Category      string           `json:"category" db:"category"`
	Images        []string         `json:"images" db:"images"`
	Sizes         []string         `json:"sizes" db:"sizes"`
	Description   string           `json:"description" db:"description"`
	Material      string           `json:"material" db:"material"`
	InStock       bool             `json:"in_stock" db:"in_stock"`
	IsNew         bool             `json:"is_new" db:"is_new"`
	IsFeatured    bool             `json:"is_featured" db:"is_featured"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at" db:"updated_at"`
}

// OnSale reports whether the product has an original price above its price.
func (p *Product) OnSale() bool {
	return p.OriginalPrice != nil && p.OriginalPrice.GreaterThan(p.Price)
}

// Category represents a product category
type Category struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Slug        string    `json:"slug" db:"slug"`
	Description *string   `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
