package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices travel as JSON numbers (29.99), not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Product is an item sold through a products block.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	Image       string          `json:"image,omitempty"`
	Badges      []string        `json:"badges"`
	Category    string          `json:"category,omitempty"`
	InStock     bool            `json:"inStock"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Clone returns a copy that shares no slices with p.
func (p Product) Clone() Product {
	p.Badges = append([]string(nil), p.Badges...)
	return p
}

// ProductPlaceholderImage is used for products created without an image.
const ProductPlaceholderImage = "/diverse-products-still-life.png"

// NewProduct returns the placeholder product added by the block editor.
func NewProduct(id string, now time.Time) Product {
	return Product{
		ID:          id,
		Name:        "New Product",
		Price:       decimal.Zero,
		Description: "Product description",
		Image:       ProductPlaceholderImage,
		Badges:      []string{},
		InStock:     true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
