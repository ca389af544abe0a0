package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Category is one of the fixed catalog categories
type Category string

const (
	CategoryJewelry     Category = "jewelry"
	CategoryClothing    Category = "clothing"
	CategoryAccessories Category = "accessories"
)

// Categories lists every valid category
var Categories = []Category{CategoryJewelry, CategoryClothing, CategoryAccessories}

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Product represents a product in the catalog
type Product struct {
	ID             uuid.UUID        `json:"id" db:"id"`
	Name           string           `json:"name" db:"name"`
	Description    string           `json:"description" db:"description"`
	Category       Category         `json:"category" db:"category"`
	Subcategory    string           `json:"subcategory,omitempty" db:"subcategory"`
	Price          decimal.Decimal  `json:"price" db:"price"`
	CompareAtPrice *decimal.Decimal `json:"compare_at_price,omitempty" db:"compare_at_price"`
	Images         []string         `json:"images" db:"images"`
	Sizes          []string         `json:"sizes" db:"sizes"`
	Colors         []string         `json:"colors" db:"colors"`
	Stock          int              `json:"stock" db:"stock"`
	Featured       bool             `json:"featured" db:"featured"`
	Popular        bool             `json:"popular" db:"popular"`
	Rating         float64          `json:"rating" db:"rating"`
	NumReviews     int              `json:"num_reviews" db:"num_reviews"`
	Reviews        []Review         `json:"reviews,omitempty"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at" db:"updated_at"`
}

// Review is a customer rating embedded in a product
type Review struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Name      string    `json:"name" db:"name"`
	Rating    int       `json:"rating" db:"rating"`
	Comment   string    `json:"comment" db:"comment"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// PrimaryImage returns the first image or an empty string
func (p *Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// CalculateRating recomputes Rating and NumReviews from Reviews.
// An empty review list always yields a zero rating and count.
func (p *Product) CalculateRating() {
	if len(p.Reviews) == 0 {
		p.Rating = 0
		p.NumReviews = 0
		return
	}

	sum := 0
	for _, r := range p.Reviews {
		sum += r.Rating
	}
	p.NumReviews = len(p.Reviews)
	p.Rating = float64(sum) / float64(p.NumReviews)
}

// ProductSort is the catalog ordering requested by the client
type ProductSort string

const (
	SortNewest    ProductSort = "newest"
	SortPriceLow  ProductSort = "price-low"
	SortPriceHigh ProductSort = "price-high"
	SortPopular   ProductSort = "popular"
)

// ProductFilter narrows a catalog listing. Nil fields are not applied.
type ProductFilter struct {
	Category    *Category
	Subcategory *string
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
	Featured    bool
	Popular     bool
	Search      string
	SortBy      ProductSort
	Limit       int
	Offset      int
}
