package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cart is the per-user pre-checkout selection
type Cart struct {
	UserID       uuid.UUID  `json:"user_id" db:"user_id"`
	Items        []CartItem `json:"items"`
	DiscountCode string     `json:"discount_code,omitempty" db:"discount_code"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// CartItem is one line of a cart. Product is resolved on read.
type CartItem struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	Size      string    `json:"size,omitempty" db:"size"`
	Color     string    `json:"color,omitempty" db:"color"`
	Product   *Product  `json:"product,omitempty"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// IsEmpty reports whether the cart has no items
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

// Subtotal sums price times quantity over items with a resolved product
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		if item.Product == nil {
			continue
		}
		total = total.Add(item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return RoundMoney(total)
}
