package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the human-facing fulfillment state
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// PaymentMethod is how the customer intends to pay
type PaymentMethod string

const (
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodPayPal PaymentMethod = "paypal"
	PaymentMethodCOD    PaymentMethod = "cash_on_delivery"
)

// ShippingAddress is the delivery destination captured at checkout
type ShippingAddress struct {
	FullName   string `json:"full_name"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// PaymentResult records the processor outcome for a paid order
type PaymentResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// OrderItem is a denormalized snapshot of a cart line. It does not follow
// later changes to the product.
type OrderItem struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	OrderID   uuid.UUID       `json:"order_id" db:"order_id"`
	ProductID uuid.UUID       `json:"product_id" db:"product_id"`
	Name      string          `json:"name" db:"name"`
	Image     string          `json:"image" db:"image"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Size      string          `json:"size,omitempty" db:"size"`
	Color     string          `json:"color,omitempty" db:"color"`
	Quantity  int             `json:"quantity" db:"quantity"`
	Product   *Product        `json:"product,omitempty"`
}

// Order is the immutable record of a checkout; only status fields change
type Order struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	UserID          uuid.UUID       `json:"user_id" db:"user_id"`
	User            *UserSummary    `json:"user,omitempty"`
	Items           []OrderItem     `json:"order_items"`
	ShippingAddress ShippingAddress `json:"shipping_address" db:"shipping_address"`
	PaymentMethod   PaymentMethod   `json:"payment_method" db:"payment_method"`
	DiscountCode    string          `json:"discount_code,omitempty" db:"discount_code"`
	DiscountAmount  decimal.Decimal `json:"discount_amount" db:"discount_amount"`
	ItemsPrice      decimal.Decimal `json:"items_price" db:"items_price"`
	ShippingPrice   decimal.Decimal `json:"shipping_price" db:"shipping_price"`
	TaxPrice        decimal.Decimal `json:"tax_price" db:"tax_price"`
	TotalPrice      decimal.Decimal `json:"total_price" db:"total_price"`
	IsPaid          bool            `json:"is_paid" db:"is_paid"`
	PaidAt          *time.Time      `json:"paid_at,omitempty" db:"paid_at"`
	PaymentResult   *PaymentResult  `json:"payment_result,omitempty"`
	IsDelivered     bool            `json:"is_delivered" db:"is_delivered"`
	DeliveredAt     *time.Time      `json:"delivered_at,omitempty" db:"delivered_at"`
	Status          OrderStatus     `json:"status" db:"status"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// ApplyTotals copies a price breakdown onto the order
func (o *Order) ApplyTotals(t Totals) {
	o.DiscountAmount = t.DiscountAmount
	o.ItemsPrice = t.ItemsPrice
	o.ShippingPrice = t.ShippingPrice
	o.TaxPrice = t.TaxPrice
	o.TotalPrice = t.TotalPrice
}

// OrderStatusUpdate holds independent admin changes; nil means unchanged
type OrderStatusUpdate struct {
	Status      *OrderStatus
	IsPaid      *bool
	IsDelivered *bool
}

// Apply mutates o, stamping PaidAt/DeliveredAt on a false to true transition
func (u OrderStatusUpdate) Apply(o *Order, now time.Time) {
	if u.Status != nil {
		o.Status = *u.Status
	}
	if u.IsDelivered != nil {
		if *u.IsDelivered && !o.IsDelivered {
			o.DeliveredAt = &now
		}
		o.IsDelivered = *u.IsDelivered
	}
	if u.IsPaid != nil {
		if *u.IsPaid && !o.IsPaid {
			o.PaidAt = &now
		}
		o.IsPaid = *u.IsPaid
	}
}
