package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscountType determines how a discount value is applied
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Discount is a redeemable coupon code
type Discount struct {
	ID          uuid.UUID        `json:"id" db:"id"`
	Code        string           `json:"code" db:"code"`
	Description string           `json:"description" db:"description"`
	Type        DiscountType     `json:"discount_type" db:"discount_type"`
	Value       decimal.Decimal  `json:"discount_value" db:"discount_value"`
	MinPurchase decimal.Decimal  `json:"min_purchase" db:"min_purchase"`
	MaxDiscount *decimal.Decimal `json:"max_discount,omitempty" db:"max_discount"`
	ValidFrom   time.Time        `json:"valid_from" db:"valid_from"`
	ValidUntil  time.Time        `json:"valid_until" db:"valid_until"`
	IsActive    bool             `json:"is_active" db:"is_active"`
	UsageLimit  *int             `json:"usage_limit,omitempty" db:"usage_limit"`
	UsedCount   int              `json:"used_count" db:"used_count"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
}

// DiscountFailure names why a code cannot be redeemed
type DiscountFailure string

const (
	DiscountNotFound      DiscountFailure = "not_found"
	DiscountExpired       DiscountFailure = "expired"
	DiscountMinimumNotMet DiscountFailure = "minimum_not_met"
	DiscountLimitReached  DiscountFailure = "limit_reached"
)

// DiscountError is returned when a code fails validation
type DiscountError struct {
	Reason      DiscountFailure
	Code        string
	MinPurchase decimal.Decimal
}

func (e *DiscountError) Error() string {
	switch e.Reason {
	case DiscountNotFound:
		return "invalid discount code"
	case DiscountExpired:
		return "discount code has expired"
	case DiscountMinimumNotMet:
		return fmt.Sprintf("minimum purchase of $%s required", e.MinPurchase.StringFixed(2))
	case DiscountLimitReached:
		return "discount code usage limit reached"
	default:
		return "discount code cannot be applied"
	}
}

// NormalizeCode trims and upper-cases a discount code
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Evaluate checks redeemability at now for the given subtotal and returns
// the discount amount. It never mutates the discount.
func (d *Discount) Evaluate(subtotal decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	if !d.IsActive {
		return decimal.Zero, &DiscountError{Reason: DiscountNotFound, Code: d.Code}
	}
	if now.Before(d.ValidFrom) || now.After(d.ValidUntil) {
		return decimal.Zero, &DiscountError{Reason: DiscountExpired, Code: d.Code}
	}
	if subtotal.LessThan(d.MinPurchase) {
		return decimal.Zero, &DiscountError{Reason: DiscountMinimumNotMet, Code: d.Code, MinPurchase: d.MinPurchase}
	}
	if d.UsageLimit != nil && d.UsedCount >= *d.UsageLimit {
		return decimal.Zero, &DiscountError{Reason: DiscountLimitReached, Code: d.Code}
	}

	return d.Amount(subtotal), nil
}

// Amount computes the raw discount for subtotal, without eligibility checks.
// Fixed discounts are not clamped to the subtotal.
func (d *Discount) Amount(subtotal decimal.Decimal) decimal.Decimal {
	if d.Type == DiscountPercentage {
		amount := subtotal.Mul(d.Value).Div(decimal.NewFromInt(100))
		if d.MaxDiscount != nil && amount.GreaterThan(*d.MaxDiscount) {
			amount = *d.MaxDiscount
		}
		return RoundMoney(amount)
	}
	return RoundMoney(d.Value)
}
