package domain

import "github.com/shopspring/decimal"

var (
	// FreeShippingThreshold must be strictly exceeded for free shipping
	FreeShippingThreshold = decimal.NewFromInt(100)
	// FlatShippingPrice is charged at or below the threshold
	FlatShippingPrice = decimal.NewFromInt(10)
	// TaxRate applies to the discounted items price
	TaxRate = decimal.NewFromFloat(0.1)
)

// MoneyScale is the number of decimal places kept for amounts
const MoneyScale = 2

// Totals is the price breakdown of an order
type Totals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	ItemsPrice     decimal.Decimal `json:"items_price"`
	ShippingPrice  decimal.Decimal `json:"shipping_price"`
	TaxPrice       decimal.Decimal `json:"tax_price"`
	TotalPrice     decimal.Decimal `json:"total_price"`
}

// RoundMoney rounds half away from zero to cents
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// ComputeTotals derives shipping, tax and total from a subtotal and an
// already clamped discount amount.
func ComputeTotals(subtotal, discount decimal.Decimal) Totals {
	itemsPrice := RoundMoney(subtotal.Sub(discount))

	shipping := FlatShippingPrice
	if itemsPrice.GreaterThan(FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	tax := RoundMoney(itemsPrice.Mul(TaxRate))

	return Totals{
		Subtotal:       RoundMoney(subtotal),
		DiscountAmount: RoundMoney(discount),
		ItemsPrice:     itemsPrice,
		ShippingPrice:  shipping,
		TaxPrice:       tax,
		TotalPrice:     itemsPrice.Add(shipping).Add(tax),
	}
}

// MinorUnits converts an amount to cents, rounding to the nearest unit
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
