package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func pricePtr(s string) *decimal.Decimal {
	d := price(s)
	return &d
}

func intPtr(n int) *int {
	return &n
}

var sampleProducts = []service.ProductInput{
	{
		Name:           "Elegant Pearl Necklace",
		Description:    "Beautiful white pearl necklace perfect for any occasion. Handcrafted with premium materials.",
		Category:       domain.CategoryJewelry,
		Subcategory:    "necklaces",
		Price:          price("89.99"),
		CompareAtPrice: pricePtr("120.00"),
		Images:         []string{"https://images.unsplash.com/photo-1515562141207-7a88fb7ce338?w=500"},
		Sizes:          []string{"One Size"},
		Colors:         []string{"White", "Cream"},
		Stock:          15,
		Featured:       true,
		Popular:        true,
	},
	{
		Name:        "Rose Gold Earrings",
		Description: "Delicate rose gold earrings with diamond accents. A timeless piece for your collection.",
		Category:    domain.CategoryJewelry,
		Subcategory: "earrings",
		Price:       price("149.99"),
		Images:      []string{"https://images.unsplash.com/photo-1506629082955-511b1aa562c8?w=500"},
		Sizes:       []string{"One Size"},
		Colors:      []string{"Rose Gold"},
		Stock:       10,
		Featured:    true,
		Popular:     true,
	},
	{
		Name:           "Silk Evening Dress",
		Description:    "Elegant silk evening dress in classic black. Perfect for formal events and special occasions.",
		Category:       domain.CategoryClothing,
		Subcategory:    "dresses",
		Price:          price("199.99"),
		CompareAtPrice: pricePtr("250.00"),
		Images:         []string{"https://images.unsplash.com/photo-1595777457583-95e059d581b8?w=500"},
		Sizes:          []string{"XS", "S", "M", "L", "XL"},
		Colors:         []string{"Black", "Navy"},
		Stock:          8,
		Featured:       true,
	},
	{
		Name:        "Floral Summer Blouse",
		Description: "Light and airy floral blouse perfect for summer days. Made from breathable cotton.",
		Category:    domain.CategoryClothing,
		Subcategory: "tops",
		Price:       price("49.99"),
		Images:      []string{"https://images.unsplash.com/photo-1594633313593-bab3825d0caf?w=500"},
		Sizes:       []string{"XS", "S", "M", "L"},
		Colors:      []string{"Pink", "Blue", "Yellow"},
		Stock:       20,
		Popular:     true,
	},
	{
		Name:           "Designer Leather Handbag",
		Description:    "Stylish leather handbag with gold hardware. Spacious interior perfect for everyday use.",
		Category:       domain.CategoryAccessories,
		Subcategory:    "bags",
		Price:          price("179.99"),
		CompareAtPrice: pricePtr("220.00"),
		Images:         []string{"https://images.unsplash.com/photo-1553062407-98eeb64c6a62?w=500"},
		Sizes:          []string{"One Size"},
		Colors:         []string{"Brown", "Black", "Tan"},
		Stock:          12,
		Featured:       true,
		Popular:        true,
	},
	{
		Name:        "Crystal Bracelet Set",
		Description: "Set of three crystal bracelets in complementary colors. Mix and match for different looks.",
		Category:    domain.CategoryJewelry,
		Subcategory: "bracelets",
		Price:       price("39.99"),
		Images:      []string{"https://images.unsplash.com/photo-1611591437281-460bfbe1220a?w=500"},
		Sizes:       []string{"One Size"},
		Colors:      []string{"Multi"},
		Stock:       25,
		Popular:     true,
	},
}

func sampleDiscounts(now time.Time) []service.NewDiscountInput {
	validUntil := now.AddDate(1, 0, 0)
	return []service.NewDiscountInput{
		{
			Code:        "WELCOME10",
			Description: "Welcome discount for new customers",
			Type:        domain.DiscountPercentage,
			Value:       price("10"),
			MinPurchase: price("50"),
			ValidFrom:   now,
			ValidUntil:  validUntil,
			UsageLimit:  intPtr(1000),
			IsActive:    true,
		},
		{
			Code:        "SAVE20",
			Description: "Save $20 on orders over $100",
			Type:        domain.DiscountFixed,
			Value:       price("20"),
			MinPurchase: price("100"),
			MaxDiscount: pricePtr("20"),
			ValidFrom:   now,
			ValidUntil:  validUntil,
			UsageLimit:  intPtr(500),
			IsActive:    true,
		},
	}
}

// seed loads the sample catalog into an empty store and adds any missing
// sample discount codes
func seed(ctx context.Context, products repository.ProductRepository, admin service.AdminService, discounts service.DiscountService, log *zap.Logger) error {
	count, err := products.Count(ctx)
	if err != nil {
		return err
	}

	if count > 0 {
		log.Info("Catalog already populated, skipping products", zap.Int("products", count))
	} else {
		for _, input := range sampleProducts {
			if _, err := admin.CreateProduct(ctx, input); err != nil {
				return fmt.Errorf("failed to seed %s: %w", input.Name, err)
			}
		}
		log.Info("Seeded products", zap.Int("products", len(sampleProducts)))
	}

	for _, input := range sampleDiscounts(time.Now().UTC()) {
		_, err := discounts.Create(ctx, input)
		switch {
		case errors.Is(err, repository.ErrDiscountAlreadyExists):
			log.Info("Discount already exists", zap.String("code", input.Code))
		case err != nil:
			return fmt.Errorf("failed to seed discount %s: %w", input.Code, err)
		default:
			log.Info("Seeded discount", zap.String("code", input.Code))
		}
	}

	return nil
}
