package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DiscountQuote is the outcome of validating a code against a subtotal
type DiscountQuote struct {
	Valid          bool                `json:"valid"`
	Code           string              `json:"code"`
	Description    string              `json:"description"`
	Type           domain.DiscountType `json:"discount_type"`
	DiscountAmount decimal.Decimal     `json:"discount_amount"`
}

// NewDiscountInput is an admin request to create a code
type NewDiscountInput struct {
	Code        string
	Description string
	Type        domain.DiscountType
	Value       decimal.Decimal
	MinPurchase decimal.Decimal
	MaxDiscount *decimal.Decimal
	ValidFrom   time.Time
	ValidUntil  time.Time
	UsageLimit  *int
	IsActive    bool
}

// DiscountService defines the interface for discount code logic
type DiscountService interface {
	Validate(ctx context.Context, code string, subtotal decimal.Decimal) (*DiscountQuote, error)
	List(ctx context.Context) ([]*domain.Discount, error)
	Create(ctx context.Context, input NewDiscountInput) (*domain.Discount, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*domain.Discount, error)
}

type discountService struct {
	discountRepo repository.DiscountRepository
	now          func() time.Time
	logger       *zap.Logger
}

// NewDiscountService creates a new instance of DiscountService
func NewDiscountService(discountRepo repository.DiscountRepository, logger *zap.Logger) DiscountService {
	return &discountService{
		discountRepo: discountRepo,
		now:          time.Now,
		logger:       logger,
	}
}

// Validate checks redeemability without consuming a use. Failures are
// *domain.DiscountError values.
func (s *discountService) Validate(ctx context.Context, code string, subtotal decimal.Decimal) (*DiscountQuote, error) {
	discount, amount, err := resolveDiscount(ctx, s.discountRepo, code, subtotal, s.now())
	if err != nil {
		return nil, err
	}

	return &DiscountQuote{
		Valid:          true,
		Code:           discount.Code,
		Description:    discount.Description,
		Type:           discount.Type,
		DiscountAmount: amount,
	}, nil
}

// List returns every discount code
func (s *discountService) List(ctx context.Context) ([]*domain.Discount, error) {
	return s.discountRepo.List(ctx)
}

// Create stores a new discount code
func (s *discountService) Create(ctx context.Context, input NewDiscountInput) (*domain.Discount, error) {
	if !input.ValidUntil.After(input.ValidFrom) {
		return nil, fmt.Errorf("%w: valid_until must be after valid_from", ErrInvalidInput)
	}
	if input.Type == domain.DiscountPercentage && input.Value.GreaterThan(decimal.NewFromInt(100)) {
		return nil, fmt.Errorf("%w: percentage cannot exceed 100", ErrInvalidInput)
	}

	discount := &domain.Discount{
		ID:          uuid.New(),
		Code:        domain.NormalizeCode(input.Code),
		Description: input.Description,
		Type:        input.Type,
		Value:       input.Value,
		MinPurchase: input.MinPurchase,
		MaxDiscount: input.MaxDiscount,
		ValidFrom:   input.ValidFrom.UTC(),
		ValidUntil:  input.ValidUntil.UTC(),
		IsActive:    input.IsActive,
		UsageLimit:  input.UsageLimit,
		CreatedAt:   s.now().UTC(),
	}

	if err := s.discountRepo.Create(ctx, discount); err != nil {
		return nil, err
	}

	s.logger.Info("Discount created", zap.String("code", discount.Code))

	return discount, nil
}

// SetActive enables or disables a code
func (s *discountService) SetActive(ctx context.Context, id uuid.UUID, active bool) (*domain.Discount, error) {
	return s.discountRepo.SetActive(ctx, id, active)
}

// resolveDiscount looks up code and evaluates it at now
func resolveDiscount(ctx context.Context, repo repository.DiscountRepository, code string, subtotal decimal.Decimal, now time.Time) (*domain.Discount, decimal.Decimal, error) {
	normalized := domain.NormalizeCode(code)
	if normalized == "" {
		return nil, decimal.Zero, &domain.DiscountError{Reason: domain.DiscountNotFound}
	}

	discount, err := repo.FindByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, repository.ErrDiscountNotFound) {
			return nil, decimal.Zero, &domain.DiscountError{Reason: domain.DiscountNotFound, Code: normalized}
		}
		return nil, decimal.Zero, fmt.Errorf("failed to find discount: %w", err)
	}

	amount, err := discount.Evaluate(subtotal, now)
	if err != nil {
		return nil, decimal.Zero, err
	}

	return discount, amount, nil
}
