package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartView is a cart with its computed subtotal and pending discount preview
type CartView struct {
	*domain.Cart
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount *DiscountQuote  `json:"discount,omitempty"`
}

// AddCartItemInput describes a line to add or merge
type AddCartItemInput struct {
	ProductID uuid.UUID
	Quantity  int
	Size      string
	Color     string
}

// CartService defines the interface for per-user cart operations
type CartService interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*CartView, error)
	AddItem(ctx context.Context, userID uuid.UUID, input AddCartItemInput) (*CartView, error)
	UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*CartView, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*CartView, error)
	Clear(ctx context.Context, userID uuid.UUID) (*CartView, error)
	ApplyDiscount(ctx context.Context, userID uuid.UUID, code string) (*CartView, error)
	RemoveDiscount(ctx context.Context, userID uuid.UUID) (*CartView, error)
}

type cartService struct {
	cartRepo     repository.CartRepository
	productRepo  repository.ProductRepository
	discountRepo repository.DiscountRepository
	now          func() time.Time
	logger       *zap.Logger
}

// NewCartService creates a new instance of CartService
func NewCartService(
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	discountRepo repository.DiscountRepository,
	logger *zap.Logger,
) CartService {
	return &cartService{
		cartRepo:     cartRepo,
		productRepo:  productRepo,
		discountRepo: discountRepo,
		now:          time.Now,
		logger:       logger,
	}
}

// GetCart returns the user's cart, empty if it was never written
func (s *cartService) GetCart(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	cart, err := s.cartRepo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return s.view(ctx, cart), nil
}

// AddItem adds quantity units of a product variant to the cart
func (s *cartService) AddItem(ctx context.Context, userID uuid.UUID, input AddCartItemInput) (*CartView, error) {
	if input.Quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", ErrInvalidInput)
	}

	product, err := s.productRepo.FindByID(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}

	size := strings.TrimSpace(input.Size)
	color := strings.TrimSpace(input.Color)

	if size != "" && len(product.Sizes) > 0 && !contains(product.Sizes, size) {
		return nil, fmt.Errorf("%w: size %q is not offered for %s", ErrInvalidInput, size, product.Name)
	}
	if color != "" && len(product.Colors) > 0 && !contains(product.Colors, color) {
		return nil, fmt.Errorf("%w: color %q is not offered for %s", ErrInvalidInput, color, product.Name)
	}
	if input.Quantity > product.Stock {
		return nil, fmt.Errorf("%w: only %d of %s in stock", ErrInvalidInput, product.Stock, product.Name)
	}

	item := &domain.CartItem{
		ID:        uuid.New(),
		ProductID: product.ID,
		Quantity:  input.Quantity,
		Size:      size,
		Color:     color,
		CreatedAt: s.now().UTC(),
	}
	if err := s.cartRepo.AddItem(ctx, userID, item); err != nil {
		return nil, fmt.Errorf("failed to add cart item: %w", err)
	}

	return s.GetCart(ctx, userID)
}

// UpdateItem sets the quantity of a cart line
func (s *cartService) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*CartView, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", ErrInvalidInput)
	}

	if err := s.cartRepo.UpdateItemQuantity(ctx, userID, itemID, quantity); err != nil {
		return nil, err
	}

	return s.GetCart(ctx, userID)
}

// RemoveItem deletes a cart line
func (s *cartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*CartView, error) {
	if err := s.cartRepo.RemoveItem(ctx, userID, itemID); err != nil {
		return nil, err
	}

	return s.GetCart(ctx, userID)
}

// Clear empties the cart and drops the pending code
func (s *cartService) Clear(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	if err := s.cartRepo.Clear(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to clear cart: %w", err)
	}

	return s.GetCart(ctx, userID)
}

// ApplyDiscount validates code against the current subtotal and keeps it
// pending for checkout. No use is consumed.
func (s *cartService) ApplyDiscount(ctx context.Context, userID uuid.UUID, code string) (*CartView, error) {
	cart, err := s.cartRepo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	discount, _, err := resolveDiscount(ctx, s.discountRepo, code, cart.Subtotal(), s.now())
	if err != nil {
		return nil, err
	}

	if err := s.cartRepo.SetDiscountCode(ctx, userID, discount.Code); err != nil {
		return nil, fmt.Errorf("failed to set cart discount: %w", err)
	}

	return s.GetCart(ctx, userID)
}

// RemoveDiscount drops the pending code
func (s *cartService) RemoveDiscount(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	if err := s.cartRepo.SetDiscountCode(ctx, userID, ""); err != nil {
		return nil, fmt.Errorf("failed to remove cart discount: %w", err)
	}

	return s.GetCart(ctx, userID)
}

// view previews the pending code; a code that no longer applies is shown
// without a quote and is re-checked at checkout
func (s *cartService) view(ctx context.Context, cart *domain.Cart) *CartView {
	view := &CartView{Cart: cart, Subtotal: cart.Subtotal()}

	if cart.DiscountCode == "" {
		return view
	}

	discount, amount, err := resolveDiscount(ctx, s.discountRepo, cart.DiscountCode, view.Subtotal, s.now())
	if err != nil {
		s.logger.Debug("Pending discount no longer applies",
			zap.String("user_id", cart.UserID.String()),
			zap.String("code", cart.DiscountCode),
			zap.Error(err),
		)
		return view
	}

	view.Discount = &DiscountQuote{
		Valid:          true,
		Code:           discount.Code,
		Description:    discount.Description,
		Type:           discount.Type,
		DiscountAmount: amount,
	}
	return view
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if strings.EqualFold(v, value) {
			return true
		}
	}
	return false
}
