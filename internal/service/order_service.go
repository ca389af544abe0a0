package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/database"
	"storefront/internal/domain"
	"storefront/internal/metrics"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PlaceOrderInput is the checkout request. An empty DiscountCode falls back
// to the code pending on the cart.
type PlaceOrderInput struct {
	ShippingAddress domain.ShippingAddress
	PaymentMethod   domain.PaymentMethod
	DiscountCode    string
}

// OrderService defines the interface for checkout and order lookup
type OrderService interface {
	PlaceOrder(ctx context.Context, userID uuid.UUID, input PlaceOrderInput) (*domain.Order, error)
	GetOrder(ctx context.Context, requester Requester, orderID uuid.UUID) (*domain.Order, error)
	ListMine(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error)
}

type orderService struct {
	orderRepo    repository.OrderRepository
	cartRepo     repository.CartRepository
	productRepo  repository.ProductRepository
	discountRepo repository.DiscountRepository
	tx           database.Transactor
	now          func() time.Time
	logger       *zap.Logger
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	discountRepo repository.DiscountRepository,
	tx database.Transactor,
	logger *zap.Logger,
) OrderService {
	return &orderService{
		orderRepo:    orderRepo,
		cartRepo:     cartRepo,
		productRepo:  productRepo,
		discountRepo: discountRepo,
		tx:           tx,
		now:          time.Now,
		logger:       logger,
	}
}

// PlaceOrder snapshots the cart into an order. Discount consumption, stock
// decrement, order insert and cart clear commit together or not at all.
func (s *orderService) PlaceOrder(ctx context.Context, userID uuid.UUID, input PlaceOrderInput) (*domain.Order, error) {
	var order *domain.Order

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.cartRepo.Lock(ctx, userID); err != nil {
			return err
		}

		cart, err := s.cartRepo.Get(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to get cart: %w", err)
		}
		if cart.IsEmpty() {
			return ErrEmptyCart
		}

		now := s.now().UTC()
		subtotal := cart.Subtotal()

		code := strings.TrimSpace(input.DiscountCode)
		pending := code == ""
		if pending {
			code = cart.DiscountCode
		}

		discountAmount := decimal.Zero
		appliedCode := ""
		if code != "" {
			discount, amount, err := s.consumeDiscount(ctx, code, subtotal, now)
			var discountErr *domain.DiscountError
			switch {
			case err == nil:
			case pending && errors.As(err, &discountErr):
				// A stale pending code checks out without a discount; Clear drops it below
				s.logger.Warn("Pending discount no longer applies, checking out without it",
					zap.String("user_id", userID.String()),
					zap.String("code", code),
					zap.String("reason", string(discountErr.Reason)),
				)
				discount = nil
			default:
				return err
			}

			if discount != nil {
				if amount.GreaterThan(subtotal) {
					s.logger.Warn("Discount exceeds subtotal, clamping",
						zap.String("code", discount.Code),
						zap.String("discount", amount.StringFixed(2)),
						zap.String("subtotal", subtotal.StringFixed(2)),
					)
					amount = subtotal
				}

				discountAmount = amount
				appliedCode = discount.Code
			}
		}

		order = &domain.Order{
			ID:              uuid.New(),
			UserID:          userID,
			Items:           make([]domain.OrderItem, 0, len(cart.Items)),
			ShippingAddress: input.ShippingAddress,
			PaymentMethod:   input.PaymentMethod,
			DiscountCode:    appliedCode,
			Status:          domain.OrderStatusPending,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		order.ApplyTotals(domain.ComputeTotals(subtotal, discountAmount))

		for _, item := range cart.Items {
			if item.Product == nil {
				continue
			}

			if err := s.productRepo.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
				if errors.Is(err, repository.ErrInsufficientStock) {
					return fmt.Errorf("%w: %s", repository.ErrInsufficientStock, item.Product.Name)
				}
				return err
			}

			order.Items = append(order.Items, domain.OrderItem{
				ID:        uuid.New(),
				OrderID:   order.ID,
				ProductID: item.ProductID,
				Name:      item.Product.Name,
				Image:     item.Product.PrimaryImage(),
				Price:     item.Product.Price,
				Size:      item.Size,
				Color:     item.Color,
				Quantity:  item.Quantity,
			})
		}

		if err := s.orderRepo.Create(ctx, order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		if err := s.cartRepo.Clear(ctx, userID); err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}

		return nil
	})

	if err != nil {
		metrics.OrdersTotal.WithLabelValues(checkoutOutcome(err)).Inc()
		return nil, err
	}

	metrics.OrdersTotal.WithLabelValues("placed").Inc()
	metrics.OrderValue.Observe(order.TotalPrice.InexactFloat64())
	if order.DiscountCode != "" {
		metrics.DiscountRedemptions.WithLabelValues(order.DiscountCode).Inc()
	}

	s.logger.Info("Order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("discount_code", order.DiscountCode),
		zap.String("total", order.TotalPrice.StringFixed(2)),
		zap.Int("items", len(order.Items)),
	)

	placed, err := s.orderRepo.FindByID(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load placed order: %w", err)
	}
	s.resolveProducts(ctx, placed)

	return placed, nil
}

// GetOrder returns an order to its owner or an admin
func (s *orderService) GetOrder(ctx context.Context, requester Requester, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !requester.CanAccess(order.UserID) {
		s.logger.Warn("Order access denied",
			zap.String("order_id", orderID.String()),
			zap.String("user_id", requester.UserID.String()),
		)
		return nil, ErrAccessDenied
	}

	s.resolveProducts(ctx, order)
	return order, nil
}

// ListMine returns the user's orders, newest first
func (s *orderService) ListMine(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	orders, err := s.orderRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.resolveProducts(ctx, orders...)
	return orders, nil
}

// resolveProducts attaches current product records to order lines for
// display. Lines whose product was deleted keep only their snapshot.
func (s *orderService) resolveProducts(ctx context.Context, orders ...*domain.Order) {
	cache := map[uuid.UUID]*domain.Product{}

	for _, order := range orders {
		for i := range order.Items {
			id := order.Items[i].ProductID
			product, seen := cache[id]
			if !seen {
				found, err := s.productRepo.FindByID(ctx, id)
				if err != nil && !errors.Is(err, repository.ErrProductNotFound) {
					s.logger.Warn("Failed to resolve order product", zap.String("product_id", id.String()), zap.Error(err))
				}
				product = found
				cache[id] = product
			}
			order.Items[i].Product = product
		}
	}
}

// consumeDiscount revalidates code against the live subtotal and spends one use
func (s *orderService) consumeDiscount(ctx context.Context, code string, subtotal decimal.Decimal, now time.Time) (*domain.Discount, decimal.Decimal, error) {
	discount, amount, err := resolveDiscount(ctx, s.discountRepo, code, subtotal, now)
	if err != nil {
		return nil, decimal.Zero, err
	}

	if err := s.discountRepo.IncrementUsage(ctx, discount.Code); err != nil {
		if errors.Is(err, repository.ErrDiscountExhausted) {
			return nil, decimal.Zero, &domain.DiscountError{Reason: domain.DiscountLimitReached, Code: discount.Code}
		}
		return nil, decimal.Zero, fmt.Errorf("failed to consume discount: %w", err)
	}

	return discount, amount, nil
}

func checkoutOutcome(err error) string {
	var discountErr *domain.DiscountError
	switch {
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.As(err, &discountErr):
		return "discount_rejected"
	case errors.Is(err, repository.ErrInsufficientStock):
		return "out_of_stock"
	default:
		return "error"
	}
}
