package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storefront/internal/database"
	"storefront/internal/domain"
	"storefront/internal/eventlog"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RecentOrdersLimit is the number of orders shown on the dashboard
const RecentOrdersLimit = 10

// ProductInput carries every writable product field. Updates replace all of them.
type ProductInput struct {
	Name           string
	Description    string
	Category       domain.Category
	Subcategory    string
	Price          decimal.Decimal
	CompareAtPrice *decimal.Decimal
	Images         []string
	Sizes          []string
	Colors         []string
	Stock          int
	Featured       bool
	Popular        bool
}

// AdminService defines the interface for back office operations
type AdminService interface {
	GetStats(ctx context.Context) (*domain.AdminStats, error)
	CreateProduct(ctx context.Context, input ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input ProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	ListOrders(ctx context.Context) ([]*domain.Order, error)
	UpdateOrder(ctx context.Context, id uuid.UUID, update domain.OrderStatusUpdate) (*domain.Order, error)
	ListPaymentEvents(ctx context.Context, limit int) ([]*domain.PaymentEvent, error)
}

type adminService struct {
	productRepo repository.ProductRepository
	orderRepo   repository.OrderRepository
	userRepo    repository.UserRepository
	archive     eventlog.Archive
	tx          database.Transactor
	now         func() time.Time
	logger      *zap.Logger
}

// NewAdminService creates a new instance of AdminService
func NewAdminService(
	productRepo repository.ProductRepository,
	orderRepo repository.OrderRepository,
	userRepo repository.UserRepository,
	archive eventlog.Archive,
	tx database.Transactor,
	logger *zap.Logger,
) AdminService {
	if archive == nil {
		archive = eventlog.NewNoopArchive()
	}
	return &adminService{
		productRepo: productRepo,
		orderRepo:   orderRepo,
		userRepo:    userRepo,
		archive:     archive,
		tx:          tx,
		now:         time.Now,
		logger:      logger,
	}
}

// GetStats aggregates the dashboard figures
func (s *adminService) GetStats(ctx context.Context) (*domain.AdminStats, error) {
	products, err := s.productRepo.Count(ctx)
	if err != nil {
		return nil, err
	}

	orders, err := s.orderRepo.Count(ctx)
	if err != nil {
		return nil, err
	}

	users, err := s.userRepo.CountByRole(ctx, domain.RoleUser)
	if err != nil {
		return nil, err
	}

	revenue, err := s.orderRepo.SumPaidRevenue(ctx)
	if err != nil {
		return nil, err
	}

	recent, err := s.orderRepo.ListAll(ctx, RecentOrdersLimit)
	if err != nil {
		return nil, err
	}

	return &domain.AdminStats{
		TotalProducts: products,
		TotalOrders:   orders,
		TotalUsers:    users,
		TotalRevenue:  domain.RoundMoney(revenue),
		RecentOrders:  recent,
	}, nil
}

// CreateProduct adds a product to the catalog
func (s *adminService) CreateProduct(ctx context.Context, input ProductInput) (*domain.Product, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	product := &domain.Product{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
	applyProductInput(product, input)

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}

	s.logger.Info("Product created", zap.String("product_id", product.ID.String()), zap.String("name", product.Name))

	return product, nil
}

// UpdateProduct replaces every writable field of a product
func (s *adminService) UpdateProduct(ctx context.Context, id uuid.UUID, input ProductInput) (*domain.Product, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}

	product := &domain.Product{ID: id}
	applyProductInput(product, input)

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, err
	}

	s.logger.Info("Product updated", zap.String("product_id", id.String()))

	return s.productRepo.FindByID(ctx, id)
}

// DeleteProduct removes a product; existing orders keep their snapshot
func (s *adminService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if err := s.productRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Product deleted", zap.String("product_id", id.String()))
	return nil
}

// ListOrders returns every order newest first
func (s *adminService) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	return s.orderRepo.ListAll(ctx, 0)
}

// UpdateOrder applies independent status, paid and delivered changes
func (s *adminService) UpdateOrder(ctx context.Context, id uuid.UUID, update domain.OrderStatusUpdate) (*domain.Order, error) {
	var order *domain.Order

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		// The row lock keeps a concurrent MarkPaid from being overwritten
		order, err = s.orderRepo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		update.Apply(order, s.now().UTC())

		return s.orderRepo.UpdateStatus(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order updated",
		zap.String("order_id", id.String()),
		zap.String("status", string(order.Status)),
		zap.Bool("is_paid", order.IsPaid),
		zap.Bool("is_delivered", order.IsDelivered),
	)

	return order, nil
}

// ListPaymentEvents returns the most recent archived webhook events
func (s *adminService) ListPaymentEvents(ctx context.Context, limit int) ([]*domain.PaymentEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.archive.Recent(ctx, limit)
}

func validateProductInput(input ProductInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if !input.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidInput, input.Category)
	}
	if input.Price.IsNegative() {
		return fmt.Errorf("%w: price cannot be negative", ErrInvalidInput)
	}
	if input.Stock < 0 {
		return fmt.Errorf("%w: stock cannot be negative", ErrInvalidInput)
	}
	return nil
}

func applyProductInput(product *domain.Product, input ProductInput) {
	product.Name = strings.TrimSpace(input.Name)
	product.Description = input.Description
	product.Category = input.Category
	product.Subcategory = input.Subcategory
	product.Price = domain.RoundMoney(input.Price)
	product.CompareAtPrice = input.CompareAtPrice
	product.Images = input.Images
	product.Sizes = input.Sizes
	product.Colors = input.Colors
	product.Stock = input.Stock
	product.Featured = input.Featured
	product.Popular = input.Popular
}
