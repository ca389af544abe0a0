package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storefront/internal/database"
	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CatalogService defines the interface for public catalog operations
type CatalogService interface {
	ListProducts(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	AddReview(ctx context.Context, productID, userID uuid.UUID, rating int, comment string) (*domain.Product, error)
}

type catalogService struct {
	productRepo repository.ProductRepository
	userRepo    repository.UserRepository
	tx          database.Transactor
	logger      *zap.Logger
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
	tx database.Transactor,
	logger *zap.Logger,
) CatalogService {
	return &catalogService{
		productRepo: productRepo,
		userRepo:    userRepo,
		tx:          tx,
		logger:      logger,
	}
}

// ListProducts returns the catalog narrowed by filter
func (s *catalogService) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	if filter.Category != nil && !filter.Category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidInput, *filter.Category)
	}
	if filter.MinPrice != nil && filter.MaxPrice != nil && filter.MinPrice.GreaterThan(*filter.MaxPrice) {
		return nil, fmt.Errorf("%w: minPrice exceeds maxPrice", ErrInvalidInput)
	}

	switch filter.SortBy {
	case domain.SortNewest, domain.SortPriceLow, domain.SortPriceHigh, domain.SortPopular:
	default:
		filter.SortBy = domain.SortNewest
	}

	products, err := s.productRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// GetProduct returns a product with its reviews
func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return s.productRepo.FindByID(ctx, id)
}

// AddReview appends a review and recomputes the derived rating in one transaction
func (s *catalogService) AddReview(ctx context.Context, productID, userID uuid.UUID, rating int, comment string) (*domain.Product, error) {
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidInput)
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	var product *domain.Product
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		// Serializes reviewers of one product so the recomputed rating sees every review
		product, err = s.productRepo.FindByIDForUpdate(ctx, productID)
		if err != nil {
			return err
		}

		review := domain.Review{
			ID:        uuid.New(),
			ProductID: productID,
			UserID:    user.ID,
			Name:      user.Name,
			Rating:    rating,
			Comment:   strings.TrimSpace(comment),
			CreatedAt: time.Now().UTC(),
		}
		if err := s.productRepo.AddReview(ctx, &review); err != nil {
			return err
		}

		product.Reviews = append(product.Reviews, review)
		product.CalculateRating()

		return s.productRepo.UpdateRating(ctx, product.ID, product.Rating, product.NumReviews)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Review added",
		zap.String("product_id", productID.String()),
		zap.String("user_id", userID.String()),
		zap.Float64("rating", product.Rating),
		zap.Int("num_reviews", product.NumReviews),
	)

	return product, nil
}
