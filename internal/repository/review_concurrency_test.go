package repository_test

import (
	"context"
	"sync"
	"testing"

	"storefront/internal/database"
	"storefront/internal/domain"
	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConcurrentReviewsAllCountTowardRating(t *testing.T) {
	db := repository.SharedTestDB()
	productRepo := repository.NewProductRepository(db)
	catalog := service.NewCatalogService(productRepo, repository.NewUserRepository(db), database.NewTransactor(db), zap.NewNop())
	ctx := context.Background()

	product := repository.CreateTestProduct(t, "Contested", domain.CategoryAccessories, "25.00", 3)

	ratings := []int{5, 4, 3, 2, 1}
	reviewers := make([]uuid.UUID, len(ratings))
	for i := range ratings {
		reviewers[i] = repository.CreateTestUser(t, domain.RoleUser).ID
	}

	var wg sync.WaitGroup
	errs := make([]error, len(ratings))
	for i, rating := range ratings {
		wg.Add(1)
		go func(i, rating int) {
			defer wg.Done()
			_, errs[i] = catalog.AddReview(ctx, product.ID, reviewers[i], rating, "")
		}(i, rating)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	found, err := productRepo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Len(t, found.Reviews, len(ratings))
	assert.Equal(t, len(ratings), found.NumReviews)
	assert.InDelta(t, 3.0, found.Rating, 0.001)
}
