package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func renderError(err error) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	respondWithServiceError(w, httptest.NewRequest(http.MethodGet, "/api/test", nil), zap.NewNop(), err)
	return w
}

func TestServiceErrorStatus(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"product missing", repository.ErrProductNotFound, http.StatusNotFound, "product not found"},
		{"order missing", repository.ErrOrderNotFound, http.StatusNotFound, "order not found"},
		{"cart item missing", repository.ErrCartItemNotFound, http.StatusNotFound, "cart item not found"},
		{"duplicate email", repository.ErrUserAlreadyExists, http.StatusConflict, "user with this email already exists"},
		{"empty cart", service.ErrEmptyCart, http.StatusBadRequest, "cart is empty"},
		{"bad credentials", service.ErrInvalidCredentials, http.StatusUnauthorized, "invalid email or password"},
		{"foreign order", service.ErrAccessDenied, http.StatusForbidden, "access denied"},
		{"bad signature", service.ErrInvalidSignature, http.StatusBadRequest, "invalid webhook signature"},
		{"no processor key", service.ErrProcessorNotConfigured, http.StatusInternalServerError, "payment processor not configured"},
		{"processor down", fmt.Errorf("create intent: %w", service.ErrProcessorUnavailable), http.StatusBadGateway, "payment processor unavailable"},
		{"out of stock", fmt.Errorf("%w: Silk Evening Dress", repository.ErrInsufficientStock), http.StatusBadRequest, "insufficient stock: Silk Evening Dress"},
		{"invalid input", fmt.Errorf("%w: quantity must be at least 1", service.ErrInvalidInput), http.StatusBadRequest, "invalid input: quantity must be at least 1"},
		{"database down", errors.New("failed to list products: connection refused"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := renderError(tt.err)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.message, errorMessage(t, w))
		})
	}
}

func TestDiscountErrorDetails(t *testing.T) {
	w := renderError(&domain.DiscountError{
		Reason:      domain.DiscountMinimumNotMet,
		Code:        "SAVE20",
		MinPurchase: decimal.NewFromInt(100),
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response middleware.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "minimum purchase of $100.00 required", response.Error.Message)
	assert.Equal(t, "minimum_not_met", response.Error.Details["reason"])
	assert.Equal(t, "100.00", response.Error.Details["min_purchase"])
}

// Feature: storefront, Property 20: Only unknown discount codes map to 404
func TestProperty_DiscountFailureStatus(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("not_found renders 404 and every other reason 400", prop.ForAll(
		func(reason string) bool {
			w := renderError(fmt.Errorf("checkout: %w", &domain.DiscountError{Reason: domain.DiscountFailure(reason)}))
			if reason == string(domain.DiscountNotFound) {
				return w.Code == http.StatusNotFound
			}
			return w.Code == http.StatusBadRequest
		},
		gen.OneConstOf(
			string(domain.DiscountNotFound),
			string(domain.DiscountExpired),
			string(domain.DiscountMinimumNotMet),
			string(domain.DiscountLimitReached),
		),
	))

	properties.TestingRun(t)
}
