package transport

import (
	"net/http"
	"testing"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newAdminRouter(admins *stubAdminService, discounts *stubDiscountService, role string) http.Handler {
	caller := admin()
	caller.Role = role
	return newTestRouter(NewAdminHandler(admins, discounts, zap.NewNop()), caller)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	router := newAdminRouter(&stubAdminService{}, &stubDiscountService{}, domain.RoleUser)

	for _, path := range []string{"/api/admin/stats", "/api/admin/orders", "/api/admin/discounts", "/api/admin/payment-events"} {
		w := doJSON(t, router, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusForbidden, w.Code, path)
	}
}

func TestAdminStats(t *testing.T) {
	router := newAdminRouter(&stubAdminService{}, &stubDiscountService{}, domain.RoleAdmin)

	w := doJSON(t, router, http.MethodGet, "/api/admin/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_products":6`)
}

func TestAdminCreateProduct(t *testing.T) {
	admins := &stubAdminService{}
	router := newAdminRouter(admins, &stubDiscountService{}, domain.RoleAdmin)

	w := doJSON(t, router, http.MethodPost, "/api/admin/products", `{
		"name": "Crystal Bracelet Set",
		"category": "jewelry",
		"price": 39.99,
		"stock": 25,
		"images": ["https://images.example.com/bracelet.jpg"],
		"popular": true
	}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, domain.CategoryJewelry, admins.input.Category)
	assert.True(t, admins.input.Price.Equal(decimal.RequireFromString("39.99")))
	assert.True(t, admins.input.Popular)
}

func TestAdminProductValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown category", `{"name":"Hat","category":"hats","price":10,"stock":1}`},
		{"negative price", `{"name":"Hat","category":"accessories","price":-1,"stock":1}`},
		{"negative stock", `{"name":"Hat","category":"accessories","price":1,"stock":-1}`},
		{"bad image url", `{"name":"Hat","category":"accessories","price":1,"stock":1,"images":["not a url"]}`},
		{"missing name", `{"category":"accessories","price":1,"stock":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newAdminRouter(&stubAdminService{}, &stubDiscountService{}, domain.RoleAdmin)
			w := doJSON(t, router, http.MethodPost, "/api/admin/products", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestAdminUpdateMissingProduct(t *testing.T) {
	router := newAdminRouter(&stubAdminService{err: repository.ErrProductNotFound}, &stubDiscountService{}, domain.RoleAdmin)

	w := doJSON(t, router, http.MethodPut, "/api/admin/products/"+uuid.NewString(), `{"name":"Hat","category":"accessories","price":1,"stock":1}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminDeleteProduct(t *testing.T) {
	router := newAdminRouter(&stubAdminService{}, &stubDiscountService{}, domain.RoleAdmin)

	w := doJSON(t, router, http.MethodDelete, "/api/admin/products/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminUpdateOrderFieldsAreIndependent(t *testing.T) {
	admins := &stubAdminService{}
	router := newAdminRouter(admins, &stubDiscountService{}, domain.RoleAdmin)

	w := doJSON(t, router, http.MethodPut, "/api/admin/orders/"+uuid.NewString(), `{"is_delivered":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, admins.update.Status)
	assert.Nil(t, admins.update.IsPaid)
	require.NotNil(t, admins.update.IsDelivered)
	assert.True(t, *admins.update.IsDelivered)

	w = doJSON(t, router, http.MethodPut, "/api/admin/orders/"+uuid.NewString(), `{"status":"shipped"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, admins.update.Status)
	assert.Equal(t, domain.OrderStatusShipped, *admins.update.Status)

	w = doJSON(t, router, http.MethodPut, "/api/admin/orders/"+uuid.NewString(), `{"status":"lost"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminCreateDiscount(t *testing.T) {
	discounts := &stubDiscountService{}
	router := newAdminRouter(&stubAdminService{}, discounts, domain.RoleAdmin)

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	w := doJSON(t, router, http.MethodPost, "/api/admin/discounts", CreateDiscountRequest{
		Code:        "spring15",
		Type:        "percentage",
		Value:       decimal.NewFromInt(15),
		MinPurchase: decimal.NewFromInt(50),
		ValidFrom:   from,
		ValidUntil:  from.AddDate(0, 3, 0),
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, discounts.created.IsActive, "new codes default to active")
	assert.Equal(t, domain.DiscountPercentage, discounts.created.Type)
}

func TestAdminCreateDiscountValidation(t *testing.T) {
	router := newAdminRouter(&stubAdminService{}, &stubDiscountService{}, domain.RoleAdmin)

	w := doJSON(t, router, http.MethodPost, "/api/admin/discounts", `{"code":"X","discount_type":"bogo","discount_value":1,"valid_from":"2026-01-01T00:00:00Z","valid_until":"2026-02-01T00:00:00Z"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/admin/discounts", `{"code":"X","discount_type":"fixed","discount_value":0,"valid_from":"2026-01-01T00:00:00Z","valid_until":"2026-02-01T00:00:00Z"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminDuplicateDiscount(t *testing.T) {
	router := newAdminRouter(&stubAdminService{}, &stubDiscountService{err: repository.ErrDiscountAlreadyExists}, domain.RoleAdmin)

	w := doJSON(t, router, http.MethodPost, "/api/admin/discounts", `{"code":"SAVE20","discount_type":"fixed","discount_value":20,"valid_from":"2026-01-01T00:00:00Z","valid_until":"2026-02-01T00:00:00Z"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAdminSetDiscountActive(t *testing.T) {
	discounts := &stubDiscountService{}
	router := newAdminRouter(&stubAdminService{}, discounts, domain.RoleAdmin)

	w := doJSON(t, router, http.MethodPut, "/api/admin/discounts/"+uuid.NewString()+"/active", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPut, "/api/admin/discounts/"+uuid.NewString()+"/active", `{"is_active":false}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, discounts.active)
	assert.False(t, *discounts.active)
}

func TestAdminPaymentEventsLimit(t *testing.T) {
	admins := &stubAdminService{}
	router := newAdminRouter(admins, &stubDiscountService{}, domain.RoleAdmin)

	w := doJSON(t, router, http.MethodGet, "/api/admin/payment-events?limit=25", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 25, admins.limit)

	w = doJSON(t, router, http.MethodGet, "/api/admin/payment-events?limit=many", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
