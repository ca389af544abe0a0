package transport

import (
	"net/http"
	"time"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductRequest carries every writable product field
type ProductRequest struct {
	Name           string           `json:"name" validate:"required,max=200"`
	Description    string           `json:"description" validate:"max=5000"`
	Category       string           `json:"category" validate:"required,oneof=jewelry clothing accessories"`
	Subcategory    string           `json:"subcategory" validate:"max=100"`
	Price          decimal.Decimal  `json:"price" validate:"gte=0"`
	CompareAtPrice *decimal.Decimal `json:"compare_at_price" validate:"omitempty,gte=0"`
	Images         []string         `json:"images" validate:"dive,url"`
	Sizes          []string         `json:"sizes"`
	Colors         []string         `json:"colors"`
	Stock          int              `json:"stock" validate:"gte=0"`
	Featured       bool             `json:"featured"`
	Popular        bool             `json:"popular"`
}

func (p ProductRequest) input() service.ProductInput {
	return service.ProductInput{
		Name:           p.Name,
		Description:    p.Description,
		Category:       domain.Category(p.Category),
		Subcategory:    p.Subcategory,
		Price:          p.Price,
		CompareAtPrice: p.CompareAtPrice,
		Images:         p.Images,
		Sizes:          p.Sizes,
		Colors:         p.Colors,
		Stock:          p.Stock,
		Featured:       p.Featured,
		Popular:        p.Popular,
	}
}

// UpdateOrderRequest changes order state. Omitted fields are left unchanged.
type UpdateOrderRequest struct {
	Status      *string `json:"status" validate:"omitempty,oneof=pending processing shipped delivered cancelled"`
	IsPaid      *bool   `json:"is_paid"`
	IsDelivered *bool   `json:"is_delivered"`
}

// CreateDiscountRequest defines a new discount code
type CreateDiscountRequest struct {
	Code        string           `json:"code" validate:"required,max=50"`
	Description string           `json:"description" validate:"max=500"`
	Type        string           `json:"discount_type" validate:"required,oneof=percentage fixed"`
	Value       decimal.Decimal  `json:"discount_value" validate:"gt=0"`
	MinPurchase decimal.Decimal  `json:"min_purchase" validate:"gte=0"`
	MaxDiscount *decimal.Decimal `json:"max_discount" validate:"omitempty,gt=0"`
	ValidFrom   time.Time        `json:"valid_from" validate:"required"`
	ValidUntil  time.Time        `json:"valid_until" validate:"required"`
	UsageLimit  *int             `json:"usage_limit" validate:"omitempty,gte=1"`
	IsActive    *bool            `json:"is_active"`
}

// SetDiscountActiveRequest toggles a discount code
type SetDiscountActiveRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// AdminHandler serves the back office. Every route requires the admin role.
type AdminHandler struct {
	adminService    service.AdminService
	discountService service.DiscountService
	logger          *zap.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(adminService service.AdminService, discountService service.DiscountService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		adminService:    adminService,
		discountService: discountService,
		logger:          logger,
	}
}

// RegisterRoutes registers all admin routes
func (h *AdminHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(middleware.RequireAdmin(h.logger))

		r.Get("/stats", h.Stats)

		r.Post("/products", h.CreateProduct)
		r.Put("/products/{id}", h.UpdateProduct)
		r.Delete("/products/{id}", h.DeleteProduct)

		r.Get("/orders", h.ListOrders)
		r.Put("/orders/{id}", h.UpdateOrder)

		r.Get("/discounts", h.ListDiscounts)
		r.Post("/discounts", h.CreateDiscount)
		r.Put("/discounts/{id}/active", h.SetDiscountActive)

		r.Get("/payment-events", h.ListPaymentEvents)
	})
}

// Stats returns the dashboard aggregates
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.adminService.GetStats(r.Context())
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, stats)
}

// CreateProduct adds a product to the catalog
func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	product, err := h.adminService.CreateProduct(r.Context(), req.input())
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

// UpdateProduct replaces every writable field of a product
func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req ProductRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	product, err := h.adminService.UpdateProduct(r.Context(), id, req.input())
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// DeleteProduct removes a product
func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.adminService.DeleteProduct(r.Context(), id); err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "product removed"})
}

// ListOrders returns every order, newest first
func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.adminService.ListOrders(r.Context())
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, orders)
}

// UpdateOrder applies status, paid and delivered changes independently
func (h *AdminHandler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req UpdateOrderRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	update := domain.OrderStatusUpdate{IsPaid: req.IsPaid, IsDelivered: req.IsDelivered}
	if req.Status != nil {
		status := domain.OrderStatus(*req.Status)
		update.Status = &status
	}

	order, err := h.adminService.UpdateOrder(r.Context(), id, update)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// ListDiscounts returns every discount code
func (h *AdminHandler) ListDiscounts(w http.ResponseWriter, r *http.Request) {
	discounts, err := h.discountService.List(r.Context())
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, discounts)
}

// CreateDiscount stores a new discount code, active unless told otherwise
func (h *AdminHandler) CreateDiscount(w http.ResponseWriter, r *http.Request) {
	var req CreateDiscountRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	discount, err := h.discountService.Create(r.Context(), service.NewDiscountInput{
		Code:        req.Code,
		Description: req.Description,
		Type:        domain.DiscountType(req.Type),
		Value:       req.Value,
		MinPurchase: req.MinPurchase,
		MaxDiscount: req.MaxDiscount,
		ValidFrom:   req.ValidFrom,
		ValidUntil:  req.ValidUntil,
		UsageLimit:  req.UsageLimit,
		IsActive:    active,
	})
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, discount)
}

// SetDiscountActive enables or disables a discount code
func (h *AdminHandler) SetDiscountActive(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req SetDiscountActiveRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	discount, err := h.discountService.SetActive(r.Context(), id, *req.IsActive)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, discount)
}

// ListPaymentEvents returns the most recent archived webhook deliveries
func (h *AdminHandler) ListPaymentEvents(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r.URL.Query(), "limit")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	events, err := h.adminService.ListPaymentEvents(r.Context(), limit)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, events)
}
