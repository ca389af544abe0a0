package transport

import (
	"net/http"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ShippingAddressRequest is the delivery destination captured at checkout
type ShippingAddressRequest struct {
	FullName   string `json:"full_name" validate:"required,max=100"`
	Address    string `json:"address" validate:"required,max=200"`
	City       string `json:"city" validate:"required,max=100"`
	PostalCode string `json:"postal_code" validate:"required,max=20"`
	Country    string `json:"country" validate:"required,max=100"`
	Phone      string `json:"phone" validate:"max=30"`
}

// PlaceOrderRequest checks out the caller's cart
type PlaceOrderRequest struct {
	ShippingAddress ShippingAddressRequest `json:"shipping_address"`
	PaymentMethod   string                 `json:"payment_method" validate:"required,oneof=card paypal cash_on_delivery"`
	DiscountCode    string                 `json:"discount_code" validate:"max=50"`
}

// OrderHandler serves customer orders
type OrderHandler struct {
	orderService service.OrderService
	logger       *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

// RegisterRoutes registers all order routes
func (h *OrderHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/orders", func(r chi.Router) {
		r.Use(authMiddleware)

		r.Post("/", h.Place)
		r.Get("/", h.ListMine)
		r.Get("/{id}", h.Get)
	})
}

// Place runs checkout on the caller's cart
func (h *OrderHandler) Place(w http.ResponseWriter, r *http.Request) {
	caller, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req PlaceOrderRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	addr := req.ShippingAddress
	order, err := h.orderService.PlaceOrder(r.Context(), caller.UserID, service.PlaceOrderInput{
		ShippingAddress: domain.ShippingAddress{
			FullName:   addr.FullName,
			Address:    addr.Address,
			City:       addr.City,
			PostalCode: addr.PostalCode,
			Country:    addr.Country,
			Phone:      addr.Phone,
		},
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
		DiscountCode:  req.DiscountCode,
	})
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, order)
}

// ListMine returns the caller's orders, newest first
func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	caller, ok := currentUser(w, r)
	if !ok {
		return
	}

	orders, err := h.orderService.ListMine(r.Context(), caller.UserID)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, orders)
}

// Get returns one order to its owner or an admin
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(r.Context(), caller, id)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}
