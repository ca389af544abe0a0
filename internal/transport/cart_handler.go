package transport

import (
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AddCartItemRequest adds a product variant to the cart
type AddCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"gte=1,lte=99"`
	Size      string    `json:"size" validate:"max=20"`
	Color     string    `json:"color" validate:"max=30"`
}

// UpdateCartItemRequest sets a line quantity
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"gte=1,lte=99"`
}

// ApplyDiscountRequest stores a pending code on the cart
type ApplyDiscountRequest struct {
	Code string `json:"code" validate:"required,max=50"`
}

// CartHandler serves the caller's cart
type CartHandler struct {
	cartService service.CartService
	logger      *zap.Logger
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(cartService service.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		logger:      logger,
	}
}

// RegisterRoutes registers all cart routes. Every cart route is protected.
func (h *CartHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Use(authMiddleware)

		r.Get("/", h.Get)
		r.Post("/", h.AddItem)
		r.Delete("/", h.Clear)
		r.Post("/discount", h.ApplyDiscount)
		r.Delete("/discount", h.RemoveDiscount)
		r.Put("/{itemId}", h.UpdateItem)
		r.Delete("/{itemId}", h.RemoveItem)
	})
}

// Get returns the cart, creating an empty one on first access
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller, ok := currentUser(w, r)
	if !ok {
		return
	}

	view, err := h.cartService.GetCart(r.Context(), caller.UserID)
	h.respond(w, r, http.StatusOK, view, err)
}

// AddItem adds a product or increases the quantity of a matching line
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	caller, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req AddCartItemRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	view, err := h.cartService.AddItem(r.Context(), caller.UserID, service.AddCartItemInput{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Size:      req.Size,
		Color:     req.Color,
	})
	h.respond(w, r, http.StatusOK, view, err)
}

// UpdateItem sets the quantity of one line
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	caller, ok := currentUser(w, r)
	if !ok {
		return
	}
	itemID, ok := pathUUID(w, r, "itemId")
	if !ok {
		return
	}

	var req UpdateCartItemRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	view, err := h.cartService.UpdateItem(r.Context(), caller.UserID, itemID, req.Quantity)
	h.respond(w, r, http.StatusOK, view, err)
}

// RemoveItem deletes one line
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	caller, ok := currentUser(w, r)
	if !ok {
		return
	}
	itemID, ok := pathUUID(w, r, "itemId")
	if !ok {
		return
	}

	view, err := h.cartService.RemoveItem(r.Context(), caller.UserID, itemID)
	h.respond(w, r, http.StatusOK, view, err)
}

// Clear empties the cart and drops the pending code
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	caller, ok := currentUser(w, r)
	if !ok {
		return
	}

	view, err := h.cartService.Clear(r.Context(), caller.UserID)
	h.respond(w, r, http.StatusOK, view, err)
}

// ApplyDiscount validates a code against the cart and keeps it pending
func (h *CartHandler) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	caller, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req ApplyDiscountRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	view, err := h.cartService.ApplyDiscount(r.Context(), caller.UserID, req.Code)
	h.respond(w, r, http.StatusOK, view, err)
}

// RemoveDiscount drops the pending code
func (h *CartHandler) RemoveDiscount(w http.ResponseWriter, r *http.Request) {
	caller, ok := currentUser(w, r)
	if !ok {
		return
	}

	view, err := h.cartService.RemoveDiscount(r.Context(), caller.UserID)
	h.respond(w, r, http.StatusOK, view, err)
}

func (h *CartHandler) respond(w http.ResponseWriter, r *http.Request, status int, view *service.CartView, err error) {
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, status, view)
}
