package transport

import (
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ValidateDiscountRequest quotes a code against a cart total
type ValidateDiscountRequest struct {
	Code      string          `json:"code" validate:"required,max=50"`
	CartTotal decimal.Decimal `json:"cart_total" validate:"gte=0"`
}

// DiscountHandler serves the discount preview
type DiscountHandler struct {
	discountService service.DiscountService
	logger          *zap.Logger
}

// NewDiscountHandler creates a new DiscountHandler
func NewDiscountHandler(discountService service.DiscountService, logger *zap.Logger) *DiscountHandler {
	return &DiscountHandler{
		discountService: discountService,
		logger:          logger,
	}
}

// RegisterRoutes registers all discount routes
func (h *DiscountHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.With(authMiddleware).Post("/api/discounts/validate", h.Validate)
}

// Validate quotes a code without consuming a use
func (h *DiscountHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateDiscountRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	quote, err := h.discountService.Validate(r.Context(), req.Code, req.CartTotal)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, quote)
}
