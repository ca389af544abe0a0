package transport

import (
	"io"
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/payment"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateIntentRequest asks for a payment intent on an order. Amount may be
// omitted to charge the order total.
type CreateIntentRequest struct {
	OrderID uuid.UUID       `json:"order_id" validate:"required"`
	Amount  decimal.Decimal `json:"amount" validate:"gte=0"`
}

// PaymentHandler bridges the client and the payment processor
type PaymentHandler struct {
	paymentService service.PaymentService
	logger         *zap.Logger
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService service.PaymentService, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		logger:         logger,
	}
}

// RegisterRoutes registers all payment routes. The webhook is authenticated
// by its signature, not by a bearer token.
func (h *PaymentHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/payment", func(r chi.Router) {
		r.With(authMiddleware).Post("/create-intent", h.CreateIntent)
		r.Post("/webhook", h.Webhook)
	})
}

// CreateIntent creates a processor intent for the caller's order
func (h *PaymentHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	caller, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req CreateIntentRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	result, err := h.paymentService.CreateIntent(r.Context(), caller, service.CreateIntentInput{
		OrderID: req.OrderID,
		Amount:  req.Amount,
	})
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, result)
}

// Webhook verifies and applies a processor event. The body is read raw
// because the signature covers the exact bytes.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, middleware.MaxBodyBytes))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "failed to read webhook body")
		return
	}

	event, err := h.paymentService.HandleWebhook(r.Context(), payload, r.Header.Get(payment.SignatureHeaderName))
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"received": true,
		"outcome":  event.Outcome,
	})
}
