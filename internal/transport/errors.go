package transport

import (
	"errors"
	"net/http"

	"storefront/internal/domain"
	"storefront/internal/logger"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"

	"go.uber.org/zap"
)

// Sentinels whose own message is safe to show to the client
var errorStatuses = []struct {
	err    error
	status int
}{
	{repository.ErrProductNotFound, http.StatusNotFound},
	{repository.ErrOrderNotFound, http.StatusNotFound},
	{repository.ErrCartItemNotFound, http.StatusNotFound},
	{repository.ErrDiscountNotFound, http.StatusNotFound},
	{repository.ErrUserNotFound, http.StatusNotFound},
	{repository.ErrUserAlreadyExists, http.StatusConflict},
	{repository.ErrDiscountAlreadyExists, http.StatusConflict},
	{service.ErrEmptyCart, http.StatusBadRequest},
	{service.ErrInvalidSignature, http.StatusBadRequest},
	{service.ErrInvalidCredentials, http.StatusUnauthorized},
	{service.ErrInvalidToken, http.StatusUnauthorized},
	{service.ErrAccessDenied, http.StatusForbidden},
	{service.ErrProcessorNotConfigured, http.StatusInternalServerError},
	{service.ErrProcessorUnavailable, http.StatusBadGateway},
}

// respondWithServiceError renders err at the request boundary
func respondWithServiceError(w http.ResponseWriter, r *http.Request, base *zap.Logger, err error) {
	log := logger.FromContext(r.Context(), base)

	var discountErr *domain.DiscountError
	if errors.As(err, &discountErr) {
		status := http.StatusBadRequest
		if discountErr.Reason == domain.DiscountNotFound {
			status = http.StatusNotFound
		}
		details := map[string]interface{}{"reason": string(discountErr.Reason)}
		if discountErr.Reason == domain.DiscountMinimumNotMet {
			details["min_purchase"] = discountErr.MinPurchase.StringFixed(2)
		}
		middleware.RespondWithErrorDetails(w, status, discountErr.Error(), details)
		return
	}

	// Wrapped with the offending detail, so the full message is shown
	if errors.Is(err, repository.ErrInsufficientStock) || errors.Is(err, service.ErrInvalidInput) {
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	for _, candidate := range errorStatuses {
		if errors.Is(err, candidate.err) {
			if candidate.status >= http.StatusInternalServerError {
				log.Error("Request failed", zap.Error(err))
			}
			middleware.RespondWithError(w, candidate.status, candidate.err.Error())
			return
		}
	}

	log.Error("Unhandled error", zap.Error(err), zap.String("path", r.URL.Path))
	middleware.RespondWithError(w, http.StatusInternalServerError, "internal server error")
}
