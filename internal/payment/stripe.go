package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"storefront/internal/config"
	"storefront/internal/metrics"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const circuitName = "payment-processor"

// processorError is a non-2xx answer from the processor
type processorError struct {
	StatusCode int
	Message    string
}

func (e *processorError) Error() string {
	return fmt.Sprintf("processor returned status %d: %s", e.StatusCode, e.Message)
}

type stripeErrorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// StripeClient talks to a Stripe-compatible payment intents API
type StripeClient struct {
	client    *resty.Client
	breaker   *gobreaker.CircuitBreaker
	secretKey string
	currency  string
	logger    *zap.Logger
}

// NewStripeClient builds a client for cfg. An empty secret key yields a
// client that refuses every call with ErrNotConfigured.
func NewStripeClient(cfg config.PaymentConfig, logger *zap.Logger) *StripeClient {
	client := resty.New().
		SetBaseURL(cfg.APIBase).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0) // No automatic retries, the circuit breaker decides

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        circuitName,
		MaxRequests: 3,                // Max requests allowed in half-open state
		Interval:    15 * time.Second, // Window to track failures
		Timeout:     30 * time.Second, // Time to wait before half-open
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			// Trip if 60% or more requests fail and at least 3 requests have been made
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		IsSuccessful: func(err error) bool {
			// A rejected request is the caller's problem, not an outage
			var perr *processorError
			if errors.As(err, &perr) {
				return perr.StatusCode < 500
			}
			return err == nil
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(metrics.BreakerStateValue(to))
			logger.Info("Circuit breaker state changed",
				zap.String("circuit", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	metrics.CircuitBreakerState.WithLabelValues(circuitName).Set(0)

	return &StripeClient{
		client:    client,
		breaker:   breaker,
		secretKey: cfg.SecretKey,
		currency:  cfg.Currency,
		logger:    logger,
	}
}

// Configured reports whether a secret key is present
func (c *StripeClient) Configured() bool {
	return c.secretKey != ""
}

// CreatePaymentIntent posts a new payment intent through the circuit breaker
func (c *StripeClient) CreatePaymentIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	currency := req.Currency
	if currency == "" {
		currency = c.currency
	}

	form := map[string]string{
		"amount":                             strconv.FormatInt(req.AmountMinor, 10),
		"currency":                           currency,
		"automatic_payment_methods[enabled]": "true",
	}
	for key, value := range req.Metadata {
		form["metadata["+key+"]"] = value
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, httpErr := c.client.R().
			SetContext(ctx).
			SetAuthToken(c.secretKey).
			SetFormData(form).
			SetResult(&Intent{}).
			SetError(&stripeErrorBody{}).
			Post("/v1/payment_intents")

		if httpErr != nil {
			return nil, fmt.Errorf("HTTP error: %w", httpErr)
		}

		if resp.IsError() {
			message := resp.Status()
			if body, ok := resp.Error().(*stripeErrorBody); ok && body.Error.Message != "" {
				message = body.Error.Message
			}
			return nil, &processorError{StatusCode: resp.StatusCode(), Message: message}
		}

		return resp.Result().(*Intent), nil
	})

	if err != nil {
		c.logger.Warn("Payment intent request failed", zap.Error(err))
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit breaker %s is open", ErrUnavailable, circuitName)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return result.(*Intent), nil
}
