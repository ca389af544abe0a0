package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
)

var (
	// RequestsTotal tracks total HTTP requests
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration tracks HTTP request duration
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// OrdersTotal tracks checkout attempts by outcome
	OrdersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_orders_total",
			Help: "Total number of checkout attempts",
		},
		[]string{"outcome"},
	)

	// OrderValue tracks placed order totals
	OrderValue = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "storefront_order_value_dollars",
			Help:    "Order totals in dollars",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000},
		},
	)

	// DiscountRedemptions tracks consumed discount uses
	DiscountRedemptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_discount_redemptions_total",
			Help: "Total number of discount codes consumed at checkout",
		},
		[]string{"code"},
	)

	// PaymentIntents tracks processor intent creation by outcome
	PaymentIntents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_payment_intents_total",
			Help: "Total number of payment intent requests",
		},
		[]string{"outcome"},
	)

	// WebhookEvents tracks verified webhook deliveries
	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_webhook_events_total",
			Help: "Total number of verified payment webhook events",
		},
		[]string{"type", "outcome"},
	)

	// RateLimited counts requests rejected by the rate limiter
	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_rate_limited_total",
			Help: "Requests rejected with 429",
		},
		[]string{"scope"},
	)

	// CircuitBreakerState tracks circuit breaker state (0=closed, 1=open, 2=half-open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "storefront_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"circuit"},
	)
)

// BreakerStateValue maps a breaker state onto the CircuitBreakerState gauge
func BreakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}

// Middleware records request count and latency per chi route pattern
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
