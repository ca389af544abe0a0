package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"storefront/internal/metrics"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerWindow int
	Window            time.Duration
	KeyPrefix         string // also the metrics scope label
}

// window is the state of one client's counter after a hit
type window struct {
	count int64
	ttl   time.Duration
}

// hit counts one request against key. The expiry is only set by the request
// that opens the window.
func hit(ctx context.Context, rdb *redis.Client, key string, length time.Duration) (window, error) {
	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, length)
		ttl = pipe.TTL(ctx, key)
		return nil
	})
	if err != nil {
		return window{}, err
	}

	w := window{count: incr.Val(), ttl: ttl.Val()}
	if w.ttl <= 0 {
		w.ttl = length
	}
	return w, nil
}

// RateLimitMiddleware applies a fixed window limit per client. Authenticated
// callers are keyed by user id, everyone else by remote address. Requests
// pass when Redis is unavailable.
func RateLimitMiddleware(redisClient *redis.Client, config RateLimitConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	limit := strconv.Itoa(config.RequestsPerWindow)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID := r.RemoteAddr
			if userID, ok := GetUserID(r.Context()); ok {
				clientID = userID.String()
			}
			key := config.KeyPrefix + ":" + clientID

			win, err := hit(r.Context(), redisClient, key, config.Window)
			if err != nil {
				logger.Error("Rate limiter unavailable", zap.String("key", key), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", limit)

			if win.count > int64(config.RequestsPerWindow) {
				metrics.RateLimited.WithLabelValues(config.KeyPrefix).Inc()
				logger.Warn("Rate limit exceeded",
					zap.String("client_id", clientID),
					zap.Int64("count", win.count),
				)

				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(win.ttl).Unix(), 10))
				w.Header().Set("Retry-After", strconv.Itoa(int(win.ttl.Seconds())))
				RespondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(int64(config.RequestsPerWindow)-win.count, 10))
			next.ServeHTTP(w, r)
		})
	}
}
