package server

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/config"
	"storefront/internal/payment"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeDatabase struct {
	status string
	closed bool
}

func (f *fakeDatabase) Health() map[string]string { return map[string]string{"status": f.status} }
func (f *fakeDatabase) DB() *sql.DB                { return nil }
func (f *fakeDatabase) Close() error {
	f.closed = true
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{Port: "0", Env: "development"},
		RateLimit: config.RateLimitConfig{Requests: 2, Window: time.Minute},
		JWT:       config.JWTConfig{Secret: "test-secret", AccessExpiry: 60},
		Payment:   config.PaymentConfig{WebhookSecret: "whsec_test", Currency: "usd"},
	}
}

func newTestServer(t *testing.T, db *fakeDatabase, rdb *redis.Client) *Server {
	t.Helper()
	cfg := testConfig()
	return NewServer(cfg, zap.NewNop(), Dependencies{
		DB:        db,
		Redis:     rdb,
		Processor: payment.NewStripeClient(cfg.Payment, zap.NewNop()),
	})
}

func serve(s *Server, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = "192.0.2.1:4000"
	s.Handler.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	up := newTestServer(t, &fakeDatabase{status: "up"}, nil)
	assert.Equal(t, http.StatusOK, serve(up, http.MethodGet, "/health").Code)

	down := newTestServer(t, &fakeDatabase{status: "down"}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, serve(down, http.MethodGet, "/health").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, &fakeDatabase{status: "up"}, nil)
	serve(s, http.MethodGet, "/health")

	w := serve(s, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "storefront_http_requests_total")
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	s := newTestServer(t, &fakeDatabase{status: "up"}, nil)

	for _, path := range []string{"/api/cart", "/api/orders", "/api/auth/me", "/api/admin/stats"} {
		assert.Equal(t, http.StatusUnauthorized, serve(s, http.MethodGet, path).Code, path)
	}
}

func TestAPIIsRateLimited(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := newTestServer(t, &fakeDatabase{status: "up"}, rdb)

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusUnauthorized, serve(s, http.MethodGet, "/api/cart").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, serve(s, http.MethodGet, "/api/cart").Code)

	// Health checks sit outside the limiter
	assert.Equal(t, http.StatusOK, serve(s, http.MethodGet, "/health").Code)
}

func TestCloseReleasesConnections(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	db := &fakeDatabase{status: "up"}

	require.NoError(t, newTestServer(t, db, rdb).Close())
	assert.True(t, db.closed)
}
