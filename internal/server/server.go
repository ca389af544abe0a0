package server

import (
	"fmt"
	"net/http"
	"time"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/eventlog"
	"storefront/internal/metrics"
	custommiddleware "storefront/internal/middleware"
	"storefront/internal/payment"
	"storefront/internal/repository"
	"storefront/internal/service"
	"storefront/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Dependencies are the connections the server is built on. Archive may be
// nil when no event store is configured.
type Dependencies struct {
	DB        database.Service
	Redis     *redis.Client
	Archive   eventlog.Archive
	Processor payment.Processor
}

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	deps   Dependencies
}

func NewServer(cfg *config.Config, logger *zap.Logger, deps Dependencies) *Server {
	// Create router
	router := chi.NewRouter()

	// Add basic middleware
	router.Use(custommiddleware.DefaultMiddlewareStack()...)
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(metrics.Middleware)
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, cfg.Server.IsDevelopment()))

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		health := deps.DB.Health()
		status := http.StatusOK
		if health["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		custommiddleware.RespondWithJSON(w, status, health)
	})
	router.Handle("/metrics", promhttp.Handler())

	db := deps.DB.DB()
	tx := database.NewTransactor(db)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	cartRepo := repository.NewCartRepository(db)
	discountRepo := repository.NewDiscountRepository(db)
	orderRepo := repository.NewOrderRepository(db)

	// Webhook replays are caught by the conditional paid update when Redis is absent
	var claimer payment.EventClaimer
	if deps.Redis != nil {
		claimer = payment.NewRedisEventClaimer(deps.Redis, payment.DefaultClaimTTL)
	}

	// Initialize services
	tokenExpiry := time.Duration(cfg.JWT.AccessExpiry) * time.Minute
	userService := service.NewUserService(userRepo, cfg.JWT.Secret, tokenExpiry, logger)
	catalogService := service.NewCatalogService(productRepo, userRepo, tx, logger)
	discountService := service.NewDiscountService(discountRepo, logger)
	cartService := service.NewCartService(cartRepo, productRepo, discountRepo, logger)
	orderService := service.NewOrderService(orderRepo, cartRepo, productRepo, discountRepo, tx, logger)
	paymentService := service.NewPaymentService(orderRepo, deps.Processor, claimer, deps.Archive, cfg.Payment.WebhookSecret, logger)
	adminService := service.NewAdminService(productRepo, orderRepo, userRepo, deps.Archive, tx, logger)

	// Create auth middleware
	authMiddleware := custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger)

	handlers := []interface {
		RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler)
	}{
		transport.NewUserHandler(userService, logger),
		transport.NewProductHandler(catalogService, logger),
		transport.NewCartHandler(cartService, logger),
		transport.NewOrderHandler(orderService, logger),
		transport.NewDiscountHandler(discountService, logger),
		transport.NewPaymentHandler(paymentService, logger),
		transport.NewAdminHandler(adminService, discountService, logger),
	}

	// Register routes, rate limited when Redis is available
	router.Group(func(r chi.Router) {
		if deps.Redis != nil {
			r.Use(custommiddleware.RateLimitMiddleware(deps.Redis, custommiddleware.RateLimitConfig{
				RequestsPerWindow: cfg.RateLimit.Requests,
				Window:            cfg.RateLimit.Window,
				KeyPrefix:         "rate_limit",
			}, logger))
		}
		for _, h := range handlers {
			h.RegisterRoutes(r, authMiddleware)
		}
	})

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
		deps:   deps,
	}

	return server
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.deps.Redis != nil {
		if err := s.deps.Redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	// Close database connection
	if s.deps.DB != nil {
		if err := s.deps.DB.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
