package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/comphound/comphound/internal"
	"github.com/comphound/comphound/internal/billing"
	"github.com/comphound/comphound/internal/handler"
	"github.com/comphound/comphound/internal/metrics"
	"github.com/comphound/comphound/internal/middleware"
	"github.com/comphound/comphound/internal/repository"
	"github.com/comphound/comphound/internal/service"
	"github.com/comphound/comphound/internal/valuation"
	"github.com/comphound/comphound/internal/valuation/mock"
	"github.com/comphound/comphound/internal/valuation/rentcast"
)

// sessionCleanupInterval is how often expired sessions are purged.
const sessionCleanupInterval = time.Hour

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database connection
	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// Run migrations
	if err := internal.RunMigrations(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database ready")

	// Initialize repository
	repo := repository.New(db)

	// Initialize valuation provider
	provider, err := newValuationProvider(cfg, logger)
	if err != nil {
		return fmt.Errorf("valuation provider initialization failed: %w", err)
	}

	// Initialize billing (optional; endpoints respond 402 when unset)
	var billingService billing.Service
	if cfg.StripeSecretKey != "" {
		billingService = billing.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookSecret, billing.PriceConfig{
			ProMonthlyPriceID:     cfg.StripeProMonthlyPriceID,
			ProYearlyPriceID:      cfg.StripeProYearlyPriceID,
			PremiumMonthlyPriceID: cfg.StripePremiumMonthlyPriceID,
			PremiumYearlyPriceID:  cfg.StripePremiumYearlyPriceID,
		})
		logger.Info("Stripe billing enabled")
	} else {
		logger.Warn("Stripe billing disabled, no STRIPE_SECRET_KEY configured")
	}

	// Initialize services
	userService := service.NewUserService(repo, logger)
	usageService := service.NewUsageService(repo, logger)
	searchService := service.NewSearchService(repo, usageService, provider, logger)

	// Initialize middleware
	isSecure := cfg.IsProduction()
	authMw := middleware.NewAuthMiddleware(userService, logger, isSecure)
	loggingMw := middleware.NewRequestLoggingMiddleware(logger)
	securityMw := middleware.NewSecurityHeadersMiddleware(isSecure)
	metricsAuthMw := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword)
	apiLimiter := middleware.NewRateLimitMiddleware(
		middleware.NewRateLimiter(120, time.Minute), logger)
	authLimiter := middleware.NewAuthRateLimiter(logger)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(userService, logger, isSecure)
	searchHandler := handler.NewSearchHandler(searchService, logger)
	usageHandler := handler.NewUsageHandler(usageService, logger)
	billingHandler := handler.NewBillingHandler(billingService, userService, cfg.BaseURL, logger)
	webhookHandler := handler.NewWebhookHandler(billingService, userService, repo, logger)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus metrics (basic auth when configured)
	mux.Handle("GET /metrics", metricsAuthMw.Handler(promhttp.Handler()))

	// Stripe webhooks (public; verified by signature)
	webhookHandler.RegisterRoutes(mux)

	requireUser := authMw.RequireUser
	authHandler.RegisterRoutes(mux, requireUser, authLimiter.LimitLogin, authLimiter.LimitRegister)
	searchHandler.RegisterRoutes(mux, requireUser)
	usageHandler.RegisterRoutes(mux, requireUser)
	billingHandler.RegisterRoutes(mux, requireUser)

	// Global middleware chain, outermost first
	chain := middleware.Stack(
		securityMw.Handler,
		metrics.Middleware,
		apiLimiter.Limit,
		authMw.WithUser,
		loggingMw.Handler,
	)

	// ==========================================================================
	// Background maintenance
	// ==========================================================================

	maintenanceCtx, stopMaintenance := context.WithCancel(ctx)
	defer stopMaintenance()
	go sessionCleanupLoop(maintenanceCtx, userService, logger)

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: chain(mux),
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env, "provider", cfg.ValuationProvider)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
		}
	}()

	<-sigChan
	logger.Info("Shutdown signal received, initiating graceful shutdown...")

	stopMaintenance()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

// newValuationProvider builds the configured provider, wrapped in a Redis
// read-through cache when REDIS_ADDR is set.
func newValuationProvider(cfg *internal.Config, logger *slog.Logger) (valuation.Provider, error) {
	var provider valuation.Provider

	switch cfg.ValuationProvider {
	case "rentcast":
		p, err := rentcast.New(rentcast.Config{
			APIKey:         cfg.RentCastAPIKey,
			BaseURL:        cfg.RentCastBaseURL,
			RequestTimeout: cfg.ValuationTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		provider = p
	default:
		provider = mock.New(logger)
	}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		provider = valuation.NewCachedProvider(provider, client, cfg.ValuationCacheTTL, logger)
		logger.Info("Valuation cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.ValuationCacheTTL)
	}

	return provider, nil
}

// sessionCleanupLoop purges expired sessions until ctx is canceled.
func sessionCleanupLoop(ctx context.Context, userService service.UserService, logger *slog.Logger) {
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := userService.DeleteExpiredSessions(ctx); err != nil {
				logger.Error("session cleanup failed", "error", err)
			}
		}
	}
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
