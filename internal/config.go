package internal

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env         string
	Port        int
	LogLevel    string
	DatabaseUrl string

	// Application base URL (for Stripe redirect links)
	BaseURL string

	// Valuation Provider Configuration
	ValuationProvider string // "rentcast" or "mock"
	RentCastAPIKey    string
	RentCastBaseURL   string
	ValuationTimeout  time.Duration

	// Valuation cache (optional; disabled when RedisAddr is empty)
	RedisAddr         string
	RedisPassword     string
	ValuationCacheTTL time.Duration

	// Stripe Billing Configuration
	// These are required when billing is enabled in production.
	// In development, billing endpoints respond 402 if these are empty.
	StripeSecretKey     string // Stripe API secret key (sk_test_... or sk_live_...)
	StripeWebhookSecret string // Stripe webhook signing secret (whsec_...)

	// Stripe price IDs for the paid subscription plans
	StripeProMonthlyPriceID     string
	StripeProYearlyPriceID      string
	StripePremiumMonthlyPriceID string
	StripePremiumYearlyPriceID  string

	// Metrics endpoint authentication
	// If both are empty, the /metrics endpoint will be unprotected (not recommended)
	MetricsUsername string
	MetricsPassword string
}

func NewConfig() (*Config, error) {
	// Load .env file if it exists (ignored in production)
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		// Base URL defaults to localhost for development
		BaseURL: getEnv("BASE_URL", "http://localhost:8080"),

		// Valuation provider defaults
		ValuationProvider: getEnv("VALUATION_PROVIDER", "mock"),
		RentCastAPIKey:    getEnv("RENTCAST_API_KEY", ""),
		RentCastBaseURL:   getEnv("RENTCAST_BASE_URL", "https://api.rentcast.io/v1"),
		ValuationTimeout:  getEnvDuration("VALUATION_TIMEOUT", 30*time.Second),

		// Cache defaults (off unless REDIS_ADDR is set)
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		ValuationCacheTTL: getEnvDuration("VALUATION_CACHE_TTL", 24*time.Hour),

		// Stripe billing (optional in development)
		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),

		// Stripe price IDs (required when billing is enabled)
		StripeProMonthlyPriceID:     getEnv("STRIPE_PRO_MONTHLY_PRICE_ID", ""),
		StripeProYearlyPriceID:      getEnv("STRIPE_PRO_YEARLY_PRICE_ID", ""),
		StripePremiumMonthlyPriceID: getEnv("STRIPE_PREMIUM_MONTHLY_PRICE_ID", ""),
		StripePremiumYearlyPriceID:  getEnv("STRIPE_PREMIUM_YEARLY_PRICE_ID", ""),

		// Metrics authentication
		MetricsUsername: getEnv("METRICS_USERNAME", ""),
		MetricsPassword: getEnv("METRICS_PASSWORD", ""),
	}

	// Required
	cfg.DatabaseUrl = os.Getenv("DATABASE_URL")
	if cfg.DatabaseUrl == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	// Validate valuation provider configuration
	if cfg.ValuationProvider == "rentcast" {
		if cfg.RentCastAPIKey == "" {
			return nil, fmt.Errorf("RENTCAST_API_KEY is required when VALUATION_PROVIDER is 'rentcast'")
		}
	} else if cfg.ValuationProvider != "mock" {
		return nil, fmt.Errorf("VALUATION_PROVIDER must be either 'rentcast' or 'mock', got: %s", cfg.ValuationProvider)
	}

	return cfg, nil
}

// IsProduction reports whether the server runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
