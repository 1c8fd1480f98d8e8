package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const EnvironmentProduction = "production"

type Config struct {
	// Server
	Port        string
	Environment string
	BaseURL     string
	PortalURL   string

	// Database
	DatabaseURL string

	// Supabase
	SupabaseURL            string
	SupabaseServiceRoleKey string
	SupabaseJWTSecret      string

	// Redis backs resume links when set
	RedisURL string

	// Payments
	MidtransServerKey  string
	MidtransProduction bool
	PaymentPublicKey   string
	FeePerApplicant    decimal.Decimal

	// CAPTCHA
	CaptchaSiteKey   string
	CaptchaSecretKey string
	CaptchaVerifyURL string

	// Job title translation
	TranslateAPIURL string

	PassportNumberMin int
	PassportNumberMax int

	// Logging
	LogLevel  string
	LogFormat string
	LogFile   string

	// HTTP
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
		PortalURL:   getEnv("PORTAL_URL", "http://localhost:3000"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		SupabaseURL:            getEnv("SUPABASE_URL", ""),
		SupabaseServiceRoleKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),
		SupabaseJWTSecret:      getEnv("SUPABASE_JWT_SECRET", ""),

		RedisURL: getEnv("REDIS_URL", ""),

		MidtransServerKey: getEnv("MIDTRANS_SERVER_KEY", ""),
		PaymentPublicKey:  getEnv("PAYMENT_PUBLIC_KEY", ""),

		CaptchaSiteKey:   getEnv("CAPTCHA_SITE_KEY", ""),
		CaptchaSecretKey: getEnv("CAPTCHA_SECRET_KEY", ""),
		CaptchaVerifyURL: getEnv("CAPTCHA_VERIFY_URL", "https://hcaptcha.com/siteverify"),

		TranslateAPIURL: getEnv("TRANSLATE_API_URL", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
		LogFile:   getEnv("LOG_FILE", ""),

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
	}

	var err error
	if cfg.MidtransProduction, err = strconv.ParseBool(getEnv("MIDTRANS_PRODUCTION", "false")); err != nil {
		return nil, fmt.Errorf("invalid MIDTRANS_PRODUCTION: %w", err)
	}
	if cfg.FeePerApplicant, err = decimal.NewFromString(getEnv("ETA_FEE_GBP", "16.00")); err != nil {
		return nil, fmt.Errorf("invalid ETA_FEE_GBP: %w", err)
	}
	if cfg.PassportNumberMin, err = strconv.Atoi(getEnv("PASSPORT_NUMBER_MIN", "6")); err != nil {
		return nil, fmt.Errorf("invalid PASSPORT_NUMBER_MIN: %w", err)
	}
	if cfg.PassportNumberMax, err = strconv.Atoi(getEnv("PASSPORT_NUMBER_MAX", "12")); err != nil {
		return nil, fmt.Errorf("invalid PASSPORT_NUMBER_MAX: %w", err)
	}
	if cfg.RateLimitRPS, err = strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", "5"), 64); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}
	if cfg.RateLimitBurst, err = strconv.Atoi(getEnv("RATE_LIMIT_BURST", "20")); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == EnvironmentProduction
}

// CaptchaEnabled is false only outside production when no key is configured.
func (c *Config) CaptchaEnabled() bool {
	return c.CaptchaSecretKey != "" || c.IsProduction()
}

func (c *Config) Validate() error {
	if c.SupabaseJWTSecret == "" {
		return fmt.Errorf("SUPABASE_JWT_SECRET is required")
	}
	if c.PassportNumberMin < 1 || c.PassportNumberMax < c.PassportNumberMin {
		return fmt.Errorf("PASSPORT_NUMBER_MIN/MAX must satisfy 1 <= min <= max")
	}
	if !c.FeePerApplicant.IsPositive() {
		return fmt.Errorf("ETA_FEE_GBP must be positive")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}

	if c.IsProduction() {
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required in production")
		}
		if c.SupabaseURL == "" || c.SupabaseServiceRoleKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY are required in production")
		}
		if c.MidtransServerKey == "" {
			return fmt.Errorf("MIDTRANS_SERVER_KEY is required in production")
		}
		if c.CaptchaSecretKey == "" || c.CaptchaSiteKey == "" {
			return fmt.Errorf("CAPTCHA_SITE_KEY and CAPTCHA_SECRET_KEY are required in production")
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
