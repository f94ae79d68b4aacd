package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"distribution-ledger/internal/core"
)

// Config holds runtime configuration, loaded from the environment with an
// optional .env overlay for local development.
type Config struct {
	DatabaseURL string

	// CashDiscountPercent is the default cash discount applied when a
	// document enables cash discount without its own rate.
	CashDiscountPercent decimal.Decimal
	// PaymentTermDays sets the due date of a credit invoice when no
	// explicit due date is supplied.
	PaymentTermDays int

	LogLevel  string
	LogFormat string // "console" or "json"
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in when present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		CashDiscountPercent: decimal.Zero,
		PaymentTermDays:     30,
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "console"),
	}

	if v := os.Getenv("CASH_DISCOUNT_PERCENT"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("invalid CASH_DISCOUNT_PERCENT %q: %w", v, err)
		}
		if d.IsNegative() {
			return nil, fmt.Errorf("CASH_DISCOUNT_PERCENT cannot be negative")
		}
		cfg.CashDiscountPercent = d
	}

	if v := os.Getenv("PAYMENT_TERM_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid PAYMENT_TERM_DAYS %q", v)
		}
		cfg.PaymentTermDays = n
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}
	return cfg, nil
}

// Settings returns the pricing defaults as a core settings source.
func (c *Config) Settings() core.StaticSettings {
	return core.StaticSettings{
		CashDiscountPercent: c.CashDiscountPercent,
		PaymentTermDays:     c.PaymentTermDays,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
