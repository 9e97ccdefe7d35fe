package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Database
	DatabaseURL string

	// Server
	Port        string
	CORSOrigins []string
	Env         string

	// CronToken authorizes the batch obligation endpoint. Empty
	// disables cron processing over HTTP.
	CronToken string

	// Obligations
	ObligationInterval time.Duration

	// Notifications
	LookaheadDays int

	// OverpaymentPolicy is "reject" or "clamp"
	OverpaymentPolicy string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		Port:               getEnv("PORT", "8080"),
		CORSOrigins:        strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),
		Env:                getEnv("ENV", "development"),
		CronToken:          getEnv("CRON_TOKEN", ""),
		ObligationInterval: getDurationEnv("OBLIGATION_INTERVAL", time.Hour),
		LookaheadDays:      getIntEnv("LOOKAHEAD_DAYS", 7),
		OverpaymentPolicy:  getEnv("OVERPAYMENT_POLICY", "reject"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.OverpaymentPolicy != "reject" && c.OverpaymentPolicy != "clamp" {
		return fmt.Errorf("OVERPAYMENT_POLICY must be 'reject' or 'clamp', got %q", c.OverpaymentPolicy)
	}
	if c.LookaheadDays <= 0 {
		return fmt.Errorf("LOOKAHEAD_DAYS must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
