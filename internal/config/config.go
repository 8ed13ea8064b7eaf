package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Shopify app credentials
	ShopifyAPIKey     string
	ShopifyAPISecret  string
	ShopifyAPIVersion string

	// App
	AppURL         string
	PlanName       string
	PlanPrice      float64
	PlanCurrency   string
	TrialDays      int
	BillingTest    bool
	ShopifyTimeout time.Duration

	// Retention
	AuditRetentionDays int
	LogRetentionDays   int

	// Server
	Port        string
	CORSOrigins string
}

func Load() *Config {
	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "consentpop"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		ShopifyAPIKey:     getEnv("SHOPIFY_API_KEY", ""),
		ShopifyAPISecret:  getEnv("SHOPIFY_API_SECRET", ""),
		ShopifyAPIVersion: getEnv("SHOPIFY_API_VERSION", "2024-07"),

		AppURL:         getEnv("APP_URL", "http://localhost:8080"),
		PlanName:       getEnv("PLAN_NAME", "Pro"),
		PlanPrice:      parseFloat(getEnv("PLAN_PRICE", "4.99"), 4.99),
		PlanCurrency:   getEnv("PLAN_CURRENCY", "USD"),
		TrialDays:      parseInt(getEnv("PLAN_TRIAL_DAYS", "7"), 7),
		BillingTest:    getEnv("BILLING_TEST", "false") == "true",
		ShopifyTimeout: parseDuration(getEnv("SHOPIFY_TIMEOUT", "30s")),

		AuditRetentionDays: parseInt(getEnv("AUDIT_RETENTION_DAYS", "90"), 90),
		LogRetentionDays:   parseInt(getEnv("LOG_RETENTION_DAYS", "30"), 30),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// Malformed numeric values fall back to the documented default. Zero is not
// a safe fallback for retention windows: it would turn the daily cleanup
// into a full wipe.
func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(s string, fallback float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fallback
	}
	return f
}
