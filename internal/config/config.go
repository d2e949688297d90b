package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the whole client configuration.
// Populated from environment variables (a .env file is loaded by cmd/storefront).
type Config struct {
	App      AppConfig
	API      APIConfig
	Storage  StorageConfig
	Redis    RedisConfig
	Checkout CheckoutConfig
	Payment  PaymentConfig
}

type AppConfig struct {
	Name        string
	Environment string // development, staging, production
	LogLevel    string
	Version     string
}

// APIConfig describes the remote storefront REST API.
type APIConfig struct {
	BaseURL     string
	Timeout     time.Duration // 0 = no client-side timeout
	GuestHeader string
	RefreshPath string
}

const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

type StorageConfig struct {
	Driver     string // memory, redis
	CartTTL    time.Duration
	SessionTTL time.Duration
	KeyPrefix  string
}

type RedisConfig struct {
	Host     string
	Password string
	DB       int
}

type CheckoutConfig struct {
	CODRedirectDelay time.Duration // countdown on the cash-on-delivery confirmation screen
}

type PaymentConfig struct {
	AutoRedirect         bool
	SuccessRedirectDelay time.Duration
}

// Load reads config from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Storefront"),
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
		API: APIConfig{
			BaseURL:     strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:8000/api"), "/"),
			Timeout:     time.Duration(getEnvInt("API_TIMEOUT_SECONDS", 0)) * time.Second,
			GuestHeader: getEnv("API_GUEST_HEADER", "X-Guest-Id"),
			RefreshPath: getEnv("API_REFRESH_PATH", "/auth/token/refresh/"),
		},
		Storage: StorageConfig{
			Driver:     getEnv("STORAGE_DRIVER", StorageMemory),
			CartTTL:    time.Duration(getEnvInt("CART_SNAPSHOT_TTL_HOURS", 24*30)) * time.Hour,
			SessionTTL: time.Duration(getEnvInt("SESSION_TTL_HOURS", 24*30)) * time.Hour,
			KeyPrefix:  getEnv("STORAGE_KEY_PREFIX", "storefront:"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Checkout: CheckoutConfig{
			CODRedirectDelay: time.Duration(getEnvInt("CHECKOUT_COD_REDIRECT_SECONDS", 5)) * time.Second,
		},
		Payment: PaymentConfig{
			AutoRedirect:         getEnvBool("PAYMENT_AUTO_REDIRECT", true),
			SuccessRedirectDelay: time.Duration(getEnvInt("PAYMENT_SUCCESS_REDIRECT_SECONDS", 3)) * time.Second,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks the config is usable
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API_BASE_URL must be an absolute URL, got %q", c.API.BaseURL)
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("API_TIMEOUT_SECONDS must be >= 0")
	}
	if c.API.GuestHeader == "" {
		return fmt.Errorf("API_GUEST_HEADER must not be empty")
	}

	switch c.Storage.Driver {
	case StorageMemory, StorageRedis:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q (memory, redis)", c.Storage.Driver)
	}

	if c.Checkout.CODRedirectDelay < 0 || c.Payment.SuccessRedirectDelay < 0 {
		return fmt.Errorf("redirect delays must be >= 0")
	}

	if c.App.Environment == "production" && u.Scheme != "https" {
		return fmt.Errorf("API_BASE_URL must use https in production")
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
