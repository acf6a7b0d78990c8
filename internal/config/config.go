package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "chargehub/libs/config"
)

// HTTPConfig holds listener settings.
type HTTPConfig struct {
	Port string `yaml:"port" env:"ENGINE_HTTP_PORT"`
}

// DatabaseConfig holds Postgres settings.
type DatabaseConfig struct {
	DSN string `yaml:"dsn" env:"ENGINE_POSTGRES_DSN"`
}

// AuthConfig holds JWT verification settings.
type AuthConfig struct {
	JWTSecret string `yaml:"jwtSecret" env:"ENGINE_JWT_SECRET"`
}

// CacheConfig bounds the charge-level cache.
type CacheConfig struct {
	TTLMinutes int `yaml:"ttlMinutes" env:"ENGINE_CACHE_TTL_MINUTES"`
	MaxEntries int `yaml:"maxEntries" env:"ENGINE_CACHE_MAX_ENTRIES"`
}

// BillingConfig holds pricing defaults.
type BillingConfig struct {
	Currency string `yaml:"currency" env:"ENGINE_BILLING_CURRENCY"`
}

// NotificationsConfig points at the notification collaborator.
type NotificationsConfig struct {
	BaseURL   string `yaml:"baseUrl" env:"ENGINE_NOTIFICATIONS_URL"`
	Workers   int    `yaml:"workers" env:"ENGINE_NOTIFICATIONS_WORKERS"`
	QueueSize int    `yaml:"queueSize" env:"ENGINE_NOTIFICATIONS_QUEUE"`
}

// InvoicingConfig points at the invoicing collaborator.
type InvoicingConfig struct {
	BaseURL string `yaml:"baseUrl" env:"ENGINE_INVOICING_URL"`
}

// Config defines charging-engine configuration.
type Config struct {
	HTTP          HTTPConfig          `yaml:"http"`
	Database      DatabaseConfig      `yaml:"database"`
	Auth          AuthConfig          `yaml:"auth"`
	Cache         CacheConfig         `yaml:"cache"`
	Billing       BillingConfig       `yaml:"billing"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Invoicing     InvoicingConfig     `yaml:"invoicing"`
}

// Load reads configuration via shared helper.
func Load() (*Config, error) {
	cfg := &Config{
		HTTP:    HTTPConfig{Port: "8083"},
		Cache:   CacheConfig{TTLMinutes: 360, MaxEntries: 10000},
		Billing: BillingConfig{Currency: "EUR"},
		Notifications: NotificationsConfig{
			BaseURL:   "http://localhost:8085",
			Workers:   2,
			QueueSize: 64,
		},
		Invoicing: InvoicingConfig{BaseURL: "http://localhost:8084"},
	}

	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return nil, errors.New("config: database dsn required")
	}
	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		return nil, errors.New("config: jwt secret required")
	}
	return cfg, nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8083"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// CacheTTL returns the charge-level retention window as duration.
func (c *Config) CacheTTL() time.Duration {
	if c.Cache.TTLMinutes <= 0 {
		return 6 * time.Hour
	}
	return time.Duration(c.Cache.TTLMinutes) * time.Minute
}
