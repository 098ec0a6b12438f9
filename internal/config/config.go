// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	Shopify     ShopifyConfig
	Sync        SyncConfig
	Commission  CommissionConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	AppURL       string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
}

type JWTConfig struct {
	SecretKey      string
	AccessTokenTTL int // in hours
}

type ShopifyConfig struct {
	ShopName      string
	APIKey        string
	Password      string
	APIVersion    string
	WebhookSecret string
	ShopURL       string
}

type SyncConfig struct {
	BatchSize            int
	SkipInvalidItems     bool
	ScheduleEnabled      bool
	ProductIntervalHours int
	OrderIntervalHours   int
	OrderLookbackDays    int
}

type CommissionConfig struct {
	DefaultRate    float64
	BronzeRate     float64
	SilverRate     float64
	GoldRate       float64
	SecondaryShare float64
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "localhost"),
			AppURL:       getEnv("APP_URL", "http://localhost:8080"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:  getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "affigraph"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "silent"),
		},
		JWT: JWTConfig{
			SecretKey:      getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			AccessTokenTTL: getEnvAsInt("JWT_ACCESS_TTL", 168), // 7 days
		},
		Shopify: ShopifyConfig{
			ShopName:      getEnv("SHOPIFY_SHOP_NAME", ""),
			APIKey:        getEnv("SHOPIFY_API_KEY", ""),
			Password:      getEnv("SHOPIFY_API_PASSWORD", ""),
			APIVersion:    getEnv("SHOPIFY_API_VERSION", "2023-07"),
			WebhookSecret: getEnv("SHOPIFY_WEBHOOK_SECRET", ""),
			ShopURL:       getEnv("SHOPIFY_SHOP_URL", "https://your-store.myshopify.com"),
		},
		Sync: SyncConfig{
			BatchSize:            getEnvAsInt("SYNC_BATCH_SIZE", 50),
			SkipInvalidItems:     getEnvAsBool("SYNC_SKIP_INVALID_ITEMS", false),
			ScheduleEnabled:      getEnvAsBool("SYNC_SCHEDULE_ENABLED", false),
			ProductIntervalHours: getEnvAsInt("SYNC_PRODUCT_INTERVAL_HOURS", 24),
			OrderIntervalHours:   getEnvAsInt("SYNC_ORDER_INTERVAL_HOURS", 2),
			OrderLookbackDays:    getEnvAsInt("SYNC_ORDER_LOOKBACK_DAYS", 3),
		},
		Commission: CommissionConfig{
			DefaultRate:    getEnvAsFloat("COMMISSION_DEFAULT_RATE", 0.02),
			BronzeRate:     getEnvAsFloat("COMMISSION_BRONZE_RATE", 0.05),
			SilverRate:     getEnvAsFloat("COMMISSION_SILVER_RATE", 0.10),
			GoldRate:       getEnvAsFloat("COMMISSION_GOLD_RATE", 0.15),
			SecondaryShare: getEnvAsFloat("COMMISSION_SECONDARY_SHARE", 0.10),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.JWT.SecretKey == "your-secret-key-change-in-production" && c.Environment == "production" {
		return fmt.Errorf("JWT secret key must be changed in production")
	}

	if c.Database.Password == "" && c.Environment == "production" {
		return fmt.Errorf("database password is required in production")
	}

	if c.Shopify.WebhookSecret == "" && c.Environment == "production" {
		return fmt.Errorf("Shopify webhook secret is required in production")
	}

	if c.Sync.BatchSize <= 0 {
		return fmt.Errorf("sync batch size must be positive")
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
