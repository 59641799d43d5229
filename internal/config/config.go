// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the gateway server and the CLI client.
type Config struct {
	// Server Configuration
	GinMode       string        `mapstructure:"GIN_MODE"`
	ServerHost    string        `mapstructure:"SERVER_HOST"`
	ServerPort    string        `mapstructure:"SERVER_PORT"`
	ServerTimeout time.Duration `mapstructure:"SERVER_TIMEOUT_SECONDS"`

	// Database Configuration
	DBDriver          string        `mapstructure:"DB_DRIVER"` // postgres or sqlite
	DBHost            string        `mapstructure:"DB_HOST"`
	DBPort            string        `mapstructure:"DB_PORT"`
	DBUser            string        `mapstructure:"DB_USER"`
	DBPassword        string        `mapstructure:"DB_PASSWORD"`
	DBName            string        `mapstructure:"DB_NAME"`
	DBSSLMode         string        `mapstructure:"DB_SSL_MODE"`
	DBTimezone        string        `mapstructure:"DB_TIMEZONE"`
	DBMaxIdleConns    int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBMaxOpenConns    int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBConnMaxLifetime time.Duration `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`
	DBSQLitePath      string        `mapstructure:"DB_SQLITE_PATH"`

	// Logging Configuration
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// Marketplace backend
	APIBaseURL        string        `mapstructure:"API_BASE_URL"`
	APITimeout        time.Duration `mapstructure:"API_TIMEOUT_SECONDS"`
	TokenCacheTTL     time.Duration `mapstructure:"TOKEN_CACHE_TTL_SECONDS"`
	BitcoinNetwork    string        `mapstructure:"BITCOIN_NETWORK"`
	WalletBridgeURL   string        `mapstructure:"WALLET_BRIDGE_URL"`
	WalletBridgeToken string        `mapstructure:"WALLET_BRIDGE_TOKEN"`
	SessionFile       string        `mapstructure:"SESSION_FILE"`

	// Ordiscan inscription provider
	OrdiscanBaseURL  string        `mapstructure:"ORDISCAN_BASE_URL"`
	OrdiscanAPIKey   string        `mapstructure:"ORDISCAN_API_KEY"`
	OrdiscanCacheTTL time.Duration `mapstructure:"ORDISCAN_CACHE_TTL_SECONDS"`

	// Gateway listings; GatewayURL is where the CLI reaches this server
	MaxAuctionDurationHours int    `mapstructure:"MAX_AUCTION_DURATION_HOURS"`
	GatewayURL              string `mapstructure:"GATEWAY_URL"`

	// Cron Jobs
	AuctionExpiryJobSchedule string `mapstructure:"AUCTION_EXPIRY_JOB_SCHEDULE"`
	BackendHealthJobSchedule string `mapstructure:"BACKEND_HEALTH_JOB_SCHEDULE"`

	// Elasticsearch Configuration, empty disables search indexing
	ElasticsearchURL string `mapstructure:"ELASTICSEARCH_URL"`
}

// Load attempts to load configuration from a .env file (if present) and environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling configuration: %w", err)
	}

	// Convert duration fields
	cfg.ServerTimeout = time.Duration(v.GetInt("SERVER_TIMEOUT_SECONDS")) * time.Second
	cfg.DBConnMaxLifetime = time.Duration(v.GetInt("DB_CONN_MAX_LIFETIME_MINUTES")) * time.Minute
	cfg.APITimeout = time.Duration(v.GetInt("API_TIMEOUT_SECONDS")) * time.Second
	cfg.TokenCacheTTL = time.Duration(v.GetInt("TOKEN_CACHE_TTL_SECONDS")) * time.Second
	cfg.OrdiscanCacheTTL = time.Duration(v.GetInt("ORDISCAN_CACHE_TTL_SECONDS")) * time.Second

	// NEXT_PUBLIC_API_URL is honoured for deployments sharing the web client's env file.
	if nextURL := strings.TrimSpace(os.Getenv("NEXT_PUBLIC_API_URL")); nextURL != "" && os.Getenv("API_BASE_URL") == "" {
		cfg.APIBaseURL = nextURL
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	cfg.GatewayURL = strings.TrimRight(cfg.GatewayURL, "/")

	if cfg.SessionFile == "" {
		cfg.SessionFile = defaultSessionFile()
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", "3000")
	v.SetDefault("SERVER_TIMEOUT_SECONDS", 30)

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "satonic")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_TIMEZONE", "UTC")
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_MAX_OPEN_CONNS", 100)
	v.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 60)
	v.SetDefault("DB_SQLITE_PATH", "satonic.db")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("API_BASE_URL", "http://localhost:8080/api")
	v.SetDefault("API_TIMEOUT_SECONDS", 15)
	v.SetDefault("TOKEN_CACHE_TTL_SECONDS", 60)
	v.SetDefault("BITCOIN_NETWORK", "testnet")
	v.SetDefault("WALLET_BRIDGE_URL", "")
	v.SetDefault("WALLET_BRIDGE_TOKEN", "")
	v.SetDefault("SESSION_FILE", "")

	v.SetDefault("ORDISCAN_BASE_URL", "https://api.ordiscan.com")
	v.SetDefault("ORDISCAN_API_KEY", "")
	v.SetDefault("ORDISCAN_CACHE_TTL_SECONDS", 60)

	v.SetDefault("MAX_AUCTION_DURATION_HOURS", 168)
	v.SetDefault("GATEWAY_URL", "http://localhost:3000/api")

	v.SetDefault("AUCTION_EXPIRY_JOB_SCHEDULE", "@every 5m")
	v.SetDefault("BACKEND_HEALTH_JOB_SCHEDULE", "@every 30s")

	v.SetDefault("ELASTICSEARCH_URL", "")
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (expected postgres or sqlite)", c.DBDriver)
	}
	switch c.BitcoinNetwork {
	case "mainnet", "testnet", "testnet4":
	default:
		return fmt.Errorf("unsupported BITCOIN_NETWORK %q (expected mainnet, testnet or testnet4)", c.BitcoinNetwork)
	}
	if c.MaxAuctionDurationHours <= 0 {
		return fmt.Errorf("MAX_AUCTION_DURATION_HOURS must be positive")
	}
	return nil
}

// PostgresDSN builds the GORM DSN from the individual DB_* parameters.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode, c.DBTimezone)
}

func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".satonic-session.json"
	}
	return filepath.Join(home, ".satonic", "session.json")
}
