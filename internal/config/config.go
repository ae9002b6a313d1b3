// Package config defines the top-level configuration for the prediction
// market service and provides validation helpers.
package config

import (
	"fmt"
	"strings"

	"github.com/alanyoungcy/pythmarket/internal/domain"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by PYTHMARKET_* environment
// variables.
type Config struct {
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Protocol ProtocolConfig `toml:"protocol"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	LogLevel string         `toml:"log_level"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters. When Addr is empty the
// service runs with in-process locking and event fan-out instead.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for settlement
// archives. Archival is disabled when Bucket is empty.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ProtocolConfig holds market-protocol parameters. FeeBps and MinLiquidity
// seed the protocol settings row on first start; ResolverKey and AdminKey
// are the shared secrets for the privileged resolution and admin endpoints.
type ProtocolConfig struct {
	FeeBps       uint64 `toml:"fee_bps"`
	MinLiquidity uint64 `toml:"min_liquidity"`
	ResolverKey  string `toml:"resolver_key"`
	AdminKey     string `toml:"admin_key"`
	LockTTLSecs  int    `toml:"lock_ttl_secs"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`

	// RateLimit caps requests per client per RateWindowSecs. Zero disables
	// rate limiting.
	RateLimit      int `toml:"rate_limit"`
	RateWindowSecs int `toml:"rate_window_secs"`
}

// NotifyConfig holds notification channel credentials and event filters.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "pythmarket",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Region:         "us-east-1",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Protocol: ProtocolConfig{
			FeeBps:       100,       // 1%
			MinLiquidity: 1_000_000, // one collateral token at 6 decimals
			LockTTLSecs:  10,
		},
		Server: ServerConfig{
			Port:           8000,
			CORSOrigins:    []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:      120,
			RateWindowSecs: 60,
		},
		Notify: NotifyConfig{
			Events: []string{"market_created", "market_resolved"},
		},
		LogLevel: "info",
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}

	// Protocol
	if c.Protocol.FeeBps > domain.MaxFeeBps {
		errs = append(errs, fmt.Sprintf("protocol: fee_bps must not exceed %d, got %d", domain.MaxFeeBps, c.Protocol.FeeBps))
	}
	if c.Protocol.MinLiquidity == 0 {
		errs = append(errs, "protocol: min_liquidity must be positive")
	}
	if c.Protocol.ResolverKey == "" {
		errs = append(errs, "protocol: resolver_key must be set")
	}
	if c.Protocol.LockTTLSecs < 1 {
		errs = append(errs, "protocol: lock_ttl_secs must be >= 1")
	}

	// S3 -- credentials must accompany a configured bucket.
	if c.S3.Bucket != "" {
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty when a bucket is configured")
		}
		if c.S3.AccessKey == "" || c.S3.SecretKey == "" {
			errs = append(errs, "s3: access_key and secret_key are required when a bucket is configured")
		}
	}

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}

	// Notify -- Telegram fields must be set together.
	tt := c.Notify.TelegramToken != ""
	tc := c.Notify.TelegramChatID != ""
	if tt != tc {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}
