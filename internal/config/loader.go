package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies PYTHMARKET_* environment variable overrides,
// and returns the final Config. The returned Config has NOT been validated;
// the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known PYTHMARKET_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "PYTHMARKET_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "PYTHMARKET_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "PYTHMARKET_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "PYTHMARKET_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "PYTHMARKET_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "PYTHMARKET_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "PYTHMARKET_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "PYTHMARKET_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "PYTHMARKET_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "PYTHMARKET_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "PYTHMARKET_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "PYTHMARKET_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "PYTHMARKET_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "PYTHMARKET_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "PYTHMARKET_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "PYTHMARKET_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "PYTHMARKET_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "PYTHMARKET_S3_REGION")
	setStr(&cfg.S3.Bucket, "PYTHMARKET_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "PYTHMARKET_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "PYTHMARKET_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "PYTHMARKET_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "PYTHMARKET_S3_FORCE_PATH_STYLE")

	// ── Protocol ──
	setUint64(&cfg.Protocol.FeeBps, "PYTHMARKET_PROTOCOL_FEE_BPS")
	setUint64(&cfg.Protocol.MinLiquidity, "PYTHMARKET_PROTOCOL_MIN_LIQUIDITY")
	setStr(&cfg.Protocol.ResolverKey, "PYTHMARKET_PROTOCOL_RESOLVER_KEY")
	setStr(&cfg.Protocol.AdminKey, "PYTHMARKET_PROTOCOL_ADMIN_KEY")
	setInt(&cfg.Protocol.LockTTLSecs, "PYTHMARKET_PROTOCOL_LOCK_TTL_SECS")

	// ── Server ──
	setInt(&cfg.Server.Port, "PYTHMARKET_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "PYTHMARKET_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "PYTHMARKET_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "PYTHMARKET_SERVER_RATE_LIMIT")
	setInt(&cfg.Server.RateWindowSecs, "PYTHMARKET_SERVER_RATE_WINDOW_SECS")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "PYTHMARKET_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "PYTHMARKET_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "PYTHMARKET_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "PYTHMARKET_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "PYTHMARKET_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
