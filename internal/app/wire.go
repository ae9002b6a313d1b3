package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/alanyoungcy/pythmarket/internal/blob/s3"
	"github.com/alanyoungcy/pythmarket/internal/cache/memory"
	"github.com/alanyoungcy/pythmarket/internal/cache/redis"
	"github.com/alanyoungcy/pythmarket/internal/config"
	"github.com/alanyoungcy/pythmarket/internal/domain"
	"github.com/alanyoungcy/pythmarket/internal/notify"
	"github.com/alanyoungcy/pythmarket/internal/store/postgres"
	"github.com/alanyoungcy/pythmarket/internal/token"
)

// Dependencies bundles every domain-level dependency the application needs.
// It is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Stores
	MarketStore     domain.MarketStore
	TradeStore      domain.TradeStore
	RedemptionStore domain.RedemptionStore
	ProtocolStore   domain.ProtocolStore
	AuditStore      domain.AuditStore

	// Collateral and outcome token accounting.
	Ledger domain.TokenLedger

	// Caches and coordination. Backed by Redis when configured, in-process
	// otherwise.
	QuoteCache  domain.QuoteCache
	LockManager domain.LockManager
	SignalBus   domain.SignalBus
	RateLimiter domain.RateLimiter

	// Blob storage for settlement archives. Nil when no bucket is configured.
	Archiver *s3blob.Archiver

	// Notifications
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.MarketStore = postgres.NewMarketStore(pool)
	deps.TradeStore = postgres.NewTradeStore(pool)
	deps.RedemptionStore = postgres.NewRedemptionStore(pool)
	deps.AuditStore = postgres.NewAuditStore(pool)

	// Seed the protocol settings row on first start. Existing settings win
	// over config so runtime fee changes survive restarts.
	protocolStore := postgres.NewProtocolStore(pool)
	if _, err := protocolStore.Init(ctx, domain.Protocol{
		FeeBps:       cfg.Protocol.FeeBps,
		MinLiquidity: cfg.Protocol.MinLiquidity,
	}); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: protocol init: %w", err)
	}
	deps.ProtocolStore = protocolStore

	deps.Ledger = token.NewLedger()

	// --- Redis, with in-process fallback ---
	if cfg.Redis.Addr != "" {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.QuoteCache = redis.NewQuoteCache(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
	} else {
		logger.InfoContext(ctx, "wire: redis not configured, using in-process cache")
		deps.QuoteCache = memory.NewQuoteCache()
		deps.LockManager = memory.NewLockManager()
		deps.SignalBus = memory.NewSignalBus()
	}

	// --- S3 settlement archives (optional) ---
	if cfg.S3.Bucket != "" {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client))
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}

// lockTTL converts the configured lock TTL to a duration, falling back to a
// sane default when unset.
func lockTTL(cfg *config.Config) time.Duration {
	if cfg.Protocol.LockTTLSecs <= 0 {
		return 10 * time.Second
	}
	return time.Duration(cfg.Protocol.LockTTLSecs) * time.Second
}
