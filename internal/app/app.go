// Package app provides the top-level application lifecycle management for the
// prediction market server. It wires together all dependencies (stores,
// caches, the token ledger, blob storage, services, and notifications) and
// runs the HTTP/WebSocket server until the context is cancelled.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/pythmarket/internal/config"
	"github.com/alanyoungcy/pythmarket/internal/server"
	"github.com/alanyoungcy/pythmarket/internal/server/handler"
	"github.com/alanyoungcy/pythmarket/internal/server/ws"
	"github.com/alanyoungcy/pythmarket/internal/service"
)

// App is the root application object. It owns the configuration, logger, and a
// list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, starts the server
// and WebSocket hub, and blocks until the context is cancelled or a component
// fails. Callers should invoke Close afterwards.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	ttl := lockTTL(a.cfg)
	auth := service.NewKeyAuth(a.cfg.Protocol.ResolverKey, a.cfg.Protocol.AdminKey)
	clock := service.SystemClock{}

	marketSvc := service.NewMarketService(
		deps.MarketStore, deps.ProtocolStore, deps.Ledger, deps.QuoteCache,
		deps.SignalBus, deps.AuditStore, clock, a.logger,
	)
	tradeSvc := service.NewTradeService(
		deps.MarketStore, deps.TradeStore, deps.ProtocolStore, deps.Ledger,
		deps.LockManager, deps.QuoteCache, deps.SignalBus, clock, ttl, a.logger,
	)

	// Interface conversion keeps a typed-nil pointer from looking wired.
	var archiver service.Archiver
	if deps.Archiver != nil {
		archiver = deps.Archiver
	}
	var notifier service.Notifier
	if deps.Notifier != nil {
		notifier = deps.Notifier
	}

	settlementSvc := service.NewSettlementService(
		deps.MarketStore, deps.TradeStore, deps.RedemptionStore, deps.Ledger,
		deps.LockManager, deps.SignalBus, deps.AuditStore, auth, clock, ttl,
		notifier, archiver, a.logger,
	)
	protocolSvc := service.NewProtocolService(deps.ProtocolStore, deps.Ledger, auth, deps.AuditStore, a.logger)

	hub := ws.NewHub(deps.SignalBus, a.logger)

	srv := server.NewServer(
		server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
			APIKey:      a.cfg.Server.APIKey,
			RateLimit:   a.cfg.Server.RateLimit,
			RateWindow:  time.Duration(a.cfg.Server.RateWindowSecs) * time.Second,
		},
		server.Handlers{
			Health:      handler.NewHealthHandler(a.logger),
			Markets:     handler.NewMarketHandler(marketSvc, a.logger),
			Trades:      handler.NewTradeHandler(tradeSvc, a.logger),
			Settlements: handler.NewSettlementHandler(settlementSvc, a.logger),
			Admin:       handler.NewAdminHandler(protocolSvc, a.logger),
		},
		hub,
		deps.RateLimiter,
		a.logger,
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := hub.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(srv.Start)

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	return g.Wait()
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
