package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/pythmarket/internal/domain"
	"github.com/alanyoungcy/pythmarket/internal/server/handler"
	"github.com/alanyoungcy/pythmarket/internal/server/middleware"
	"github.com/alanyoungcy/pythmarket/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled

	// RateLimit caps requests per client within RateWindow. Zero disables
	// rate limiting even when a limiter is supplied.
	RateLimit  int
	RateWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health      *handler.HealthHandler
	Markets     *handler.MarketHandler
	Trades      *handler.TradeHandler
	Settlements *handler.SettlementHandler
	Admin       *handler.AdminHandler
}

// Server is the HTTP + WebSocket API server for the prediction market.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth, rate limiting) and attaches
// the WebSocket hub. The limiter may be nil, which disables rate limiting.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// --- Register routes ---

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Market endpoints.
	mux.HandleFunc("POST /api/markets", handlers.Markets.CreateMarket)
	mux.HandleFunc("GET /api/markets", handlers.Markets.ListMarkets)
	mux.HandleFunc("GET /api/markets/{id}", handlers.Markets.GetMarket)
	mux.HandleFunc("GET /api/markets/{id}/prices", handlers.Markets.GetPrices)

	// Trade endpoints.
	mux.HandleFunc("POST /api/markets/{id}/buy", handlers.Trades.Buy)
	mux.HandleFunc("POST /api/markets/{id}/sell", handlers.Trades.Sell)
	mux.HandleFunc("GET /api/markets/{id}/trades", handlers.Trades.ListTrades)

	// Settlement endpoints.
	mux.HandleFunc("POST /api/markets/{id}/resolve", handlers.Settlements.Resolve)
	mux.HandleFunc("POST /api/markets/{id}/cancel", handlers.Settlements.Cancel)
	mux.HandleFunc("POST /api/markets/{id}/redeem", handlers.Settlements.Redeem)
	mux.HandleFunc("GET /api/markets/{id}/redemptions", handlers.Settlements.ListRedemptions)

	// Protocol admin endpoints.
	mux.HandleFunc("GET /api/protocol", handlers.Admin.GetProtocol)
	mux.HandleFunc("POST /api/protocol/pause", handlers.Admin.SetPaused)
	mux.HandleFunc("POST /api/protocol/fee", handlers.Admin.SetFee)
	mux.HandleFunc("POST /api/protocol/deposit", handlers.Admin.Deposit)
	mux.HandleFunc("GET /api/accounts/{holder}/balance", handlers.Admin.GetBalance)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux

	// Apply auth middleware (skips if APIKey is empty).
	h = middleware.Auth(cfg.APIKey)(h)

	// Apply rate limiting per client.
	if limiter != nil && cfg.RateLimit > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateWindow)(h)
	}

	// Apply request logging middleware.
	h = middleware.Logging(logger)(h)

	// Apply CORS middleware.
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
