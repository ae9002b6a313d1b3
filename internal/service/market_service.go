// Package service orchestrates market operations: it serializes access per
// market, runs the pure pricing engine against a copy of the loaded state,
// applies ledger movements, and only then persists and publishes.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/pythmarket/internal/amm"
	"github.com/alanyoungcy/pythmarket/internal/domain"
	"github.com/alanyoungcy/pythmarket/internal/engine"
)

func marketLockKey(id uint64) string {
	return fmt.Sprintf("market:%d", id)
}

// MarketService handles market creation and read access.
type MarketService struct {
	markets  domain.MarketStore
	protocol domain.ProtocolStore
	ledger   domain.TokenLedger
	quotes   domain.QuoteCache
	bus      domain.SignalBus
	audit    domain.AuditStore
	clock    domain.Clock
	logger   *slog.Logger
}

// NewMarketService creates a MarketService with all required dependencies.
func NewMarketService(
	markets domain.MarketStore,
	protocol domain.ProtocolStore,
	ledger domain.TokenLedger,
	quotes domain.QuoteCache,
	bus domain.SignalBus,
	audit domain.AuditStore,
	clock domain.Clock,
	logger *slog.Logger,
) *MarketService {
	return &MarketService{
		markets:  markets,
		protocol: protocol,
		ledger:   ledger,
		quotes:   quotes,
		bus:      bus,
		audit:    audit,
		clock:    clock,
		logger:   logger,
	}
}

// Create validates, persists and funds a new market. The creator's collateral
// moves into the market vault; if that transfer fails the market row is
// removed again so a market never exists without its backing reserves.
func (s *MarketService) Create(ctx context.Context, creator, question string, endTime time.Time, initialLiquidity uint64) (domain.Market, error) {
	now := s.clock.Now()

	p, err := s.protocol.Get(ctx)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: load protocol: %w", err)
	}
	if err := engine.ValidateCreation(p, question, endTime, initialLiquidity, now); err != nil {
		return domain.Market{}, err
	}

	reserves, supplyEach := engine.Seed(initialLiquidity)
	m := domain.Market{
		Question:  question,
		Creator:   creator,
		EndTime:   endTime,
		Reserves:  reserves,
		YesSupply: supplyEach,
		NoSupply:  supplyEach,
		Status:    domain.MarketStatusActive,
		Outcome:   domain.OutcomeUndetermined,
		CreatedAt: now,
		UpdatedAt: now,
	}

	id, err := s.markets.Create(ctx, m)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: create market: %w", err)
	}
	m.ID = id

	// Fund the vault. On failure, undo the insert: the two steps together
	// are all-or-nothing from the caller's point of view.
	if err := s.ledger.Transfer(ctx, domain.CollateralMint, creator, domain.VaultAccount(id), initialLiquidity); err != nil {
		if delErr := s.markets.Delete(ctx, id); delErr != nil {
			s.logger.ErrorContext(ctx, "market_service: rollback of unfunded market failed",
				slog.Uint64("market_id", id),
				slog.String("error", delErr.Error()),
			)
		}
		return domain.Market{}, fmt.Errorf("market_service: fund market %d: %w", id, err)
	}

	if err := s.protocol.IncrementMarketCount(ctx); err != nil {
		s.logger.WarnContext(ctx, "market_service: increment market count failed",
			slog.String("error", err.Error()),
		)
	}

	yesBps, noBps := amm.Prices(m.Reserves, m.YesSupply, m.NoSupply)
	if err := s.quotes.SetQuote(ctx, id, yesBps, noBps, now); err != nil {
		s.logger.WarnContext(ctx, "market_service: quote cache set failed",
			slog.Uint64("market_id", id),
			slog.String("error", err.Error()),
		)
	}

	if err := s.audit.Log(ctx, domain.EventMarketCreated, map[string]any{
		"market_id": id,
		"creator":   creator,
		"liquidity": initialLiquidity,
	}); err != nil {
		s.logger.WarnContext(ctx, "market_service: audit log failed",
			slog.String("error", err.Error()),
		)
	}

	evt, _ := json.Marshal(domain.MarketCreatedEvent{
		Event:            domain.EventMarketCreated,
		MarketID:         id,
		Creator:          creator,
		Question:         question,
		EndTime:          endTime,
		InitialLiquidity: initialLiquidity,
	})
	if err := s.bus.Publish(ctx, domain.ChannelMarkets, evt); err != nil {
		s.logger.WarnContext(ctx, "market_service: publish event failed",
			slog.Uint64("market_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "market_service: created market",
		slog.Uint64("market_id", id),
		slog.String("creator", creator),
		slog.Uint64("liquidity", initialLiquidity),
	)

	return m, nil
}

// Get returns a market with its externally visible status resolved against
// the current clock.
func (s *MarketService) Get(ctx context.Context, id uint64) (domain.Market, error) {
	m, err := s.markets.GetByID(ctx, id)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: get market %d: %w", id, err)
	}
	m.Status = m.ViewStatus(s.clock.Now())
	return m, nil
}

// List returns markets, newest first.
func (s *MarketService) List(ctx context.Context, activeOnly bool, opts domain.ListOpts) ([]domain.Market, error) {
	var (
		markets []domain.Market
		err     error
	)
	if activeOnly {
		markets, err = s.markets.ListActive(ctx, opts)
	} else {
		markets, err = s.markets.List(ctx, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("market_service: list markets: %w", err)
	}

	now := s.clock.Now()
	for i := range markets {
		markets[i].Status = markets[i].ViewStatus(now)
	}
	return markets, nil
}

// Prices returns the current YES/NO prices for a market in basis points. It
// serves from the quote cache when possible and falls back to computing from
// stored pool state, back-filling the cache on the way out.
func (s *MarketService) Prices(ctx context.Context, id uint64) (yesBps, noBps uint64, err error) {
	yesBps, noBps, _, err = s.quotes.GetQuote(ctx, id)
	if err == nil {
		return yesBps, noBps, nil
	}

	m, err := s.markets.GetByID(ctx, id)
	if err != nil {
		return 0, 0, fmt.Errorf("market_service: get market %d: %w", id, err)
	}

	yesBps, noBps = amm.Prices(m.Reserves, m.YesSupply, m.NoSupply)
	if cacheErr := s.quotes.SetQuote(ctx, id, yesBps, noBps, s.clock.Now()); cacheErr != nil {
		s.logger.WarnContext(ctx, "market_service: quote cache set failed",
			slog.Uint64("market_id", id),
			slog.String("error", cacheErr.Error()),
		)
	}
	return yesBps, noBps, nil
}
