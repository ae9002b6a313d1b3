package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/pythmarket/internal/amm"
	"github.com/alanyoungcy/pythmarket/internal/domain"
	"github.com/alanyoungcy/pythmarket/internal/engine"
)

// TradeService executes buys and sells against a market's bonding curve.
// Every trade runs under the market's lock: load state, price the trade on a
// working copy, move tokens, persist, publish.
type TradeService struct {
	markets  domain.MarketStore
	trades   domain.TradeStore
	protocol domain.ProtocolStore
	ledger   domain.TokenLedger
	locks    domain.LockManager
	quotes   domain.QuoteCache
	bus      domain.SignalBus
	clock    domain.Clock
	lockTTL  time.Duration
	logger   *slog.Logger
}

// NewTradeService creates a TradeService with all required dependencies.
func NewTradeService(
	markets domain.MarketStore,
	trades domain.TradeStore,
	protocol domain.ProtocolStore,
	ledger domain.TokenLedger,
	locks domain.LockManager,
	quotes domain.QuoteCache,
	bus domain.SignalBus,
	clock domain.Clock,
	lockTTL time.Duration,
	logger *slog.Logger,
) *TradeService {
	return &TradeService{
		markets:  markets,
		trades:   trades,
		protocol: protocol,
		ledger:   ledger,
		locks:    locks,
		quotes:   quotes,
		bus:      bus,
		clock:    clock,
		lockTTL:  lockTTL,
		logger:   logger,
	}
}

// Buy purchases outcome tokens with collateral. The fee comes off the input
// before the curve is evaluated; only the net amount enters the vault.
func (s *TradeService) Buy(ctx context.Context, marketID uint64, trader string, req domain.TradeRequest) (domain.Trade, error) {
	unlock, err := s.locks.Acquire(ctx, marketLockKey(marketID), s.lockTTL)
	if err != nil {
		return domain.Trade{}, fmt.Errorf("trade_service: lock market %d: %w", marketID, err)
	}
	defer unlock()

	m, p, err := s.loadMarketAndProtocol(ctx, marketID)
	if err != nil {
		return domain.Trade{}, err
	}

	now := s.clock.Now()
	res, err := engine.Buy(&m, p, now, req)
	if err != nil {
		return domain.Trade{}, err
	}

	// Move the net collateral into the vault, then mint the outcome tokens.
	// A failed mint refunds the collateral so the trader never pays for
	// tokens that were not delivered.
	vault := domain.VaultAccount(marketID)
	if err := s.ledger.Transfer(ctx, domain.CollateralMint, trader, vault, res.NetAmount); err != nil {
		return domain.Trade{}, fmt.Errorf("trade_service: collect collateral: %w", err)
	}
	if err := s.ledger.Mint(ctx, domain.OutcomeMint(marketID, req.Side), trader, res.TokensOut); err != nil {
		if refundErr := s.ledger.Transfer(ctx, domain.CollateralMint, vault, trader, res.NetAmount); refundErr != nil {
			s.logger.ErrorContext(ctx, "trade_service: refund after failed mint failed",
				slog.Uint64("market_id", marketID),
				slog.String("trader", trader),
				slog.String("error", refundErr.Error()),
			)
		}
		return domain.Trade{}, fmt.Errorf("trade_service: mint outcome tokens: %w", err)
	}

	trade := domain.Trade{
		ID:        uuid.New().String(),
		MarketID:  marketID,
		Trader:    trader,
		Side:      req.Side,
		Direction: domain.TradeDirectionBuy,
		AmountIn:  req.Amount,
		AmountOut: res.TokensOut,
		Fee:       res.Fee,
		CreatedAt: now,
	}
	trade.YesPriceBps, trade.NoPriceBps = amm.Prices(m.Reserves, m.YesSupply, m.NoSupply)

	if err := s.finishTrade(ctx, m, trade, domain.EventTokensBought); err != nil {
		return domain.Trade{}, err
	}
	return trade, nil
}

// Sell burns outcome tokens for collateral. The curve releases the gross
// amount from the vault; the seller receives it net of the fee, which moves
// to the treasury and accrues on the protocol row.
func (s *TradeService) Sell(ctx context.Context, marketID uint64, trader string, req domain.TradeRequest) (domain.Trade, error) {
	unlock, err := s.locks.Acquire(ctx, marketLockKey(marketID), s.lockTTL)
	if err != nil {
		return domain.Trade{}, fmt.Errorf("trade_service: lock market %d: %w", marketID, err)
	}
	defer unlock()

	m, p, err := s.loadMarketAndProtocol(ctx, marketID)
	if err != nil {
		return domain.Trade{}, err
	}

	now := s.clock.Now()
	res, err := engine.Sell(&m, p, now, req)
	if err != nil {
		return domain.Trade{}, err
	}

	// Burn the sold tokens first; a seller without the tokens fails here
	// before any collateral moves.
	mint := domain.OutcomeMint(marketID, req.Side)
	if err := s.ledger.Burn(ctx, mint, trader, req.Amount); err != nil {
		return domain.Trade{}, fmt.Errorf("trade_service: burn outcome tokens: %w", err)
	}

	vault := domain.VaultAccount(marketID)
	if err := s.ledger.Transfer(ctx, domain.CollateralMint, vault, trader, res.NetOut); err != nil {
		if mintErr := s.ledger.Mint(ctx, mint, trader, req.Amount); mintErr != nil {
			s.logger.ErrorContext(ctx, "trade_service: re-mint after failed payout failed",
				slog.Uint64("market_id", marketID),
				slog.String("trader", trader),
				slog.String("error", mintErr.Error()),
			)
		}
		return domain.Trade{}, fmt.Errorf("trade_service: pay out collateral: %w", err)
	}
	if res.Fee > 0 {
		if err := s.ledger.Transfer(ctx, domain.CollateralMint, vault, domain.TreasuryAccount, res.Fee); err != nil {
			s.logger.ErrorContext(ctx, "trade_service: fee transfer failed",
				slog.Uint64("market_id", marketID),
				slog.Uint64("fee", res.Fee),
				slog.String("error", err.Error()),
			)
		} else if err := s.protocol.AccrueFees(ctx, res.Fee); err != nil {
			s.logger.WarnContext(ctx, "trade_service: fee accrual failed",
				slog.String("error", err.Error()),
			)
		}
	}

	trade := domain.Trade{
		ID:        uuid.New().String(),
		MarketID:  marketID,
		Trader:    trader,
		Side:      req.Side,
		Direction: domain.TradeDirectionSell,
		AmountIn:  req.Amount,
		AmountOut: res.NetOut,
		Fee:       res.Fee,
		CreatedAt: now,
	}
	trade.YesPriceBps, trade.NoPriceBps = amm.Prices(m.Reserves, m.YesSupply, m.NoSupply)

	if err := s.finishTrade(ctx, m, trade, domain.EventTokensSold); err != nil {
		return domain.Trade{}, err
	}
	return trade, nil
}

// ListByMarket returns trades for a market with pagination.
func (s *TradeService) ListByMarket(ctx context.Context, marketID uint64, opts domain.ListOpts) ([]domain.Trade, error) {
	trades, err := s.trades.ListByMarket(ctx, marketID, opts)
	if err != nil {
		return nil, fmt.Errorf("trade_service: list by market %d: %w", marketID, err)
	}
	return trades, nil
}

func (s *TradeService) loadMarketAndProtocol(ctx context.Context, marketID uint64) (domain.Market, domain.Protocol, error) {
	m, err := s.markets.GetByID(ctx, marketID)
	if err != nil {
		return domain.Market{}, domain.Protocol{}, fmt.Errorf("trade_service: get market %d: %w", marketID, err)
	}
	p, err := s.protocol.Get(ctx)
	if err != nil {
		return domain.Market{}, domain.Protocol{}, fmt.Errorf("trade_service: load protocol: %w", err)
	}
	return m, p, nil
}

// finishTrade persists the mutated pool state and the trade record, refreshes
// the quote cache and publishes the trade event. Cache and bus failures are
// logged but do not fail the trade.
func (s *TradeService) finishTrade(ctx context.Context, m domain.Market, trade domain.Trade, event string) error {
	if err := s.markets.UpdateState(ctx, m); err != nil {
		return fmt.Errorf("trade_service: persist market %d: %w", m.ID, err)
	}
	if err := s.trades.Insert(ctx, trade); err != nil {
		return fmt.Errorf("trade_service: persist trade %s: %w", trade.ID, err)
	}

	if err := s.quotes.SetQuote(ctx, m.ID, trade.YesPriceBps, trade.NoPriceBps, trade.CreatedAt); err != nil {
		s.logger.WarnContext(ctx, "trade_service: quote cache set failed",
			slog.Uint64("market_id", m.ID),
			slog.String("error", err.Error()),
		)
	}

	evt, _ := json.Marshal(domain.TradeEvent{
		Event:       event,
		MarketID:    m.ID,
		Trader:      trade.Trader,
		Side:        trade.Side,
		AmountIn:    trade.AmountIn,
		AmountOut:   trade.AmountOut,
		Fee:         trade.Fee,
		YesPriceBps: trade.YesPriceBps,
		NoPriceBps:  trade.NoPriceBps,
	})
	if err := s.bus.Publish(ctx, domain.ChannelTrades, evt); err != nil {
		s.logger.WarnContext(ctx, "trade_service: publish event failed",
			slog.Uint64("market_id", m.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "trade_service: executed trade",
		slog.String("trade_id", trade.ID),
		slog.Uint64("market_id", m.ID),
		slog.String("direction", string(trade.Direction)),
		slog.String("side", string(trade.Side)),
		slog.Uint64("amount_in", trade.AmountIn),
		slog.Uint64("amount_out", trade.AmountOut),
		slog.Uint64("fee", trade.Fee),
	)
	return nil
}
