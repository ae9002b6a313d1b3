package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/pythmarket/internal/domain"
	"github.com/alanyoungcy/pythmarket/internal/engine"
)

// Notifier delivers operator-facing notifications for settlement events.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Archiver persists a resolved market's trading history to long-term storage.
type Archiver interface {
	ArchiveMarket(ctx context.Context, m domain.Market, trades []domain.Trade) error
}

// SettlementService resolves markets and pays out winning positions.
type SettlementService struct {
	markets     domain.MarketStore
	trades      domain.TradeStore
	redemptions domain.RedemptionStore
	ledger      domain.TokenLedger
	locks       domain.LockManager
	bus         domain.SignalBus
	audit       domain.AuditStore
	auth        domain.ResolverAuth
	clock       domain.Clock
	lockTTL     time.Duration
	notifier    Notifier // optional
	archiver    Archiver // optional
	logger      *slog.Logger
}

// NewSettlementService creates a SettlementService. notifier and archiver may
// be nil, in which case the respective step is skipped.
func NewSettlementService(
	markets domain.MarketStore,
	trades domain.TradeStore,
	redemptions domain.RedemptionStore,
	ledger domain.TokenLedger,
	locks domain.LockManager,
	bus domain.SignalBus,
	audit domain.AuditStore,
	auth domain.ResolverAuth,
	clock domain.Clock,
	lockTTL time.Duration,
	notifier Notifier,
	archiver Archiver,
	logger *slog.Logger,
) *SettlementService {
	return &SettlementService{
		markets:     markets,
		trades:      trades,
		redemptions: redemptions,
		ledger:      ledger,
		locks:       locks,
		bus:         bus,
		audit:       audit,
		auth:        auth,
		clock:       clock,
		lockTTL:     lockTTL,
		notifier:    notifier,
		archiver:    archiver,
		logger:      logger,
	}
}

// Resolve records the outcome of a market. Only a caller holding the resolver
// capability may resolve, and only after the trading window has closed.
func (s *SettlementService) Resolve(ctx context.Context, marketID uint64, caller string, outcome domain.Outcome) (domain.Market, error) {
	if !s.auth.IsResolver(caller) {
		return domain.Market{}, domain.ErrUnauthorized
	}
	if outcome != domain.OutcomeYes && outcome != domain.OutcomeNo {
		return domain.Market{}, domain.ErrInvalidSide
	}

	unlock, err := s.locks.Acquire(ctx, marketLockKey(marketID), s.lockTTL)
	if err != nil {
		return domain.Market{}, fmt.Errorf("settlement_service: lock market %d: %w", marketID, err)
	}
	defer unlock()

	m, err := s.markets.GetByID(ctx, marketID)
	if err != nil {
		return domain.Market{}, fmt.Errorf("settlement_service: get market %d: %w", marketID, err)
	}

	now := s.clock.Now()
	if err := engine.Resolve(&m, now, outcome == domain.OutcomeYes); err != nil {
		return domain.Market{}, err
	}

	if err := s.markets.UpdateState(ctx, m); err != nil {
		return domain.Market{}, fmt.Errorf("settlement_service: persist market %d: %w", marketID, err)
	}

	if err := s.audit.Log(ctx, domain.EventMarketResolved, map[string]any{
		"market_id": marketID,
		"outcome":   string(outcome),
	}); err != nil {
		s.logger.WarnContext(ctx, "settlement_service: audit log failed",
			slog.String("error", err.Error()),
		)
	}

	evt, _ := json.Marshal(domain.MarketResolvedEvent{
		Event:    domain.EventMarketResolved,
		MarketID: marketID,
		Outcome:  outcome,
		Resolver: "resolver",
		At:       now,
	})
	if err := s.bus.Publish(ctx, domain.ChannelMarkets, evt); err != nil {
		s.logger.WarnContext(ctx, "settlement_service: publish event failed",
			slog.Uint64("market_id", marketID),
			slog.String("error", err.Error()),
		)
	}

	if s.notifier != nil {
		msg := fmt.Sprintf("Market %d resolved %s: %s", marketID, outcome, m.Question)
		if err := s.notifier.Notify(ctx, domain.EventMarketResolved, "Market resolved", msg); err != nil {
			s.logger.WarnContext(ctx, "settlement_service: notify failed",
				slog.String("error", err.Error()),
			)
		}
	}

	if s.archiver != nil {
		s.archiveHistory(ctx, m)
	}

	s.logger.InfoContext(ctx, "settlement_service: resolved market",
		slog.Uint64("market_id", marketID),
		slog.String("outcome", string(outcome)),
	)

	return m, nil
}

// Cancel voids a market. Admin capability required. Outcome tokens become
// worthless; the reserves stay in the vault.
func (s *SettlementService) Cancel(ctx context.Context, marketID uint64, caller string) (domain.Market, error) {
	if !s.auth.IsAdmin(caller) {
		return domain.Market{}, domain.ErrUnauthorized
	}

	unlock, err := s.locks.Acquire(ctx, marketLockKey(marketID), s.lockTTL)
	if err != nil {
		return domain.Market{}, fmt.Errorf("settlement_service: lock market %d: %w", marketID, err)
	}
	defer unlock()

	m, err := s.markets.GetByID(ctx, marketID)
	if err != nil {
		return domain.Market{}, fmt.Errorf("settlement_service: get market %d: %w", marketID, err)
	}

	if err := engine.Cancel(&m); err != nil {
		return domain.Market{}, err
	}

	if err := s.markets.UpdateState(ctx, m); err != nil {
		return domain.Market{}, fmt.Errorf("settlement_service: persist market %d: %w", marketID, err)
	}

	if err := s.audit.Log(ctx, "market_cancelled", map[string]any{
		"market_id": marketID,
	}); err != nil {
		s.logger.WarnContext(ctx, "settlement_service: audit log failed",
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "settlement_service: cancelled market",
		slog.Uint64("market_id", marketID),
	)

	return m, nil
}

// Redeem pays out the holder's entire winning position of a resolved market.
// The payout is the holder's proportional share of the remaining reserves;
// both reserves and winning supply shrink with each redemption, so late
// redeemers are not diluted by earlier ones.
func (s *SettlementService) Redeem(ctx context.Context, marketID uint64, holder string) (domain.Redemption, error) {
	unlock, err := s.locks.Acquire(ctx, marketLockKey(marketID), s.lockTTL)
	if err != nil {
		return domain.Redemption{}, fmt.Errorf("settlement_service: lock market %d: %w", marketID, err)
	}
	defer unlock()

	m, err := s.markets.GetByID(ctx, marketID)
	if err != nil {
		return domain.Redemption{}, fmt.Errorf("settlement_service: get market %d: %w", marketID, err)
	}

	side, ok := m.WinningSide()
	if !ok {
		return domain.Redemption{}, domain.ErrNotResolved
	}

	mint := domain.OutcomeMint(marketID, side)
	balance, err := s.ledger.Balance(ctx, mint, holder)
	if err != nil {
		return domain.Redemption{}, fmt.Errorf("settlement_service: holder balance: %w", err)
	}

	payout, err := engine.Redeem(&m, balance)
	if err != nil {
		return domain.Redemption{}, err
	}

	// Burn the winning tokens, then release the payout. A failed payout
	// re-mints so the holder can retry.
	if err := s.ledger.Burn(ctx, mint, holder, balance); err != nil {
		return domain.Redemption{}, fmt.Errorf("settlement_service: burn winning tokens: %w", err)
	}
	if err := s.ledger.Transfer(ctx, domain.CollateralMint, domain.VaultAccount(marketID), holder, payout); err != nil {
		if mintErr := s.ledger.Mint(ctx, mint, holder, balance); mintErr != nil {
			s.logger.ErrorContext(ctx, "settlement_service: re-mint after failed payout failed",
				slog.Uint64("market_id", marketID),
				slog.String("holder", holder),
				slog.String("error", mintErr.Error()),
			)
		}
		return domain.Redemption{}, fmt.Errorf("settlement_service: pay out: %w", err)
	}

	if err := s.markets.UpdateState(ctx, m); err != nil {
		return domain.Redemption{}, fmt.Errorf("settlement_service: persist market %d: %w", marketID, err)
	}

	redemption := domain.Redemption{
		ID:           uuid.New().String(),
		MarketID:     marketID,
		Holder:       holder,
		Side:         side,
		TokensBurned: balance,
		Payout:       payout,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.redemptions.Insert(ctx, redemption); err != nil {
		return domain.Redemption{}, fmt.Errorf("settlement_service: persist redemption %s: %w", redemption.ID, err)
	}

	evt, _ := json.Marshal(domain.PositionRedeemedEvent{
		Event:        domain.EventPositionRedeemed,
		MarketID:     marketID,
		Holder:       holder,
		TokensBurned: balance,
		Payout:       payout,
	})
	if err := s.bus.Publish(ctx, domain.ChannelRedemptions, evt); err != nil {
		s.logger.WarnContext(ctx, "settlement_service: publish event failed",
			slog.Uint64("market_id", marketID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "settlement_service: redeemed position",
		slog.Uint64("market_id", marketID),
		slog.String("holder", holder),
		slog.Uint64("tokens_burned", balance),
		slog.Uint64("payout", payout),
	)

	return redemption, nil
}

// ListRedemptions returns redemptions for a market with pagination.
func (s *SettlementService) ListRedemptions(ctx context.Context, marketID uint64, opts domain.ListOpts) ([]domain.Redemption, error) {
	redemptions, err := s.redemptions.ListByMarket(ctx, marketID, opts)
	if err != nil {
		return nil, fmt.Errorf("settlement_service: list redemptions for market %d: %w", marketID, err)
	}
	return redemptions, nil
}

// archiveHistory snapshots the full trade history of a resolved market.
// Failures are logged only; archival never blocks settlement.
func (s *SettlementService) archiveHistory(ctx context.Context, m domain.Market) {
	trades, err := s.trades.ListByMarket(ctx, m.ID, domain.ListOpts{})
	if err != nil {
		s.logger.WarnContext(ctx, "settlement_service: load trades for archive failed",
			slog.Uint64("market_id", m.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := s.archiver.ArchiveMarket(ctx, m, trades); err != nil {
		s.logger.WarnContext(ctx, "settlement_service: archive failed",
			slog.Uint64("market_id", m.ID),
			slog.String("error", err.Error()),
		)
	}
}
