// Package engine implements the market state machine: creation seeding,
// trade execution, resolution, and redemption accounting. Every function is
// pure with respect to I/O -- it validates against the passed-in market and
// protocol state, and mutates the market value only after all checks pass.
// Orchestration (locking, token movement, persistence, events) lives in the
// service layer.
package engine

import (
	"time"

	"github.com/alanyoungcy/pythmarket/internal/amm"
	"github.com/alanyoungcy/pythmarket/internal/domain"
)

// feeDenominator converts basis points to a fraction.
const feeDenominator = 10_000

// BuyResult is the outcome of a successful buy against the curve.
type BuyResult struct {
	TokensOut uint64
	Fee       uint64
	NetAmount uint64
}

// SellResult is the outcome of a successful sell against the curve.
type SellResult struct {
	// GrossOut is the collateral released by the curve; the full amount
	// leaves the reserve pool.
	GrossOut uint64
	// Fee is retained by the protocol out of GrossOut.
	Fee uint64
	// NetOut is what the seller receives.
	NetOut uint64
}

// ValidateCreation checks the inputs for a new market against protocol
// state and the clock.
func ValidateCreation(p domain.Protocol, question string, endTime time.Time, initialLiquidity uint64, now time.Time) error {
	if p.Paused {
		return domain.ErrProtocolPaused
	}
	if !endTime.After(now) {
		return domain.ErrInvalidEndTime
	}
	if len(question) > domain.MaxQuestionLen {
		return domain.ErrQuestionTooLong
	}
	if initialLiquidity < p.MinLiquidity {
		return domain.ErrInsufficientLiquidity
	}
	return nil
}

// Seed returns the initial balanced state for a market funded with the
// given liquidity: reserves = L, both supplies = isqrt(L^2/2).
func Seed(initialLiquidity uint64) (reserves, supplyEach uint64) {
	return initialLiquidity, amm.SeedSupply(initialLiquidity)
}

// gateTrading rejects trades on markets that are not currently tradeable.
// The clock check is independent of the stored status: resolution is an
// explicit external call that may lag the end time.
func gateTrading(m *domain.Market, p domain.Protocol, now time.Time) error {
	if m.Status != domain.MarketStatusActive {
		return domain.ErrMarketNotActive
	}
	if m.TradingEnded(now) {
		return domain.ErrMarketEnded
	}
	if p.Paused {
		return domain.ErrProtocolPaused
	}
	return nil
}

// Buy executes a purchase of outcome tokens against the market. The fee is
// taken from the input before the curve sees it. On success the market's
// reserves and the bought side's supply are updated in place.
func Buy(m *domain.Market, p domain.Protocol, now time.Time, req domain.TradeRequest) (BuyResult, error) {
	if !req.Side.Valid() {
		return BuyResult{}, domain.ErrInvalidSide
	}
	if req.Amount == 0 {
		return BuyResult{}, domain.ErrInvalidAmount
	}
	if err := gateTrading(m, p, now); err != nil {
		return BuyResult{}, err
	}

	fee, err := amm.MulDiv(req.Amount, p.FeeBps, feeDenominator)
	if err != nil {
		return BuyResult{}, err
	}
	netAmount := req.Amount - fee

	tokensOut, err := amm.TokensToMint(
		m.Reserves,
		m.Supply(req.Side),
		m.Supply(req.Side.Other()),
		netAmount,
	)
	if err != nil {
		return BuyResult{}, err
	}

	if tokensOut < req.MinOut {
		return BuyResult{}, domain.ErrSlippageExceeded
	}

	newReserves, err := amm.CheckedAdd(m.Reserves, netAmount)
	if err != nil {
		return BuyResult{}, err
	}
	newSupply, err := amm.CheckedAdd(m.Supply(req.Side), tokensOut)
	if err != nil {
		return BuyResult{}, err
	}

	m.Reserves = newReserves
	m.SetSupply(req.Side, newSupply)

	return BuyResult{TokensOut: tokensOut, Fee: fee, NetAmount: netAmount}, nil
}

// Sell executes a sale of outcome tokens back to the market. The curve is
// evaluated on pre-fee reserves; the fee comes out of the released
// collateral: the full gross amount leaves the pool and the protocol
// retains the fee, so reserves decrease by more than the seller receives.
func Sell(m *domain.Market, p domain.Protocol, now time.Time, req domain.TradeRequest) (SellResult, error) {
	if !req.Side.Valid() {
		return SellResult{}, domain.ErrInvalidSide
	}
	if req.Amount == 0 {
		return SellResult{}, domain.ErrInvalidAmount
	}
	if err := gateTrading(m, p, now); err != nil {
		return SellResult{}, err
	}

	grossOut, err := amm.ReserveToRelease(
		m.Reserves,
		m.Supply(req.Side),
		m.Supply(req.Side.Other()),
		req.Amount,
	)
	if err != nil {
		return SellResult{}, err
	}

	fee, err := amm.MulDiv(grossOut, p.FeeBps, feeDenominator)
	if err != nil {
		return SellResult{}, err
	}
	netOut := grossOut - fee

	if netOut < req.MinOut {
		return SellResult{}, domain.ErrSlippageExceeded
	}

	newReserves, err := amm.CheckedSub(m.Reserves, grossOut)
	if err != nil {
		return SellResult{}, err
	}
	newSupply, err := amm.CheckedSub(m.Supply(req.Side), req.Amount)
	if err != nil {
		return SellResult{}, err
	}

	m.Reserves = newReserves
	m.SetSupply(req.Side, newSupply)

	return SellResult{GrossOut: grossOut, Fee: fee, NetOut: netOut}, nil
}

// Resolve transitions a market to its terminal resolved state. Authorization
// is the caller's responsibility; the engine only enforces the lifecycle.
func Resolve(m *domain.Market, now time.Time, yesWins bool) error {
	if m.Status != domain.MarketStatusActive {
		return domain.ErrMarketNotActive
	}
	if !m.TradingEnded(now) {
		return domain.ErrMarketNotEnded
	}

	if yesWins {
		m.Outcome = domain.OutcomeYes
	} else {
		m.Outcome = domain.OutcomeNo
	}
	m.Status = domain.MarketStatusResolved
	return nil
}

// Cancel voids a market. Terminal; no refund path is defined.
func Cancel(m *domain.Market) error {
	if m.Status != domain.MarketStatusActive {
		return domain.ErrMarketNotActive
	}
	m.Status = domain.MarketStatusCancelled
	m.Outcome = domain.OutcomeUndetermined
	return nil
}

// Redeem pays out a winning position: the holder's proportional share of
// the remaining reserves, floor-divided against the winning side's
// outstanding supply. Each redemption observes a fresh snapshot -- prior
// redemptions shrink both reserves and supply -- so the pool exhausts
// proportionally, leaving only floor-division dust behind. Rounding
// direction must stay floor; rounding up risks paying out more than the
// pool holds. Losing-side tokens have no payout path and are left
// outstanding.
func Redeem(m *domain.Market, holderBalance uint64) (uint64, error) {
	winning, ok := m.WinningSide()
	if !ok || m.Status != domain.MarketStatusResolved {
		return 0, domain.ErrNotResolved
	}
	if holderBalance == 0 {
		return 0, domain.ErrNoWinningTokens
	}

	totalSupply := m.Supply(winning)
	if holderBalance > totalSupply {
		return 0, domain.ErrInsufficientTokens
	}

	payout, err := amm.MulDiv(holderBalance, m.Reserves, totalSupply)
	if err != nil {
		return 0, err
	}

	newReserves, err := amm.CheckedSub(m.Reserves, payout)
	if err != nil {
		return 0, err
	}
	m.Reserves = newReserves
	m.SetSupply(winning, totalSupply-holderBalance)
	return payout, nil
}
