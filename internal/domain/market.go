package domain

import (
	"fmt"
	"time"
)

// MaxQuestionLen bounds the length of a market question.
const MaxQuestionLen = 256

// MarketStatus represents the lifecycle state of a market.
type MarketStatus string

const (
	// MarketStatusActive means the market is open for trading.
	MarketStatusActive MarketStatus = "active"
	// MarketStatusEnded means the trading window has closed but the market
	// has not been resolved yet. This status is derived from the clock; the
	// stored status stays "active" until an explicit resolution call.
	MarketStatusEnded MarketStatus = "ended"
	// MarketStatusResolved means an outcome has been determined. Terminal.
	MarketStatusResolved MarketStatus = "resolved"
	// MarketStatusCancelled means the market was voided. Terminal.
	MarketStatusCancelled MarketStatus = "cancelled"
)

// Outcome is the resolved result of a market.
type Outcome string

const (
	OutcomeUndetermined Outcome = "undetermined"
	OutcomeYes          Outcome = "yes"
	OutcomeNo           Outcome = "no"
)

// Side selects one of the two outcome tokens of a market.
type Side string

const (
	SideYes Side = "yes"
	SideNo  Side = "no"
)

// Valid reports whether s is one of the two known sides.
func (s Side) Valid() bool {
	return s == SideYes || s == SideNo
}

// Other returns the opposite side.
func (s Side) Other() Side {
	if s == SideYes {
		return SideNo
	}
	return SideYes
}

// Market is one prediction question with its own collateral pool. Reserves
// and supplies are held to the bonding-curve invariant
// reserves ~= isqrt(yes_supply^2 + no_supply^2) within the rounding
// tolerance of the curve's precision scale.
type Market struct {
	ID        uint64       `json:"id"`
	Question  string       `json:"question"`
	Creator   string       `json:"creator"`
	EndTime   time.Time    `json:"end_time"`
	Reserves  uint64       `json:"reserves"`
	YesSupply uint64       `json:"yes_supply"`
	NoSupply  uint64       `json:"no_supply"`
	Status    MarketStatus `json:"status"`
	Outcome   Outcome      `json:"outcome"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Supply returns the outstanding token supply for the given side.
func (m *Market) Supply(side Side) uint64 {
	if side == SideYes {
		return m.YesSupply
	}
	return m.NoSupply
}

// SetSupply overwrites the outstanding supply for the given side.
func (m *Market) SetSupply(side Side, v uint64) {
	if side == SideYes {
		m.YesSupply = v
	} else {
		m.NoSupply = v
	}
}

// TradingEnded reports whether the trading window has closed at the given
// instant. Trading gates on the wall clock rather than the stored status,
// because the status only changes on an explicit resolution call that may
// lag the clock.
func (m *Market) TradingEnded(now time.Time) bool {
	return !now.Before(m.EndTime)
}

// ViewStatus returns the externally visible status at the given instant:
// an Active market whose end time has passed reads as Ended.
func (m *Market) ViewStatus(now time.Time) MarketStatus {
	if m.Status == MarketStatusActive && m.TradingEnded(now) {
		return MarketStatusEnded
	}
	return m.Status
}

// WinningSide returns the side that pays out, or false when the market has
// no determined outcome.
func (m *Market) WinningSide() (Side, bool) {
	switch m.Outcome {
	case OutcomeYes:
		return SideYes, true
	case OutcomeNo:
		return SideNo, true
	default:
		return "", false
	}
}

// CollateralMint is the ledger mint id of the collateral token.
const CollateralMint = "collateral"

// TreasuryAccount is the ledger account that collects protocol fees retained
// from sell proceeds.
const TreasuryAccount = "treasury"

// YesMint returns the ledger mint id of a market's YES outcome token.
func YesMint(marketID uint64) string {
	return fmt.Sprintf("yes:%d", marketID)
}

// NoMint returns the ledger mint id of a market's NO outcome token.
func NoMint(marketID uint64) string {
	return fmt.Sprintf("no:%d", marketID)
}

// OutcomeMint returns the ledger mint id for the given side of a market.
func OutcomeMint(marketID uint64, side Side) string {
	if side == SideYes {
		return YesMint(marketID)
	}
	return NoMint(marketID)
}

// VaultAccount returns the ledger account holding a market's collateral
// reserves.
func VaultAccount(marketID uint64) string {
	return fmt.Sprintf("vault:%d", marketID)
}
